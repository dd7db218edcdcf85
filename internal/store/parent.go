package store

import (
	"database/sql"
	"fmt"

	"github.com/courtsidehq/courtside/internal/model"
)

type ParentStore struct {
	db *sql.DB
}

func NewParentStore(db *sql.DB) *ParentStore {
	return &ParentStore{db: db}
}

func scanParent(scanner interface{ Scan(...any) error }) (*model.ParentProfile, error) {
	var p model.ParentProfile
	err := scanner.Scan(&p.ID, &p.UserID, &p.Phone, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const parentCols = `id, user_id, phone, created_at`

func (s *ParentStore) Create(userID int64, phone string) (*model.ParentProfile, error) {
	result, err := s.db.Exec(
		`INSERT INTO parent_profiles (user_id, phone) VALUES (?, ?)`,
		userID, phone,
	)
	if err != nil {
		return nil, fmt.Errorf("insert parent profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ParentStore) GetByID(id int64) (*model.ParentProfile, error) {
	row := s.db.QueryRow(`SELECT `+parentCols+` FROM parent_profiles WHERE id = ?`, id)
	p, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent profile: %w", err)
	}
	return p, nil
}

// GetByUserID returns the parent profile owned by the user, or nil.
func (s *ParentStore) GetByUserID(userID int64) (*model.ParentProfile, error) {
	row := s.db.QueryRow(`SELECT `+parentCols+` FROM parent_profiles WHERE user_id = ?`, userID)
	p, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent profile by user: %w", err)
	}
	return p, nil
}

func (s *ParentStore) UpdatePhone(id int64, phone string) (*model.ParentProfile, error) {
	_, err := s.db.Exec(`UPDATE parent_profiles SET phone = ? WHERE id = ?`, phone, id)
	if err != nil {
		return nil, fmt.Errorf("update parent phone: %w", err)
	}
	return s.GetByID(id)
}
