package store

import (
	"database/sql"
	"fmt"

	"github.com/courtsidehq/courtside/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, first_name, last_name, role, created_at`

// Create inserts a user. Email must already be case-folded by the caller.
func (s *UserStore) Create(email, role string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, role) VALUES (?, ?)`,
		email, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdateName(id int64, firstName, lastName string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`,
		firstName, lastName, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user name: %w", err)
	}
	return s.GetByID(id)
}
