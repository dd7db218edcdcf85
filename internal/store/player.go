package store

import (
	"database/sql"
	"fmt"

	"github.com/courtsidehq/courtside/internal/model"
)

type PlayerStore struct {
	db *sql.DB
}

func NewPlayerStore(db *sql.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func scanPlayer(scanner interface{ Scan(...any) error }) (*model.PlayerProfile, error) {
	var p model.PlayerProfile
	var userID sql.NullInt64
	err := scanner.Scan(
		&p.ID, &userID, &p.FirstName, &p.LastName, &p.DOB,
		&p.TeamName, &p.JerseyNumber, &p.Position, &p.ProfileImageURL, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		p.UserID = &userID.Int64
	}
	return &p, nil
}

const playerCols = `id, user_id, first_name, last_name, dob, team_name, jersey_number, position, profile_image_url, created_at`

// Create inserts an unclaimed player profile (user_id NULL).
func (s *PlayerStore) Create(firstName, lastName, dob, teamName, jerseyNumber, position, profileImageURL string) (*model.PlayerProfile, error) {
	result, err := s.db.Exec(
		`INSERT INTO player_profiles (first_name, last_name, dob, team_name, jersey_number, position, profile_image_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		firstName, lastName, dob, teamName, jerseyNumber, position, profileImageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert player profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PlayerStore) GetByID(id int64) (*model.PlayerProfile, error) {
	row := s.db.QueryRow(`SELECT `+playerCols+` FROM player_profiles WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player profile: %w", err)
	}
	return p, nil
}

// Claim sets the player's owner. Succeeds only if the player is unclaimed or
// already owned by userID, so a racing claim by someone else loses cleanly.
func (s *PlayerStore) Claim(id, userID int64) (bool, error) {
	return s.claim(s.db, id, userID)
}

// ClaimTx is Claim inside a caller-managed transaction.
func (s *PlayerStore) ClaimTx(tx *sql.Tx, id, userID int64) (bool, error) {
	return s.claim(tx, id, userID)
}

func (s *PlayerStore) claim(q Queryer, id, userID int64) (bool, error) {
	result, err := q.Exec(
		`UPDATE player_profiles SET user_id = ? WHERE id = ? AND (user_id IS NULL OR user_id = ?)`,
		userID, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("claim player: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
