package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/courtsidehq/courtside/internal/model"
)

type MagicLinkStore struct {
	db *sql.DB
}

func NewMagicLinkStore(db *sql.DB) *MagicLinkStore {
	return &MagicLinkStore{db: db}
}

func scanMagicLink(scanner interface{ Scan(...any) error }) (*model.MagicLink, error) {
	var ml model.MagicLink
	var consumedAt sql.NullTime

	err := scanner.Scan(
		&ml.ID, &ml.Email, &ml.Code, &ml.TokenHash,
		&ml.ExpiresAt, &consumedAt, &ml.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if consumedAt.Valid {
		ml.ConsumedAt = &consumedAt.Time
	}
	return &ml, nil
}

const magicLinkCols = `id, email, code, token_hash, expires_at, consumed_at, created_at`

// Create inserts a sign-in row. The raw token never touches the database;
// callers store its digest.
func (s *MagicLinkStore) Create(email, code, tokenHash string, expiresAt time.Time) (*model.MagicLink, error) {
	result, err := s.db.Exec(
		`INSERT INTO magic_links (email, code, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		email, code, tokenHash, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert magic link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+magicLinkCols+` FROM magic_links WHERE id = ?`, id)
	return scanMagicLink(row)
}

// GetLatestByEmail returns the most recently issued row for the email
// regardless of expiry or consumption, so callers can report precisely why a
// stale credential failed. Newer rows supersede older ones.
func (s *MagicLinkStore) GetLatestByEmail(email string) (*model.MagicLink, error) {
	row := s.db.QueryRow(
		`SELECT `+magicLinkCols+` FROM magic_links WHERE email = ? ORDER BY id DESC LIMIT 1`,
		email,
	)
	ml, err := scanMagicLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest magic link by email: %w", err)
	}
	return ml, nil
}

// Consume marks the row consumed if and only if it is still unconsumed and
// unexpired. Returns false when another verification already won the race.
func (s *MagicLinkStore) Consume(id int64, now time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE magic_links SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL AND expires_at > ?`,
		now, id, now,
	)
	if err != nil {
		return false, fmt.Errorf("consume magic link: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *MagicLinkStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_links WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
