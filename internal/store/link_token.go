package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/courtsidehq/courtside/internal/model"
)

type LinkTokenStore struct {
	db *sql.DB
}

func NewLinkTokenStore(db *sql.DB) *LinkTokenStore {
	return &LinkTokenStore{db: db}
}

func scanLinkToken(scanner interface{ Scan(...any) error }) (*model.LinkToken, error) {
	var lt model.LinkToken
	var issuedBy sql.NullInt64
	var usedAt sql.NullTime

	err := scanner.Scan(
		&lt.ID, &lt.Token, &lt.Type, &lt.Role, &lt.PlayerID,
		&issuedBy, &lt.Email, &lt.ExpiresAt, &usedAt, &lt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if issuedBy.Valid {
		lt.IssuedByUserID = &issuedBy.Int64
	}
	if usedAt.Valid {
		lt.UsedAt = &usedAt.Time
	}
	return &lt, nil
}

const linkTokenCols = `id, token, type, role, player_id, issued_by_user_id, email, expires_at, used_at, created_at`

func (s *LinkTokenStore) Create(token, typ, role string, playerID int64, issuedByUserID *int64, email string, expiresAt time.Time) (*model.LinkToken, error) {
	var issuedBy sql.NullInt64
	if issuedByUserID != nil {
		issuedBy = sql.NullInt64{Int64: *issuedByUserID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO link_tokens (token, type, role, player_id, issued_by_user_id, email, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token, typ, role, playerID, issuedBy, email, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert link token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+linkTokenCols+` FROM link_tokens WHERE id = ?`, id)
	return scanLinkToken(row)
}

// GetByToken returns the row for the exact code, or nil. State checks
// (used, expired) are the caller's job so it can report which one failed.
func (s *LinkTokenStore) GetByToken(token string) (*model.LinkToken, error) {
	row := s.db.QueryRow(`SELECT `+linkTokenCols+` FROM link_tokens WHERE token = ?`, token)
	lt, err := scanLinkToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link token: %w", err)
	}
	return lt, nil
}

// GetClaimByToken returns the claim-typed row for the code, or nil. The claim
// flow is a distinct entry point and must not accept other token types.
func (s *LinkTokenStore) GetClaimByToken(token string) (*model.LinkToken, error) {
	row := s.db.QueryRow(
		`SELECT `+linkTokenCols+` FROM link_tokens WHERE token = ? AND type = ?`,
		token, model.TokenTypeClaim,
	)
	lt, err := scanLinkToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim token: %w", err)
	}
	return lt, nil
}

// MarkUsed sets used_at if and only if the token is still unused and
// unexpired. Returns false when a concurrent redemption already won.
func (s *LinkTokenStore) MarkUsed(id int64, now time.Time) (bool, error) {
	return s.markUsed(s.db, id, now)
}

// MarkUsedTx is MarkUsed inside a caller-managed transaction.
func (s *LinkTokenStore) MarkUsedTx(tx *sql.Tx, id int64, now time.Time) (bool, error) {
	return s.markUsed(tx, id, now)
}

func (s *LinkTokenStore) markUsed(q Queryer, id int64, now time.Time) (bool, error) {
	result, err := q.Exec(
		`UPDATE link_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL AND expires_at > ?`,
		now, id, now,
	)
	if err != nil {
		return false, fmt.Errorf("mark link token used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *LinkTokenStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM link_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired link tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
