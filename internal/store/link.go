package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/courtsidehq/courtside/internal/model"
)

type LinkStore struct {
	db *sql.DB
}

func NewLinkStore(db *sql.DB) *LinkStore {
	return &LinkStore{db: db}
}

func scanLink(scanner interface{ Scan(...any) error }) (*model.ParentPlayerLink, error) {
	var l model.ParentPlayerLink
	err := scanner.Scan(&l.ID, &l.ParentID, &l.PlayerID, &l.Role, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const linkCols = `id, parent_id, player_id, role, created_at`

// Insert adds a parent-player link if the (parent, player, role) triple does
// not already exist, and returns the row either way. Duplicate insertion is a
// no-op, which is what absorbs concurrent redemption of equivalent codes.
func (s *LinkStore) Insert(parentID, playerID int64, role string) (*model.ParentPlayerLink, error) {
	return s.insert(s.db, parentID, playerID, role)
}

// InsertTx is Insert inside a caller-managed transaction.
func (s *LinkStore) InsertTx(tx *sql.Tx, parentID, playerID int64, role string) (*model.ParentPlayerLink, error) {
	return s.insert(tx, parentID, playerID, role)
}

func (s *LinkStore) insert(q Queryer, parentID, playerID int64, role string) (*model.ParentPlayerLink, error) {
	_, err := q.Exec(
		`INSERT OR IGNORE INTO parent_player_links (parent_id, player_id, role) VALUES (?, ?, ?)`,
		parentID, playerID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}
	row := q.QueryRow(
		`SELECT `+linkCols+` FROM parent_player_links WHERE parent_id = ? AND player_id = ? AND role = ?`,
		parentID, playerID, role,
	)
	return scanLink(row)
}

// Get returns the link for the exact triple, or nil.
func (s *LinkStore) Get(parentID, playerID int64, role string) (*model.ParentPlayerLink, error) {
	row := s.db.QueryRow(
		`SELECT `+linkCols+` FROM parent_player_links WHERE parent_id = ? AND player_id = ? AND role = ?`,
		parentID, playerID, role,
	)
	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return l, nil
}

// HasAnyRole reports whether the parent holds at least one of the roles for
// the player.
func (s *LinkStore) HasAnyRole(parentID, playerID int64, roles ...string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	placeholders := strings.Repeat("?,", len(roles))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{parentID, playerID}
	for _, r := range roles {
		args = append(args, r)
	}

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM parent_player_links WHERE parent_id = ? AND player_id = ? AND role IN (`+placeholders+`)`,
		args...,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check link roles: %w", err)
	}
	return n > 0, nil
}

func (s *LinkStore) ListForPlayer(playerID int64) ([]model.ParentPlayerLink, error) {
	rows, err := s.db.Query(
		`SELECT `+linkCols+` FROM parent_player_links WHERE player_id = ? ORDER BY created_at ASC`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list links for player: %w", err)
	}
	defer rows.Close()

	var links []model.ParentPlayerLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (s *LinkStore) ListForParent(parentID int64) ([]model.ParentPlayerLink, error) {
	rows, err := s.db.Query(
		`SELECT `+linkCols+` FROM parent_player_links WHERE parent_id = ? ORDER BY created_at ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list links for parent: %w", err)
	}
	defer rows.Close()

	var links []model.ParentPlayerLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// ListGuardianUserIDs returns the user ids of every parent holding a guardian
// or owner link to the player. Used for notification fan-out.
func (s *LinkStore) ListGuardianUserIDs(playerID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT p.user_id
		 FROM parent_player_links l
		 JOIN parent_profiles p ON p.id = l.parent_id
		 WHERE l.player_id = ? AND l.role IN ('guardian', 'owner')`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list guardian user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
