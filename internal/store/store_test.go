package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/courtsidehq/courtside/internal/database"
	"github.com/courtsidehq/courtside/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedParent creates a user with a parent profile and returns both.
func seedParent(t *testing.T, db *sql.DB, email string) (*model.User, *model.ParentProfile) {
	t.Helper()
	u, err := NewUserStore(db).Create(email, model.RoleParent)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	p, err := NewParentStore(db).Create(u.ID, "")
	if err != nil {
		t.Fatalf("seed parent profile: %v", err)
	}
	return u, p
}

func seedPlayer(t *testing.T, db *sql.DB, firstName, lastName, dob string) *model.PlayerProfile {
	t.Helper()
	p, err := NewPlayerStore(db).Create(firstName, lastName, dob, "", "", "", "")
	if err != nil {
		t.Fatalf("seed player: %v", err)
	}
	return p
}

// expire rewinds a row's expires_at so expiry paths can be exercised.
func expire(t *testing.T, db *sql.DB, table string, id int64) {
	t.Helper()
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := db.Exec(`UPDATE `+table+` SET expires_at = ? WHERE id = ?`, past, id); err != nil {
		t.Fatalf("expire %s row: %v", table, err)
	}
}
