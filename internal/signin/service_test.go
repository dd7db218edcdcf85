package signin

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/courtsidehq/courtside/internal/database"
	"github.com/courtsidehq/courtside/internal/model"
	"github.com/courtsidehq/courtside/internal/store"
)

type fakeSender struct {
	to    string
	code  string
	token string
	err   error
	sends int
}

func (f *fakeSender) SendSignInCode(to, code, rawToken string) error {
	f.to = to
	f.code = code
	f.token = rawToken
	f.sends++
	return f.err
}

func newTestService(t *testing.T) (*Service, *fakeSender, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sender := &fakeSender{}
	svc := NewService(
		store.NewUserStore(db),
		store.NewParentStore(db),
		store.NewMagicLinkStore(db),
		sender,
		slog.New(slog.DiscardHandler),
	)
	return svc, sender, db
}

func TestRequestSignInRequiresEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	if err := svc.RequestSignIn("   "); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("err = %v, want ErrEmailRequired", err)
	}
}

func TestRequestAndVerifyWithCode(t *testing.T) {
	svc, sender, _ := newTestService(t)

	if err := svc.RequestSignIn("A@X.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}
	if sender.to != "a@x.com" {
		t.Errorf("sender to = %q, want lower-cased %q", sender.to, "a@x.com")
	}

	ident, err := svc.VerifySignIn("a@x.com", sender.code)
	if err != nil {
		t.Fatalf("verify sign-in: %v", err)
	}
	if ident.Email != "a@x.com" {
		t.Errorf("identity email = %q, want %q", ident.Email, "a@x.com")
	}
	if ident.Role != model.RoleParent {
		t.Errorf("identity role = %q, want %q (new accounts start as parents)", ident.Role, model.RoleParent)
	}
}

func TestVerifySecondUseFailsAlreadyConsumed(t *testing.T) {
	svc, sender, _ := newTestService(t)

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}
	if _, err := svc.VerifySignIn("a@x.com", sender.code); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	_, err := svc.VerifySignIn("a@x.com", sender.code)
	if !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("err = %v, want ErrAlreadyConsumed", err)
	}
}

func TestVerifyWithRawToken(t *testing.T) {
	svc, sender, _ := newTestService(t)

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}

	// The raw token authenticates even though only its digest is stored and
	// the plaintext code was never transmitted back.
	ident, err := svc.VerifySignIn("a@x.com", sender.token)
	if err != nil {
		t.Fatalf("verify with token: %v", err)
	}
	if ident == nil {
		t.Fatal("expected identity")
	}
}

func TestVerifyNoCodeIssued(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.VerifySignIn("nobody@x.com", "123456")
	if !errors.Is(err, ErrNoCodeIssued) {
		t.Errorf("err = %v, want ErrNoCodeIssued", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc, sender, _ := newTestService(t)

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}

	wrong := "000000"
	if wrong == sender.code {
		wrong = "000001"
	}
	_, err := svc.VerifySignIn("a@x.com", wrong)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	svc, sender, db := newTestService(t)

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	if _, err := db.Exec(`UPDATE magic_links SET expires_at = ?`, past); err != nil {
		t.Fatalf("rewind expiry: %v", err)
	}

	_, err := svc.VerifySignIn("a@x.com", sender.code)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestNewerRequestSupersedesOlder(t *testing.T) {
	svc, sender, _ := newTestService(t)

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	oldCode := sender.code

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if sender.code == oldCode {
		t.Fatal("second request produced the same code; cannot test supersession")
	}

	// Only the newest row is considered, so the older code no longer works.
	_, err := svc.VerifySignIn("a@x.com", oldCode)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("err = %v, want ErrInvalidCredential for superseded code", err)
	}

	if _, err := svc.VerifySignIn("a@x.com", sender.code); err != nil {
		t.Errorf("newest code should verify: %v", err)
	}
}

func TestVerifyCreatesUserAndParentProfile(t *testing.T) {
	svc, sender, db := newTestService(t)

	if err := svc.RequestSignIn("new@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}
	ident, err := svc.VerifySignIn("new@x.com", sender.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	profile, err := store.NewParentStore(db).GetByUserID(ident.UserID)
	if err != nil {
		t.Fatalf("lookup parent profile: %v", err)
	}
	if profile == nil {
		t.Error("expected a parent profile for the new account")
	}
}

func TestVerifyExistingUserKeepsRole(t *testing.T) {
	svc, sender, db := newTestService(t)

	coach, err := store.NewUserStore(db).Create("coach@x.com", model.RoleCoach)
	if err != nil {
		t.Fatalf("seed coach: %v", err)
	}

	if err := svc.RequestSignIn("coach@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}
	ident, err := svc.VerifySignIn("coach@x.com", sender.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.UserID != coach.ID {
		t.Errorf("user id = %d, want existing user %d", ident.UserID, coach.ID)
	}
	if ident.Role != model.RoleCoach {
		t.Errorf("role = %q, want %q", ident.Role, model.RoleCoach)
	}

	// Non-parent accounts do not get parent profiles bootstrapped.
	profile, err := store.NewParentStore(db).GetByUserID(coach.ID)
	if err != nil {
		t.Fatalf("lookup parent profile: %v", err)
	}
	if profile != nil {
		t.Error("coach should not receive a parent profile on sign-in")
	}
}

func TestVerifyReportsUserCreateFailure(t *testing.T) {
	svc, sender, db := newTestService(t)

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("request sign-in: %v", err)
	}

	// Block the insert so the create fails while the lookup still finds no
	// row. The surfaced error must carry the insert failure, not come back
	// nil.
	if _, err := db.Exec(`CREATE TRIGGER block_user_insert BEFORE INSERT ON users
		BEGIN SELECT RAISE(ABORT, 'inserts blocked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err := svc.VerifySignIn("a@x.com", sender.code)
	if err == nil {
		t.Fatal("expected an error when the user row cannot be created")
	}
	if !strings.Contains(err.Error(), "inserts blocked") {
		t.Errorf("err = %v, want the insert failure surfaced", err)
	}
}

func TestDeliveryFailureDoesNotBlockIssuance(t *testing.T) {
	svc, sender, _ := newTestService(t)
	sender.err = errors.New("postmark down")

	if err := svc.RequestSignIn("a@x.com"); err != nil {
		t.Fatalf("request sign-in should survive delivery failure: %v", err)
	}

	// The typed code still verifies even though the email never went out.
	if _, err := svc.VerifySignIn("a@x.com", sender.code); err != nil {
		t.Errorf("verify after failed delivery: %v", err)
	}
}
