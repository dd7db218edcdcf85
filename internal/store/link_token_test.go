package store

import (
	"testing"
	"time"

	"github.com/courtsidehq/courtside/internal/model"
)

func TestLinkTokenCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ts := NewLinkTokenStore(db)
	user, _ := seedParent(t, db, "alice@example.com")
	player := seedPlayer(t, db, "Jamie", "Lee", "2012-05-01")

	expires := time.Now().UTC().Add(24 * time.Hour)
	tok, err := ts.Create("ABC-DEF", model.TokenTypeFamilyGuardian, model.LinkRoleGuardian, player.ID, &user.ID, "", expires)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if tok.Type != model.TokenTypeFamilyGuardian {
		t.Errorf("type = %q, want %q", tok.Type, model.TokenTypeFamilyGuardian)
	}
	if tok.IssuedByUserID == nil || *tok.IssuedByUserID != user.ID {
		t.Errorf("issued_by = %v, want %d", tok.IssuedByUserID, user.ID)
	}

	got, err := ts.GetByToken("ABC-DEF")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.ID != tok.ID {
		t.Fatalf("got %+v, want row %d", got, tok.ID)
	}
}

func TestLinkTokenGetByTokenNotFound(t *testing.T) {
	db := newTestDB(t)
	ts := NewLinkTokenStore(db)

	tok, err := ts.GetByToken("NOP-QRS")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if tok != nil {
		t.Error("expected nil for unknown code")
	}
}

func TestLinkTokenGetClaimFiltersType(t *testing.T) {
	db := newTestDB(t)
	ts := NewLinkTokenStore(db)
	player := seedPlayer(t, db, "Jamie", "Lee", "2012-05-01")

	expires := time.Now().UTC().Add(24 * time.Hour)
	if _, err := ts.Create("FAM-COD", model.TokenTypeFamilyFollower, model.LinkRoleFollower, player.ID, nil, "", expires); err != nil {
		t.Fatalf("create family token: %v", err)
	}
	claim, err := ts.Create("CLM-COD", model.TokenTypeClaim, "", player.ID, nil, "", expires)
	if err != nil {
		t.Fatalf("create claim token: %v", err)
	}

	got, err := ts.GetClaimByToken("FAM-COD")
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if got != nil {
		t.Error("family token must not be visible through the claim lookup")
	}

	got, err = ts.GetClaimByToken("CLM-COD")
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if got == nil || got.ID != claim.ID {
		t.Fatalf("got %+v, want claim row %d", got, claim.ID)
	}
}

func TestLinkTokenMarkUsedOnce(t *testing.T) {
	db := newTestDB(t)
	ts := NewLinkTokenStore(db)
	player := seedPlayer(t, db, "Jamie", "Lee", "2012-05-01")

	tok, err := ts.Create("USE-ONC", model.TokenTypeClaim, "", player.ID, nil, "", time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	ok, err := ts.MarkUsed(tok.ID, now)
	if err != nil {
		t.Fatalf("first mark used: %v", err)
	}
	if !ok {
		t.Fatal("first mark used should succeed")
	}

	ok, err = ts.MarkUsed(tok.ID, now)
	if err != nil {
		t.Fatalf("second mark used: %v", err)
	}
	if ok {
		t.Error("second mark used should lose the compare-and-set")
	}
}

func TestLinkTokenMarkUsedExpired(t *testing.T) {
	db := newTestDB(t)
	ts := NewLinkTokenStore(db)
	player := seedPlayer(t, db, "Jamie", "Lee", "2012-05-01")

	tok, err := ts.Create("EXP-IRD", model.TokenTypeClaim, "", player.ID, nil, "", time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	expire(t, db, "link_tokens", tok.ID)

	ok, err := ts.MarkUsed(tok.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if ok {
		t.Error("marking an expired token used should fail")
	}
}

func TestLinkTokenDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	ts := NewLinkTokenStore(db)
	player := seedPlayer(t, db, "Jamie", "Lee", "2012-05-01")

	old, err := ts.Create("OLD-TOK", model.TokenTypeInvite, "", player.ID, nil, "a@x.com", time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create old: %v", err)
	}
	expire(t, db, "link_tokens", old.ID)
	if _, err := ts.Create("NEW-TOK", model.TokenTypeInvite, "", player.ID, nil, "b@x.com", time.Now().UTC().Add(24*time.Hour)); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	n, err := ts.DeleteExpired(time.Now().UTC())
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
}
