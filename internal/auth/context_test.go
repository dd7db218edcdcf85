package auth

import (
	"context"
	"testing"

	"github.com/courtsidehq/courtside/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		Email:     "alice@example.com",
		Role:      model.RoleParent,
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.Role != model.RoleParent {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleParent)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestIsStaff(t *testing.T) {
	for _, role := range []string{model.RoleCoach, model.RoleAdmin} {
		ctx := WithAuth(context.Background(), AuthContext{Role: role})
		if !IsStaff(ctx) {
			t.Errorf("expected IsStaff = true for %s role", role)
		}
	}
}

func TestIsStaffFalse(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: model.RoleParent})
	if IsStaff(ctx) {
		t.Error("expected IsStaff = false for parent role")
	}

	if IsStaff(context.Background()) {
		t.Error("expected IsStaff = false for missing context")
	}
}
