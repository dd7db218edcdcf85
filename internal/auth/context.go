package auth

import (
	"context"

	"github.com/courtsidehq/courtside/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	UserID    int64
	Email     string
	Role      string
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// IsStaff reports whether the authenticated user holds a coach or admin role.
func IsStaff(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleCoach || ac.Role == model.RoleAdmin
}
