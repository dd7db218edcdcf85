// Package signin implements passwordless sign-in: emailed 6-digit codes and
// magic-link tokens, verified against the most recent request per email.
package signin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/courtsidehq/courtside/internal/model"
	"github.com/courtsidehq/courtside/internal/store"
	"github.com/courtsidehq/courtside/internal/token"
)

// Expected failures, surfaced to the caller for precise messaging.
var (
	ErrEmailRequired     = errors.New("email is required")
	ErrNoCodeIssued      = errors.New("no sign-in code issued for this email")
	ErrAlreadyConsumed   = errors.New("sign-in code already used")
	ErrExpired           = errors.New("sign-in code expired")
	ErrInvalidCredential = errors.New("code or token does not match")
)

const codeTTL = 15 * time.Minute

// Sender delivers the sign-in email. Delivery failure never rolls back
// issuance; the typed code stays valid even if the link email is lost.
type Sender interface {
	SendSignInCode(to, code, rawToken string) error
}

// Identity is the authenticated result handed to the session boundary.
type Identity struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

type Service struct {
	users      *store.UserStore
	parents    *store.ParentStore
	magicLinks *store.MagicLinkStore
	sender     Sender
	logger     *slog.Logger
}

func NewService(users *store.UserStore, parents *store.ParentStore, magicLinks *store.MagicLinkStore, sender Sender, logger *slog.Logger) *Service {
	return &Service{
		users:      users,
		parents:    parents,
		magicLinks: magicLinks,
		sender:     sender,
		logger:     logger,
	}
}

// RequestSignIn issues a fresh code and token for the email and hands them to
// the sender. It does not check whether the address exists or belongs to a
// known user.
func (s *Service) RequestSignIn(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}

	code := token.SignInCode()
	raw := token.Opaque()
	expiresAt := time.Now().UTC().Add(codeTTL)

	if _, err := s.magicLinks.Create(email, code, token.Digest(raw), expiresAt); err != nil {
		return fmt.Errorf("create magic link: %w", err)
	}

	if s.sender != nil {
		if err := s.sender.SendSignInCode(email, code, raw); err != nil {
			s.logger.Error("send sign-in email", "email", email, "error", err)
		}
	}
	return nil
}

// VerifySignIn checks the credential (6-digit code or raw token) against the
// newest request for the email, consumes it exactly once, and upserts the
// user. New accounts start as parents with a parent profile.
func (s *Service) VerifySignIn(email, credential string) (*Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	credential = strings.TrimSpace(credential)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if credential == "" {
		return nil, ErrInvalidCredential
	}

	ml, err := s.magicLinks.GetLatestByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("lookup magic link: %w", err)
	}
	if ml == nil {
		return nil, ErrNoCodeIssued
	}
	if ml.ConsumedAt != nil {
		return nil, ErrAlreadyConsumed
	}
	now := time.Now().UTC()
	if !now.Before(ml.ExpiresAt) {
		return nil, ErrExpired
	}
	if credential != ml.Code && token.Digest(credential) != ml.TokenHash {
		return nil, ErrInvalidCredential
	}

	// Compare-and-set: two concurrent verifications with the same code admit
	// exactly one winner.
	ok, err := s.magicLinks.Consume(ml.ID, now)
	if err != nil {
		return nil, fmt.Errorf("consume magic link: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyConsumed
	}

	user, err := s.upsertUser(email)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: user.ID, Role: user.Role, Email: user.Email}, nil
}

func (s *Service) upsertUser(email string) (*model.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		user, err = s.users.Create(email, model.RoleParent)
		if err != nil {
			createErr := err
			// Lost a creation race against a concurrent first sign-in; the
			// unique email constraint means the row exists now.
			user, err = s.users.GetByEmail(email)
			if err != nil {
				return nil, fmt.Errorf("lookup user after create: %w", err)
			}
			if user == nil {
				return nil, fmt.Errorf("create user: %w", createErr)
			}
		}
	}

	// Every parent-role account carries a parent profile; bootstrap it here
	// so older accounts pick one up on their next sign-in.
	if user.Role == model.RoleParent {
		profile, err := s.parents.GetByUserID(user.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup parent profile: %w", err)
		}
		if profile == nil {
			if _, err := s.parents.Create(user.ID, ""); err != nil {
				return nil, fmt.Errorf("create parent profile: %w", err)
			}
		}
	}
	return user, nil
}
