// Package family implements the single-use link-token flows that connect
// parent accounts to player profiles: player creation, guardian/follower
// codes, invites, and claiming an unowned profile by date of birth.
package family

import (
	"database/sql"
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
	ErrInvalidKind          = errors.New("kind must be guardian or follower")
	ErrInvalidRole          = errors.New("role must be guardian or follower")
	ErrContactRequired      = errors.New("contact is required")
	ErrNameRequired         = errors.New("first and last name are required")
	ErrInvalidDOB           = errors.New("dob must be YYYY-MM-DD")
	ErrParentProfileMissing = errors.New("parent profile required")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrNotAllowed           = errors.New("not allowed to issue codes for this player")
	ErrInvalidCode          = errors.New("code not recognized")
	ErrAlreadyUsed          = errors.New("code already used")
	ErrCodeExpired          = errors.New("code expired")
	ErrWrongCodeType        = errors.New("code not valid for this operation")
	ErrDOBMismatch          = errors.New("date of birth does not match")
	ErrPlayerAlreadyClaimed = errors.New("player already claimed by another account")
)

const tokenTTL = 24 * time.Hour

const dobLayout = "2006-01-02"

// Renderer turns a code into a scannable image. Rendering failure never rolls
// back issuance; the typed code still works.
type Renderer interface {
	Render(text string) (string, error)
}

// Notifier fans a message out to a set of users. Best-effort.
type Notifier interface {
	NotifyUsers(userIDs []int64, title, body string)
}

type Service struct {
	db       *sql.DB
	users    *store.UserStore
	parents  *store.ParentStore
	players  *store.PlayerStore
	links    *store.LinkStore
	tokens   *store.LinkTokenStore
	qr       Renderer
	notifier Notifier
	logger   *slog.Logger
}

func NewService(
	db *sql.DB,
	users *store.UserStore,
	parents *store.ParentStore,
	players *store.PlayerStore,
	links *store.LinkStore,
	tokens *store.LinkTokenStore,
	qr Renderer,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:       db,
		users:    users,
		parents:  parents,
		players:  players,
		links:    links,
		tokens:   tokens,
		qr:       qr,
		notifier: notifier,
		logger:   logger,
	}
}

// NewPlayer is the input to CreatePlayer.
type NewPlayer struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DOB             string `json:"dob"`
	TeamName        string `json:"team_name"`
	JerseyNumber    string `json:"jersey_number"`
	Position        string `json:"position"`
	ProfileImageURL string `json:"profile_image_url"`
}

// CreatePlayer creates an unclaimed player profile, links the creating parent
// as guardian, and issues a 24-hour claim code. The guardian link exists
// before the code escapes, so the player is never reachable while unlinked.
func (s *Service) CreatePlayer(actorUserID int64, in NewPlayer) (*model.PlayerProfile, string, error) {
	parent, err := s.parents.GetByUserID(actorUserID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup parent profile: %w", err)
	}
	if parent == nil {
		return nil, "", ErrParentProfileMissing
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, "", ErrNameRequired
	}
	if _, err := time.Parse(dobLayout, in.DOB); err != nil {
		return nil, "", ErrInvalidDOB
	}

	player, err := s.players.Create(in.FirstName, in.LastName, in.DOB, in.TeamName, in.JerseyNumber, in.Position, in.ProfileImageURL)
	if err != nil {
		return nil, "", fmt.Errorf("create player: %w", err)
	}

	if _, err := s.links.Insert(parent.ID, player.ID, model.LinkRoleGuardian); err != nil {
		return nil, "", fmt.Errorf("link creator as guardian: %w", err)
	}

	code := token.ShortCode()
	expiresAt := time.Now().UTC().Add(tokenTTL)
	if _, err := s.tokens.Create(code, model.TokenTypeClaim, "", player.ID, &actorUserID, "", expiresAt); err != nil {
		return nil, "", fmt.Errorf("issue claim code: %w", err)
	}

	return player, code, nil
}

// FamilyCode is an issued code plus its QR rendering.
type FamilyCode struct {
	Code      string    `json:"code"`
	QR        string    `json:"qr,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueFamilyCode mints a single-use code granting the given kind of link
// (guardian or follower) to whoever redeems it. The actor must hold a
// guardian or owner link to the player, or have a coach/admin role.
func (s *Service) IssueFamilyCode(actorUserID, playerID int64, kind string) (*FamilyCode, error) {
	var typ string
	switch kind {
	case model.LinkRoleGuardian:
		typ = model.TokenTypeFamilyGuardian
	case model.LinkRoleFollower:
		typ = model.TokenTypeFamilyFollower
	default:
		return nil, ErrInvalidKind
	}

	player, err := s.players.GetByID(playerID)
	if err != nil {
		return nil, fmt.Errorf("lookup player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	allowed, err := s.canManage(actorUserID, playerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotAllowed
	}

	code := token.ShortCode()
	expiresAt := time.Now().UTC().Add(tokenTTL)
	if _, err := s.tokens.Create(code, typ, kind, playerID, &actorUserID, "", expiresAt); err != nil {
		return nil, fmt.Errorf("issue family code: %w", err)
	}

	fc := &FamilyCode{Code: code, ExpiresAt: expiresAt}
	if s.qr != nil {
		qr, err := s.qr.Render(code)
		if err != nil {
			s.logger.Error("render code qr", "error", err)
		} else {
			fc.QR = qr
		}
	}
	return fc, nil
}

// RedeemCode redeems a family or claim code, linking the actor's parent
// profile to the token's player. Claim codes grant guardian; family codes
// grant their stored role (follower when unset). Invite codes go through
// AcceptInvite instead.
func (s *Service) RedeemCode(actorUserID int64, code string) (*model.ParentPlayerLink, error) {
	return s.redeem(actorUserID, code, false)
}

// AcceptInvite redeems an invite-typed token, granting its stored role
// (follower when unset).
func (s *Service) AcceptInvite(actorUserID int64, code string) (*model.ParentPlayerLink, error) {
	return s.redeem(actorUserID, code, true)
}

func (s *Service) redeem(actorUserID int64, code string, invite bool) (*model.ParentPlayerLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	tok, err := s.tokens.GetByToken(code)
	if err != nil {
		return nil, fmt.Errorf("lookup link token: %w", err)
	}
	if tok == nil {
		return nil, ErrInvalidCode
	}

	var role string
	switch tok.Type {
	case model.TokenTypeClaim:
		// Claim codes always grant guardian, whatever the row says.
		role = model.LinkRoleGuardian
	case model.TokenTypeFamilyGuardian, model.TokenTypeFamilyFollower, model.TokenTypeInvite:
		role = tok.Role
		if role == "" {
			role = model.LinkRoleFollower
		}
	default:
		return nil, ErrWrongCodeType
	}
	if invite != (tok.Type == model.TokenTypeInvite) {
		return nil, ErrWrongCodeType
	}

	player, err := s.players.GetByID(tok.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("lookup player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	parent, err := s.parents.GetByUserID(actorUserID)
	if err != nil {
		return nil, fmt.Errorf("lookup parent profile: %w", err)
	}
	if parent == nil {
		return nil, ErrParentProfileMissing
	}

	if tok.UsedAt != nil {
		// Replaying a consumed code is harmless when this parent already
		// holds the link it would have granted; anyone else is rejected.
		existing, err := s.links.Get(parent.ID, player.ID, role)
		if err != nil {
			return nil, fmt.Errorf("lookup existing link: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
		return nil, ErrAlreadyUsed
	}
	now := time.Now().UTC()
	if !now.Before(tok.ExpiresAt) {
		return nil, ErrCodeExpired
	}

	// Consuming the token and creating the link commit together: no
	// used-but-unapplied or applied-but-unused state survives a failure.
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.tokens.MarkUsedTx(tx, tok.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyUsed
	}
	link, err := s.links.InsertTx(tx, parent.ID, player.ID, role)
	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}

	s.notifyGuardians(player, actorUserID, role)
	return link, nil
}

// ClaimPlayer attaches an existing unclaimed player profile to the actor's
// own account, gated by the claim code and an exact date-of-birth match.
func (s *Service) ClaimPlayer(actorUserID int64, code, dob string) (*model.PlayerProfile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if _, err := time.Parse(dobLayout, dob); err != nil {
		return nil, ErrInvalidDOB
	}

	tok, err := s.tokens.GetClaimByToken(code)
	if err != nil {
		return nil, fmt.Errorf("lookup claim token: %w", err)
	}
	if tok == nil {
		return nil, ErrInvalidCode
	}

	player, err := s.players.GetByID(tok.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("lookup player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	// Token liveness is settled before anything about the player leaks out,
	// so a dead code cannot be used to fish for birthdates.
	if tok.UsedAt != nil {
		// Re-claim by the current owner is an idempotent success.
		if player.UserID != nil && *player.UserID == actorUserID {
			return player, nil
		}
		return nil, ErrAlreadyUsed
	}
	now := time.Now().UTC()
	if !now.Before(tok.ExpiresAt) {
		return nil, ErrCodeExpired
	}

	if player.DOB != dob {
		return nil, ErrDOBMismatch
	}
	if player.UserID != nil && *player.UserID != actorUserID {
		return nil, ErrPlayerAlreadyClaimed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.tokens.MarkUsedTx(tx, tok.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyUsed
	}
	claimed, err := s.players.ClaimTx(tx, player.ID, actorUserID)
	if err != nil {
		return nil, fmt.Errorf("claim player: %w", err)
	}
	if !claimed {
		// A concurrent claim won between our read and the update.
		return nil, ErrPlayerAlreadyClaimed
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return s.players.GetByID(player.ID)
}

// Links returns every link the actor's parent profile holds.
func (s *Service) Links(actorUserID int64) ([]model.ParentPlayerLink, error) {
	parent, err := s.parents.GetByUserID(actorUserID)
	if err != nil {
		return nil, fmt.Errorf("lookup parent profile: %w", err)
	}
	if parent == nil {
		return nil, ErrParentProfileMissing
	}
	return s.links.ListForParent(parent.ID)
}

// Player returns the profile by id, or nil.
func (s *Service) Player(id int64) (*model.PlayerProfile, error) {
	return s.players.GetByID(id)
}

// PlayerLinks returns every link attached to a player, for staff oversight.
// The caller is responsible for gating access.
func (s *Service) PlayerLinks(playerID int64) ([]model.ParentPlayerLink, error) {
	player, err := s.players.GetByID(playerID)
	if err != nil {
		return nil, fmt.Errorf("lookup player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return s.links.ListForPlayer(playerID)
}

// Invite issues an invite token carrying the destination contact for
// out-of-band delivery. Nothing is sent here.
func (s *Service) Invite(actorUserID int64, contact, role string, playerID int64) (*model.LinkToken, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, ErrContactRequired
	}
	if role != model.LinkRoleGuardian && role != model.LinkRoleFollower {
		return nil, ErrInvalidRole
	}

	player, err := s.players.GetByID(playerID)
	if err != nil {
		return nil, fmt.Errorf("lookup player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	allowed, err := s.canManage(actorUserID, playerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotAllowed
	}

	code := token.ShortCode()
	expiresAt := time.Now().UTC().Add(tokenTTL)
	tok, err := s.tokens.Create(code, model.TokenTypeInvite, role, playerID, &actorUserID, contact, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue invite: %w", err)
	}
	return tok, nil
}

// canManage is the capability check gating code issuance: a guardian or owner
// link to the player, or an elevated user role.
func (s *Service) canManage(actorUserID, playerID int64) (bool, error) {
	user, err := s.users.GetByID(actorUserID)
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return false, nil
	}
	if user.Role == model.RoleCoach || user.Role == model.RoleAdmin {
		return true, nil
	}

	parent, err := s.parents.GetByUserID(actorUserID)
	if err != nil {
		return false, fmt.Errorf("lookup parent profile: %w", err)
	}
	if parent == nil {
		return false, nil
	}
	ok, err := s.links.HasAnyRole(parent.ID, playerID, model.LinkRoleGuardian, model.LinkRoleOwner)
	if err != nil {
		return false, fmt.Errorf("check links: %w", err)
	}
	return ok, nil
}

func (s *Service) notifyGuardians(player *model.PlayerProfile, joinedUserID int64, role string) {
	if s.notifier == nil {
		return
	}
	ids, err := s.links.ListGuardianUserIDs(player.ID)
	if err != nil {
		s.logger.Error("list guardians for notification", "player_id", player.ID, "error", err)
		return
	}
	recipients := ids[:0]
	for _, id := range ids {
		if id != joinedUserID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}
	body := fmt.Sprintf("Someone joined %s %s's family as %s.", player.FirstName, player.LastName, role)
	s.notifier.NotifyUsers(recipients, "Family update", body)
}
