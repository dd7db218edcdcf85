package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/courtsidehq/courtside/internal/auth"
	"github.com/courtsidehq/courtside/internal/email"
	"github.com/courtsidehq/courtside/internal/family"
)

type FamilyHandler struct {
	svc         *family.Service
	emailClient *email.Client
	logger      *slog.Logger
}

func NewFamilyHandler(svc *family.Service, emailClient *email.Client, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{svc: svc, emailClient: emailClient, logger: logger}
}

// CreatePlayer handles POST /api/players.
func (h *FamilyHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req family.NewPlayer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	player, claimCode, err := h.svc.CreatePlayer(auth.UserID(r.Context()), req)
	if err != nil {
		h.familyError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"player":     player,
		"claim_code": claimCode,
	})
}

// ListLinks handles GET /api/family/links.
func (h *FamilyHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Links(auth.UserID(r.Context()))
	if err != nil {
		h.familyError(w, err)
		return
	}
	if links == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// ListPlayerLinks handles GET /api/staff/players/{id}/links. The route is
// gated to coach and admin accounts by the staff middleware.
func (h *FamilyHandler) ListPlayerLinks(w http.ResponseWriter, r *http.Request) {
	playerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	links, err := h.svc.PlayerLinks(playerID)
	if err != nil {
		h.familyError(w, err)
		return
	}
	if links == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, links)
}

type issueCodeRequest struct {
	Kind string `json:"kind"`
}

// IssueCode handles POST /api/players/{id}/codes.
func (h *FamilyHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	playerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	var req issueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	code, err := h.svc.IssueFamilyCode(auth.UserID(r.Context()), playerID, req.Kind)
	if err != nil {
		h.familyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem handles POST /api/family/redeem for claim and family codes.
func (h *FamilyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	link, err := h.svc.RedeemCode(auth.UserID(r.Context()), req.Code)
	if err != nil {
		h.familyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// AcceptInvite handles POST /api/invites/accept.
func (h *FamilyHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	link, err := h.svc.AcceptInvite(auth.UserID(r.Context()), req.Code)
	if err != nil {
		h.familyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

type claimRequest struct {
	Code string `json:"code"`
	DOB  string `json:"dob"`
}

// Claim handles POST /api/players/claim.
func (h *FamilyHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	player, err := h.svc.ClaimPlayer(auth.UserID(r.Context()), req.Code, req.DOB)
	if err != nil {
		h.familyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

type inviteRequest struct {
	Contact string `json:"contact"`
	Role    string `json:"role"`
}

// Invite handles POST /api/players/{id}/invites. Email delivery is
// best-effort; the invite code is returned either way.
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	playerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	tok, err := h.svc.Invite(auth.UserID(r.Context()), req.Contact, req.Role, playerID)
	if err != nil {
		h.familyError(w, err)
		return
	}

	if h.emailClient != nil && h.emailClient.Configured() {
		player, perr := h.svc.Player(tok.PlayerID)
		name := ""
		if perr == nil && player != nil {
			name = fmt.Sprintf("%s %s", player.FirstName, player.LastName)
		}
		if err := h.emailClient.SendInvite(tok.Email, tok.Token, name, tok.Role); err != nil {
			h.logger.Error("send invite email", "contact", tok.Email, "error", err)
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"code":       tok.Token,
		"expires_at": tok.ExpiresAt,
	})
}

func (h *FamilyHandler) familyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, family.ErrInvalidKind),
		errors.Is(err, family.ErrInvalidRole),
		errors.Is(err, family.ErrContactRequired),
		errors.Is(err, family.ErrNameRequired),
		errors.Is(err, family.ErrInvalidDOB):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, family.ErrNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, family.ErrInvalidCode),
		errors.Is(err, family.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, family.ErrAlreadyUsed),
		errors.Is(err, family.ErrWrongCodeType),
		errors.Is(err, family.ErrParentProfileMissing),
		errors.Is(err, family.ErrDOBMismatch),
		errors.Is(err, family.ErrPlayerAlreadyClaimed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, family.ErrCodeExpired):
		writeError(w, http.StatusGone, err.Error())
	default:
		h.logger.Error("family operation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
