package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/courtsidehq/courtside/internal/auth"
	"github.com/courtsidehq/courtside/internal/middleware"
	"github.com/courtsidehq/courtside/internal/signin"
	"github.com/courtsidehq/courtside/internal/store"
)

const sessionDuration = 90 * 24 * time.Hour

type AuthHandler struct {
	signin   *signin.Service
	sessions *store.SessionStore
	baseURL  string
	logger   *slog.Logger
}

func NewAuthHandler(svc *signin.Service, sessions *store.SessionStore, baseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		signin:   svc,
		sessions: sessions,
		baseURL:  baseURL,
		logger:   logger,
	}
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

// RequestCode handles POST /auth/request. The response never reveals whether
// the address belongs to an account.
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.signin.RequestSignIn(req.Email); err != nil {
		if errors.Is(err, signin.ErrEmailRequired) {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		h.logger.Error("request sign-in", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify handles POST /auth/verify with a typed code or pasted token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.signin.VerifySignIn(req.Email, req.Code)
	if err != nil {
		h.verifyError(w, err)
		return
	}

	if err := h.establishSession(w, ident.UserID); err != nil {
		h.logger.Error("create session", "user_id", ident.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

// VerifyLink handles GET /auth/verify?email=&token= from the emailed magic
// link. Success and failure both end in a redirect; there is no JSON consumer
// on this path.
func (h *AuthHandler) VerifyLink(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")

	ident, err := h.signin.VerifySignIn(email, token)
	if err != nil {
		h.logger.Warn("magic link rejected", "error", err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape(linkErrorCode(err)), http.StatusSeeOther)
		return
	}

	if err := h.establishSession(w, ident.UserID); err != nil {
		h.logger.Error("create session", "user_id", ident.UserID, "error", err)
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. Requires an authenticated session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessions.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "session_id", ac.SessionID, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) establishSession(w http.ResponseWriter, userID int64) error {
	sess, err := h.sessions.Create(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.baseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) verifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signin.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, "email is required")
	case errors.Is(err, signin.ErrNoCodeIssued), errors.Is(err, signin.ErrInvalidCredential):
		// Both collapse to one message so a caller cannot tell which
		// addresses have outstanding codes.
		writeError(w, http.StatusUnauthorized, "invalid code")
	case errors.Is(err, signin.ErrAlreadyConsumed):
		writeError(w, http.StatusConflict, "code already used")
	case errors.Is(err, signin.ErrExpired):
		writeError(w, http.StatusGone, "code expired")
	default:
		h.logger.Error("verify sign-in", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func linkErrorCode(err error) string {
	switch {
	case errors.Is(err, signin.ErrExpired):
		return "expired"
	case errors.Is(err, signin.ErrAlreadyConsumed):
		return "used"
	default:
		return "invalid"
	}
}
