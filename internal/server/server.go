// Package server wires the stores, services, and handlers into one HTTP
// surface.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/courtsidehq/courtside/internal/config"
	"github.com/courtsidehq/courtside/internal/email"
	"github.com/courtsidehq/courtside/internal/family"
	"github.com/courtsidehq/courtside/internal/handler"
	"github.com/courtsidehq/courtside/internal/middleware"
	"github.com/courtsidehq/courtside/internal/push"
	"github.com/courtsidehq/courtside/internal/qr"
	"github.com/courtsidehq/courtside/internal/signin"
	"github.com/courtsidehq/courtside/internal/store"
)

type Server struct {
	db             *sql.DB
	authH          *handler.AuthHandler
	familyH        *handler.FamilyHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	userStore      *store.UserStore
	magicLinkStore *store.MagicLinkStore
	linkTokenStore *store.LinkTokenStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	parentStore := store.NewParentStore(db)
	playerStore := store.NewPlayerStore(db)
	linkStore := store.NewLinkStore(db)
	linkTokenStore := store.NewLinkTokenStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)

	// Push stays optional: without VAPID keys the guardian notifications and
	// the push endpoints are simply absent.
	var pushSvc *push.Service
	var pushH *handler.PushHandler
	var notifier family.Notifier
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
		notifier = pushSvc
	}

	signinSvc := signin.NewService(userStore, parentStore, magicLinkStore, emailClient, logger.With("component", "signin"))
	familySvc := family.NewService(
		db,
		userStore, parentStore, playerStore, linkStore, linkTokenStore,
		qr.NewRenderer(), notifier,
		logger.With("component", "family"),
	)

	return &Server{
		db:             db,
		authH:          handler.NewAuthHandler(signinSvc, sessionStore, cfg.BaseURL, logger.With("component", "auth")),
		familyH:        handler.NewFamilyHandler(familySvc, emailClient, logger.With("component", "family_handler")),
		pushH:          pushH,
		sessionStore:   sessionStore,
		userStore:      userStore,
		magicLinkStore: magicLinkStore,
		linkTokenStore: linkTokenStore,
		rateLimiter:    middleware.NewRateLimiter(10, time.Minute),
		logger:         logger,
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /auth/request", s.rateLimitedHandler(s.authH.RequestCode))
	outerMux.HandleFunc("POST /auth/verify", s.rateLimitedHandler(s.authH.Verify))
	outerMux.HandleFunc("GET /auth/verify", s.rateLimitedHandler(s.authH.VerifyLink))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	mux.HandleFunc("POST /api/players", s.familyH.CreatePlayer)
	mux.HandleFunc("POST /api/players/{id}/codes", s.familyH.IssueCode)
	mux.HandleFunc("POST /api/players/{id}/invites", s.familyH.Invite)
	mux.HandleFunc("POST /api/players/claim", s.familyH.Claim)
	mux.HandleFunc("POST /api/family/redeem", s.familyH.Redeem)
	mux.HandleFunc("GET /api/family/links", s.familyH.ListLinks)
	mux.HandleFunc("POST /api/invites/accept", s.familyH.AcceptInvite)

	// Staff oversight of a player's family graph.
	mux.Handle("GET /api/staff/players/{id}/links",
		middleware.RequireStaff(http.HandlerFunc(s.familyH.ListPlayerLinks)))

	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// SweepExpired clears expired sign-in codes, link tokens, sessions, and
// rate-limit buckets. Run periodically by the janitor.
func (s *Server) SweepExpired() {
	now := time.Now().UTC()

	if n, err := s.magicLinkStore.DeleteExpired(now); err != nil {
		s.logger.Error("sweep magic links", "error", err)
	} else if n > 0 {
		s.logger.Info("swept magic links", "count", n)
	}

	if n, err := s.linkTokenStore.DeleteExpired(now); err != nil {
		s.logger.Error("sweep link tokens", "error", err)
	} else if n > 0 {
		s.logger.Info("swept link tokens", "count", n)
	}

	if n, err := s.sessionStore.DeleteExpired(now); err != nil {
		s.logger.Error("sweep sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("swept sessions", "count", n)
	}

	s.rateLimiter.Cleanup()
}
