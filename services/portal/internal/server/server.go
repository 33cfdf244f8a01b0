// Package server exposes the portal over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nemsutalks/internal/metrics"
	"nemsutalks/internal/ratelimit"
	"nemsutalks/internal/util"
	"nemsutalks/pkg/ai"
	"nemsutalks/pkg/store"
	"nemsutalks/services/portal/internal/app"
	"nemsutalks/services/portal/internal/security"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App             *app.App
	LoginLimiter    ratelimit.Limiter
	RegisterLimiter ratelimit.Limiter
	CORSOrigins     []string
	TrustedProxies  *util.TrustedProxies
	// Alerter may be nil, which disables security alerts.
	Alerter *security.AuditAlerter
}

// Server exposes HTTP endpoints for the portal.
type Server struct {
	app             *app.App
	router          chi.Router
	loginLimiter    ratelimit.Limiter
	registerLimiter ratelimit.Limiter
	corsOrigins     []string
	proxies         *util.TrustedProxies
	alerter         *security.AuditAlerter
}

// New constructs the server with routes configured. Nil limiters disable
// rate limiting.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:             cfg.App,
		router:          chi.NewRouter(),
		loginLimiter:    cfg.LoginLimiter,
		registerLimiter: cfg.RegisterLimiter,
		corsOrigins:     cfg.CORSOrigins,
		proxies:         cfg.TrustedProxies,
		alerter:         cfg.Alerter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigins)(s.router))))
}

func (s *Server) routes() {
	r := s.router
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Get("/auth/me", s.handleMe)
			r.Patch("/users/me", s.handleUpdateMe)

			r.Get("/feed", s.handleFeed)
			r.Post("/feed", s.handlePostSentiment)
			r.Get("/feed/{postID}/like", s.handleIsLiked)
			r.Post("/feed/{postID}/like", s.handleToggleLike)
			r.Post("/feed/{postID}/comments", s.handleAddComment)
			r.Delete("/feed/{postID}/comments/{commentID}", s.handleDeleteComment)

			r.Get("/announcements", s.handleAnnouncements)
			r.Get("/announcements/unread-count", s.handleAnnouncementsUnread)
			r.Post("/announcements/{id}/read", s.handleAnnouncementRead)

			r.Post("/analyze-sentiment", s.handleAnalyze)
			r.Post("/chat", s.handleChat)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authenticated, s.adminOnly)

			r.Get("/announcements", s.handleAdminAnnouncements)
			r.Post("/announcements", s.handleCreateAnnouncement)
			r.Delete("/announcements/{id}", s.handleDeleteAnnouncement)
			r.Post("/announcements/{id}/publish", s.handlePublishAnnouncement)

			r.Get("/sentiments", s.handleSentiments)
			r.Get("/sentiments/{id}", s.handleSentiment)
			r.Patch("/sentiments/{id}/status", s.handleSentimentStatus)
			r.Get("/stats", s.handleStats)
			r.Get("/trend", s.handleTrend)

			r.Get("/notifications", s.handleNotifications)
			r.Delete("/notifications", s.handleClearNotifications)
			r.Get("/notifications/unread-count", s.handleNotificationsUnread)
			r.Post("/notifications/read-all", s.handleNotificationsReadAll)
			r.Post("/notifications/{id}/read", s.handleNotificationRead)
			r.Delete("/notifications/{id}", s.handleDeleteNotification)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleSettings)
				r.Patch("/", s.handleUpdateSettings)
				r.Post("/save", s.handleSaveSettings)
				r.Post("/reset", s.handleResetSettings)
				r.Post("/clear", s.handleClearSettings)
				r.Get("/export", s.handleExportSettings)
				r.Post("/import", s.handleImportSettings)
				r.Post("/backups", s.handleCreateBackup)
				r.Post("/backups/{id}/restore", s.handleRestoreBackup)
				r.Delete("/backups/{id}", s.handleDeleteBackup)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ai": s.app.AIEnabled()})
}

type principalKey struct{}

func principalFrom(ctx context.Context) app.Principal {
	p, _ := ctx.Value(principalKey{}).(app.Principal)
	return p
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "portal.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		p, err := s.app.Authenticate(token)
		if err != nil {
			s.audit(r, "portal.authorize", "fail", "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		if !p.Admin {
			s.audit(r, "portal.admin.authorize", "fail", "user_id", p.User.ID, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// studentOnly resolves the calling user; the administrator has no profile.
func (s *Server) studentOnly(w http.ResponseWriter, r *http.Request) (app.Principal, bool) {
	p := principalFrom(r.Context())
	if p.Admin {
		writeError(w, http.StatusForbidden, "administrator has no student profile")
		return p, false
	}
	return p, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := s.proxies.ClientIP(r)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)

	result, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Error("security alert evaluation failed", "event", event, "err", err)
		return
	}
	if result.Triggered {
		logger.Error("security_alert", "event", event, "outcome", outcome, "ip", ip,
			"count", result.Count, "window", result.Window.String())
		s.app.RaiseSecurityAlert(event, outcome, ip, result.Count, result.Window)
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(r.URL.Path + "|" + s.proxies.ClientIP(r)) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps domain and app errors to HTTP statuses. Unknown
// errors are logged and reported without detail.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateStudentID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidCredentials), errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrRegistrationClosed), errors.Is(err, store.ErrNotCommentAuthor):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrContentRequired),
		errors.Is(err, app.ErrContentTooLong),
		errors.Is(err, app.ErrInvalidCategory),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidAnnouncement),
		errors.Is(err, ai.ErrMessagesRequired),
		errors.Is(err, store.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrAIUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrAIFailed):
		util.LoggerFromContext(r.Context()).Error("ai request failed", "err", err)
		writeError(w, http.StatusBadGateway, app.ErrAIFailed.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
