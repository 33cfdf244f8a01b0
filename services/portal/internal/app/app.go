// Package app composes the portal stores, sessions and language model
// features behind one service surface used by the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"nemsutalks/internal/metrics"
	"nemsutalks/pkg/ai"
	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/sentiment"
	"nemsutalks/pkg/session"
	"nemsutalks/pkg/storage"
	"nemsutalks/pkg/store"
)

const maxContentRunes = 500

// Config holds runtime dependencies for the core application.
type Config struct {
	// Backend persists the auth, feed and settings stores. Nil keeps all
	// state in memory.
	Backend   storage.Backend
	Sessions  *session.Manager
	Generator ai.TextGenerator

	StatsPadding store.StatsPadding
	SeedDemoData bool

	// Observers receive every added admin notification after the store
	// releases its lock.
	Observers []func(domain.Notification)

	Now    func() time.Time
	Logger *slog.Logger
}

// App owns one instance of each store.
type App struct {
	auth          *store.AuthStore
	notifications *store.NotificationStore
	announcements *store.AnnouncementStore
	sentiments    *store.SentimentStore
	feed          *store.FeedStore
	settings      *store.SettingsStore

	sessions  *session.Manager
	analyzer  *ai.SentimentAnalyzer
	assistant *ai.Assistant

	seed   bool
	now    func() time.Time
	logger *slog.Logger
}

// Principal is the authenticated caller. The administrator has no User.
type Principal struct {
	Admin bool
	User  domain.User
}

// Session is a login result plus its bearer token.
type Session struct {
	Token string
	domain.LoginResult
}

// PostResult describes one submitted sentiment.
type PostResult struct {
	Post     domain.UserSentiment `json:"post"`
	Record   domain.Sentiment     `json:"record"`
	Analysis *domain.Analysis     `json:"analysis,omitempty"`
}

func New(cfg Config) (*App, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session manager required")
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	opts := []store.Option{store.WithClock(cfg.Now), store.WithStatsPadding(cfg.StatsPadding)}
	if cfg.Backend != nil {
		opts = append(opts, store.WithBackend(cfg.Backend))
	}

	notifications := store.NewNotificationStore(opts...)
	for _, fn := range cfg.Observers {
		notifications.Subscribe(fn)
	}
	a := &App{
		auth:          store.NewAuthStore(opts...),
		notifications: notifications,
		announcements: store.NewAnnouncementStore(opts...),
		sentiments:    store.NewSentimentStore(notifications, opts...),
		feed:          store.NewFeedStore(opts...),
		settings:      store.NewSettingsStore(opts...),
		sessions:      cfg.Sessions,
		seed:          cfg.SeedDemoData,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
	if cfg.Generator != nil {
		a.analyzer = ai.NewSentimentAnalyzer(cfg.Generator)
		a.assistant = ai.NewAssistant(cfg.Generator)
	}
	return a, nil
}

// Start rehydrates the persisted stores, then seeds demo data. The feed is
// seeded only when no snapshot restored any post.
func (a *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return wrap("restore auth", a.auth.Restore(gctx)) })
	g.Go(func() error { return wrap("restore feed", a.feed.Restore(gctx)) })
	g.Go(func() error { return wrap("restore settings", a.settings.Restore(gctx)) })
	if err := g.Wait(); err != nil {
		return err
	}
	if !a.seed {
		return nil
	}
	now := a.now()
	a.sentiments.Seed(store.SeedSentiments())
	a.notifications.Seed(store.SeedNotifications(now))
	a.announcements.Seed(store.SeedAnnouncements())
	if len(a.feed.List()) == 0 {
		a.feed.Seed(store.SeedFeed(now))
	}
	a.logger.Info("demo data seeded")
	return nil
}

// Close flushes every persisted store and reports the first failure.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		wrap("flush auth", a.auth.Flush(ctx)),
		wrap("flush feed", a.feed.Flush(ctx)),
		wrap("flush settings", a.settings.Flush(ctx)),
	)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Register creates a student account when registration is open.
func (a *App) Register(u domain.NewUser) (domain.User, error) {
	if !a.settings.AllowRegistration() {
		return domain.User{}, ErrRegistrationClosed
	}
	u.FullName = strings.TrimSpace(u.FullName)
	u.Email = strings.TrimSpace(u.Email)
	u.StudentID = strings.TrimSpace(u.StudentID)
	if u.FullName == "" || u.Email == "" || u.StudentID == "" || u.Password == "" {
		return domain.User{}, ErrMissingFields
	}
	return a.auth.Register(u)
}

// Login checks credentials and issues a bearer token. The administrator's
// token carries the admin claim.
func (a *App) Login(identifier, password string) (Session, error) {
	result, err := a.auth.Login(strings.TrimSpace(identifier), password)
	if err != nil {
		metrics.Logins.WithLabelValues("fail").Inc()
		return Session{}, err
	}
	subject := session.AdminSubject
	if result.User != nil {
		subject = result.User.ID
	}
	token, err := a.sessions.Issue(subject, result.IsAdmin)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	outcome := "user"
	if result.IsAdmin {
		outcome = "admin"
	}
	metrics.Logins.WithLabelValues(outcome).Inc()
	return Session{Token: token, LoginResult: result}, nil
}

// Logout revokes token. The store session is cleared only when it belongs
// to the same user.
func (a *App) Logout(token string) error {
	claims, err := a.sessions.Verify(token)
	if err != nil {
		return ErrUnauthorized
	}
	if err := a.sessions.Revoke(token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if current, ok := a.auth.CurrentUser(); ok && current.ID == claims.Subject {
		a.auth.Logout()
	}
	return nil
}

// Authenticate resolves a bearer token to its principal.
func (a *App) Authenticate(token string) (Principal, error) {
	claims, err := a.sessions.Verify(token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	if claims.Admin {
		return Principal{Admin: true}, nil
	}
	user, ok := a.auth.UserByID(claims.Subject)
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	return Principal{User: user}, nil
}

// UpdateProfile merges update into the user. A password change revokes
// the presented token and every earlier token of the user, and returns a
// fresh token.
func (a *App) UpdateProfile(userID, currentToken string, update domain.UserUpdate) (domain.User, string, error) {
	if update.Password != nil && *update.Password == "" {
		return domain.User{}, "", ErrMissingFields
	}
	user, err := a.auth.UpdateUser(userID, update)
	if err != nil {
		return domain.User{}, "", err
	}
	if update.Password == nil {
		return user, "", nil
	}
	// Token issue times come from the wall clock, not the store clock.
	if err := a.sessions.RevokeUser(userID, time.Now().UTC()); err != nil {
		return domain.User{}, "", fmt.Errorf("revoke sessions: %w", err)
	}
	if err := a.sessions.Revoke(currentToken); err != nil {
		return domain.User{}, "", fmt.Errorf("revoke token: %w", err)
	}
	token, err := a.sessions.Issue(userID, false)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// PostSentiment publishes content to the feed and files the admin record.
// A configured analyzer is authoritative for the final content, category
// and polarity; the feed post always carries the heuristic polarity.
func (a *App) PostSentiment(ctx context.Context, content string, category domain.Category) (PostResult, error) {
	content, err := validateContent(content)
	if err != nil {
		return PostResult{}, err
	}

	var analysis *domain.Analysis
	var polarity domain.Polarity
	if a.analyzer != nil {
		res, err := a.analyzer.Analyze(ctx, content)
		if err != nil {
			return PostResult{}, fmt.Errorf("%w: %w", ErrAIFailed, err)
		}
		rewritten, err := validateContent(res.RewrittenContent)
		if err != nil {
			return PostResult{}, fmt.Errorf("%w: rewritten content: %w", ErrAIFailed, err)
		}
		analysis = &res
		content = rewritten
		category = res.Category
		polarity = res.SentimentType
	} else {
		if !category.Valid() {
			return PostResult{}, ErrInvalidCategory
		}
		polarity = sentiment.Classify(content)
	}

	post := a.feed.Compose(content, category)
	record := a.sentiments.Add(content, category, &polarity)
	metrics.SentimentsPosted.WithLabelValues(string(post.Sentiment)).Inc()
	return PostResult{Post: post, Record: record, Analysis: analysis}, nil
}

// AnalyzeSentiment runs the analyzer without posting anything.
func (a *App) AnalyzeSentiment(ctx context.Context, content string) (domain.Analysis, error) {
	if a.analyzer == nil {
		return domain.Analysis{}, ErrAIUnavailable
	}
	content, err := validateContent(content)
	if err != nil {
		return domain.Analysis{}, err
	}
	res, err := a.analyzer.Analyze(ctx, content)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("%w: %w", ErrAIFailed, err)
	}
	return res, nil
}

// Chat returns the assistant's reply to a conversation.
func (a *App) Chat(ctx context.Context, messages []domain.ChatMessage) (domain.ChatMessage, error) {
	if a.assistant == nil {
		return domain.ChatMessage{}, ErrAIUnavailable
	}
	reply, err := a.assistant.Reply(ctx, messages)
	if errors.Is(err, ai.ErrMessagesRequired) {
		return domain.ChatMessage{}, err
	}
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", ErrAIFailed, err)
	}
	return reply, nil
}

// AIEnabled reports whether a language model provider is configured.
func (a *App) AIEnabled() bool { return a.analyzer != nil }

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrContentRequired
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		return "", ErrContentTooLong
	}
	return content, nil
}
