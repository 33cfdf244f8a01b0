package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nemsutalks/pkg/ai"
	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/sentiment"
	"nemsutalks/pkg/session"
	"nemsutalks/pkg/storage"
	"nemsutalks/pkg/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var fixedNow = time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newTestApp(t *testing.T, gen ai.TextGenerator, backend storage.Backend, observers ...func(domain.Notification)) *App {
	t.Helper()
	sessions, err := session.NewManager(testSecret, time.Hour, session.NewMemoryTokenRevoker(), session.Options{})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	cfg := Config{
		Backend:      backend,
		Sessions:     sessions,
		SeedDemoData: true,
		Observers:    observers,
		Generator:    gen,
		Now:          func() time.Time { return fixedNow },
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return a
}

func registerStudent(t *testing.T, a *App) domain.User {
	t.Helper()
	u, err := a.Register(domain.NewUser{
		FullName:  "Juan Dela Cruz",
		Email:     "juan@nemsu.edu.ph",
		StudentID: "2024-0001",
		Password:  "secret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestNewRequiresSessions(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without session manager")
	}
}

func TestStartSeedsAndRestoresFeed(t *testing.T) {
	backend := storage.NewMemoryStore()
	a := newTestApp(t, nil, backend)
	if got := len(a.Feed()); got != 6 {
		t.Fatalf("expected 6 seeded posts, got %d", got)
	}
	if got := len(a.Sentiments()); got != 8 {
		t.Fatalf("expected 8 seeded sentiments, got %d", got)
	}
	if _, err := a.PostSentiment(context.Background(), "The new library is great", domain.CategoryFacilities); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	restarted := newTestApp(t, nil, backend)
	if got := len(restarted.Feed()); got != 7 {
		t.Fatalf("restored feed should not be reseeded, got %d posts", got)
	}
	if got := len(restarted.Sentiments()); got != 8 {
		t.Fatalf("admin sentiments are not persisted, got %d", got)
	}
}

func TestPostSentimentWithoutAnalyzer(t *testing.T) {
	var emitted []domain.Notification
	a := newTestApp(t, nil, nil, func(n domain.Notification) { emitted = append(emitted, n) })
	before := a.UnreadNotifications()

	res, err := a.PostSentiment(context.Background(), "  The canteen food is excellent and helpful  ", domain.CategoryStudentService)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.Analysis != nil {
		t.Fatalf("no analysis expected without analyzer")
	}
	if res.Post.Content != "The canteen food is excellent and helpful" || res.Post.Author != store.AnonymousAuthor {
		t.Fatalf("unexpected post: %+v", res.Post)
	}
	want := sentiment.Classify(res.Post.Content)
	if res.Post.Sentiment != want || res.Record.SentimentType == nil || *res.Record.SentimentType != want {
		t.Fatalf("heuristic polarity should be echoed: post=%s record=%v", res.Post.Sentiment, res.Record.SentimentType)
	}
	if res.Record.ID != "STU-009" || res.Record.Category != domain.CategoryStudentService {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
	if a.UnreadNotifications() != before+1 || len(emitted) != 1 || emitted[0].Type != domain.NotificationNewSentiment {
		t.Fatalf("expected exactly one new_sentiment notification, got %+v", emitted)
	}
}

func TestPostSentimentAnalyzerIsAuthoritative(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n" + `{"category":"Campus Safety","sentimentType":"Negative","isAppropriate":false,"rewrittenContent":"Please fix the lighting near the gym.","reason":"rude"}` + "\n```"}
	a := newTestApp(t, gen, nil)

	res, err := a.PostSentiment(context.Background(), "the gym lights are stupid", domain.CategoryOther)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.Analysis == nil || res.Analysis.IsAppropriate {
		t.Fatalf("expected analysis in result: %+v", res.Analysis)
	}
	if res.Post.Content != "Please fix the lighting near the gym." || res.Post.Category != domain.CategoryCampusSafety {
		t.Fatalf("rewritten content and category should be used: %+v", res.Post)
	}
	if res.Post.Sentiment != sentiment.Classify(res.Post.Content) {
		t.Fatalf("feed post keeps the heuristic polarity")
	}
	if *res.Record.SentimentType != domain.PolarityNegative || res.Record.Content != res.Post.Content {
		t.Fatalf("record should carry the analyzer verdict: %+v", res.Record)
	}
}

func TestPostSentimentAnalyzerFailureAddsNothing(t *testing.T) {
	gen := &fakeGenerator{reply: `{"category":"Parking","sentimentType":"Negative"}`}
	a := newTestApp(t, gen, nil)
	feedBefore, recordsBefore := len(a.Feed()), len(a.Sentiments())

	_, err := a.PostSentiment(context.Background(), "parking is awful", domain.CategoryOther)
	if !errors.Is(err, ErrAIFailed) || !errors.Is(err, ai.ErrInvalidAnalysis) {
		t.Fatalf("expected wrapped invalid analysis, got %v", err)
	}
	if len(a.Feed()) != feedBefore || len(a.Sentiments()) != recordsBefore {
		t.Fatalf("failed analysis must not post anything")
	}
}

func TestPostSentimentRejectsOverlongRewrite(t *testing.T) {
	long := strings.Repeat("a", maxContentRunes+1)
	gen := &fakeGenerator{reply: `{"category":"Other","sentimentType":"Neutral","isAppropriate":true,"rewrittenContent":"` + long + `"}`}
	a := newTestApp(t, gen, nil)
	feedBefore := len(a.Feed())

	_, err := a.PostSentiment(context.Background(), "short and fine", domain.CategoryOther)
	if !errors.Is(err, ErrAIFailed) || !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("expected overlong rewrite to fail, got %v", err)
	}
	if len(a.Feed()) != feedBefore {
		t.Fatalf("overlong rewrite must not be posted")
	}
}

func TestPostSentimentValidation(t *testing.T) {
	a := newTestApp(t, nil, nil)
	ctx := context.Background()
	if _, err := a.PostSentiment(ctx, "   ", domain.CategoryOther); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected content required, got %v", err)
	}
	if _, err := a.PostSentiment(ctx, strings.Repeat("a", 501), domain.CategoryOther); !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("expected content too long, got %v", err)
	}
	if _, err := a.PostSentiment(ctx, "hello", domain.Category("Parking")); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected invalid category, got %v", err)
	}
}

func TestAIFeaturesRequireProvider(t *testing.T) {
	a := newTestApp(t, nil, nil)
	if _, err := a.AnalyzeSentiment(context.Background(), "hi"); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	if _, err := a.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}}); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
}

func TestChat(t *testing.T) {
	gen := &fakeGenerator{reply: "  Enrollment opens in June.  "}
	a := newTestApp(t, gen, nil)
	reply, err := a.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "When is enrollment?"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Role != "assistant" || reply.Content != "Enrollment opens in June." {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if _, err := a.Chat(context.Background(), nil); !errors.Is(err, ai.ErrMessagesRequired) {
		t.Fatalf("expected ErrMessagesRequired, got %v", err)
	}

	gen.err = errors.New("upstream 500")
	if _, err := a.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}}); !errors.Is(err, ErrAIFailed) {
		t.Fatalf("expected ErrAIFailed, got %v", err)
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	a := newTestApp(t, nil, nil)
	user := registerStudent(t, a)

	sess, err := a.Login("2024-0001", "secret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	p, err := a.Authenticate(sess.Token)
	if err != nil || p.Admin || p.User.ID != user.ID {
		t.Fatalf("unexpected principal %+v err=%v", p, err)
	}
	if err := a.Logout(sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := a.Authenticate(sess.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked token should be rejected, got %v", err)
	}

	if _, err := a.Login("juan@nemsu.edu.ph", "wrong"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	admin, err := a.Login(store.AdminEmail, store.AdminPassword)
	if err != nil || !admin.IsAdmin {
		t.Fatalf("admin login: %+v %v", admin, err)
	}
	p, err = a.Authenticate(admin.Token)
	if err != nil || !p.Admin {
		t.Fatalf("admin principal expected, got %+v %v", p, err)
	}
}

func TestRegisterRespectsSettings(t *testing.T) {
	a := newTestApp(t, nil, nil)
	if _, err := a.Register(domain.NewUser{Email: "x@nemsu.edu.ph"}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected missing fields, got %v", err)
	}
	closed := false
	a.UpdateSettings(domain.SettingsUpdate{General: &domain.GeneralUpdate{AllowRegistration: &closed}})
	if _, err := a.Register(domain.NewUser{FullName: "A", Email: "a@b.c", StudentID: "1", Password: "p"}); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected registration closed, got %v", err)
	}
}

func TestUpdateProfilePasswordRotatesToken(t *testing.T) {
	a := newTestApp(t, nil, nil)
	user := registerStudent(t, a)
	sess, err := a.Login(user.Email, "secret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	name := "Juan D. Cruz"
	updated, token, err := a.UpdateProfile(user.ID, sess.Token, domain.UserUpdate{FullName: &name})
	if err != nil || token != "" || updated.FullName != name {
		t.Fatalf("name update: %+v token=%q err=%v", updated, token, err)
	}

	pw := "new-secret"
	_, token, err = a.UpdateProfile(user.ID, sess.Token, domain.UserUpdate{Password: &pw})
	if err != nil || token == "" {
		t.Fatalf("password update: token=%q err=%v", token, err)
	}
	if _, err := a.Authenticate(sess.Token); err == nil {
		t.Fatalf("old token should be revoked after password change")
	}
	if _, err := a.Authenticate(token); err != nil {
		t.Fatalf("fresh token should be valid: %v", err)
	}
	if _, err := a.Login(user.Email, pw); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAddCommentUsesProfile(t *testing.T) {
	a := newTestApp(t, nil, nil)
	user := registerStudent(t, a)
	postID := a.Feed()[0].ID

	c, ok, err := a.AddComment(postID, user, "Agreed!")
	if err != nil || !ok {
		t.Fatalf("add comment: ok=%v err=%v", ok, err)
	}
	if c.Author != "Juan Dela Cruz" || c.Avatar != "JD" {
		t.Fatalf("unexpected comment author: %+v", c)
	}
	if _, ok, _ := a.AddComment(9999, user, "hi"); ok {
		t.Fatalf("unknown post should report not found")
	}
	if c.AuthorID != user.ID {
		t.Fatalf("comment should carry the author id, got %q", c.AuthorID)
	}
	if err := a.DeleteComment(postID, c.ID, Principal{User: domain.User{ID: "user-other"}}); !errors.Is(err, store.ErrNotCommentAuthor) {
		t.Fatalf("another student must not delete, got %v", err)
	}
	if err := a.DeleteComment(postID, c.ID, Principal{User: user}); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := a.DeleteComment(postID, c.ID, Principal{User: user}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestSentimentStatusAndAnnouncements(t *testing.T) {
	a := newTestApp(t, nil, nil)
	if _, err := a.UpdateSentimentStatus("STU-001", "Closed"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if ok, _ := a.UpdateSentimentStatus("STU-404", domain.StatusResolved); ok {
		t.Fatalf("unknown id should report false")
	}
	if ok, _ := a.UpdateSentimentStatus("STU-001", domain.StatusResolved); !ok {
		t.Fatalf("known id should update")
	}

	if _, err := a.CreateAnnouncement(domain.NewAnnouncement{Title: " "}); !errors.Is(err, ErrInvalidAnnouncement) {
		t.Fatalf("expected invalid announcement, got %v", err)
	}
	draft, err := a.CreateAnnouncement(domain.NewAnnouncement{Title: "Exams", Description: "Finals week", Category: "Academic"})
	if err != nil || draft.Status != domain.AnnouncementDraft {
		t.Fatalf("create draft: %+v %v", draft, err)
	}
	if len(a.Announcements(true)) != len(a.Announcements(false))+2 {
		t.Fatalf("students see published announcements only")
	}
	if _, ok := a.PublishAnnouncement(draft.ID); !ok {
		t.Fatalf("publish draft")
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{"juan dela cruz": "JD", "Maria": "M", "  ": ""}
	for in, want := range cases {
		if got := initials(in); got != want {
			t.Fatalf("initials(%q) = %q, want %q", in, got, want)
		}
	}
}
