package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"nemsutalks/internal/ratelimit"
	"nemsutalks/pkg/ai"
	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/session"
	"nemsutalks/pkg/store"
	"nemsutalks/services/portal/internal/app"
	"nemsutalks/services/portal/internal/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubGenerator struct{ reply string }

func (g stubGenerator) GenerateText(context.Context, string, string) (string, error) {
	return g.reply, nil
}

type testEnv struct {
	srv *httptest.Server
}

func newTestEnv(t *testing.T, gen ai.TextGenerator, cfg Config) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions, err := session.NewManager(testSecret, time.Hour, session.NewRedisTokenRevoker(rdb, "test:session", time.Hour), session.Options{})
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}
	core, err := app.New(app.Config{
		Sessions:     sessions,
		Generator:    gen,
		SeedDemoData: true,
		StatsPadding: store.DisplayPadding,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := core.Start(context.Background()); err != nil {
		t.Fatalf("start app: %v", err)
	}
	cfg.App = core
	cfg.Alerter = security.NewAuditAlerter(rdb, "test:alerts")
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) expect(t *testing.T, method, path, token string, body any, status int, out any) {
	t.Helper()
	resp, data := e.do(t, method, path, token, body)
	if resp.StatusCode != status {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: decode %s: %v", method, path, data, err)
		}
	}
}

func (e *testEnv) login(t *testing.T, identifier, password string) string {
	t.Helper()
	var resp loginResponse
	e.expect(t, http.MethodPost, "/api/auth/login", "", loginRequest{Identifier: identifier, Password: password}, http.StatusOK, &resp)
	if resp.Token == "" {
		t.Fatalf("login returned no token")
	}
	return resp.Token
}

func (e *testEnv) registerAndLogin(t *testing.T) string {
	t.Helper()
	e.expect(t, http.MethodPost, "/api/auth/register", "", domain.NewUser{
		FullName: "Maria Santos", Email: "maria@nemsu.edu.ph", StudentID: "2024-1234", Password: "hunter22",
	}, http.StatusCreated, nil)
	return e.login(t, "maria@nemsu.edu.ph", "hunter22")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	var health map[string]any
	env.expect(t, http.MethodGet, "/healthz", "", nil, http.StatusOK, &health)
	if health["status"] != "ok" || health["ai"] != false {
		t.Fatalf("unexpected health: %v", health)
	}
	resp, data := env.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "nemsutalks_http_requests_total") {
		t.Fatalf("metrics endpoint should expose portal collectors")
	}
	if resp.Header.Get("X-Request-Id") == "" || resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("middleware headers missing: %v", resp.Header)
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil, Config{})

	env.expect(t, http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized, nil)
	token := env.registerAndLogin(t)

	var me meResponse
	env.expect(t, http.MethodGet, "/api/auth/me", token, nil, http.StatusOK, &me)
	if me.IsAdmin || me.User == nil || me.User.StudentID != "2024-1234" {
		t.Fatalf("unexpected me: %+v", me)
	}
	_, raw := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if strings.Contains(string(raw), "password") {
		t.Fatalf("password hash must not be exposed: %s", raw)
	}

	var errBody map[string]string
	env.expect(t, http.MethodPost, "/api/auth/register", "", domain.NewUser{
		FullName: "Other", Email: "MARIA@nemsu.edu.ph", StudentID: "2024-9999", Password: "x",
	}, http.StatusConflict, &errBody)
	if errBody["error"] != store.ErrDuplicateEmail.Error() {
		t.Fatalf("unexpected conflict body: %v", errBody)
	}
	env.expect(t, http.MethodPost, "/api/auth/login", "", loginRequest{Identifier: "maria@nemsu.edu.ph", Password: "nope"}, http.StatusUnauthorized, nil)

	env.expect(t, http.MethodPost, "/api/auth/logout", token, nil, http.StatusNoContent, nil)
	env.expect(t, http.MethodGet, "/api/auth/me", token, nil, http.StatusUnauthorized, nil)
}

func TestPasswordChangeRotatesToken(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	token := env.registerAndLogin(t)

	var resp struct {
		User  userView `json:"user"`
		Token string   `json:"token"`
	}
	env.expect(t, http.MethodPatch, "/api/users/me", token, map[string]string{"password": "n3w-pass"}, http.StatusOK, &resp)
	if resp.Token == "" {
		t.Fatalf("expected a fresh token")
	}
	env.expect(t, http.MethodGet, "/api/auth/me", token, nil, http.StatusUnauthorized, nil)
	env.expect(t, http.MethodGet, "/api/auth/me", resp.Token, nil, http.StatusOK, nil)
}

func TestFeedFlow(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	token := env.registerAndLogin(t)

	var posted app.PostResult
	env.expect(t, http.MethodPost, "/api/feed", token, postSentimentRequest{
		Content: "The registrar staff were very helpful", Category: domain.CategoryAdministration,
	}, http.StatusCreated, &posted)
	if posted.Record.ID != "STU-009" || posted.Post.Author != store.AnonymousAuthor {
		t.Fatalf("unexpected post result: %+v", posted)
	}
	env.expect(t, http.MethodPost, "/api/feed", token, postSentimentRequest{Content: " "}, http.StatusBadRequest, nil)

	var feed []domain.UserSentiment
	env.expect(t, http.MethodGet, "/api/feed", token, nil, http.StatusOK, &feed)
	if len(feed) != 7 || feed[0].ID != posted.Post.ID {
		t.Fatalf("new post should be first of 7, got %d", len(feed))
	}

	path := "/api/feed/" + jsonInt(posted.Post.ID)
	var liked struct {
		Post  domain.UserSentiment `json:"post"`
		Liked bool                 `json:"liked"`
	}
	env.expect(t, http.MethodPost, path+"/like", token, nil, http.StatusOK, &liked)
	if !liked.Liked || liked.Post.Likes != 1 {
		t.Fatalf("first toggle should like: %+v", liked)
	}
	env.expect(t, http.MethodPost, path+"/like", token, nil, http.StatusOK, &liked)
	if liked.Liked || liked.Post.Likes != 0 {
		t.Fatalf("second toggle should unlike: %+v", liked)
	}
	env.expect(t, http.MethodPost, "/api/feed/99999/like", token, nil, http.StatusNotFound, nil)
	env.expect(t, http.MethodGet, "/api/feed/abc/like", token, nil, http.StatusBadRequest, nil)

	var comment domain.Comment
	env.expect(t, http.MethodPost, path+"/comments", token, commentRequest{Content: "Same here"}, http.StatusCreated, &comment)
	if comment.Author != "Maria Santos" || comment.Avatar != "MS" {
		t.Fatalf("unexpected comment: %+v", comment)
	}
	env.expect(t, http.MethodDelete, path+"/comments/"+comment.ID, token, nil, http.StatusNoContent, nil)
	env.expect(t, http.MethodDelete, path+"/comments/"+comment.ID, token, nil, http.StatusNotFound, nil)
}

func TestCommentDeletionIsLimitedToAuthor(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	author := env.registerAndLogin(t)
	env.expect(t, http.MethodPost, "/api/auth/register", "", domain.NewUser{
		FullName: "Pedro Reyes", Email: "pedro@nemsu.edu.ph", StudentID: "2024-5678", Password: "hunter33",
	}, http.StatusCreated, nil)
	other := env.login(t, "pedro@nemsu.edu.ph", "hunter33")
	admin := env.login(t, store.AdminEmail, store.AdminPassword)

	var comment domain.Comment
	env.expect(t, http.MethodPost, "/api/feed/1/comments", author, commentRequest{Content: "Agreed"}, http.StatusCreated, &comment)

	var feed []domain.UserSentiment
	env.expect(t, http.MethodGet, "/api/feed", other, nil, http.StatusOK, &feed)
	var seededID string
	for _, p := range feed {
		if p.ID == 1 {
			seededID = p.Comments[0].ID
		}
	}

	env.expect(t, http.MethodDelete, "/api/feed/1/comments/"+comment.ID, other, nil, http.StatusForbidden, nil)
	env.expect(t, http.MethodDelete, "/api/feed/1/comments/"+seededID, other, nil, http.StatusForbidden, nil)
	env.expect(t, http.MethodDelete, "/api/feed/1/comments/"+comment.ID, author, nil, http.StatusNoContent, nil)
	env.expect(t, http.MethodDelete, "/api/feed/1/comments/"+seededID, admin, nil, http.StatusNoContent, nil)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	student := env.registerAndLogin(t)
	admin := env.login(t, store.AdminEmail, store.AdminPassword)

	env.expect(t, http.MethodGet, "/api/admin/sentiments", "", nil, http.StatusUnauthorized, nil)
	env.expect(t, http.MethodGet, "/api/admin/sentiments", student, nil, http.StatusForbidden, nil)

	var stats domain.SentimentStats
	env.expect(t, http.MethodGet, "/api/admin/stats", admin, nil, http.StatusOK, &stats)
	if stats.Total != 8+1226 {
		t.Fatalf("padded total expected, got %+v", stats)
	}
	var trend []domain.TrendPoint
	env.expect(t, http.MethodGet, "/api/admin/trend", admin, nil, http.StatusOK, &trend)
	if len(trend) != 12 || trend[0].Month != "Jan" {
		t.Fatalf("unexpected trend: %+v", trend)
	}

	var unread map[string]int
	env.expect(t, http.MethodGet, "/api/admin/notifications/unread-count", admin, nil, http.StatusOK, &unread)
	before := unread["count"]

	var item domain.Sentiment
	env.expect(t, http.MethodPatch, "/api/admin/sentiments/STU-001/status", admin, statusRequest{Status: domain.StatusResolved}, http.StatusOK, &item)
	if item.Status != domain.StatusResolved {
		t.Fatalf("status not updated: %+v", item)
	}
	env.expect(t, http.MethodPatch, "/api/admin/sentiments/STU-404/status", admin, statusRequest{Status: domain.StatusResolved}, http.StatusNotFound, nil)
	env.expect(t, http.MethodPatch, "/api/admin/sentiments/STU-001/status", admin, statusRequest{Status: "Closed"}, http.StatusBadRequest, nil)

	env.expect(t, http.MethodGet, "/api/admin/notifications/unread-count", admin, nil, http.StatusOK, &unread)
	if unread["count"] != before+1 {
		t.Fatalf("expected one new notification, got %d -> %d", before, unread["count"])
	}
	env.expect(t, http.MethodPost, "/api/admin/notifications/read-all", admin, nil, http.StatusNoContent, nil)
	env.expect(t, http.MethodGet, "/api/admin/notifications/unread-count", admin, nil, http.StatusOK, &unread)
	if unread["count"] != 0 {
		t.Fatalf("read-all should clear unread count")
	}

	var created domain.Announcement
	env.expect(t, http.MethodPost, "/api/admin/announcements", admin, domain.NewAnnouncement{
		Title: "Library hours", Description: "Open until 9pm", Category: "Facilities",
	}, http.StatusCreated, &created)
	var published []domain.Announcement
	env.expect(t, http.MethodGet, "/api/announcements", student, nil, http.StatusOK, &published)
	for _, a := range published {
		if a.ID == created.ID {
			t.Fatalf("drafts must not be visible to students")
		}
	}
	env.expect(t, http.MethodPost, "/api/admin/announcements/"+created.ID+"/publish", admin, nil, http.StatusOK, &created)
	if created.Status != domain.AnnouncementPublished || !created.IsNew {
		t.Fatalf("unexpected published announcement: %+v", created)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	admin := env.login(t, store.AdminEmail, store.AdminPassword)

	closed := false
	var settings domain.Settings
	env.expect(t, http.MethodPatch, "/api/admin/settings", admin, domain.SettingsUpdate{
		General: &domain.GeneralUpdate{AllowRegistration: &closed},
	}, http.StatusOK, &settings)
	if settings.General.AllowRegistration || !settings.IsDirty {
		t.Fatalf("patch not applied: %+v", settings.General)
	}
	env.expect(t, http.MethodPost, "/api/auth/register", "", domain.NewUser{
		FullName: "Late", Email: "late@nemsu.edu.ph", StudentID: "2024-5555", Password: "pw",
	}, http.StatusForbidden, nil)

	var backup domain.SettingsBackup
	env.expect(t, http.MethodPost, "/api/admin/settings/backups", admin, nil, http.StatusCreated, &backup)
	env.expect(t, http.MethodPost, "/api/admin/settings/reset", admin, nil, http.StatusOK, &settings)
	if !settings.General.AllowRegistration {
		t.Fatalf("reset should restore defaults")
	}
	env.expect(t, http.MethodPost, "/api/admin/settings/backups/"+backup.ID+"/restore", admin, nil, http.StatusOK, &settings)
	if settings.General.AllowRegistration {
		t.Fatalf("restore should bring back the backed-up settings")
	}
	env.expect(t, http.MethodPost, "/api/admin/settings/backups/missing/restore", admin, nil, http.StatusNotFound, nil)

	resp, exported := env.do(t, http.MethodGet, "/api/admin/settings/export", admin, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(exported), `"version": "1.0"`) {
		t.Fatalf("unexpected export: %d %s", resp.StatusCode, exported)
	}
	env.expect(t, http.MethodPost, "/api/admin/settings/import", admin, map[string]any{"general": nil}, http.StatusBadRequest, nil)
	env.expect(t, http.MethodPost, "/api/admin/settings/clear", admin, nil, http.StatusOK, &settings)
	if len(settings.Backups) != 0 {
		t.Fatalf("clear should drop backups")
	}
}

func TestAIEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	token := env.registerAndLogin(t)
	env.expect(t, http.MethodPost, "/api/analyze-sentiment", token, analyzeRequest{Content: "hi"}, http.StatusServiceUnavailable, nil)

	gen := stubGenerator{reply: `{"category":"Instruction","sentimentType":"Positive","isAppropriate":true,"rewrittenContent":"Great lectures."}`}
	env = newTestEnv(t, gen, Config{})
	token = env.registerAndLogin(t)

	var analysis domain.Analysis
	env.expect(t, http.MethodPost, "/api/analyze-sentiment", token, analyzeRequest{Content: "Great lectures."}, http.StatusOK, &analysis)
	if analysis.Category != domain.CategoryInstruction || !analysis.IsAppropriate {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	env.expect(t, http.MethodPost, "/api/analyze-sentiment", token, analyzeRequest{}, http.StatusBadRequest, nil)

	var reply domain.ChatMessage
	env.expect(t, http.MethodPost, "/api/chat", token, chatRequest{Messages: []domain.ChatMessage{{Role: "user", Content: "hello"}}}, http.StatusOK, &reply)
	if reply.Role != "assistant" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	env.expect(t, http.MethodPost, "/api/chat", token, chatRequest{}, http.StatusBadRequest, nil)
}

func TestLoginRateLimited(t *testing.T) {
	limiter, err := ratelimit.NewMemoryFixedWindow(1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestEnv(t, nil, Config{LoginLimiter: limiter})

	body := loginRequest{Identifier: "nobody@nemsu.edu.ph", Password: "x"}
	env.expect(t, http.MethodPost, "/api/auth/login", "", body, http.StatusUnauthorized, nil)
	resp, _ := env.do(t, http.MethodPost, "/api/auth/login", "", body)
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d", resp.StatusCode)
	}
}

func TestRepeatedLoginFailuresAlertAdmin(t *testing.T) {
	env := newTestEnv(t, nil, Config{})
	admin := env.login(t, store.AdminEmail, store.AdminPassword)

	var unread map[string]int
	env.expect(t, http.MethodGet, "/api/admin/notifications/unread-count", admin, nil, http.StatusOK, &unread)
	before := unread["count"]

	for range 12 {
		env.expect(t, http.MethodPost, "/api/auth/login", "", loginRequest{Identifier: "intruder", Password: "guess"}, http.StatusUnauthorized, nil)
	}
	env.expect(t, http.MethodGet, "/api/admin/notifications/unread-count", admin, nil, http.StatusOK, &unread)
	if unread["count"] != before+1 {
		t.Fatalf("expected a single security alert, unread %d -> %d", before, unread["count"])
	}
	var list []domain.Notification
	env.expect(t, http.MethodGet, "/api/admin/notifications", admin, nil, http.StatusOK, &list)
	if list[0].Title != "Security Alert" || list[0].Type != domain.NotificationSystem {
		t.Fatalf("unexpected newest notification: %+v", list[0])
	}
}

func jsonInt(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
