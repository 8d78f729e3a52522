package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/generator"
	"github.com/onnwee/persona-feed/session"
	"github.com/onnwee/persona-feed/settings"
)

type fakeSession struct {
	turns []session.Turn
	live  bool
}

func (f *fakeSession) History(context.Context) []session.Turn { return f.turns }
func (f *fakeSession) AuthorName() string                     { return "Aria" }
func (f *fakeSession) ViewerName() string                     { return "Sam" }
func (f *fakeSession) Live() bool                             { return f.live }

type testEnv struct {
	handler http.Handler
	manager *feed.Manager
	store   *settings.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	// keep middleware in its default dev posture regardless of the host env
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("ENV", "")
	t.Setenv("CORS_PERMISSIVE", "")
	t.Setenv("RATE_LIMIT_ENABLED", "0")

	store := settings.NewStore(nil)
	store.Load(context.Background())
	sess := &fakeSession{
		live: true,
		turns: []session.Turn{
			{SpeakerIsViewer: true, SpeakerName: "Sam", Text: "what a day"},
			{SpeakerIsViewer: false, SpeakerName: "Aria", Text: "tell me about it"},
		},
	}
	manager := feed.NewManager(store, generator.New(nil), sess, generator.SystemRand())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mux := NewMux(ctx, Deps{Settings: store, Manager: manager, Session: sess})
	return &testEnv{handler: mux, manager: manager, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
}

func TestFeedLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/feed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /feed = %d", w.Code)
	}
	var page struct {
		Items []feed.Item `json:"items"`
		Count int         `json:"count"`
	}
	decodeJSON(t, w, &page)
	if page.Count != 0 {
		t.Fatalf("fresh feed count = %d", page.Count)
	}

	w = env.do(t, http.MethodPost, "/feed/compose", `{"category":"dramatic","platform":"twitter"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /feed/compose = %d: %s", w.Code, w.Body.String())
	}
	var item feed.Item
	decodeJSON(t, w, &item)
	if item.Platform != feed.PlatformTwitter || item.TemplateCategory != "dramatic" {
		t.Fatalf("composed item = %+v", item)
	}
	if item.Text == "" || item.ID == "" {
		t.Fatal("composed item missing text or id")
	}

	w = env.do(t, http.MethodGet, "/feed", "")
	decodeJSON(t, w, &page)
	if page.Count != 1 || page.Items[0].ID != item.ID {
		t.Fatalf("feed after compose = %+v", page)
	}

	w = env.do(t, http.MethodPost, "/admin/feed/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /admin/feed/clear = %d: %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/feed", "")
	decodeJSON(t, w, &page)
	if page.Count != 0 {
		t.Fatalf("feed after clear = %+v", page)
	}
}

func TestFeedLimitParameter(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.do(t, http.MethodPost, "/feed/compose", `{}`)
	}
	w := env.do(t, http.MethodGet, "/feed?limit=2", "")
	var page struct {
		Count int `json:"count"`
	}
	decodeJSON(t, w, &page)
	if page.Count != 2 {
		t.Fatalf("limited count = %d, want 2", page.Count)
	}
}

func TestComposeValidation(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/feed/compose", `{"category":"bogus"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bogus category = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/feed/compose", `{"platform":"friendster"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bogus platform = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/feed/compose", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("broken JSON = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/feed/compose", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET compose = %d", w.Code)
	}
	// an empty body composes with random category and no platform
	if w := env.do(t, http.MethodPost, "/feed/compose", ""); w.Code != http.StatusCreated {
		t.Fatalf("empty body compose = %d", w.Code)
	}
}

func TestSettingsAPI(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /settings = %d", w.Code)
	}
	var snap map[string]any
	decodeJSON(t, w, &snap)
	if _, ok := snap["feed"]; ok {
		t.Fatal("settings response must not include the feed")
	}
	if snap["maxPosts"] != float64(settings.DefaultMaxPosts) {
		t.Fatalf("maxPosts = %v", snap["maxPosts"])
	}

	w = env.do(t, http.MethodPut, "/settings", `{"maxPosts": 5, "enabled": false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /settings = %d: %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &snap)
	if snap["maxPosts"] != float64(5) || snap["enabled"] != false {
		t.Fatalf("patched settings = %v", snap)
	}
	if env.store.MaxPosts() != 5 {
		t.Fatal("patch did not reach the store")
	}

	if w := env.do(t, http.MethodPut, "/settings", `{"feed": []}`); w.Code != http.StatusBadRequest {
		t.Fatalf("feed patch = %d, want rejection", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/settings", `{"bogus": 1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown key patch = %d, want rejection", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/settings", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /settings = %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /status = %d", w.Code)
	}
	var status map[string]any
	decodeJSON(t, w, &status)
	if status["live"] != true || status["author"] != "Aria" || status["viewer"] != "Sam" {
		t.Fatalf("status = %v", status)
	}
	if status["feedDepth"] != float64(0) {
		t.Fatalf("feedDepth = %v", status["feedDepth"])
	}
	if _, ok := status["stream"]; ok {
		t.Fatal("no helix client configured, status should omit the stream")
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz without db = %d, want ok for in-memory mode", w.Code)
	}
	w := env.do(t, http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db = %d, want 503", w.Code)
	}
	var body map[string]string
	decodeJSON(t, w, &body)
	if body["failed_check"] != "database" {
		t.Fatalf("failed check = %q", body["failed_check"])
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodOptions, "/feed", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("dev mode should be permissive")
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/feed", "")
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("missing generated correlation id")
	}

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("X-Correlation-ID", "fixed-id")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Correlation-ID") != "fixed-id" {
		t.Fatal("provided correlation id should be echoed")
	}
}

func TestOAuthStartUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/auth/twitch/start", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("oauth start without creds = %d, want 503", w.Code)
	}
}

func TestAdminAuthEnforced(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "sekrit")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("RATE_LIMIT_ENABLED", "0")

	store := settings.NewStore(nil)
	store.Load(context.Background())
	manager := feed.NewManager(store, generator.New(nil), &fakeSession{live: true}, generator.SystemRand())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mux := NewMux(ctx, Deps{Settings: store, Manager: manager, Session: &fakeSession{}})

	req := httptest.NewRequest(http.MethodPost, "/admin/feed/clear", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated admin = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/feed/clear", nil)
	req.Header.Set("X-Admin-Token", "sekrit")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("token admin = %d, want 200", w.Code)
	}
}

func TestFeedStreamDeliversComposeEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/feed/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		env.manager.Compose(context.Background(), feed.ComposeOpts{Category: "casual"})
	}()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev feed.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad event payload %q: %v", line, err)
		}
		if ev.Type != "post" || ev.Item == nil {
			t.Fatalf("event = %+v", ev)
		}
		return
	}
	t.Fatalf("stream ended without a post event: %v", scanner.Err())
}

func TestRateLimitOnCompose(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("RATE_LIMIT_ENABLED", "1")
	t.Setenv("RATE_LIMIT_REQUESTS_PER_IP", "2")

	store := settings.NewStore(nil)
	store.Load(context.Background())
	manager := feed.NewManager(store, generator.New(nil), &fakeSession{live: true}, generator.SystemRand())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mux := NewMux(ctx, Deps{Settings: store, Manager: manager, Session: &fakeSession{}})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/feed/compose", strings.NewReader(`{}`))
		req.RemoteAddr = "10.1.2.3:5555"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Fatalf("first two composes = %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third compose = %d, want 429", codes[2])
	}
}
