package twitchapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/onnwee/persona-feed/testutil"
)

func TestTokenSourceFetchesAndCaches(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	var calls atomic.Int32
	mock.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","expires_in":3600,"token_type":"bearer"}`))
	}

	ts := &TokenSource{ClientID: "cid", ClientSecret: "secret", AuthBase: mock.URL}
	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tok != "app-token" {
		t.Fatalf("token = %q", tok)
	}

	// second call hits the cache
	if _, err := ts.Get(context.Background()); err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("token endpoint called %d times, want 1", n)
	}
}

func TestTokenSourceMissingCredentials(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("expected error without client credentials")
	}
}

func TestTokenSourceServerError(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}
	ts := &TokenSource{ClientID: "cid", ClientSecret: "secret", AuthBase: mock.URL}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
