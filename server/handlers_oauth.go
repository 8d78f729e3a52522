package server

import (
	"log/slog"
	"net/http"

	dbpkg "github.com/onnwee/persona-feed/db"
)

// HandleTwitchOAuthStart begins the Twitch authorization code flow for the
// bot account.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.oauthCfg == nil {
		http.Error(w, "twitch oauth not configured", http.StatusServiceUnavailable)
		return
	}
	state := h.newOAuthState()
	if state == "" {
		http.Error(w, "oauth state unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, h.oauthCfg.AuthCodeURL(state), http.StatusFound)
}

// HandleTwitchOAuthCallback exchanges the authorization code and stores the
// resulting token for the chat watcher and the background refresher.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthCfg == nil {
		http.Error(w, "twitch oauth not configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	if errStr := q.Get("error"); errStr != "" {
		http.Error(w, "authorization denied: "+errStr, http.StatusBadRequest)
		return
	}
	if !h.takeOAuthState(q.Get("state")) {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	tok, err := h.oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("twitch oauth exchange failed", slog.Any("err", err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	if h.db != nil {
		scope := h.cfg.TwitchScopes
		if err := dbpkg.UpsertOAuthToken(r.Context(), h.db, "twitch", tok.AccessToken, tok.RefreshToken, tok.Expiry, scope); err != nil {
			slog.Error("store twitch token failed", slog.Any("err", err))
			http.Error(w, "failed to store token", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "authorized",
		"expires": tok.Expiry,
	})
}
