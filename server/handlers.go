// Package server exposes the HTTP API: the feed, its live event stream, the
// settings blob, health probes, metrics, and the Twitch OAuth helper flow.
package server

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"

	"github.com/onnwee/persona-feed/config"
	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/session"
	"github.com/onnwee/persona-feed/settings"
	"github.com/onnwee/persona-feed/twitchapi"
)

// maxOAuthStates bounds the in-memory OAuth state store.
const maxOAuthStates = 10000

// Deps carries everything the HTTP layer needs. DB may be nil when the
// service runs in-memory only.
type Deps struct {
	DB       *sql.DB
	Settings *settings.Store
	Manager  *feed.Manager
	Session  session.Provider
	Cfg      *config.Config
	// Helix is optional; when present the status endpoint reports the
	// channel's live stream.
	Helix *twitchapi.HelixClient
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db       *sql.DB
	settings *settings.Store
	manager  *feed.Manager
	sess     session.Provider
	cfg      *config.Config
	helix    *twitchapi.HelixClient
	oauthCfg *oauth2.Config

	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// NewHandlers wires the handler set from its dependencies.
func NewHandlers(deps Deps) *Handlers {
	h := &Handlers{
		db:         deps.DB,
		settings:   deps.Settings,
		manager:    deps.Manager,
		sess:       deps.Session,
		cfg:        deps.Cfg,
		helix:      deps.Helix,
		stateStore: make(map[string]time.Time),
	}
	if h.sess == nil {
		h.sess = session.Null{}
	}
	if deps.Cfg != nil && deps.Cfg.TwitchClientID != "" {
		h.oauthCfg = &oauth2.Config{
			ClientID:     deps.Cfg.TwitchClientID,
			ClientSecret: deps.Cfg.TwitchClientSecret,
			RedirectURL:  deps.Cfg.TwitchRedirectURI,
			Scopes:       splitScopes(deps.Cfg.TwitchScopes),
			Endpoint:     twitch.Endpoint,
		}
	}
	return h
}

// newOAuthState returns a fresh random state token, or "" when the store is
// full or entropy is unavailable.
func (h *Handlers) newOAuthState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	state := hex.EncodeToString(buf)

	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	if len(h.stateStore)%100 == 0 {
		now := time.Now()
		for s, expiry := range h.stateStore {
			if now.After(expiry) {
				delete(h.stateStore, s)
			}
		}
	}
	if len(h.stateStore) >= maxOAuthStates {
		return ""
	}
	h.stateStore[state] = time.Now().Add(10 * time.Minute)
	return state
}

// takeOAuthState consumes a state token, reporting whether it was valid and
// unexpired. A state is single use.
func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	expiry, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(expiry)
}
