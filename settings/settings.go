// Package settings persists the feed and its configuration as a single JSON
// blob, the way a host extension store would: one key, one schemaless object,
// missing fields backfilled from defaults on load. Persistence is best-effort;
// when no storage is attached (or a write fails) the in-memory state stays
// authoritative for the rest of the session.
package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/telemetry"
)

// BlobKey is the kv key the settings blob is stored under.
const BlobKey = "ext:personafeed"

// Default option values. MaxPosts is the single bounded-capacity policy for
// the feed; maxMessages bounds the chat window read for generation.
const (
	DefaultMaxMessages       = 12
	DefaultMaxPosts          = 100
	DefaultAutoPostFrequency = 10
)

// Storage is the durable blob store behind a Store. Load returns nil when no
// blob exists yet.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Defaults returns a fresh default settings object. Callers own the result;
// nested slices are never shared.
func Defaults() map[string]any {
	return map[string]any{
		"maxMessages":         DefaultMaxMessages,
		"maxPosts":            DefaultMaxPosts,
		"enabled":             true,
		"autoPostFrequency":   DefaultAutoPostFrequency,
		"enabledPlatforms":    []any{"twitter", "mastodon", "instagram", "facebook"},
		"enableNotifications": true,
		"feed":                []any{},
	}
}

// Ensure backfills every missing top-level key of raw from the defaults:
// scalars by value, slices element-wise so the defaults are never aliased.
// Present keys are left untouched even when their type looks wrong, with one
// exception: a feed field that is not a sequence is reset to empty. A nil raw
// yields a fresh defaults object. Calling Ensure twice on the same input
// yields the same result the second time.
func Ensure(raw map[string]any) map[string]any {
	if raw == nil {
		return Defaults()
	}
	for k, dv := range Defaults() {
		if _, ok := raw[k]; ok {
			continue
		}
		if s, isSlice := dv.([]any); isSlice {
			cp := make([]any, len(s))
			copy(cp, s)
			raw[k] = cp
			continue
		}
		raw[k] = dv
	}
	if !isSequence(raw["feed"]) {
		raw["feed"] = []any{}
	}
	return raw
}

func isSequence(v any) bool {
	switch v.(type) {
	case []any, []feed.Item:
		return true
	}
	return false
}

// Store wraps the settings object with storage plumbing. All methods are safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	storage Storage
	data    map[string]any
}

// NewStore returns a store backed by storage; a nil storage means in-memory
// only (the degraded mode when no database is reachable).
func NewStore(storage Storage) *Store {
	return &Store{storage: storage, data: Defaults()}
}

// Load rehydrates the blob from storage, backfilling missing keys and
// resetting a corrupt blob to defaults. It never fails; unreadable state only
// degrades to defaults.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storage == nil {
		s.data = Ensure(s.data)
		return
	}
	blob, err := s.storage.Load(ctx)
	if err != nil {
		slog.Warn("settings: load failed, using defaults", slog.Any("err", err))
		s.data = Defaults()
		return
	}
	if len(blob) == 0 {
		s.data = Defaults()
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(blob, &raw); err != nil {
		slog.Warn("settings: corrupt blob, resetting to defaults", slog.Any("err", err))
		s.data = Defaults()
		return
	}
	s.data = Ensure(raw)
}

// Persist writes the current state to storage. Failures are logged and
// swallowed; the feed is not safety-critical.
func (s *Store) Persist(ctx context.Context) {
	s.mu.Lock()
	blob, err := json.Marshal(s.data)
	s.mu.Unlock()
	if err != nil {
		slog.Warn("settings: marshal failed", slog.Any("err", err))
		telemetry.IncPersistFailures()
		return
	}
	if s.storage == nil {
		return
	}
	if err := s.storage.Save(ctx, blob); err != nil {
		slog.Warn("settings: persist failed", slog.Any("err", err))
		telemetry.IncPersistFailures()
	}
}

// Get returns the raw value for a top-level key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a top-level key. The caller is responsible for calling Persist.
func (s *Store) Set(key string, v any) {
	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
}

// MaxMessages returns the chat window size, defaulting on a missing or
// mistyped value. Clamping to the [4,40] read window happens in the session
// reader.
func (s *Store) MaxMessages() int {
	return s.intOr("maxMessages", DefaultMaxMessages)
}

// MaxPosts returns the feed capacity, forced to at least 1.
func (s *Store) MaxPosts() int {
	n := s.intOr("maxPosts", DefaultMaxPosts)
	if n < 1 {
		n = 1
	}
	return n
}

// Enabled is the master switch gating all generation triggers.
func (s *Store) Enabled() bool {
	return s.boolOr("enabled", true)
}

// AutoPostFrequency is the viewer-message cadence between automatic posts,
// forced to at least 1.
func (s *Store) AutoPostFrequency() int {
	n := s.intOr("autoPostFrequency", DefaultAutoPostFrequency)
	if n < 1 {
		n = 1
	}
	return n
}

// EnableNotifications gates toast emission.
func (s *Store) EnableNotifications() bool {
	return s.boolOr("enableNotifications", true)
}

// EnabledPlatforms returns the recognized platforms from the configured set,
// falling back to all platforms when none survive.
func (s *Store) EnabledPlatforms() []feed.Platform {
	s.mu.Lock()
	raw, _ := s.data["enabledPlatforms"].([]any)
	s.mu.Unlock()
	var out []feed.Platform
	for _, v := range raw {
		if name, ok := v.(string); ok {
			if p := feed.Platform(name); p.Known() {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return feed.AllPlatforms()
	}
	return out
}

// Feed decodes the stored feed items, newest first. An undecodable feed is
// reset to empty rather than rejected.
func (s *Store) Feed() []feed.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := s.data["feed"].(type) {
	case []feed.Item:
		out := make([]feed.Item, len(v))
		copy(out, v)
		return out
	case []any:
		blob, err := json.Marshal(v)
		if err != nil {
			s.data["feed"] = []any{}
			return nil
		}
		var items []feed.Item
		if err := json.Unmarshal(blob, &items); err != nil {
			slog.Warn("settings: undecodable feed, resetting", slog.Any("err", err))
			s.data["feed"] = []any{}
			return nil
		}
		return items
	default:
		s.data["feed"] = []any{}
		return nil
	}
}

// SetFeed stores the feed items. The caller persists afterwards.
func (s *Store) SetFeed(items []feed.Item) {
	cp := make([]feed.Item, len(items))
	copy(cp, items)
	s.mu.Lock()
	s.data["feed"] = cp
	s.mu.Unlock()
}

// Snapshot returns a shallow copy of the settings object minus the feed,
// for the settings API.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		if k == "feed" {
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Store) intOr(key string, def int) int {
	s.mu.Lock()
	v := s.data[key]
	s.mu.Unlock()
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}

func (s *Store) boolOr(key string, def bool) bool {
	s.mu.Lock()
	v := s.data[key]
	s.mu.Unlock()
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
