package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/persona-feed/session"
	"github.com/onnwee/persona-feed/telemetry"
)

// replyProbability is the threshold for the probabilistic author-reply
// trigger: a uniform draw must exceed it for the trigger to fire.
const replyProbability = 0.6

// replyLengthTrigger fires the heuristic when an author reply exceeds this
// many characters even without an emotion indicator.
const replyLengthTrigger = 80

// DefaultComposeDelay spaces the automatic compose away from the triggering
// message so the post feels conversational. There is no cancellation; a fired
// task simply no-ops when the session is gone.
const DefaultComposeDelay = 4 * time.Second

// emotionIndicators trip the author-reply trigger (case-insensitive
// substring match).
var emotionIndicators = []string{
	"!!", "?!", "...", "haha", "lol", "omg", "ugh", "sigh", "love", "hate", "cry", "sob",
}

// Settings is the slice of the settings store the manager depends on.
type Settings interface {
	MaxMessages() int
	MaxPosts() int
	Enabled() bool
	AutoPostFrequency() int
	EnableNotifications() bool
	EnabledPlatforms() []Platform
	Feed() []Item
	SetFeed([]Item)
	Persist(ctx context.Context)
}

// Rand supplies the manager's random draws (platform pick, reply-trigger
// probability).
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Event is what feed subscribers (the SSE stream) receive.
type Event struct {
	Type         string `json:"type"` // "post" or "toast"
	Item         *Item  `json:"item,omitempty"`
	PlatformName string `json:"platformName,omitempty"`
	Category     string `json:"category,omitempty"`
}

// Manager owns the bounded feed. Every mutation happens under one lock and is
// persisted before the lock is released, so each session event observes the
// previous mutation fully applied.
type Manager struct {
	mu       sync.Mutex
	st       Settings
	store    *Store
	composer Composer
	sess     session.Provider
	rnd      Rand

	counter      int
	composeDelay time.Duration

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// NewManager wires the feed manager. The store is rehydrated lazily from the
// settings blob on first use; call Rehydrate at startup to do it eagerly.
func NewManager(st Settings, composer Composer, sess session.Provider, rnd Rand) *Manager {
	return &Manager{
		st:           st,
		composer:     composer,
		sess:         sess,
		rnd:          rnd,
		composeDelay: DefaultComposeDelay,
		subs:         make(map[chan Event]struct{}),
	}
}

// SetComposeDelay overrides the deferred compose delay.
func (m *Manager) SetComposeDelay(d time.Duration) {
	if d >= 0 {
		m.composeDelay = d
	}
}

// Rehydrate loads the persisted feed into the bounded store.
func (m *Manager) Rehydrate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStoreLocked()
}

func (m *Manager) ensureStoreLocked() {
	if m.store == nil {
		m.store = NewStore(m.st.MaxPosts())
		m.store.Replace(m.st.Feed())
		telemetry.SetFeedDepth(m.store.Len())
	}
}

// List returns the current feed, newest first.
func (m *Manager) List() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStoreLocked()
	return m.store.List()
}

// Compose generates one post from the current session window, appends it and
// persists the feed. It is the single write path for both manual and
// automatic posts.
func (m *Manager) Compose(ctx context.Context, opts ComposeOpts) Item {
	ctx, span := telemetry.StartSpan(ctx, "feed", "feed.compose")
	defer span.End()

	turns := session.Recent(m.sess.History(ctx), m.st.MaxMessages())
	names := Names{Author: m.sess.AuthorName(), Viewer: m.sess.ViewerName()}

	m.mu.Lock()
	m.ensureStoreLocked()
	var item Item
	telemetry.TimeFunc(telemetry.GenerateDuration, func() {
		item = m.composer.Generate(turns, names, opts)
	})
	m.store.SetCapacity(m.st.MaxPosts())
	evicted := m.store.Append(item)
	m.st.SetFeed(m.store.List())
	m.st.Persist(ctx)
	depth := m.store.Len()
	m.mu.Unlock()

	telemetry.IncPostsGenerated()
	telemetry.AddPostsEvicted(evicted)
	telemetry.SetFeedDepth(depth)

	m.broadcast(Event{Type: "post", Item: &item})
	if m.st.EnableNotifications() {
		m.broadcast(Event{Type: "toast", PlatformName: string(item.Platform), Category: item.TemplateCategory})
	}
	return item
}

// Clear drops every post and persists the empty feed.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.ensureStoreLocked()
	m.store.Clear()
	m.st.SetFeed(nil)
	m.st.Persist(ctx)
	m.mu.Unlock()
	telemetry.SetFeedDepth(0)
}

// HandleTurn is the session event hook. Viewer messages advance the cadence
// counter; author replies run the probabilistic heuristic. Both paths are
// gated by the master enabled switch and schedule a deferred compose rather
// than composing inline.
func (m *Manager) HandleTurn(t session.Turn) {
	if !m.st.Enabled() {
		return
	}
	if t.SpeakerIsViewer {
		m.mu.Lock()
		m.counter++
		fire := m.counter >= m.st.AutoPostFrequency()
		if fire {
			m.counter = 0
		}
		m.mu.Unlock()
		if fire {
			telemetry.IncCadenceTriggers()
			m.scheduleCompose()
		}
		return
	}
	if replyTriggers(t.Text) && m.rnd.Float64() > replyProbability {
		telemetry.IncReplyTriggers()
		m.scheduleCompose()
	}
}

// replyTriggers applies the author-reply heuristic: an emotion indicator
// substring (case-insensitive) or a reply longer than replyLengthTrigger
// characters.
func replyTriggers(text string) bool {
	if len([]rune(text)) > replyLengthTrigger {
		return true
	}
	lower := strings.ToLower(text)
	for _, ind := range emotionIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// scheduleCompose fires a one-shot compose after the conversational delay
// with a random enabled platform and a random category. The fired task
// no-ops when the session is no longer live.
func (m *Manager) scheduleCompose() {
	time.AfterFunc(m.composeDelay, func() {
		if !m.sess.Live() {
			slog.Debug("feed: deferred compose skipped, session gone")
			return
		}
		platforms := m.st.EnabledPlatforms()
		opts := ComposeOpts{Platform: platforms[m.rnd.Intn(len(platforms))]}
		m.Compose(context.Background(), opts)
	})
}

// Subscribe registers a feed event listener. The returned cancel func must be
// called to release it. Slow subscribers drop events instead of blocking the
// write path.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()
	cancel := func() {
		m.subMu.Lock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
		m.subMu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) broadcast(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
