package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// historyCap bounds the in-memory turn history. Old turns roll off the front;
// the generator only ever looks at the last MaxWindow anyway.
const historyCap = 400

// Handler receives each recorded turn as it arrives.
type Handler func(Turn)

// Watcher is the live session provider backed by Twitch IRC. Messages sent by
// the persona login are author turns; everything else is a viewer turn. The
// most recent viewer speaker becomes the resolved viewer name.
type Watcher struct {
	personaLogin string
	personaName  string
	viewerName   string

	mu         sync.RWMutex
	turns      []Turn
	lastViewer string
	live       bool

	handlerMu sync.RWMutex
	handlers  []Handler
}

// WatcherConfig carries the identity knobs for a Watcher. ViewerName pins the
// counterpart name; when empty it is resolved from whoever spoke last.
type WatcherConfig struct {
	PersonaLogin string
	PersonaName  string
	ViewerName   string
}

// NewWatcher builds a Watcher; it records nothing until Start is running.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		personaLogin: strings.ToLower(cfg.PersonaLogin),
		personaName:  cfg.PersonaName,
		viewerName:   cfg.ViewerName,
	}
}

// OnTurn registers a handler invoked synchronously for every recorded turn.
func (w *Watcher) OnTurn(h Handler) {
	w.handlerMu.Lock()
	w.handlers = append(w.handlers, h)
	w.handlerMu.Unlock()
}

// Start connects to Twitch IRC and records chat for channel until ctx is
// cancelled. It blocks; run it in a goroutine. Connection errors are logged
// and leave the session in the not-live state rather than propagating.
func (w *Watcher) Start(ctx context.Context, channel, botUsername, oauthToken string) {
	if channel == "" || botUsername == "" || oauthToken == "" {
		slog.Info("session: twitch creds not set; watcher idle")
		return
	}
	client := twitch.NewClient(botUsername, oauthToken)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		w.Record(Turn{
			SpeakerIsViewer: !strings.EqualFold(msg.User.Name, w.personaLogin),
			SpeakerName:     displayName(msg),
			Text:            msg.Message,
			At:              time.Now().UTC(),
		})
	})
	client.OnConnect(func() {
		w.setLive(true)
		slog.Info("session: connected", slog.String("channel", channel))
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		client.Disconnect()
		close(done)
	}()

	client.Join(channel)
	if err := client.Connect(); err != nil {
		slog.Error("session: twitch connect error", slog.Any("err", err))
	}
	w.setLive(false)
	<-done
}

// Record appends a turn to the bounded history and notifies handlers. It is
// exported so tests and replay tooling can feed turns without a live socket.
func (w *Watcher) Record(t Turn) {
	w.mu.Lock()
	w.turns = append(w.turns, t)
	if len(w.turns) > historyCap {
		w.turns = w.turns[len(w.turns)-historyCap:]
	}
	if t.SpeakerIsViewer && t.SpeakerName != "" {
		w.lastViewer = t.SpeakerName
	}
	w.mu.Unlock()

	w.handlerMu.RLock()
	handlers := w.handlers
	w.handlerMu.RUnlock()
	for _, h := range handlers {
		h(t)
	}
}

// History returns a copy of the recorded turns, oldest first.
func (w *Watcher) History(ctx context.Context) []Turn {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

func (w *Watcher) AuthorName() string {
	if w.personaName != "" {
		return w.personaName
	}
	if w.personaLogin != "" {
		return w.personaLogin
	}
	return AuthorPlaceholder
}

func (w *Watcher) ViewerName() string {
	if w.viewerName != "" {
		return w.viewerName
	}
	w.mu.RLock()
	last := w.lastViewer
	w.mu.RUnlock()
	if last != "" {
		return last
	}
	return ViewerPlaceholder
}

func (w *Watcher) Live() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.live
}

func (w *Watcher) setLive(v bool) {
	w.mu.Lock()
	w.live = v
	w.mu.Unlock()
}

func displayName(msg twitch.PrivateMessage) string {
	if msg.User.DisplayName != "" {
		return msg.User.DisplayName
	}
	return msg.User.Name
}
