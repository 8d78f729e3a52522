// Package session tracks the live chat session between the persona (the
// simulated author) and its viewers, and exposes the recent-turn window the
// post generator consumes. A missing or idle session degrades to an empty
// history and placeholder names; readers never fail.
package session

import (
	"context"
	"time"
)

// Placeholder names returned when the session cannot resolve a display name.
const (
	AuthorPlaceholder = "{{char}}"
	ViewerPlaceholder = "{{user}}"
)

// Window bounds for the recent-turn slice handed to the generator.
const (
	MinWindow = 4
	MaxWindow = 40
)

// Turn is one message of the chat history, oldest-first in History results.
// Turns are read-only once recorded.
type Turn struct {
	SpeakerIsViewer bool      `json:"speakerIsViewer"`
	SpeakerName     string    `json:"speakerName"`
	Text            string    `json:"text"`
	At              time.Time `json:"at"`
}

// Provider is the session surface consumed by the feed manager and the
// compose handlers. Implementations must be safe for concurrent use.
type Provider interface {
	// History returns the recorded turns in chronological order. An empty
	// slice means "no content yet", not an error.
	History(ctx context.Context) []Turn
	// AuthorName resolves the persona display name, falling back to
	// AuthorPlaceholder.
	AuthorName() string
	// ViewerName resolves the counterpart display name, falling back to
	// ViewerPlaceholder.
	ViewerName() string
	// Live reports whether the session is currently attached to a channel.
	Live() bool
}

// Recent clamps w to [MinWindow, MaxWindow] and returns the most recent w
// turns in chronological order. The input is assumed oldest-first.
func Recent(turns []Turn, w int) []Turn {
	if len(turns) == 0 {
		return nil
	}
	if w < MinWindow {
		w = MinWindow
	}
	if w > MaxWindow {
		w = MaxWindow
	}
	if len(turns) <= w {
		out := make([]Turn, len(turns))
		copy(out, turns)
		return out
	}
	out := make([]Turn, w)
	copy(out, turns[len(turns)-w:])
	return out
}

// Null is the no-session provider: empty history, placeholder names. Used
// when chat credentials are missing so the rest of the service stays inert
// instead of failing.
type Null struct{}

func (Null) History(context.Context) []Turn { return nil }
func (Null) AuthorName() string             { return AuthorPlaceholder }
func (Null) ViewerName() string             { return ViewerPlaceholder }
func (Null) Live() bool                     { return false }
