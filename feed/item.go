// Package feed holds the post feed: the item model, the bounded newest-first
// store, and the manager that turns session events into generated posts.
package feed

import (
	"time"

	"github.com/onnwee/persona-feed/session"
)

// Platform tags a post with the social network it pretends to belong to.
// The tag is decorative; nothing is ever published anywhere.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformMastodon  Platform = "mastodon"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// AllPlatforms lists every known platform tag.
func AllPlatforms() []Platform {
	return []Platform{PlatformTwitter, PlatformMastodon, PlatformInstagram, PlatformFacebook}
}

// Known reports whether p is one of the recognized platform tags.
func (p Platform) Known() bool {
	switch p {
	case PlatformTwitter, PlatformMastodon, PlatformInstagram, PlatformFacebook:
		return true
	}
	return false
}

// CharLimit returns the platform's post length limit in characters, or 0 for
// no limit.
func (p Platform) CharLimit() int {
	switch p {
	case PlatformTwitter:
		return 280
	case PlatformMastodon:
		return 500
	case PlatformInstagram:
		return 2200
	case PlatformFacebook:
		return 5000
	}
	return 0
}

// ShortForm reports whether the platform is in the image/short-form subset
// that gets a hashtag suffix.
func (p Platform) ShortForm() bool {
	return p == PlatformTwitter || p == PlatformInstagram
}

// Item is one generated post. Text is always non-empty. Decorative fields
// (platform, counters, category) are fixed at creation and never mutated.
type Item struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"createdAt"`
	Text             string    `json:"text"`
	AuthorName       string    `json:"authorName"`
	ViewerName       string    `json:"viewerName,omitempty"`
	Platform         Platform  `json:"platform,omitempty"`
	LikeCount        int       `json:"likeCount"`
	CommentCount     int       `json:"commentCount"`
	ShareCount       int       `json:"shareCount"`
	TemplateCategory string    `json:"templateCategory,omitempty"`
	Empty            bool      `json:"empty,omitempty"`
}

// Names carries the resolved display names used during generation.
type Names struct {
	Author string
	Viewer string
}

// ComposeOpts narrows a compose request. Zero values mean "pick randomly"
// (category) and "no platform tag" (platform).
type ComposeOpts struct {
	Category string
	Platform Platform
}

// Composer produces a post from a window of recent turns. The feed manager
// depends on this interface; the generator package provides the
// implementation.
type Composer interface {
	Generate(turns []session.Turn, names Names, opts ComposeOpts) Item
}
