// Package generator turns a window of recent chat turns into short social
// media style posts. Template, intro/mood, hashtag and engagement-counter
// picks all draw from an injectable random source; the substitution and
// truncation logic itself is deterministic for fixed inputs.
package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/session"
)

// Per-message truncation bounds (runes, ellipsis included).
const (
	bulletMaxLen      = 120
	quoteViewerMaxLen = 80
	quoteAuthorMaxLen = 120
)

// Engagement counter bounds (exclusive).
const (
	likeBound    = 100
	commentBound = 20
	shareBound   = 10
)

// Generator implements feed.Composer.
type Generator struct {
	rnd Rand
}

// New returns a Generator drawing from rnd; nil means the process-wide
// source.
func New(rnd Rand) *Generator {
	if rnd == nil {
		rnd = SystemRand()
	}
	return &Generator{rnd: rnd}
}

// Generate builds one post from the given turn window. An empty window yields
// the fixed empty-state filler post addressed to the viewer; it is a valid
// item and must still be inserted and displayed downstream.
func (g *Generator) Generate(turns []session.Turn, names feed.Names, opts feed.ComposeOpts) feed.Item {
	item := feed.Item{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		AuthorName: names.Author,
		ViewerName: names.Viewer,
	}

	if len(turns) == 0 {
		item.Text = fmt.Sprintf(fillerFormat, names.Viewer)
		item.Empty = true
		return item
	}

	category := opts.Category
	if !ValidCategory(category) {
		category = Categories[g.rnd.Intn(len(Categories))]
	}
	item.TemplateCategory = category

	tmpl := g.pick(templatesByCategory[category])
	var text string
	if digestCategory(category) {
		intro := fmt.Sprintf(g.pick(intros), names.Viewer)
		mood := g.pick(moods)
		text = intro + "\n\n" + fmt.Sprintf(tmpl, bulletDigest(turns)) + "\n\n" + mood
	} else {
		text = fmt.Sprintf(tmpl, quoteContext(turns))
	}

	if opts.Platform.Known() {
		item.Platform = opts.Platform
		if limit := opts.Platform.CharLimit(); limit > 0 {
			text = TruncateToLimit(text, limit)
		}
		if opts.Platform.ShortForm() {
			text += "\n" + g.pick(hashtags)
		}
	}

	item.Text = text
	item.LikeCount = g.rnd.Intn(likeBound)
	item.CommentCount = g.rnd.Intn(commentBound)
	item.ShareCount = g.rnd.Intn(shareBound)
	return item
}

func (g *Generator) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[g.rnd.Intn(len(pool))]
}

// bulletDigest renders every turn as "• <speaker>: <truncated text>", one per
// line, chronological order.
func bulletDigest(turns []session.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		body := Truncate(flattenLine(t.Text), bulletMaxLen)
		lines = append(lines, "• "+t.SpeakerName+": "+body)
	}
	return strings.Join(lines, "\n")
}

// quoteContext extracts the most recent viewer and author turns from the
// window and builds a single inline context sentence. With only one side
// present its truncated text stands alone; with neither, a generic filler
// phrase is used.
func quoteContext(turns []session.Turn) string {
	var viewer, author *session.Turn
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.SpeakerIsViewer && viewer == nil {
			viewer = &t
		} else if !t.SpeakerIsViewer && author == nil {
			author = &t
		}
		if viewer != nil && author != nil {
			break
		}
	}
	switch {
	case viewer != nil && author != nil:
		return fmt.Sprintf(`after %s said "%s", %s came back with "%s"`,
			viewer.SpeakerName, Truncate(viewer.Text, quoteViewerMaxLen),
			author.SpeakerName, Truncate(author.Text, quoteAuthorMaxLen))
	case viewer != nil:
		return Truncate(viewer.Text, quoteViewerMaxLen)
	case author != nil:
		return Truncate(author.Text, quoteAuthorMaxLen)
	}
	return noContextPhrase
}
