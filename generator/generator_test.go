package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/session"
)

func testNames() feed.Names {
	return feed.Names{Author: "Aria", Viewer: "Sam"}
}

func testTurns() []session.Turn {
	now := time.Now().UTC()
	return []session.Turn{
		{SpeakerIsViewer: true, SpeakerName: "Sam", Text: "so what happened today?", At: now},
		{SpeakerIsViewer: false, SpeakerName: "Aria", Text: "you would not believe it", At: now},
	}
}

func TestGenerateEmptyWindowProducesFiller(t *testing.T) {
	g := New(rand.New(rand.NewSource(1)))
	item := g.Generate(nil, testNames(), feed.ComposeOpts{})
	if !item.Empty {
		t.Fatal("expected the empty flag on a no-context post")
	}
	if want := fmt.Sprintf(fillerFormat, "Sam"); item.Text != want {
		t.Fatalf("filler text = %q, want %q", item.Text, want)
	}
	if item.ID == "" {
		t.Fatal("expected a generated id")
	}
	if item.Platform != "" || item.TemplateCategory != "" {
		t.Fatal("filler posts carry no platform or category")
	}
}

func TestGenerateDigestShape(t *testing.T) {
	g := New(rand.New(rand.NewSource(7)))
	item := g.Generate(testTurns(), testNames(), feed.ComposeOpts{Category: CategoryCasual})
	if item.TemplateCategory != CategoryCasual {
		t.Fatalf("category = %q", item.TemplateCategory)
	}
	if !strings.Contains(item.Text, "• Sam: so what happened today?") {
		t.Fatalf("missing viewer bullet in %q", item.Text)
	}
	if !strings.Contains(item.Text, "• Aria: you would not believe it") {
		t.Fatalf("missing author bullet in %q", item.Text)
	}
	// intro, body and mood are separated by blank lines
	if parts := strings.Split(item.Text, "\n\n"); len(parts) != 3 {
		t.Fatalf("expected 3 sections, got %d: %q", len(parts), item.Text)
	}
	if !strings.Contains(item.Text, "Sam") {
		t.Fatal("intro should mention the viewer")
	}
}

func TestGenerateQuoteShape(t *testing.T) {
	g := New(rand.New(rand.NewSource(7)))
	item := g.Generate(testTurns(), testNames(), feed.ComposeOpts{Category: CategoryDramatic})
	want := `after Sam said "so what happened today?", Aria came back with "you would not believe it"`
	if !strings.Contains(item.Text, want) {
		t.Fatalf("text %q missing quote context %q", item.Text, want)
	}
	if strings.Contains(item.Text, "•") {
		t.Fatal("quote posts should not contain digest bullets")
	}
}

func TestGenerateQuoteSingleSide(t *testing.T) {
	g := New(rand.New(rand.NewSource(3)))
	turns := []session.Turn{
		{SpeakerIsViewer: false, SpeakerName: "Aria", Text: "talking to myself again"},
	}
	item := g.Generate(turns, testNames(), feed.ComposeOpts{Category: CategoryEmotional})
	if !strings.Contains(item.Text, "talking to myself again") {
		t.Fatalf("text %q should quote the lone author turn", item.Text)
	}
	if strings.Contains(item.Text, "after ") {
		t.Fatal("single-side context should not use the two-speaker frame")
	}
}

func TestGeneratePlatformLimitAndHashtags(t *testing.T) {
	g := New(rand.New(rand.NewSource(9)))
	long := strings.Repeat("chatter ", 20) // ~160 chars per message
	turns := make([]session.Turn, 0, 6)
	for i := 0; i < 6; i++ {
		turns = append(turns, session.Turn{SpeakerIsViewer: i%2 == 0, SpeakerName: "Sam", Text: long})
	}
	item := g.Generate(turns, testNames(), feed.ComposeOpts{Category: CategoryCasual, Platform: feed.PlatformTwitter})
	if item.Platform != feed.PlatformTwitter {
		t.Fatalf("platform = %q", item.Platform)
	}

	// hashtags are appended after the limit is enforced, as their own line
	idx := strings.LastIndex(item.Text, "\n")
	if idx < 0 {
		t.Fatalf("expected a hashtag line in %q", item.Text)
	}
	body, tagLine := item.Text[:idx], item.Text[idx+1:]
	if !strings.HasPrefix(tagLine, "#") {
		t.Fatalf("last line %q is not a hashtag line", tagLine)
	}
	found := false
	for _, tag := range hashtags {
		if tagLine == tag {
			found = true
		}
	}
	if !found {
		t.Fatalf("unknown hashtag line %q", tagLine)
	}
	if n := utf8.RuneCountInString(body); n != feed.PlatformTwitter.CharLimit() {
		t.Fatalf("body rune length = %d, want %d", n, feed.PlatformTwitter.CharLimit())
	}
	if !strings.HasSuffix(body, "...") {
		t.Fatal("limited body should end with the three-dot marker")
	}
}

func TestGenerateLongFormPlatformGetsNoHashtags(t *testing.T) {
	g := New(rand.New(rand.NewSource(11)))
	item := g.Generate(testTurns(), testNames(), feed.ComposeOpts{Category: CategoryDramatic, Platform: feed.PlatformMastodon})
	for _, tag := range hashtags {
		if strings.Contains(item.Text, tag) {
			t.Fatalf("mastodon post should not carry hashtag suffix %q", tag)
		}
	}
}

func TestGenerateEngagementBounds(t *testing.T) {
	g := New(rand.New(rand.NewSource(5)))
	for i := 0; i < 100; i++ {
		item := g.Generate(testTurns(), testNames(), feed.ComposeOpts{})
		if item.LikeCount < 0 || item.LikeCount >= likeBound {
			t.Fatalf("likes = %d out of range", item.LikeCount)
		}
		if item.CommentCount < 0 || item.CommentCount >= commentBound {
			t.Fatalf("comments = %d out of range", item.CommentCount)
		}
		if item.ShareCount < 0 || item.ShareCount >= shareBound {
			t.Fatalf("shares = %d out of range", item.ShareCount)
		}
	}
}

func TestGenerateRandomCategoryIsValid(t *testing.T) {
	g := New(rand.New(rand.NewSource(13)))
	for i := 0; i < 20; i++ {
		item := g.Generate(testTurns(), testNames(), feed.ComposeOpts{Category: "nonsense"})
		if !ValidCategory(item.TemplateCategory) {
			t.Fatalf("category %q not in the known set", item.TemplateCategory)
		}
	}
}

func TestGenerateReproducibleTextForSeed(t *testing.T) {
	a := New(rand.New(rand.NewSource(42))).Generate(testTurns(), testNames(), feed.ComposeOpts{})
	b := New(rand.New(rand.NewSource(42))).Generate(testTurns(), testNames(), feed.ComposeOpts{})
	if a.Text != b.Text || a.TemplateCategory != b.TemplateCategory {
		t.Fatal("same seed should yield the same text and category")
	}
	if a.LikeCount != b.LikeCount || a.CommentCount != b.CommentCount || a.ShareCount != b.ShareCount {
		t.Fatal("same seed should yield the same counters")
	}
	if a.ID == b.ID {
		t.Fatal("ids must be unique regardless of the seed")
	}
}
