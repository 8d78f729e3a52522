package generator

// Template categories. Casual and reflective posts are composed as multi-line
// bullet digests framed by an intro and mood line; emotional and dramatic
// posts embed a single-message extraction inline.
const (
	CategoryReflective = "reflective"
	CategoryEmotional  = "emotional"
	CategoryCasual     = "casual"
	CategoryDramatic   = "dramatic"
)

// Categories lists every template category, in the order used for random
// selection.
var Categories = []string{CategoryReflective, CategoryEmotional, CategoryCasual, CategoryDramatic}

// ValidCategory reports whether c names a known template category.
func ValidCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

func digestCategory(c string) bool {
	return c == CategoryCasual || c == CategoryReflective
}

// Each template carries exactly one %s slot for the built context.
var templatesByCategory = map[string][]string{
	CategoryReflective: {
		"Been replaying today in my head:\n%s",
		"Keeping a record so future me remembers how this went:\n%s",
		"Notes from the chatroom, for posterity:\n%s",
	},
	CategoryCasual: {
		"Quick recap of the nonsense so far:\n%s",
		"Today's highlights, in no particular order:\n%s",
		"Live from my chat, apparently:\n%s",
	},
	CategoryEmotional: {
		"I can't stop thinking about it. %s. My heart was not ready.",
		"Okay so %s and I have FEELINGS about this.",
		"Still recovering, honestly. %s. Who allowed this.",
	},
	CategoryDramatic: {
		"BREAKING: %s. I will not be elaborating further.",
		"And THEN, %s. The audacity. The drama. The cinema of it all.",
		"Somebody write this down: %s. History was made today.",
	},
}

// Intro lines for digest posts. One %s slot for the viewer name.
var intros = []string{
	"Roleplaying with %s again today...",
	"Hmm, that last scene with %s was really something.",
	"Time for a little life update from the chatroom with %s.",
	"Public record (read: complaints about %s):",
}

// Mood lines closing a digest post.
var moods = []string{
	"It was funny and infuriating at the same time, honestly.",
	"Starting to wonder which of us is the real troublemaker here.",
	"If anyone witnessed this, please back me up.",
	"It was fun though. I'm not really complaining. (Probably.)",
}

// Hashtag suffixes for short-form platforms.
var hashtags = []string{
	"#roleplay #chatlife",
	"#ooc #slowburn",
	"#chatfeed #todayinrp",
	"#nocontext",
}

// fillerFormat is the fixed empty-state post body. One %s slot for the viewer
// name.
const fillerFormat = "Nothing has happened with %s yet today. What am I even supposed to gossip about?"

// noContextPhrase fills the single-message variant when the window holds
// neither a viewer nor an author turn worth quoting.
const noContextPhrase = "a whole lot of nothing happened"
