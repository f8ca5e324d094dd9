package summarize

import "context"

// NoMentions is the digest text used when a brand has no headlines to
// summarize.
const NoMentions = "(no mentions)"

// Summarizer reduces an ordered list of headlines into one digest string of
// at most limitChars characters (limitChars <= 0 means unbounded). Empty
// input yields NoMentions; implementations never fail, they degrade to a
// placeholder digest instead.
type Summarizer interface {
	Summarize(ctx context.Context, headlines []string, limitChars int) string
}
