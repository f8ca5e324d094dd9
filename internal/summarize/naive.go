package summarize

import (
	"context"
	"strings"
)

// DefaultSeparator joins headlines in digests meant for display.
const DefaultSeparator = " | "

// defaultMaxHeadlines caps how many headlines feed one digest.
const defaultMaxHeadlines = 5

// NaiveSummarizer builds a digest by joining the first few headlines with a
// fixed separator. Deterministic and dependency-free; also used to prepare
// the joined text handed to a model.
type NaiveSummarizer struct {
	separator    string
	maxHeadlines int
}

// Ensure NaiveSummarizer implements Summarizer
var _ Summarizer = (*NaiveSummarizer)(nil)

// NewNaiveSummarizer creates a summarizer joining up to five headlines with
// separator.
func NewNaiveSummarizer(separator string) *NaiveSummarizer {
	return &NaiveSummarizer{
		separator:    separator,
		maxHeadlines: defaultMaxHeadlines,
	}
}

func (s *NaiveSummarizer) Summarize(ctx context.Context, headlines []string, limitChars int) string {
	kept := make([]string, 0, s.maxHeadlines)
	for _, headline := range headlines {
		headline = strings.TrimSpace(headline)
		if headline == "" {
			continue
		}
		kept = append(kept, headline)
		if len(kept) == s.maxHeadlines {
			break
		}
	}

	if len(kept) == 0 {
		return NoMentions
	}

	return truncate(strings.Join(kept, s.separator), limitChars)
}

// truncate bounds text to limitChars runes. Multi-byte titles are common in
// press feeds, so the cut is rune-safe.
func truncate(text string, limitChars int) string {
	if limitChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limitChars {
		return text
	}
	return string(runes[:limitChars])
}
