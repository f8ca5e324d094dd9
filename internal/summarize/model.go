package summarize

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Completer is the injected summarization capability behind ModelSummarizer:
// text in, bounded summary out. Implementations own their own timeouts.
type Completer interface {
	Complete(ctx context.Context, text string, minChars, maxChars int) (string, error)
}

// defaultMinChars is the lower output bound requested from the capability.
const defaultMinChars = 30

// ModelSummarizer delegates digest generation to a Completer. Capability
// failures are converted into a placeholder digest and never propagated, so
// the pipeline yields a digest for every brand no matter what the model does.
type ModelSummarizer struct {
	completer Completer
	prep      *NaiveSummarizer
	minChars  int
}

// Ensure ModelSummarizer implements Summarizer
var _ Summarizer = (*ModelSummarizer)(nil)

// NewModelSummarizer creates a summarizer backed by completer.
func NewModelSummarizer(completer Completer) *ModelSummarizer {
	return &ModelSummarizer{
		completer: completer,
		// Plain spaces for model input; the display separator would just
		// leak into the generated text.
		prep:     NewNaiveSummarizer(" "),
		minChars: defaultMinChars,
	}
}

func (s *ModelSummarizer) Summarize(ctx context.Context, headlines []string, limitChars int) string {
	joined := s.prep.Summarize(ctx, headlines, 0)
	if joined == NoMentions {
		return NoMentions
	}

	summary, err := s.completer.Complete(ctx, joined, s.minChars, limitChars)
	if err != nil {
		logrus.Errorf("Summarization capability failed: %v", err)
		return fmt.Sprintf("(error during summarization: %v)", err)
	}

	return truncate(summary, limitChars)
}
