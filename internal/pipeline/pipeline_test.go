package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pressbeat/press-tracker/internal/cache"
	"github.com/pressbeat/press-tracker/internal/dataset"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/summarize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is manually advanced to exercise TTL behavior
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubSource serves canned mentions and counts fetches per brand
type stubSource struct {
	mu       sync.Mutex
	mentions map[string][]models.Mention
	fetches  map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		mentions: make(map[string][]models.Mention),
		fetches:  make(map[string]int),
	}
}

func (s *stubSource) Name() string    { return "stub" }
func (s *stubSource) IsEnabled() bool { return true }

func (s *stubSource) FetchMentions(ctx context.Context, brand string, window models.DateWindow) ([]models.Mention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[brand]++
	return s.mentions[brand], nil
}

func (s *stubSource) fetchCount(brand string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[brand]
}

func titled(brand string, titles ...string) []models.Mention {
	mentions := make([]models.Mention, len(titles))
	for i, title := range titles {
		mentions[i] = models.Mention{Brand: brand, Title: title}
	}
	return mentions
}

// failingCompleter always errors, standing in for a broken model backend
type failingCompleter struct{}

func (failingCompleter) Complete(ctx context.Context, text string, minChars, maxChars int) (string, error) {
	return "", fmt.Errorf("model unavailable")
}

func newTestPipeline(t *testing.T, source *stubSource, summarizer summarize.Summarizer, clock *fakeClock) *Pipeline {
	t.Helper()

	mentionsStore := cache.NewMemoryStore[[]models.Mention](clock)
	snapshotStore := cache.NewMemoryStore[*models.Snapshot](clock)

	builder, err := dataset.NewBuilder(source, mentionsStore, clock, []string{"Zomato", "Swiggy"}, 24*time.Hour, time.Hour)
	require.NoError(t, err)

	p, err := New(builder, summarizer, mentionsStore, snapshotStore, clock, time.Hour, 500)
	require.NoError(t, err)
	return p
}

func TestPipeline_EndToEnd(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = titled("Zomato", "Zomato story one", "Zomato story two", "Zomato story three")
	source.mentions["Swiggy"] = titled("Swiggy", "Swiggy story one")

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	snapshot, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, snapshot.TotalMentions())
	assert.Equal(t, models.BrandShare{Count: 3, Percentage: 75.0}, snapshot.SOV["Zomato"])
	assert.Equal(t, models.BrandShare{Count: 1, Percentage: 25.0}, snapshot.SOV["Swiggy"])
	assert.Equal(t, "Zomato", snapshot.TopBrand)

	require.Len(t, snapshot.Digests, 2)
	assert.Equal(t, models.Digest{Brand: "Zomato", Text: "Zomato story one | Zomato story two | Zomato story three"}, snapshot.Digests[0])
	assert.Equal(t, models.Digest{Brand: "Swiggy", Text: "Swiggy story one"}, snapshot.Digests[1])

	assert.True(t, snapshot.Window.Start.Before(snapshot.Window.End))
	assert.Equal(t, clock.Now(), snapshot.GeneratedAt)
}

func TestPipeline_EmptySources(t *testing.T) {
	source := newStubSource()
	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	snapshot, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snapshot.TotalMentions())
	assert.Equal(t, "", snapshot.TopBrand)
	assert.Equal(t, models.BrandShare{Count: 0, Percentage: 0}, snapshot.SOV["Zomato"])
	assert.Equal(t, models.BrandShare{Count: 0, Percentage: 0}, snapshot.SOV["Swiggy"])

	require.Len(t, snapshot.Digests, 2)
	for _, digest := range snapshot.Digests {
		assert.Equal(t, summarize.NoMentions, digest.Text)
	}
}

func TestPipeline_SummarizationFailureIsNonFatal(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = titled("Zomato", "Zomato story")

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewModelSummarizer(failingCompleter{}), clock)

	snapshot, err := p.Refresh(context.Background())
	require.NoError(t, err)

	// The broken model never blocks the snapshot
	require.Len(t, snapshot.Digests, 2)
	assert.Contains(t, snapshot.Digests[0].Text, "(error during summarization:")
	assert.Equal(t, summarize.NoMentions, snapshot.Digests[1].Text)
	assert.Equal(t, "Zomato", snapshot.TopBrand)
}

func TestPipeline_DigestUsesFirstFiveTitles(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = titled("Zomato", "t1", "t2", "t3", "t4", "t5", "t6", "t7")

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	snapshot, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "t1 | t2 | t3 | t4 | t5", snapshot.Digests[0].Text)
}

func TestPipeline_UntitledMentionsAreSkippedInDigests(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = []models.Mention{
		{Brand: "Zomato", Title: ""},
		{Brand: "Zomato", Title: "  "},
		{Brand: "Zomato", Title: "Actual headline"},
	}

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	snapshot, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Actual headline", snapshot.Digests[0].Text)
	// Untitled mentions still count toward share of voice
	assert.Equal(t, 3, snapshot.SOV["Zomato"].Count)
}

func TestPipeline_GetSnapshotHonorsTTL(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = titled("Zomato", "story")

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	first, err := p.GetSnapshot(context.Background())
	require.NoError(t, err)
	second, err := p.GetSnapshot(context.Background())
	require.NoError(t, err)

	// Lazy initialization on first call, cached thereafter
	assert.Same(t, first, second)
	assert.Equal(t, 1, source.fetchCount("Zomato"))

	clock.Advance(2 * time.Hour)
	third, err := p.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, source.fetchCount("Zomato"))
}

func TestPipeline_RefreshBypassesFreshCache(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = titled("Zomato", "story")

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	_, err := p.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, source.fetchCount("Zomato"))

	// Refresh clears both cache layers even though everything is still fresh
	_, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetchCount("Zomato"))
}

func TestPipeline_GetMetrics(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = titled("Zomato", "a", "b")
	source.mentions["Swiggy"] = titled("Swiggy", "c")

	clock := newTestClock()
	p := newTestPipeline(t, source, summarize.NewNaiveSummarizer(summarize.DefaultSeparator), clock)

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(p.GetMetrics()), &metrics))

	assert.Equal(t, 3, metrics.TotalMentions)
	assert.Equal(t, "Zomato", metrics.TopBrand)
	assert.Equal(t, map[string]int{"Zomato": 2, "Swiggy": 1}, metrics.BrandMentions)
	assert.Equal(t, clock.Now(), metrics.LastRun)
}

func TestNew_Validation(t *testing.T) {
	clock := newTestClock()
	mentionsStore := cache.NewMemoryStore[[]models.Mention](clock)
	snapshotStore := cache.NewMemoryStore[*models.Snapshot](clock)

	builder, err := dataset.NewBuilder(newStubSource(), mentionsStore, clock, []string{"Zomato"}, 24*time.Hour, time.Hour)
	require.NoError(t, err)

	summarizer := summarize.NewNaiveSummarizer(summarize.DefaultSeparator)

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "Missing builder",
			call: func() error {
				_, err := New(nil, summarizer, mentionsStore, snapshotStore, clock, time.Hour, 500)
				return err
			},
		},
		{
			name: "Missing summarizer",
			call: func() error {
				_, err := New(builder, nil, mentionsStore, snapshotStore, clock, time.Hour, 500)
				return err
			},
		},
		{
			name: "Non-positive TTL",
			call: func() error {
				_, err := New(builder, summarizer, mentionsStore, snapshotStore, clock, 0, 500)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.call())
		})
	}
}
