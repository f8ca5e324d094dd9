package dataset

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pressbeat/press-tracker/internal/cache"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock pins the builder to a known instant
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)}
}

// stubSource serves canned mentions per brand, with optional per-brand
// blocking and failure injection
type stubSource struct {
	mu       sync.Mutex
	mentions map[string][]models.Mention
	errs     map[string]error
	blockOn  map[string]chan struct{}
	fetched  []string
}

func newStubSource() *stubSource {
	return &stubSource{
		mentions: make(map[string][]models.Mention),
		errs:     make(map[string]error),
		blockOn:  make(map[string]chan struct{}),
	}
}

func (s *stubSource) Name() string    { return "stub" }
func (s *stubSource) IsEnabled() bool { return true }

func (s *stubSource) FetchMentions(ctx context.Context, brand string, window models.DateWindow) ([]models.Mention, error) {
	s.mu.Lock()
	gate := s.blockOn[brand]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, brand)

	if err := s.errs[brand]; err != nil {
		return nil, err
	}
	return s.mentions[brand], nil
}

func (s *stubSource) fetchOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func mentionsFor(brand string, count int) []models.Mention {
	result := make([]models.Mention, count)
	for i := range result {
		result[i] = models.Mention{Title: fmt.Sprintf("%s headline %d", brand, i+1)}
	}
	return result
}

func newTestBuilder(t *testing.T, source sources.Source, brands []string) *Builder {
	t.Helper()

	clock := newTestClock()
	store := cache.NewMemoryStore[[]models.Mention](clock)
	builder, err := NewBuilder(source, store, clock, brands, 24*time.Hour, time.Hour)
	require.NoError(t, err)
	return builder
}

func TestNewBuilder_RejectsEmptyBrandSet(t *testing.T) {
	clock := newTestClock()
	store := cache.NewMemoryStore[[]models.Mention](clock)

	_, err := NewBuilder(newStubSource(), store, clock, nil, 24*time.Hour, time.Hour)
	assert.Error(t, err)
}

func TestBuilder_Window(t *testing.T) {
	builder := newTestBuilder(t, newStubSource(), []string{"Zomato"})

	window := builder.Window()

	// The window ends at the current UTC day boundary and spans the lookback
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), window.End)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), window.Start)
	assert.True(t, window.Start.Before(window.End))
}

func TestBuilder_BrandMajorOrder(t *testing.T) {
	source := newStubSource()
	source.mentions["A"] = mentionsFor("A", 2)
	source.mentions["B"] = mentionsFor("B", 2)

	// Hold A's fetch until B has completed, so completion order is B, A.
	gate := make(chan struct{})
	source.blockOn["A"] = gate
	go func() {
		for {
			order := source.fetchOrder()
			if len(order) > 0 && order[0] == "B" {
				close(gate)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	builder := newTestBuilder(t, source, []string{"A", "B"})
	mentions, _ := builder.Build(context.Background())

	require.Len(t, mentions, 4)
	assert.Equal(t, []string{"B", "A"}, source.fetchOrder())

	// Output order still follows the configured brand order, not completion
	assert.Equal(t, "A headline 1", mentions[0].Title)
	assert.Equal(t, "A headline 2", mentions[1].Title)
	assert.Equal(t, "B headline 1", mentions[2].Title)
	assert.Equal(t, "B headline 2", mentions[3].Title)
}

func TestBuilder_StampsBrandOnMentions(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = mentionsFor("Zomato", 1)

	builder := newTestBuilder(t, source, []string{"Zomato"})
	mentions, _ := builder.Build(context.Background())

	require.Len(t, mentions, 1)
	assert.Equal(t, "Zomato", mentions[0].Brand)
}

func TestBuilder_FailedBrandDegradesToEmpty(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = mentionsFor("Zomato", 3)
	source.errs["Swiggy"] = fmt.Errorf("provider timeout: %w", sources.ErrSourceUnavailable)

	builder := newTestBuilder(t, source, []string{"Zomato", "Swiggy"})
	mentions, window := builder.Build(context.Background())

	// Swiggy's failure must not abort Zomato's fetch
	require.Len(t, mentions, 3)
	for _, mention := range mentions {
		assert.Equal(t, "Zomato", mention.Brand)
	}
	assert.True(t, window.Start.Before(window.End))
}

func TestBuilder_WarmCacheBuildsShareImmutableCollections(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = mentionsFor("Zomato", 2)
	source.mentions["Swiggy"] = mentionsFor("Swiggy", 1)

	builder := newTestBuilder(t, source, []string{"Zomato", "Swiggy"})

	// Warm the cache so every concurrent build below is served the same
	// cached collections.
	builder.Build(context.Background())

	const builds = 8
	results := make(chan []models.Mention, builds)
	var wg sync.WaitGroup
	for i := 0; i < builds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mentions, _ := builder.Build(context.Background())
			results <- mentions
		}()
	}
	wg.Wait()
	close(results)

	// Cached mentions arrive already stamped; concurrent builds must never
	// write to the collections the cache keeps holding.
	for mentions := range results {
		require.Len(t, mentions, 3)
		assert.Equal(t, "Zomato", mentions[0].Brand)
		assert.Equal(t, "Zomato", mentions[1].Brand)
		assert.Equal(t, "Swiggy", mentions[2].Brand)
	}
	assert.Len(t, source.fetchOrder(), 2)
}

func TestBuilder_CachesPerBrandFetches(t *testing.T) {
	source := newStubSource()
	source.mentions["Zomato"] = mentionsFor("Zomato", 1)

	builder := newTestBuilder(t, source, []string{"Zomato"})

	builder.Build(context.Background())
	builder.Build(context.Background())

	// The second build inside the TTL is served from cache
	assert.Len(t, source.fetchOrder(), 1)
}
