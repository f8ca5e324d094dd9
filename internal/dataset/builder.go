package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressbeat/press-tracker/internal/cache"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/sources"
	"github.com/sirupsen/logrus"
)

// Builder assembles the unified mention collection for one refresh. Brand
// fetches run concurrently through the cache-wrapped source, but the output
// always lists brands in their configured order regardless of which fetch
// finishes first.
type Builder struct {
	source   sources.Source
	store    cache.Store[[]models.Mention]
	clock    cache.Clock
	brands   []string
	lookback time.Duration
	ttl      time.Duration
}

// NewBuilder creates a Builder. An empty brand set is a configuration error
// and fails here rather than at refresh time.
func NewBuilder(source sources.Source, store cache.Store[[]models.Mention], clock cache.Clock, brands []string, lookback, ttl time.Duration) (*Builder, error) {
	if len(brands) == 0 {
		return nil, fmt.Errorf("dataset builder requires at least one brand")
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("dataset builder requires a positive lookback, got %v", lookback)
	}
	if clock == nil {
		clock = cache.SystemClock()
	}

	return &Builder{
		source:   source,
		store:    store,
		clock:    clock,
		brands:   append([]string(nil), brands...),
		lookback: lookback,
		ttl:      ttl,
	}, nil
}

// Brands returns the configured brand order.
func (b *Builder) Brands() []string {
	return b.brands
}

// Window computes the rolling range the next build will cover: the lookback
// period ending at the current UTC day boundary, half-open.
func (b *Builder) Window() models.DateWindow {
	end := b.clock.Now().UTC().Truncate(24 * time.Hour)
	return models.DateWindow{
		Start: end.Add(-b.lookback),
		End:   end,
	}
}

// Build fetches mentions for every brand and concatenates them brand-major in
// input order. A failed brand degrades to an empty result and never aborts
// the other fetches; there is no overall-failure state here.
func (b *Builder) Build(ctx context.Context) ([]models.Mention, models.DateWindow) {
	window := b.Window()

	results := make([][]models.Mention, len(b.brands))
	var wg sync.WaitGroup

	for i, brand := range b.brands {
		wg.Add(1)
		go func(i int, brand string) {
			defer wg.Done()

			mentions, err := b.store.GetOrCompute(ctx, mentionKey(brand, window), b.ttl, func(ctx context.Context) ([]models.Mention, error) {
				fetched, err := b.source.FetchMentions(ctx, brand, window)
				if err != nil {
					return nil, err
				}
				// The source owns provider fields, the builder owns
				// attribution. Stamp before the result is cached; cached
				// collections must never be written to afterwards.
				for j := range fetched {
					fetched[j].Brand = brand
				}
				return fetched, nil
			})
			if err != nil {
				if errors.Is(err, sources.ErrSourceUnauthorized) {
					logrus.Warnf("Source rejected credentials for %q, treating as no mentions", brand)
				} else {
					logrus.Errorf("Failed to fetch mentions for %q: %v", brand, err)
				}
				return
			}
			results[i] = mentions
		}(i, brand)
	}

	wg.Wait()

	var all []models.Mention
	for _, mentions := range results {
		all = append(all, mentions...)
	}

	logrus.Infof("Collected %d mentions across %d brands for window %s..%s",
		len(all), len(b.brands), window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	return all, window
}

func mentionKey(brand string, window models.DateWindow) string {
	return fmt.Sprintf("mentions:%s:%s:%s", brand, window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
}
