package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pressbeat/press-tracker/internal/cache"
	"github.com/pressbeat/press-tracker/internal/dataset"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/sov"
	"github.com/pressbeat/press-tracker/internal/summarize"
	"github.com/sirupsen/logrus"
)

// snapshotKey is the single cache key the assembled snapshot lives under.
const snapshotKey = "snapshot"

// maxHeadlinesPerDigest caps how many mention titles feed one brand digest.
const maxHeadlinesPerDigest = 5

// Pipeline is the single entry point the presentation layer talks to. It
// exposes exactly two operations: Refresh, which discards caches and rebuilds
// the snapshot, and GetSnapshot, which serves the cached snapshot while it is
// fresh. No pipeline failure is fatal: brand fetches degrade to empty
// collections and summarization failures become placeholder digests.
type Pipeline struct {
	builder       *dataset.Builder
	summarizer    summarize.Summarizer
	mentionsStore cache.Store[[]models.Mention]
	snapshotStore cache.Store[*models.Snapshot]
	clock         cache.Clock
	ttl           time.Duration
	digestLimit   int

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds counters from the most recent pipeline run
type Metrics struct {
	TotalMentions   int            `json:"total_mentions"`
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	BrandMentions   map[string]int `json:"brand_mentions"`
	TopBrand        string         `json:"top_brand"`
}

// New creates a Pipeline. The summarizer variant and cache backends are
// fixed at construction; misconfiguration fails here, never during a refresh.
func New(builder *dataset.Builder, summarizer summarize.Summarizer, mentionsStore cache.Store[[]models.Mention], snapshotStore cache.Store[*models.Snapshot], clock cache.Clock, ttl time.Duration, digestLimit int) (*Pipeline, error) {
	if builder == nil {
		return nil, fmt.Errorf("pipeline requires a dataset builder")
	}
	if summarizer == nil {
		return nil, fmt.Errorf("pipeline requires a summarizer")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("pipeline requires a positive cache TTL, got %v", ttl)
	}
	if clock == nil {
		clock = cache.SystemClock()
	}

	return &Pipeline{
		builder:       builder,
		summarizer:    summarizer,
		mentionsStore: mentionsStore,
		snapshotStore: snapshotStore,
		clock:         clock,
		ttl:           ttl,
		digestLimit:   digestLimit,
		metrics: &Metrics{
			BrandMentions: make(map[string]int),
		},
	}, nil
}

// Refresh drops all cached data and rebuilds the snapshot from live fetches.
func (p *Pipeline) Refresh(ctx context.Context) (*models.Snapshot, error) {
	logrus.Info("Starting pipeline refresh")

	if err := p.mentionsStore.Clear(ctx); err != nil {
		logrus.Errorf("Failed to clear mention cache: %v", err)
	}
	if err := p.snapshotStore.Clear(ctx); err != nil {
		logrus.Errorf("Failed to clear snapshot cache: %v", err)
	}

	return p.GetSnapshot(ctx)
}

// GetSnapshot returns the current snapshot, computing one on first call and
// recomputing once the cached one outlives the TTL. The only error surfaced
// is context cancellation; a snapshot is otherwise always produced.
func (p *Pipeline) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	return p.snapshotStore.GetOrCompute(ctx, snapshotKey, p.ttl, p.buildSnapshot)
}

func (p *Pipeline) buildSnapshot(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()

	mentions, window := p.builder.Build(ctx)
	brands := p.builder.Brands()

	shares := sov.Compute(mentions, brands)
	topBrand := ""
	if len(mentions) > 0 {
		topBrand = sov.Top(shares, brands)
	}

	digests := make([]models.Digest, 0, len(brands))
	for _, brand := range brands {
		digests = append(digests, models.Digest{
			Brand: brand,
			Text:  p.summarizer.Summarize(ctx, headlinesFor(mentions, brand), p.digestLimit),
		})
	}

	snapshot := &models.Snapshot{
		Window:      window,
		Mentions:    mentions,
		SOV:         shares,
		TopBrand:    topBrand,
		Digests:     digests,
		GeneratedAt: p.clock.Now(),
	}

	p.updateMetrics(snapshot, time.Since(start))
	logrus.Infof("Snapshot built in %v: %d mentions, top brand %q", time.Since(start), len(mentions), topBrand)

	return snapshot, nil
}

// headlinesFor returns the first few non-blank titles for brand, preserving
// collection order.
func headlinesFor(mentions []models.Mention, brand string) []string {
	headlines := make([]string, 0, maxHeadlinesPerDigest)
	for _, mention := range mentions {
		if mention.Brand != brand {
			continue
		}
		if strings.TrimSpace(mention.Title) == "" {
			continue
		}
		headlines = append(headlines, mention.Title)
		if len(headlines) == maxHeadlinesPerDigest {
			break
		}
	}
	return headlines
}

func (p *Pipeline) updateMetrics(snapshot *models.Snapshot, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.TotalMentions = snapshot.TotalMentions()
	p.metrics.LastRun = p.clock.Now()
	p.metrics.LastRunDuration = duration.String()
	p.metrics.TopBrand = snapshot.TopBrand

	p.metrics.BrandMentions = make(map[string]int)
	for brand, share := range snapshot.SOV {
		p.metrics.BrandMentions[brand] = share.Count
	}
}

// GetMetrics returns current pipeline metrics as JSON
func (p *Pipeline) GetMetrics() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, _ := json.MarshalIndent(p.metrics, "", "  ")
	return string(data)
}
