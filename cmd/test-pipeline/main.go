package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressbeat/press-tracker/internal/cache"
	"github.com/pressbeat/press-tracker/internal/dataset"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/pipeline"
	"github.com/pressbeat/press-tracker/internal/summarize"
)

// StubSource feeds the pipeline canned mentions so the whole flow can be
// exercised without a NewsAPI key
type StubSource struct{}

func (s *StubSource) Name() string    { return "stub" }
func (s *StubSource) IsEnabled() bool { return true }

func (s *StubSource) FetchMentions(ctx context.Context, brand string, window models.DateWindow) ([]models.Mention, error) {
	now := time.Now().UTC()
	samples := map[string][]models.Mention{
		"Zomato": {
			{Title: "Zomato expands grocery delivery to 12 new cities", Source: "Business Daily", URL: "https://example.com/zomato-1", PublishedAt: &now},
			{Title: "Zomato quarterly results beat analyst estimates", Source: "Market Watcher", URL: "https://example.com/zomato-2", PublishedAt: &now},
			{Title: "Zomato pilots drone deliveries in Bengaluru", Source: "Tech Wire", URL: "https://example.com/zomato-3", PublishedAt: &now},
		},
		"Swiggy": {
			{Title: "Swiggy partners with local kirana stores", Source: "Retail News", URL: "https://example.com/swiggy-1", PublishedAt: &now},
		},
	}
	return samples[brand], nil
}

func main() {
	fmt.Println("🧪 Press Tracker - Pipeline Smoke Test")
	fmt.Println("======================================")

	clock := cache.SystemClock()
	mentionsStore := cache.NewMemoryStore[[]models.Mention](clock)
	snapshotStore := cache.NewMemoryStore[*models.Snapshot](clock)

	builder, err := dataset.NewBuilder(&StubSource{}, mentionsStore, clock, []string{"Zomato", "Swiggy"}, 24*time.Hour, time.Hour)
	if err != nil {
		log.Fatalf("Failed to build dataset builder: %v", err)
	}

	summarizer := summarize.NewNaiveSummarizer(summarize.DefaultSeparator)

	p, err := pipeline.New(builder, summarizer, mentionsStore, snapshotStore, clock, time.Hour, 500)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot, err := p.Refresh(ctx)
	if err != nil {
		log.Fatalf("Refresh failed: %v", err)
	}

	printSnapshot(snapshot)

	if err := saveSnapshot(snapshot); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save snapshot: %v\n", err)
	}

	fmt.Println("\n✅ Pipeline smoke test completed!")
}

func printSnapshot(snapshot *models.Snapshot) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 PRESS TRACKER SNAPSHOT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Window: %s → %s\n",
		snapshot.Window.Start.Format("2006-01-02"), snapshot.Window.End.Format("2006-01-02"))
	fmt.Printf("🕒 Generated: %s\n", snapshot.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 Total Mentions: %d\n", snapshot.TotalMentions())
	if snapshot.TopBrand != "" {
		fmt.Printf("🏆 Top Share of Voice: %s\n", snapshot.TopBrand)
	}

	fmt.Println("\n📊 Share of Voice:")
	for _, digest := range snapshot.Digests {
		share := snapshot.SOV[digest.Brand]
		fmt.Printf("   • %-10s %d mentions (%.1f%%)\n", digest.Brand+":", share.Count, share.Percentage)
	}

	fmt.Println("\n🤖 Digests:")
	for _, digest := range snapshot.Digests {
		fmt.Printf("\n   %s\n   %s\n", digest.Brand, digest.Text)
	}

	fmt.Println("\n📰 Mentions:")
	for i, mention := range snapshot.Mentions {
		if i >= 5 {
			fmt.Printf("   ... and %d more mentions\n", len(snapshot.Mentions)-5)
			break
		}
		fmt.Printf("   %d. [%s] %s\n", i+1, mention.Brand, mention.Title)
		fmt.Printf("      🔗 %s\n", mention.URL)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
}

func saveSnapshot(snapshot *models.Snapshot) error {
	dir := "test_output"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	filename := filepath.Join(dir, fmt.Sprintf("snapshot-%s.json", snapshot.GeneratedAt.Format("2006-01-02-15-04-05")))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Snapshot saved to: %s\n", filename)
	return nil
}
