package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressbeat/press-tracker/internal/config"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/sources"
)

func main() {
	fmt.Println("🔍 Press Tracker - Provider Connectivity Test")
	fmt.Println("=============================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source := sources.NewNewsAPISource(cfg.NewsAPIKey)

	end := time.Now().UTC().Truncate(24 * time.Hour)
	window := models.DateWindow{Start: end.Add(-cfg.Lookback), End: end}

	fmt.Printf("\n📡 Testing NewsAPI (%s → %s)...\n",
		window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	fmt.Println(strings.Repeat("-", 40))

	if !source.IsEnabled() {
		fmt.Println("⚠️  DISABLED (missing NEWSAPI_KEY)")
		fmt.Println("\n💡 Set NEWSAPI_KEY in .env and rerun")
		return
	}

	for _, brand := range cfg.Brands {
		testBrand(ctx, source, brand, window)
	}

	fmt.Println("\n✅ Provider connectivity test completed!")
}

func testBrand(ctx context.Context, source sources.Source, brand string, window models.DateWindow) {
	fmt.Printf("🔸 Fetching mentions for %s... ", brand)

	mentions, err := source.FetchMentions(ctx, brand, window)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d mentions found)\n", len(mentions))

	if len(mentions) > 0 {
		fmt.Printf("   📝 Sample: \"%s\"\n", mentions[0].Title)
	}
}
