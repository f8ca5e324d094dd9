package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pressbeat/press-tracker/internal/cache"
	"github.com/pressbeat/press-tracker/internal/config"
	"github.com/pressbeat/press-tracker/internal/dataset"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/notifications"
	"github.com/pressbeat/press-tracker/internal/pipeline"
	"github.com/pressbeat/press-tracker/internal/scheduler"
	"github.com/pressbeat/press-tracker/internal/sources"
	"github.com/pressbeat/press-tracker/internal/storage"
	"github.com/pressbeat/press-tracker/internal/summarize"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Press Tracker")

	clock := cache.SystemClock()

	// Build the cache stores
	mentionsStore, snapshotStore, err := buildStores(cfg, clock)
	if err != nil {
		logrus.Fatalf("Failed to initialize cache: %v", err)
	}

	// Build the mention source and dataset builder
	source := sources.NewNewsAPISource(cfg.NewsAPIKey)
	if !source.IsEnabled() {
		logrus.Warn("NEWSAPI_KEY not set - the pipeline will produce empty snapshots")
	}

	builder, err := dataset.NewBuilder(source, mentionsStore, clock, cfg.Brands, cfg.Lookback, cfg.CacheTTL)
	if err != nil {
		logrus.Fatalf("Failed to initialize dataset builder: %v", err)
	}

	// Select the summarizer variant
	summarizer := buildSummarizer(cfg)

	// Initialize the pipeline facade
	p, err := pipeline.New(builder, summarizer, mentionsStore, snapshotStore, clock, cfg.CacheTTL, cfg.DigestMaxChars)
	if err != nil {
		logrus.Fatalf("Failed to initialize pipeline: %v", err)
	}

	// Initialize the snapshot archive when configured
	var archive storage.StorageInterface
	if cfg.StorageAccount != "" {
		archive, err = storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize snapshot archive: %v", err)
		}
	}

	// Initialize notification services
	var notificationService notifications.NotificationInterface
	if cfg.TeamsWebhookURL != "" || cfg.NotificationEmail != "" {
		notificationService = notifications.NewService(cfg)
	}

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, p, archive, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for the presentation layer
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/snapshot", snapshotHandler(p)).Methods("GET")
	router.HandleFunc("/refresh", refreshHandler(p)).Methods("POST")
	router.HandleFunc("/metrics", metricsHandler(p)).Methods("GET")

	if archive != nil {
		router.HandleFunc("/snapshots", listSnapshotsHandler(archive)).Methods("GET")
		router.HandleFunc("/snapshots/{filename}", getArchivedSnapshotHandler(archive)).Methods("GET")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func buildStores(cfg *config.Config, clock cache.Clock) (cache.Store[[]models.Mention], cache.Store[*models.Snapshot], error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		logrus.Info("Using Redis cache backend")
		return cache.NewRedisStore[[]models.Mention](client, clock, "presstracker:mentions"),
			cache.NewRedisStore[*models.Snapshot](client, clock, "presstracker:snapshots"),
			nil
	}

	return cache.NewMemoryStore[[]models.Mention](clock),
		cache.NewMemoryStore[*models.Snapshot](clock),
		nil
}

func buildSummarizer(cfg *config.Config) summarize.Summarizer {
	if cfg.Summarizer == config.SummarizerOpenAI {
		logrus.Info("Using model-based summarizer (openai)")
		return summarize.NewModelSummarizer(summarize.NewOpenAICompleter(cfg.OpenAIAPIKey))
	}
	logrus.Info("Using naive concatenation summarizer")
	return summarize.NewNaiveSummarizer(summarize.DefaultSeparator)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func snapshotHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := p.GetSnapshot(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			logrus.Errorf("Failed to encode snapshot: %v", err)
		}
	}
}

func refreshHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := p.Refresh(ctx); err != nil {
				logrus.Errorf("Manual refresh trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Refresh triggered successfully"}`))
	}
}

func listSnapshotsHandler(archive storage.StorageInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := archive.List("snapshot-")
		if err != nil {
			logrus.Errorf("Failed to list archived snapshots: %v", err)
			http.Error(w, `{"error":"failed to list archived snapshots"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string][]string{"snapshots": names}); err != nil {
			logrus.Errorf("Failed to encode snapshot listing: %v", err)
		}
	}
}

func getArchivedSnapshotHandler(archive storage.StorageInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := mux.Vars(r)["filename"]
		data, err := archive.Retrieve(filename)
		if err != nil {
			logrus.Debugf("Archived snapshot %s not found: %v", filename, err)
			http.Error(w, `{"error":"snapshot not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func metricsHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := p.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}
