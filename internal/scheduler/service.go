package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pressbeat/press-tracker/internal/config"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/pressbeat/press-tracker/internal/notifications"
	"github.com/pressbeat/press-tracker/internal/pipeline"
	"github.com/pressbeat/press-tracker/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service runs the pipeline on a schedule, archives each fresh snapshot and
// sends the digest. Storage and notifications are both optional collaborators.
type Service struct {
	config              *config.Config
	pipeline            *pipeline.Pipeline
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	cron                *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, p *pipeline.Pipeline, store storage.StorageInterface, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:              cfg,
		pipeline:            p,
		storage:             store,
		notificationService: notificationService,
		cron:                cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled refreshes
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.ReportSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled pipeline refresh")
		if err := s.runRefresh(); err != nil {
			logrus.Errorf("Scheduled refresh failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule", s.config.ReportSchedule)
	return nil
}

func (s *Service) runRefresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snapshot, err := s.pipeline.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("pipeline refresh failed: %w", err)
	}

	if s.storage != nil {
		if err := s.archiveSnapshot(snapshot); err != nil {
			logrus.Errorf("Failed to archive snapshot: %v", err)
		}
		if err := s.pruneArchive(); err != nil {
			logrus.Errorf("Failed to prune snapshot archive: %v", err)
		}
	}

	if s.notificationService != nil {
		if err := s.notificationService.SendDigest(snapshot); err != nil {
			logrus.Errorf("Failed to send digest: %v", err)
		}
	}

	return nil
}

func (s *Service) archiveSnapshot(snapshot *models.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	filename := fmt.Sprintf("snapshot-%s.json", snapshot.GeneratedAt.Format("2006-01-02-15-04-05"))
	return s.storage.Store(filename, data)
}

// pruneArchive deletes the oldest archived snapshots beyond the configured
// retention count. Timestamped filenames sort chronologically.
func (s *Service) pruneArchive() error {
	if s.config.ArchiveRetention <= 0 {
		return nil
	}

	names, err := s.storage.List("snapshot-")
	if err != nil {
		return fmt.Errorf("failed to list archived snapshots: %w", err)
	}

	if len(names) <= s.config.ArchiveRetention {
		return nil
	}

	sort.Strings(names)
	expired := names[:len(names)-s.config.ArchiveRetention]
	for _, name := range expired {
		if err := s.storage.Delete(name); err != nil {
			logrus.Errorf("Failed to delete archived snapshot %s: %v", name, err)
			continue
		}
		logrus.Debugf("Deleted archived snapshot %s", name)
	}

	logrus.Infof("Pruned %d archived snapshots, keeping %d", len(expired), s.config.ArchiveRetention)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
