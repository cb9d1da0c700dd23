package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/models"
)

// AccountLister supplies the accounts to snapshot.
type AccountLister interface {
	GetAccounts(ctx context.Context) ([]string, error)
}

// Snapshotter persists a point-in-time analytics record per account.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, accountID string) (*models.Snapshot, error)
}

// Scheduler runs the periodic snapshot job on a cron schedule.
type Scheduler struct {
	cron        *cron.Cron
	config      config.SchedulerConfig
	accounts    AccountLister
	snapshotter Snapshotter
	logger      *logrus.Logger
}

func NewScheduler(cfg config.SchedulerConfig, accounts AccountLister, snapshotter Snapshotter, logger *logrus.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.TimeZone, err)
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(location)),
		config:      cfg,
		accounts:    accounts,
		snapshotter: snapshotter,
		logger:      logger,
	}, nil
}

// Start registers the snapshot job and launches the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.SnapshotInterval, func() {
		s.runSnapshotJob(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}

	s.cron.Start()
	s.logger.Infof("Scheduler started (snapshot interval: %s)", s.config.SnapshotInterval)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() error {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) runSnapshotJob(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	accounts, err := s.accounts.GetAccounts(jobCtx)
	if err != nil {
		s.logger.Errorf("Snapshot job failed to list accounts: %v", err)
		return
	}

	created := 0
	for _, accountID := range accounts {
		if _, err := s.snapshotter.CreateSnapshot(jobCtx, accountID); err != nil {
			s.logger.Errorf("Failed to snapshot account %s: %v", accountID, err)
			continue
		}
		created++
	}

	s.logger.WithFields(logrus.Fields{
		"accounts": len(accounts),
		"created":  created,
	}).Info("snapshot job finished")
}
