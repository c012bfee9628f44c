package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
)

// VisitRefresher recomputes cached visit analytics.
type VisitRefresher interface {
	RefreshVisits(ctx context.Context) domain.VisitStats
}

// RetentionSweeper drops events older than the retention window.
type RetentionSweeper interface {
	PurgeOlderThan30Days(ctx context.Context) int
}

// SchedulerConfig controls the periodic analytics jobs.
type SchedulerConfig struct {
	RefreshInterval time.Duration
	RetentionSpec   string
	JobTimeout      time.Duration
}

// Scheduler runs the dashboard refresh tick and the retention sweep.
type Scheduler struct {
	refresher VisitRefresher
	sweeper   RetentionSweeper
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       SchedulerConfig
}

func NewScheduler(refresher VisitRefresher, sweeper RetentionSweeper, logger *zap.Logger, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	if cfg.RetentionSpec == "" {
		cfg.RetentionSpec = "@daily"
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		refresher: refresher,
		sweeper:   sweeper,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DiscardLogger))),
	}

	if refresher != nil {
		schedule := fmt.Sprintf("@every %ds", int(cfg.RefreshInterval.Seconds()))
		if _, err := s.cron.AddFunc(schedule, s.RefreshVisits); err != nil {
			return nil, fmt.Errorf("schedule visit refresh: %w", err)
		}
	}
	if sweeper != nil {
		if _, err := s.cron.AddFunc(cfg.RetentionSpec, s.Sweep); err != nil {
			return nil, fmt.Errorf("schedule retention sweep: %w", err)
		}
	}
	return s, nil
}

// Start runs one sweep and one refresh, then launches the cron scheduler.
func (s *Scheduler) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.Sweep()
	s.RefreshVisits()
	s.cron.Start()
	s.logger.Info("analytics scheduler started",
		zap.Duration("refresh_interval", s.cfg.RefreshInterval),
		zap.String("retention", s.cfg.RetentionSpec),
	)
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("analytics scheduler stopped")
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) RefreshVisits() {
	if s.refresher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()
	s.refresher.RefreshVisits(ctx)
}

func (s *Scheduler) Sweep() {
	if s.sweeper == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()
	s.sweeper.PurgeOlderThan30Days(ctx)
}
