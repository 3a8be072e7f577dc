package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/config"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/directory"
)

const jobTimeout = 2 * time.Minute

type sweeper interface {
	SweepExpired(ctx context.Context, actor models.Actor) (int, error)
}

type slaComputer interface {
	PreviousMonth() string
	ComputeMonth(ctx context.Context, actor models.Actor, month string) ([]models.SLASnapshot, error)
}

type slaExporter interface {
	ExportSLA(ctx context.Context, month string) (int, error)
	SummarizeSLA(ctx context.Context, month string) (string, error)
}

type priceRefresher interface {
	RefreshPrices(ctx context.Context, load directory.PriceLoader) error
}

// Jobs are the services the scheduled tasks drive. Exporter and Prices are
// optional; their tasks are skipped when nil.
type Jobs struct {
	Receipts   sweeper
	SLA        slaComputer
	Exporter   slaExporter
	Prices     priceRefresher
	LoadPrices directory.PriceLoader
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	actor  models.Actor
	cfg    config.SchedulerConfig
	logger *zap.Logger
}

// NewScheduler creates a new scheduler instance. Jobs run as the system actor
// and in the configured time zone.
func NewScheduler(cfg config.SchedulerConfig, platformEntityID string, jobs Jobs, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		actor:  models.SystemActor(platformEntityID),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.SweepCronSchedule, s.sweepExpired); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.SLACronSchedule, s.snapshotSLA); err != nil {
		return err
	}
	if s.jobs.Prices != nil && s.jobs.LoadPrices != nil && s.cfg.PriceRefreshCronSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.PriceRefreshCronSchedule, s.refreshPrices); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.jobs.Receipts.SweepExpired(ctx, s.actor)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Int("expired", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expiry sweep completed", zap.Int("expired", n))
	}
}

func (s *Scheduler) snapshotSLA() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	month := s.jobs.SLA.PreviousMonth()
	snaps, err := s.jobs.SLA.ComputeMonth(ctx, s.actor, month)
	if err != nil {
		s.logger.Error("failed to compute sla snapshots", zap.String("month", month), zap.Error(err))
		return
	}
	s.logger.Info("sla snapshots computed", zap.String("month", month), zap.Int("custodians", len(snaps)))

	if s.jobs.Exporter == nil {
		return
	}
	if _, err := s.jobs.Exporter.ExportSLA(ctx, month); err != nil {
		s.logger.Error("failed to export sla snapshots", zap.String("month", month), zap.Error(err))
		return
	}
	summary, err := s.jobs.Exporter.SummarizeSLA(ctx, month)
	if err != nil {
		s.logger.Warn("failed to summarize sla snapshots", zap.String("month", month), zap.Error(err))
		return
	}
	s.logger.Info(summary, zap.String("month", month))
}

func (s *Scheduler) refreshPrices() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.jobs.Prices.RefreshPrices(ctx, s.jobs.LoadPrices); err != nil {
		s.logger.Error("failed to refresh reference prices", zap.Error(err))
	}
}
