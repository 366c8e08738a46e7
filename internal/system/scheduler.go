package system

import (
	"context"
	"time"

	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/pkg/core/ds"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/benbjohnson/clock"
)

var logger = &log.Logger

type Recalculator interface {
	CalculateAllRewards(ctx context.Context) (entities.RecalculationResult, error)
}

// Pruner drops aggregate history older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
}

type SchedulerOptions struct {
	RunOnStart bool
	// SystemStore remembers the last run across restarts.
	SystemStore *ds.Datastore
	Pruner      Pruner
	Retention   time.Duration
	Clock       clock.Clock
}

// Scheduler triggers a recalculation every interval until its context ends.
type Scheduler struct {
	recalculator Recalculator
	interval     time.Duration
	opts         SchedulerOptions
	done         chan struct{}
}

func NewScheduler(r Recalculator, interval time.Duration, opts SchedulerOptions) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Scheduler{
		recalculator: r,
		interval:     interval,
		opts:         opts,
		done:         make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := s.opts.Clock.Ticker(s.interval)
	go s.run(ctx, ticker)
}

// Done is closed once the scheduler has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) run(ctx context.Context, ticker *clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	if s.opts.RunOnStart && s.due(ctx) {
		s.Tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("Recalculation scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// due is false when the previous process ran a recalculation less than one
// interval ago.
func (s *Scheduler) due(ctx context.Context) bool {
	if s.opts.SystemStore == nil {
		return true
	}
	last, err := ds.GetLastRecalculation(ctx, s.opts.SystemStore)
	if err != nil {
		logger.Warnf("Reading last recalculation time: %v", err)
		return true
	}
	if last.IsZero() {
		return true
	}
	if age := s.opts.Clock.Since(last); age < s.interval {
		logger.Infof("Last recalculation ran %s ago, waiting for the next tick", age.Round(time.Second))
		return false
	}
	return true
}

// Tick runs one recalculation followed by history pruning.
func (s *Scheduler) Tick(ctx context.Context) {
	logger.Info("Starting scheduled reward calculation")
	result, err := s.recalculator.CalculateAllRewards(ctx)
	if err != nil {
		logger.Errorf("Scheduled reward calculation failed: %v", err)
		return
	}
	if n := result.Failures(); n > 0 {
		logger.Warnf("Scheduled reward calculation: %d of %d chains failed", n, len(result))
	}
	if s.opts.SystemStore != nil {
		if err := ds.SetLastRecalculation(ctx, s.opts.SystemStore, s.opts.Clock.Now()); err != nil {
			logger.Errorf("Saving last recalculation time: %v", err)
		}
	}
	s.prune(ctx)
}

func (s *Scheduler) prune(ctx context.Context) {
	if s.opts.Pruner == nil || s.opts.Retention <= 0 {
		return
	}
	cutoff := s.opts.Clock.Now().Add(-s.opts.Retention)
	if _, err := s.opts.Pruner.PruneBefore(ctx, cutoff); err != nil {
		logger.Errorf("Pruning aggregate history: %v", err)
	}
}
