// Package scheduler runs periodic background work. Today that is the badge
// sweep, which re-evaluates every group so that time-based badges are
// granted even to groups that receive no new activity.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"memorybox/internal/badges"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GroupLister pages through group ids in ascending order
type GroupLister interface {
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// Evaluator evaluates a single group
type Evaluator interface {
	EvaluateGroup(ctx context.Context, groupID int64) (*badges.Result, error)
}

// Recorder observes completed sweeps
type Recorder interface {
	ObserveSweep(evaluated, failed int, at time.Time)
}

// SweepConfig holds sweeper configuration
type SweepConfig struct {
	Schedule    string
	Concurrency int
	BatchSize   int
	// GroupTimeout bounds a single group's evaluation; zero means no bound.
	GroupTimeout time.Duration
}

// DefaultSweepConfig returns default sweep configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Schedule:     "@every 15m",
		Concurrency:  4,
		BatchSize:    200,
		GroupTimeout: 10 * time.Second,
	}
}

// SweepReport summarises one pass over all groups
type SweepReport struct {
	Visited   int           `json:"visited"`
	Evaluated int           `json:"evaluated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Awarded   int           `json:"awarded"`
	Duration  time.Duration `json:"duration"`
}

// BadgeSweeper evaluates every group on a cron schedule
type BadgeSweeper struct {
	groups    GroupLister
	evaluator Evaluator
	recorder  Recorder
	config    SweepConfig
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewBadgeSweeper creates a sweeper. recorder may be nil.
func NewBadgeSweeper(groups GroupLister, evaluator Evaluator, recorder Recorder, config SweepConfig, logger *zap.Logger) *BadgeSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultSweepConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	return &BadgeSweeper{
		groups:    groups,
		evaluator: evaluator,
		recorder:  recorder,
		config:    config,
		logger:    logger.Named("badge-sweeper"),
		now:       time.Now,
	}
}

// Start schedules the sweep. Overlapping runs are skipped, not queued.
func (s *BadgeSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("badge sweeper is already running")
	}

	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := c.AddFunc(s.config.Schedule, func() { s.runScheduled(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.Schedule, err)
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true

	s.logger.Info("Badge sweeper started",
		zap.String("schedule", s.config.Schedule),
		zap.Int("concurrency", s.config.Concurrency),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop cancels any sweep in progress and waits for it to return, or for
// ctx to expire.
func (s *BadgeSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	cancel()
	done := c.Stop()

	select {
	case <-done.Done():
		s.logger.Info("Badge sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("badge sweeper did not stop in time: %w", ctx.Err())
	}
}

func (s *BadgeSweeper) runScheduled(ctx context.Context) {
	report, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("Badge sweep aborted", zap.Error(err), zap.Int("visited", report.Visited))
		return
	}
	s.logger.Info("Badge sweep completed",
		zap.Int("visited", report.Visited),
		zap.Int("awarded", report.Awarded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
}

// Sweep evaluates every group once. A failing group is counted and
// logged; only listing errors and cancellation abort the pass.
func (s *BadgeSweeper) Sweep(ctx context.Context) (SweepReport, error) {
	start := s.now()
	var report SweepReport
	var evaluated, skipped, failed, awardedTotal atomic.Int64
	var afterID int64

	for {
		if err := ctx.Err(); err != nil {
			return s.finish(report, start, &evaluated, &skipped, &failed, &awardedTotal), err
		}

		ids, err := s.groups.ListIDs(ctx, afterID, s.config.BatchSize)
		if err != nil {
			return s.finish(report, start, &evaluated, &skipped, &failed, &awardedTotal),
				fmt.Errorf("failed to list groups after %d: %w", afterID, err)
		}
		if len(ids) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(s.config.Concurrency)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				switch n, err := s.evaluateOne(ctx, id); {
				case err == nil:
					evaluated.Add(1)
					awardedTotal.Add(int64(n))
				case errors.Is(err, badges.ErrNotFound):
					// deleted since the page was read
					skipped.Add(1)
				default:
					failed.Add(1)
					s.logger.Warn("Badge sweep failed for group", zap.Int64("group_id", id), zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()

		report.Visited += len(ids)
		afterID = ids[len(ids)-1]
		if len(ids) < s.config.BatchSize {
			break
		}
	}

	report = s.finish(report, start, &evaluated, &skipped, &failed, &awardedTotal)
	if s.recorder != nil {
		s.recorder.ObserveSweep(report.Evaluated, report.Failed, s.now())
	}
	return report, nil
}

func (s *BadgeSweeper) evaluateOne(ctx context.Context, groupID int64) (int, error) {
	if s.config.GroupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.GroupTimeout)
		defer cancel()
	}
	result, err := s.evaluator.EvaluateGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return len(result.Awarded), nil
}

func (s *BadgeSweeper) finish(r SweepReport, start time.Time, evaluated, skipped, failed, awarded *atomic.Int64) SweepReport {
	r.Evaluated = int(evaluated.Load())
	r.Skipped = int(skipped.Load())
	r.Failed = int(failed.Load())
	r.Awarded = int(awarded.Load())
	r.Duration = s.now().Sub(start)
	return r
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
