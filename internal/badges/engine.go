// Package badges evaluates group achievements and records them in a
// per-group ledger.
package badges

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of one evaluation pass.
type Result struct {
	GroupID int64    `json:"groupId"`
	Badges  []string `json:"badges"`
	Awarded []string `json:"awarded"`
	Wrote   bool     `json:"-"`
}

// Recorder observes engine activity. The metrics package implements it.
type Recorder interface {
	ObserveEvaluation(outcome string, d time.Duration)
	ObserveAwards(badgeIDs []string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEvaluation(string, time.Duration) {}
func (nopRecorder) ObserveAwards([]string)                  {}

// Evaluation outcomes reported to the Recorder.
const (
	OutcomeAwarded   = "awarded"
	OutcomeUnchanged = "unchanged"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Engine runs the rule registry against fresh statistics and commits new
// badges. It holds no locks; convergence under concurrency comes from the
// ledger's atomic operations.
type Engine struct {
	provider StatisticsProvider
	ledger   Ledger
	rules    *Registry
	recorder Recorder
	logger   *zap.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithRegistry replaces the default rule registry.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an evaluation engine.
func NewEngine(provider StatisticsProvider, ledger Ledger, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		provider: provider,
		ledger:   ledger,
		rules:    DefaultRegistry(),
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the rules the engine evaluates.
func (e *Engine) Registry() *Registry {
	return e.rules
}

// Evaluate checks every rule for groupID and adds newly qualifying badges.
// When nothing new qualifies no write is issued.
func (e *Engine) Evaluate(ctx context.Context, groupID int64) (*Result, error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		e.recorder.ObserveEvaluation(outcome, time.Since(start))
	}()

	if err := validateGroupID(groupID); err != nil {
		outcome = OutcomeInvalid
		return nil, err
	}

	stats, err := e.provider.Snapshot(ctx, groupID)
	if err != nil {
		outcome = classify(err)
		return nil, err
	}

	entry, err := e.ledger.EnsureEntry(ctx, groupID)
	if err != nil {
		outcome = classify(err)
		return nil, err
	}

	missing := e.rules.Qualifying(stats, entry.Badges)
	if len(missing) == 0 {
		outcome = OutcomeUnchanged
		return &Result{GroupID: groupID, Badges: entry.Badges, Awarded: []string{}}, nil
	}

	updated, err := e.ledger.AddBadges(ctx, groupID, missing)
	if err != nil {
		outcome = classify(err)
		e.logger.Error("Failed to record badges",
			zap.Int64("group_id", groupID),
			zap.Strings("badges", missing),
			zap.Error(err),
		)
		return nil, err
	}

	outcome = OutcomeAwarded
	e.recorder.ObserveAwards(missing)
	e.logger.Info("Badges awarded",
		zap.Int64("group_id", groupID),
		zap.Strings("awarded", missing),
		zap.Int("total", len(updated.Badges)),
	)

	return &Result{
		GroupID: groupID,
		Badges:  updated.Badges,
		Awarded: missing,
		Wrote:   true,
	}, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
