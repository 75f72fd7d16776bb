package scheduler

import (
	"context"
	"fmt"
	"time"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/pkg/logger"
	"dao-governance-scorer/pkg/utils"

	"github.com/robfig/cron/v3"
)

// Rescorer re-evaluates the stored signals of open proposals.
type Rescorer interface {
	Rescore(ctx context.Context) (*dto.EvaluateResponse, error)
}

// RescoreScheduler periodically rescores open proposals so that time-based
// alerts fire without new signals arriving.
type RescoreScheduler struct {
	cron     *cron.Cron
	rescorer Rescorer
	timeout  time.Duration
	logger   *logger.Logger
}

// NewRescoreScheduler creates a scheduler for a six-field cron expression (with seconds).
func NewRescoreScheduler(schedule string, timeout time.Duration, rescorer Rescorer, log *logger.Logger) (*RescoreScheduler, error) {
	s := &RescoreScheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		rescorer: rescorer,
		timeout:  timeout,
		logger:   log,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid rescore schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the cron loop until ctx is done.
func (s *RescoreScheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("Rescore scheduler started", logger.IntField("jobs", len(s.cron.Entries())))
	utils.GoSafe(func() {
		<-ctx.Done()
		s.Stop()
	})
}

// Stop halts scheduling and waits for a running rescore to finish.
func (s *RescoreScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single rescoring pass.
func (s *RescoreScheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.rescorer.Rescore(ctx)
	if err != nil {
		s.logger.Error("Rescore failed", logger.ErrorField(err))
		return
	}

	alerts := 0
	for _, eval := range resp.Evaluations {
		alerts += len(governance.Actionable(eval.Alerts))
	}
	s.logger.Info("Rescore completed",
		logger.IntField("proposals", len(resp.Evaluations)),
		logger.IntField("omitted", len(resp.Omitted)),
		logger.IntField("actionable_alerts", alerts),
		logger.DurationField("duration", time.Since(start)),
	)
}
