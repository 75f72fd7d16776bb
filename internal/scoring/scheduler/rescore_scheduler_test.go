package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRescorer struct {
	calls    atomic.Int32
	err      error
	deadline bool
}

func (r *countingRescorer) Rescore(ctx context.Context) (*dto.EvaluateResponse, error) {
	r.calls.Add(1)
	_, r.deadline = ctx.Deadline()
	if r.err != nil {
		return nil, r.err
	}
	return &dto.EvaluateResponse{Evaluations: []governance.Evaluation{{
		ProposalID: "P-1",
		Alerts:     []governance.Alert{{Severity: governance.SeverityHigh}, {Severity: governance.SeverityInfo}},
	}}}, nil
}

func TestNewRescoreScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewRescoreScheduler("every tuesday", time.Minute, &countingRescorer{}, logger.NewNop())
	assert.Error(t, err)

	// Five-field expressions are rejected once seconds are enabled.
	_, err = NewRescoreScheduler("*/5 * * * *", time.Minute, &countingRescorer{}, logger.NewNop())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	r := &countingRescorer{}
	s, err := NewRescoreScheduler("0 */15 * * * *", time.Minute, r, logger.NewNop())
	require.NoError(t, err)

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), r.calls.Load())
	assert.True(t, r.deadline)

	r.err = errors.New("snapshot query failed")
	s.RunOnce(context.Background())
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestStart_FiresOnSchedule(t *testing.T) {
	r := &countingRescorer{}
	s, err := NewRescoreScheduler("* * * * * *", 0, r, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	assert.Eventually(t, func() bool { return r.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
