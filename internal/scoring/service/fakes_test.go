package service

import (
	"context"
	"sync"
	"time"

	"dao-governance-scorer/internal/entity"
	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/config"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/pkg/logger"
	"dao-governance-scorer/pkg/metrics"

	gocache "github.com/patrickmn/go-cache"
)

type fakeEvaluationRepo struct {
	mu          sync.Mutex
	evaluations []entity.ProposalEvaluation
	alerts      []entity.ProposalAlert
	createErr   error
}

func (r *fakeEvaluationRepo) Create(_ context.Context, evaluation *entity.ProposalEvaluation, alerts []entity.ProposalAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if evaluation != nil {
		evaluation.ID = uint(len(r.evaluations) + 1)
		r.evaluations = append(r.evaluations, *evaluation)
	}
	for _, a := range alerts {
		a.ID = uint(len(r.alerts) + 1)
		r.alerts = append(r.alerts, a)
	}
	return nil
}

func (r *fakeEvaluationRepo) FindLatestPerProposal(_ context.Context) ([]entity.ProposalEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := map[string]entity.ProposalEvaluation{}
	var order []string
	for _, e := range r.evaluations {
		prev, ok := latest[e.ProposalID]
		if !ok {
			order = append(order, e.ProposalID)
		}
		if !ok || !e.ScoredAt.Before(prev.ScoredAt) {
			latest[e.ProposalID] = e
		}
	}
	out := make([]entity.ProposalEvaluation, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}

func (r *fakeEvaluationRepo) FindByProposalID(_ context.Context, proposalID string, limit int) ([]entity.ProposalEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ProposalEvaluation
	for i := len(r.evaluations) - 1; i >= 0; i-- {
		if r.evaluations[i].ProposalID == proposalID {
			out = append(out, r.evaluations[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeAlertRepo struct {
	source *fakeEvaluationRepo
}

func (r *fakeAlertRepo) FindByParam(_ context.Context, param dto.AlertParam) ([]entity.ProposalAlert, error) {
	r.source.mu.Lock()
	defer r.source.mu.Unlock()
	var out []entity.ProposalAlert
	for i := len(r.source.alerts) - 1; i >= 0; i-- {
		a := r.source.alerts[i]
		if param.Severity != "" && a.Severity != string(param.Severity) {
			continue
		}
		if param.ProposalID != "" && a.ProposalID != param.ProposalID {
			continue
		}
		out = append(out, a)
		if param.Limit > 0 && len(out) == param.Limit {
			break
		}
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]entity.ProposalSignalSnapshot
}

func (r *fakeSnapshotRepo) Upsert(_ context.Context, snapshot *entity.ProposalSignalSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.ProposalID] = *snapshot
	return nil
}

func (r *fakeSnapshotRepo) FindOpen(_ context.Context, now time.Time) ([]entity.ProposalSignalSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ProposalSignalSnapshot
	for _, s := range r.snapshots {
		if !governance.ProposalStatus(s.Status).IsOpen() {
			continue
		}
		if s.Deadline != nil && !s.Deadline.After(now) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type testDeps struct {
	svc       *evaluationService
	evalRepo  *fakeEvaluationRepo
	snapshots *fakeSnapshotRepo
	metrics   *metrics.Metrics
}

func testConfig() *config.Config {
	return &config.Config{
		Scoring: governance.DefaultScoringConfig(),
		Alerts:  governance.DefaultAlertThresholds(),
		Evaluation: config.Evaluation{
			Workers:                 2,
			MaxBatchSize:            5,
			DefaultLeaderboardLimit: 10,
			HistoryLimit:            20,
			LeaderboardCacheTTL:     time.Minute,
		},
	}
}

func newTestService() testDeps {
	cfg := testConfig()
	engine, err := governance.NewEngine(cfg.Scoring, cfg.Alerts, cfg.Evaluation.Workers, nil)
	if err != nil {
		panic(err)
	}

	evalRepo := &fakeEvaluationRepo{}
	snapshots := &fakeSnapshotRepo{snapshots: map[string]entity.ProposalSignalSnapshot{}}
	m := metrics.New()

	svc := NewEvaluationService(cfg, engine, evalRepo, &fakeAlertRepo{source: evalRepo}, snapshots,
		gocache.New(time.Minute, 2*time.Minute), m, logger.NewNop()).(*evaluationService)

	return testDeps{svc: svc, evalRepo: evalRepo, snapshots: snapshots, metrics: m}
}
