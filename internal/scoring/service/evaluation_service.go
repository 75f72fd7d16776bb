package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dao-governance-scorer/internal/entity"
	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/config"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/internal/scoring/repository"
	"dao-governance-scorer/pkg/logger"
	"dao-governance-scorer/pkg/metrics"
	"dao-governance-scorer/pkg/utils"

	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"
)

const leaderboardCacheKeyPrefix = "leaderboard:"

// BatchEvaluator is the part of the governance engine the service depends on.
type BatchEvaluator interface {
	EvaluateBatch(ctx context.Context, batch []governance.ProposalSignals, limit int) (governance.BatchResult, error)
}

// EvaluationService defines the interface for evaluating proposals and querying results.
type EvaluationService interface {
	Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.EvaluateResponse, error)
	Leaderboard(ctx context.Context, limit int) (*dto.LeaderboardResponse, error)
	Alerts(ctx context.Context, param dto.AlertParam) ([]governance.Alert, error)
	ProposalHistory(ctx context.Context, proposalID string) ([]*dto.EvaluationHistoryResponse, error)
	Rescore(ctx context.Context) (*dto.EvaluateResponse, error)
}

// NewEvaluationService creates a new evaluation service.
func NewEvaluationService(
	cfg *config.Config,
	engine BatchEvaluator,
	evaluationRepo repository.EvaluationRepository,
	alertRepo repository.AlertRepository,
	snapshotRepo repository.SnapshotRepository,
	cache *gocache.Cache,
	m *metrics.Metrics,
	log *logger.Logger,
) EvaluationService {
	return &evaluationService{
		cfg:            cfg,
		engine:         engine,
		evaluationRepo: evaluationRepo,
		alertRepo:      alertRepo,
		snapshotRepo:   snapshotRepo,
		cache:          cache,
		metrics:        m,
		logger:         log,
		validate:       validator.New(),
		clock:          utils.TimeNowUTC,
	}
}

type evaluationService struct {
	cfg            *config.Config
	engine         BatchEvaluator
	evaluationRepo repository.EvaluationRepository
	alertRepo      repository.AlertRepository
	snapshotRepo   repository.SnapshotRepository
	cache          *gocache.Cache
	metrics        *metrics.Metrics
	logger         *logger.Logger
	validate       *validator.Validate
	clock          func() time.Time
}

// Evaluate scores a batch of proposals, stores the latest signals for each and
// appends the resulting evaluations and alerts to history.
func (s *evaluationService) Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.EvaluateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", governance.ErrInvalidInput, err)
	}
	if len(req.Proposals) > s.cfg.Evaluation.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d proposals exceeds the maximum of %d",
			governance.ErrInvalidInput, len(req.Proposals), s.cfg.Evaluation.MaxBatchSize)
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.Evaluation.DefaultLeaderboardLimit
	}

	for _, raw := range req.Proposals {
		if strings.TrimSpace(raw.ProposalID) == "" {
			continue
		}
		snapshot, err := toSnapshotEntity(raw)
		if err == nil {
			err = s.snapshotRepo.Upsert(ctx, snapshot)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to store signal snapshot", logger.ErrorField(err), logger.StringField("proposal_id", raw.ProposalID))
		}
	}

	return s.evaluate(ctx, req.Proposals, limit)
}

// Rescore re-evaluates every stored proposal that is still open. Time-dependent
// rules such as the deadline alert only fire through this path once signals stop arriving.
func (s *evaluationService) Rescore(ctx context.Context) (*dto.EvaluateResponse, error) {
	snapshots, err := s.snapshotRepo.FindOpen(ctx, s.clock().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load open proposals", logger.ErrorField(err))
		return nil, err
	}

	batch := make([]governance.ProposalSignals, 0, len(snapshots))
	for _, snapshot := range snapshots {
		raw, err := toProposalSignals(snapshot)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable signal snapshot", logger.ErrorField(err))
			continue
		}
		batch = append(batch, raw)
	}
	if len(batch) == 0 {
		return &dto.EvaluateResponse{EvaluatedAt: s.clock().UTC()}, nil
	}

	s.logger.InfoContext(ctx, "Re-scoring open proposals", logger.IntField("count", len(batch)))
	return s.evaluate(ctx, batch, s.cfg.Evaluation.DefaultLeaderboardLimit)
}

func (s *evaluationService) evaluate(ctx context.Context, batch []governance.ProposalSignals, limit int) (*dto.EvaluateResponse, error) {
	start := s.clock()

	result, err := s.engine.EvaluateBatch(ctx, batch, limit)
	if err != nil {
		return nil, err
	}

	var unsaved []string
	for _, eval := range result.Evaluations {
		if err := s.persist(ctx, eval); err != nil {
			s.logger.ErrorContext(ctx, "Failed to store evaluation", logger.ErrorField(err), logger.StringField("proposal_id", eval.ProposalID))
			unsaved = append(unsaved, eval.ProposalID)
		}
	}
	for _, o := range result.Omitted {
		s.metrics.Omissions.WithLabelValues(o.Reason).Inc()
	}
	s.cache.Flush()

	s.metrics.BatchDuration.Observe(s.clock().Sub(start).Seconds())
	s.logger.InfoContext(ctx, "Batch evaluated",
		logger.IntField("received", len(batch)),
		logger.IntField("evaluated", len(result.Evaluations)),
		logger.IntField("omitted", len(result.Omitted)),
		logger.IntField("unsaved", len(unsaved)))

	return &dto.EvaluateResponse{
		Evaluations: result.Evaluations,
		Leaderboard: result.Leaderboard,
		Omitted:     result.Omitted,
		Unsaved:     unsaved,
		EvaluatedAt: s.clock().UTC(),
	}, nil
}

// persist stores one evaluation and its alerts. A failure only affects this proposal;
// the caller reports it in the response and carries on with the batch.
func (s *evaluationService) persist(ctx context.Context, eval governance.Evaluation) error {
	for _, a := range eval.Alerts {
		s.metrics.Alerts.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}

	var (
		row          *entity.ProposalEvaluation
		evaluationID *string
		err          error
	)
	if eval.Score != nil {
		s.metrics.Evaluations.WithLabelValues(string(eval.Score.Rating)).Inc()
		s.metrics.OverallScore.Observe(float64(eval.Score.OverallScore))

		row, err = toEvaluationEntity(*eval.Score)
		if err != nil {
			return fmt.Errorf("map evaluation: %w", err)
		}
		evaluationID = &row.EvaluationID
	}
	if row == nil && len(eval.Alerts) == 0 {
		return nil
	}

	return s.evaluationRepo.Create(ctx, row, toAlertEntities(evaluationID, eval.Alerts))
}

// Leaderboard ranks the latest evaluation of every proposal.
func (s *evaluationService) Leaderboard(ctx context.Context, limit int) (*dto.LeaderboardResponse, error) {
	if limit == 0 {
		limit = s.cfg.Evaluation.DefaultLeaderboardLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: ranking limit must be positive, got %d", governance.ErrInvalidInput, limit)
	}

	key := leaderboardCacheKeyPrefix + strconv.Itoa(limit)
	if s.cfg.Evaluation.LeaderboardCacheTTL > 0 {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.LeaderboardHits.WithLabelValues("hit").Inc()
			return cached.(*dto.LeaderboardResponse), nil
		}
		s.metrics.LeaderboardHits.WithLabelValues("miss").Inc()
	}

	latest, err := s.evaluationRepo.FindLatestPerProposal(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load latest evaluations", logger.ErrorField(err))
		return nil, err
	}

	scores := make([]governance.CompositeScore, 0, len(latest))
	for _, row := range latest {
		score, err := toCompositeScore(row)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable evaluation", logger.ErrorField(err))
			continue
		}
		scores = append(scores, score)
	}

	ranked, err := governance.Rank(scores, limit)
	if err != nil {
		return nil, err
	}

	resp := &dto.LeaderboardResponse{Limit: limit, Entries: make([]dto.LeaderboardEntry, 0, len(ranked))}
	for i, score := range ranked {
		resp.Entries = append(resp.Entries, toLeaderboardEntry(i+1, score))
	}

	if s.cfg.Evaluation.LeaderboardCacheTTL > 0 {
		s.cache.Set(key, resp, s.cfg.Evaluation.LeaderboardCacheTTL)
	}
	return resp, nil
}

// Alerts returns stored alerts, most urgent first.
func (s *evaluationService) Alerts(ctx context.Context, param dto.AlertParam) ([]governance.Alert, error) {
	if param.Limit <= 0 {
		param.Limit = s.cfg.Evaluation.HistoryLimit
	}
	rows, err := s.alertRepo.FindByParam(ctx, param)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to find alerts", logger.ErrorField(err))
		return nil, err
	}

	alerts := make([]governance.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, toAlert(row))
	}
	return governance.SortBySeverity(alerts), nil
}

// ProposalHistory returns the stored evaluations of one proposal, newest first.
func (s *evaluationService) ProposalHistory(ctx context.Context, proposalID string) ([]*dto.EvaluationHistoryResponse, error) {
	if proposalID == "" {
		return nil, fmt.Errorf("%w: proposal id is required", governance.ErrInvalidInput)
	}
	rows, err := s.evaluationRepo.FindByProposalID(ctx, proposalID, s.cfg.Evaluation.HistoryLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to find evaluation history", logger.ErrorField(err), logger.StringField("proposal_id", proposalID))
		return nil, err
	}

	history := make([]*dto.EvaluationHistoryResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := toHistoryResponse(row)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable evaluation", logger.ErrorField(err))
			continue
		}
		history = append(history, resp)
	}
	return history, nil
}
