package governance

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"dao-governance-scorer/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Omission reasons reported alongside a batch result.
const (
	OmissionInvalidInput     = "invalid_input"
	OmissionInsufficientData = "insufficient_data"
	OmissionCanceled         = "canceled"
)

// Evaluation is everything one pass produces for one proposal.
// Score is nil when the proposal could not be scored; alerts are still reported.
type Evaluation struct {
	ProposalID string          `json:"proposal_id"`
	Score      *CompositeScore `json:"score,omitempty"`
	Alerts     []Alert         `json:"alerts"`
	Suspects   []SuspectValue  `json:"suspects,omitempty"`
}

// Omission explains why a proposal is absent from the ranking.
type Omission struct {
	Index      int    `json:"index"`
	ProposalID string `json:"proposal_id,omitempty"`
	Reason     string `json:"reason"`
	Error      string `json:"error"`
}

// BatchResult is the fan-in of a batch evaluation.
type BatchResult struct {
	Evaluations []Evaluation     `json:"evaluations"`
	Leaderboard []CompositeScore `json:"leaderboard"`
	Omitted     []Omission       `json:"omitted,omitempty"`
}

// Engine chains normalizer, scorer and alert evaluator. It holds no mutable
// state, so one instance may serve any number of goroutines.
type Engine struct {
	normalizer *Normalizer
	scorer     *Scorer
	alerts     *AlertEvaluator
	workers    int
	logger     *logger.Logger
	clock      func() time.Time
}

// NewEngine builds an engine with the standard rule set. workers <= 0 uses GOMAXPROCS.
func NewEngine(scoring ScoringConfig, thresholds AlertThresholds, workers int, log *logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.NewNop()
	}
	scorer, err := NewScorer(scoring, log)
	if err != nil {
		return nil, err
	}
	evaluator, err := NewDefaultAlertEvaluator(thresholds, log)
	if err != nil {
		return nil, err
	}
	return NewEngineWith(NewNormalizer(log), scorer, evaluator, workers, log), nil
}

// NewEngineWith assembles an engine from already built parts.
func NewEngineWith(normalizer *Normalizer, scorer *Scorer, alerts *AlertEvaluator, workers int, log *logger.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{normalizer: normalizer, scorer: scorer, alerts: alerts, workers: workers, logger: log, clock: time.Now}
}

// Evaluate runs one proposal through the pipeline. An ErrInsufficientData error
// comes with a partial Evaluation carrying the alerts; ErrInvalidInput comes with nothing.
func (e *Engine) Evaluate(raw ProposalSignals) (Evaluation, error) {
	return e.evaluateAt(raw, e.clock())
}

func (e *Engine) evaluateAt(raw ProposalSignals, now time.Time) (Evaluation, error) {
	ns, err := e.normalizer.Normalize(raw)
	if err != nil {
		return Evaluation{ProposalID: raw.ProposalID}, err
	}

	eval := Evaluation{
		ProposalID: ns.ProposalID,
		Alerts:     e.alerts.EvaluateAt(ns, now),
		Suspects:   ns.Suspects,
	}

	score, err := e.scorer.ScoreAt(ns, now)
	if err != nil {
		return eval, err
	}
	eval.Score = &score
	return eval, nil
}

// EvaluateBatch evaluates proposals in parallel and ranks the scorable ones.
// Results keep input order and share one evaluation time. ctx is only checked before each proposal is
// dispatched; the evaluation itself never blocks.
func (e *Engine) EvaluateBatch(ctx context.Context, batch []ProposalSignals, limit int) (BatchResult, error) {
	if limit <= 0 {
		return BatchResult{}, fmt.Errorf("%w: ranking limit must be positive, got %d", ErrInvalidInput, limit)
	}

	now := e.clock()
	evals := make([]Evaluation, len(batch))
	errs := make([]error, len(batch))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i := range batch {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			evals[i] = Evaluation{ProposalID: batch[i].ProposalID}
			continue
		}
		i := i
		g.Go(func() error {
			evals[i], errs[i] = e.evaluateAt(batch[i], now)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Evaluations: make([]Evaluation, 0, len(batch))}
	scores := make([]CompositeScore, 0, len(batch))
	for i, eval := range evals {
		if err := errs[i]; err != nil {
			omission := Omission{Index: i, ProposalID: eval.ProposalID, Reason: omissionReason(err), Error: err.Error()}
			result.Omitted = append(result.Omitted, omission)
			e.logger.Warn("Proposal omitted from ranking",
				logger.IntField("index", i),
				logger.StringField("proposal_id", eval.ProposalID),
				logger.StringField("reason", omission.Reason))
			if errors.Is(err, ErrInvalidInput) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
		}
		result.Evaluations = append(result.Evaluations, eval)
		if eval.Score != nil {
			scores = append(scores, *eval.Score)
		}
	}

	leaderboard, err := Rank(scores, limit)
	if err != nil {
		return BatchResult{}, err
	}
	result.Leaderboard = leaderboard
	return result, nil
}

func omissionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return OmissionInvalidInput
	case errors.Is(err, ErrInsufficientData):
		return OmissionInsufficientData
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OmissionCanceled
	default:
		return "error"
	}
}
