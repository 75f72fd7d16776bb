package governance

import (
	"fmt"
	"math"
	"time"

	"dao-governance-scorer/pkg/logger"

	"github.com/google/uuid"
)

// Component names one of the six weighted sub-scores.
type Component string

const (
	ComponentPredictionConfidence Component = "prediction_confidence"
	ComponentSentiment            Component = "sentiment"
	ComponentParticipation        Component = "participation"
	ComponentRiskAssessment       Component = "risk_assessment"
	ComponentTreasuryImpact       Component = "treasury_impact"
	ComponentExecutionQuality     Component = "execution_quality"
)

// Components lists every component in declaration order.
var Components = []Component{
	ComponentPredictionConfidence,
	ComponentSentiment,
	ComponentParticipation,
	ComponentRiskAssessment,
	ComponentTreasuryImpact,
	ComponentExecutionQuality,
}

// ComponentScores holds the six sub-scores, each in [0,1] or unavailable.
// Higher is better for every component.
type ComponentScores struct {
	PredictionConfidence Metric `json:"prediction_confidence"`
	Sentiment            Metric `json:"sentiment"`
	Participation        Metric `json:"participation"`
	RiskAssessment       Metric `json:"risk_assessment"`
	TreasuryImpact       Metric `json:"treasury_impact"`
	ExecutionQuality     Metric `json:"execution_quality"`
}

// Get returns a component by name.
func (cs ComponentScores) Get(c Component) Metric {
	switch c {
	case ComponentPredictionConfidence:
		return cs.PredictionConfidence
	case ComponentSentiment:
		return cs.Sentiment
	case ComponentParticipation:
		return cs.Participation
	case ComponentRiskAssessment:
		return cs.RiskAssessment
	case ComponentTreasuryImpact:
		return cs.TreasuryImpact
	case ComponentExecutionQuality:
		return cs.ExecutionQuality
	}
	return Unavailable()
}

// Unavailable lists the components that could not be computed.
func (cs ComponentScores) Unavailable() []Component {
	var out []Component
	for _, c := range Components {
		if !cs.Get(c).Available() {
			out = append(out, c)
		}
	}
	return out
}

// CompositeScore is the immutable result of one scoring pass. A re-evaluation
// produces a new value with a new EvaluationID.
type CompositeScore struct {
	EvaluationID   string          `json:"evaluation_id"`
	ProposalID     string          `json:"proposal_id"`
	Title          string          `json:"title,omitempty"`
	DAO            string          `json:"dao,omitempty"`
	OverallScore   int             `json:"overall_score"`
	Rating         Rating          `json:"rating"`
	Recommendation Recommendation  `json:"recommendation"`
	Components     ComponentScores `json:"components"`

	// EffectiveWeights are the renormalized weights of the available components.
	EffectiveWeights map[Component]float64 `json:"effective_weights"`
	// Contributions are effective weight times component value.
	Contributions map[Component]float64 `json:"weighted_contributions"`

	Suspects []SuspectValue `json:"suspects,omitempty"`
	ScoredAt time.Time      `json:"scored_at"`
}

// Scorer turns normalized signals into a CompositeScore.
type Scorer struct {
	cfg    ScoringConfig
	logger *logger.Logger
	clock  func() time.Time
}

// NewScorer validates the configuration and returns a scorer.
func NewScorer(cfg ScoringConfig, log *logger.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scorer{cfg: cfg, logger: log, clock: time.Now}, nil
}

// Components maps signals to the six sub-scores.
func (s *Scorer) Components(ns NormalizedSignals) ComponentScores {
	return ComponentScores{
		PredictionConfidence: predictionComponent(ns.PredictionProbability, ns.PredictionConfidence),
		Sentiment:            mapMetric(ns.SentimentAggregate, func(v float64) float64 { return (v + 1) / 2 }),
		Participation:        ns.ParticipationRate,
		RiskAssessment:       mapMetric(ns.RiskIndicator, func(v float64) float64 { return 1 - v }),
		TreasuryImpact: mapMetric(ns.TreasuryImpactRatio, func(v float64) float64 {
			return math.Max(0, 1-v*s.cfg.TreasuryRatioPenalty)
		}),
		ExecutionQuality: ns.ExecutionQuality,
	}
}

// EffectiveWeights drops unavailable components and rescales the rest to sum to 1.
// The result is empty when nothing is available or the available weights sum to 0.
func (s *Scorer) EffectiveWeights(cs ComponentScores) map[Component]float64 {
	var total float64
	for _, c := range Components {
		if cs.Get(c).Available() {
			total += s.cfg.Weights.Of(c)
		}
	}
	weights := make(map[Component]float64, len(Components))
	if total <= 0 {
		return weights
	}
	for _, c := range Components {
		if cs.Get(c).Available() {
			weights[c] = s.cfg.Weights.Of(c) / total
		}
	}
	return weights
}

// Score computes the composite score for one proposal, stamped with the current time.
func (s *Scorer) Score(ns NormalizedSignals) (CompositeScore, error) {
	return s.ScoreAt(ns, s.clock())
}

// ScoreAt computes the composite score with an explicit scoring time. Every
// score of one batch shares the same time so ranking ties do not depend on scheduling.
func (s *Scorer) ScoreAt(ns NormalizedSignals, now time.Time) (CompositeScore, error) {
	if ns.ProposalID == "" {
		return CompositeScore{}, fmt.Errorf("%w: proposal id is required", ErrInvalidInput)
	}

	components := s.Components(ns)
	weights := s.EffectiveWeights(components)
	if len(weights) == 0 {
		return CompositeScore{}, fmt.Errorf("%w: no component available for proposal %s", ErrInsufficientData, ns.ProposalID)
	}

	contributions := make(map[Component]float64, len(weights))
	var weighted float64
	for c, w := range weights {
		v, _ := components.Get(c).Value()
		contributions[c] = w * v
	}
	// Sum in declaration order so the float result does not depend on map iteration.
	for _, c := range Components {
		weighted += contributions[c]
	}

	overall := int(clamp(math.Round(100*weighted), 0, 100))
	rating := s.cfg.Ratings.Rate(overall)

	var suspects []SuspectValue
	if len(ns.Suspects) > 0 {
		suspects = append(suspects, ns.Suspects...)
	}

	score := CompositeScore{
		EvaluationID:     uuid.NewString(),
		ProposalID:       ns.ProposalID,
		Title:            ns.Title,
		DAO:              ns.DAO,
		OverallScore:     overall,
		Rating:           rating,
		Recommendation:   s.recommend(rating, components, ns.PredictionConfidence),
		Components:       components,
		EffectiveWeights: weights,
		Contributions:    contributions,
		Suspects:         suspects,
		ScoredAt:         now.UTC(),
	}

	s.logger.Debug("Proposal scored",
		logger.StringField("proposal_id", score.ProposalID),
		logger.IntField("overall_score", score.OverallScore),
		logger.StringField("rating", string(score.Rating)),
		logger.IntField("unavailable_components", len(components.Unavailable())))

	return score, nil
}

func (s *Scorer) recommend(rating Rating, cs ComponentScores, modelConfidence Metric) Recommendation {
	rec := recommendations[rating]
	return Recommendation{
		Action:     rec.action,
		Confidence: s.confidenceLabel(cs, modelConfidence),
		Message:    rec.message,
	}
}

// confidenceLabel grades the model confidence, but only when the prediction
// component itself could be computed.
func (s *Scorer) confidenceLabel(cs ComponentScores, modelConfidence Metric) ConfidenceLabel {
	if !cs.PredictionConfidence.Available() {
		return ConfidenceLow
	}
	conf, ok := modelConfidence.Value()
	switch {
	case ok && conf >= s.cfg.HighConfidenceLabel:
		return ConfidenceHigh
	case ok && conf >= s.cfg.MediumConfidenceLabel:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// predictionComponent rewards confident predictions of passing; a confident
// prediction of failure still counts, at half weight.
func predictionComponent(probability, confidence Metric) Metric {
	p, okP := probability.Value()
	c, okC := confidence.Value()
	if !okP || !okC {
		return Unavailable()
	}
	if p > 0.5 {
		return Available(clamp(p*c, 0, 1))
	}
	return Available(clamp((1-p)*c*0.5, 0, 1))
}

func mapMetric(m Metric, fn func(float64) float64) Metric {
	v, ok := m.Value()
	if !ok {
		return Unavailable()
	}
	return Available(clamp(fn(v), 0, 1))
}
