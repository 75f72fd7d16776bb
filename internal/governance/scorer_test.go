package governance

import (
	"testing"

	"dao-governance-scorer/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScorer_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScoringConfig)
	}{
		{"weights sum above one", func(c *ScoringConfig) { c.Weights.Sentiment = 0.5 }},
		{"weights sum below one", func(c *ScoringConfig) { c.Weights.PredictionConfidence = 0.1 }},
		{"negative weight", func(c *ScoringConfig) { c.Weights.ExecutionQuality = -0.1; c.Weights.TreasuryImpact = 0.3 }},
		{"thresholds out of order", func(c *ScoringConfig) { c.Ratings.Good = 85 }},
		{"zero penalty", func(c *ScoringConfig) { c.TreasuryRatioPenalty = 0 }},
		{"confidence labels inverted", func(c *ScoringConfig) { c.HighConfidenceLabel = 0.4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScoringConfig()
			tt.mutate(&cfg)

			_, err := NewScorer(cfg, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewScorer_AcceptsWeightsWithinTolerance(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Weights.Sentiment = 0.205

	_, err := NewScorer(cfg, nil)
	assert.NoError(t, err)
}

func TestScore_ReferenceProposal(t *testing.T) {
	score, err := newTestScorer().Score(mustNormalize(baselineSignals()))
	require.NoError(t, err)

	assert.Equal(t, 73, score.OverallScore)
	assert.Equal(t, RatingGood, score.Rating)
	assert.Equal(t, ActionSupport, score.Recommendation.Action)
	assert.Equal(t, ConfidenceHigh, score.Recommendation.Confidence)
	assert.NotEmpty(t, score.Recommendation.Message)
	assert.NotEmpty(t, score.EvaluationID)
	assert.Equal(t, fixedNow, score.ScoredAt)
	assert.Equal(t, "Arbitrum DAO", score.DAO)

	expected := map[Component]float64{
		ComponentPredictionConfidence: 0.663,
		ComponentSentiment:            0.675,
		ComponentParticipation:        0.62,
		ComponentRiskAssessment:       0.8,
		ComponentTreasuryImpact:       0.95,
		ComponentExecutionQuality:     0.8,
	}
	for c, want := range expected {
		got, ok := score.Components.Get(c).Value()
		require.True(t, ok, c)
		assert.InDelta(t, want, got, 1e-9, c)
	}

	assert.Empty(t, score.Components.Unavailable())
	assert.InDelta(t, 0.25*0.663, score.Contributions[ComponentPredictionConfidence], 1e-9)
}

func TestScore_OverallAlwaysWithinRange(t *testing.T) {
	extremes := []struct {
		name string
		v    float64
		want int
	}{
		{"worst", 0, 0},
		{"best", 1, 100},
	}

	for _, tt := range extremes {
		t.Run(tt.name, func(t *testing.T) {
			raw := ProposalSignals{
				ProposalID:        "P-1",
				ParticipationRate: utils.ToPointer(tt.v),
				ExecutionQuality:  utils.ToPointer(tt.v),
				RiskIndicator:     utils.ToPointer(1 - tt.v),
				Sentiment:         &SentimentSignal{Aggregate: utils.ToPointer(2*tt.v - 1), SampleSize: 10},
			}

			score, err := newTestScorer().Score(mustNormalize(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, score.OverallScore)
		})
	}
}

func TestScore_RatingBoundaries(t *testing.T) {
	// A single available component gets all the weight, so the score is 100*value.
	tests := []struct {
		value  float64
		score  int
		rating Rating
		action Action
	}{
		{0.80, 80, RatingExcellent, ActionStrongSupport},
		{0.79, 79, RatingGood, ActionSupport},
		{0.65, 65, RatingGood, ActionSupport},
		{0.64, 64, RatingModerate, ActionNeutral},
		{0.50, 50, RatingModerate, ActionNeutral},
		{0.49, 49, RatingPoor, ActionOppose},
		{0.35, 35, RatingPoor, ActionOppose},
		{0.34, 34, RatingCritical, ActionStrongOppose},
	}

	for _, tt := range tests {
		t.Run(string(tt.rating), func(t *testing.T) {
			ns := mustNormalize(ProposalSignals{ProposalID: "P-1", ExecutionQuality: utils.ToPointer(tt.value)})

			score, err := newTestScorer().Score(ns)
			require.NoError(t, err)
			assert.Equal(t, tt.score, score.OverallScore)
			assert.Equal(t, tt.rating, score.Rating)
			assert.Equal(t, tt.action, score.Recommendation.Action)
		})
	}
}

func TestRatingThresholds_Rate(t *testing.T) {
	r := DefaultScoringConfig().Ratings

	assert.Equal(t, RatingExcellent, r.Rate(100))
	assert.Equal(t, RatingExcellent, r.Rate(80))
	assert.Equal(t, RatingGood, r.Rate(79))
	assert.Equal(t, RatingModerate, r.Rate(50))
	assert.Equal(t, RatingPoor, r.Rate(35))
	assert.Equal(t, RatingCritical, r.Rate(34))
	assert.Equal(t, RatingCritical, r.Rate(0))

	assert.Equal(t, ActionStrongOppose, ActionFor(RatingCritical))
}

func TestScore_RenormalizesWhenComponentsMissing(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProposalSignals)
		missing []Component
	}{
		{
			name:    "no treasury",
			mutate:  func(s *ProposalSignals) { s.TotalTreasury = nil },
			missing: []Component{ComponentTreasuryImpact},
		},
		{
			name:    "no prediction confidence",
			mutate:  func(s *ProposalSignals) { s.Prediction.Confidence = nil },
			missing: []Component{ComponentPredictionConfidence},
		},
		{
			name: "only sentiment and risk",
			mutate: func(s *ProposalSignals) {
				s.Prediction = nil
				s.ParticipationRate = nil
				s.TotalTreasury = nil
				s.ExecutionQuality = nil
			},
			missing: []Component{
				ComponentPredictionConfidence,
				ComponentParticipation,
				ComponentTreasuryImpact,
				ComponentExecutionQuality,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baselineSignals()
			tt.mutate(&raw)

			score, err := newTestScorer().Score(mustNormalize(raw))
			require.NoError(t, err)

			assert.ElementsMatch(t, tt.missing, score.Components.Unavailable())

			var sum float64
			for c, w := range score.EffectiveWeights {
				assert.NotContains(t, tt.missing, c)
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
			assert.Len(t, score.EffectiveWeights, len(Components)-len(tt.missing))
		})
	}
}

func TestScore_MissingComponentDoesNotCountAsZero(t *testing.T) {
	raw := baselineSignals()
	raw.TotalTreasury = nil

	score, err := newTestScorer().Score(mustNormalize(raw))
	require.NoError(t, err)

	// (0.16575+0.135+0.093+0.16+0.08)/0.9 = 0.70417, not 0.63375.
	assert.Equal(t, 70, score.OverallScore)
	assert.InDelta(t, 0.10/0.90, score.EffectiveWeights[ComponentExecutionQuality], 1e-9)
}

func TestScore_AllComponentsUnavailable(t *testing.T) {
	raw := ProposalSignals{
		ProposalID:               "P-1",
		VotingPowerConcentration: utils.ToPointer(0.2),
		Prediction:               &PredictionSignal{Probability: utils.ToPointer(0.9)},
	}

	_, err := newTestScorer().Score(mustNormalize(raw))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestScore_MissingProposalID(t *testing.T) {
	_, err := newTestScorer().Score(NormalizedSignals{ExecutionQuality: Available(0.5)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScore_Idempotent(t *testing.T) {
	s := newTestScorer()
	ns := mustNormalize(baselineSignals())

	first, err := s.Score(ns)
	require.NoError(t, err)
	second, err := s.Score(ns)
	require.NoError(t, err)

	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Rating, second.Rating)
	assert.Equal(t, first.Recommendation, second.Recommendation)
	assert.Equal(t, first.Components, second.Components)
	assert.Equal(t, first.EffectiveWeights, second.EffectiveWeights)
	assert.NotEqual(t, first.EvaluationID, second.EvaluationID)
}

func TestScore_PredictionComponent(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		confidence  float64
		want        float64
	}{
		{"likely pass", 0.9, 0.8, 0.72},
		{"likely fail counts at half", 0.2, 0.8, 0.32},
		{"coin flip is treated as fail", 0.5, 1.0, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := predictionComponent(Available(tt.probability), Available(tt.confidence)).Value()
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	assert.False(t, predictionComponent(Available(0.9), Unavailable()).Available())
	assert.False(t, predictionComponent(Unavailable(), Available(0.9)).Available())
}

func TestScore_TreasuryComponentFloorsAtZero(t *testing.T) {
	s := newTestScorer()

	cs := s.Components(NormalizedSignals{TreasuryImpactRatio: Available(0.75)})
	v, ok := cs.TreasuryImpact.Value()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestScore_ConfidenceLabel(t *testing.T) {
	tests := []struct {
		name       string
		prediction *PredictionSignal
		want       ConfidenceLabel
	}{
		{"high", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.9)}, ConfidenceHigh},
		{"medium", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.6)}, ConfidenceMedium},
		{"low", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.3)}, ConfidenceLow},
		{"exactly high threshold", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.85)}, ConfidenceHigh},
		{"just under high threshold", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.8499)}, ConfidenceMedium},
		{"exactly medium threshold", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.5)}, ConfidenceMedium},
		{"just under medium threshold", &PredictionSignal{Probability: utils.ToPointer(0.7), Confidence: utils.ToPointer(0.4999)}, ConfidenceLow},
		{"no prediction", nil, ConfidenceLow},
		{"confidence without probability", &PredictionSignal{Confidence: utils.ToPointer(0.95)}, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baselineSignals()
			raw.Prediction = tt.prediction

			score, err := newTestScorer().Score(mustNormalize(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, score.Recommendation.Confidence)
		})
	}
}
