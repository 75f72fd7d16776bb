package governance

import (
	"time"

	"dao-governance-scorer/pkg/utils"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// baselineSignals is the reference proposal: healthy on every dimension, nothing alarming.
func baselineSignals() ProposalSignals {
	return ProposalSignals{
		ProposalID: "ARB-001",
		Title:      "Marketing Campaign Funding",
		DAO:        "Arbitrum DAO",
		Status:     StatusActive,
		Prediction: &PredictionSignal{
			Probability:     utils.ToPointer(0.78),
			Confidence:      utils.ToPointer(0.85),
			ModelIdentifier: "gbm-v3",
		},
		Sentiment: &SentimentSignal{
			Aggregate:     utils.ToPointer(0.35),
			PositiveRatio: utils.ToPointer(0.55),
			NegativeRatio: utils.ToPointer(0.15),
			NeutralRatio:  utils.ToPointer(0.30),
			SampleSize:    240,
		},
		ParticipationRate:        utils.ToPointer(0.62),
		VotingPowerConcentration: utils.ToPointer(0.05),
		RequestedAmount:          utils.ToPointer(decimal.NewFromInt(50000)),
		TotalTreasury:            utils.ToPointer(decimal.NewFromInt(2000000)),
		RiskIndicator:            utils.ToPointer(0.2),
		ExecutionQuality:         utils.ToPointer(0.8),
		Deadline:                 utils.ToPointer(fixedNow.Add(10 * 24 * time.Hour)),
	}
}

func newTestScorer() *Scorer {
	s, err := NewScorer(DefaultScoringConfig(), nil)
	if err != nil {
		panic(err)
	}
	s.clock = fixedClock
	return s
}

func newTestEvaluator() *AlertEvaluator {
	e, err := NewDefaultAlertEvaluator(DefaultAlertThresholds(), nil)
	if err != nil {
		panic(err)
	}
	e.clock = fixedClock
	return e
}

func newTestEngine(workers int) *Engine {
	e := NewEngineWith(NewNormalizer(nil), newTestScorer(), newTestEvaluator(), workers, nil)
	e.clock = fixedClock
	return e
}

func mustNormalize(raw ProposalSignals) NormalizedSignals {
	ns, err := NewNormalizer(nil).Normalize(raw)
	if err != nil {
		panic(err)
	}
	return ns
}
