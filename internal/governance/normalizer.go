package governance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"dao-governance-scorer/pkg/logger"

	"github.com/shopspring/decimal"
)

// sentimentRatioTolerance is how far positive+negative+neutral may drift from 1.
const sentimentRatioTolerance = 0.05

// Field names used in suspect annotations.
const (
	FieldPredictionProbability = "prediction.probability"
	FieldPredictionConfidence  = "prediction.confidence"
	FieldSentimentAggregate    = "sentiment.aggregate"
	FieldSentimentPositive     = "sentiment.positive_ratio"
	FieldSentimentNegative     = "sentiment.negative_ratio"
	FieldSentimentNeutral      = "sentiment.neutral_ratio"
	FieldSentimentRatios       = "sentiment.ratios"
	FieldParticipationRate     = "participation_rate"
	FieldVotingConcentration   = "voting_power_concentration"
	FieldRequestedAmount       = "requested_amount"
	FieldTotalTreasury         = "total_treasury"
	FieldTreasuryImpactRatio   = "treasury_impact_ratio"
	FieldRiskIndicator         = "risk_indicator"
	FieldExecutionQuality      = "execution_quality"
)

// SuspectValue records a raw input that was outside its domain. It annotates the
// evaluation and never stops scoring.
type SuspectValue struct {
	Field   string  `json:"field"`
	Raw     float64 `json:"raw"`
	Clamped float64 `json:"clamped"`
	Reason  string  `json:"reason"`
}

// NormalizedSignals are validated signals: every number is in range or unavailable.
type NormalizedSignals struct {
	ProposalID string         `json:"proposal_id"`
	Title      string         `json:"title,omitempty"`
	DAO        string         `json:"dao,omitempty"`
	Status     ProposalStatus `json:"status,omitempty"`

	PredictionProbability Metric `json:"prediction_probability"`
	PredictionConfidence  Metric `json:"prediction_confidence"`
	ModelIdentifier       string `json:"model_identifier,omitempty"`

	SentimentAggregate Metric `json:"sentiment_aggregate"`
	PositiveRatio      Metric `json:"positive_ratio"`
	NegativeRatio      Metric `json:"negative_ratio"`
	NeutralRatio       Metric `json:"neutral_ratio"`
	SentimentSamples   int    `json:"sentiment_samples"`

	ParticipationRate   Metric `json:"participation_rate"`
	VotingConcentration Metric `json:"voting_concentration"`
	RiskIndicator       Metric `json:"risk_indicator"`
	ExecutionQuality    Metric `json:"execution_quality"`

	// RequestedAmount is nil when the provider did not report it.
	RequestedAmount *decimal.Decimal `json:"requested_amount,omitempty"`
	// RawTreasuryRatio is requested/total before clamping.
	RawTreasuryRatio Metric `json:"raw_treasury_ratio"`
	// TreasuryImpactRatio is RawTreasuryRatio clamped to [0,1].
	TreasuryImpactRatio Metric `json:"treasury_impact_ratio"`

	Deadline *time.Time `json:"deadline,omitempty"`
	Open     bool       `json:"open"`

	Suspects []SuspectValue `json:"suspects,omitempty"`
}

// SuspectFields returns the distinct field names that were annotated.
func (s NormalizedSignals) SuspectFields() []string {
	seen := make(map[string]bool, len(s.Suspects))
	var fields []string
	for _, sv := range s.Suspects {
		if !seen[sv.Field] {
			seen[sv.Field] = true
			fields = append(fields, sv.Field)
		}
	}
	return fields
}

// Normalizer validates raw signals. It holds no state besides its logger.
type Normalizer struct {
	logger *logger.Logger
}

func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{logger: log}
}

// Normalize clamps every numeric field into its domain and marks missing ones unavailable.
// Only a missing proposal id fails the evaluation.
func (n *Normalizer) Normalize(raw ProposalSignals) (NormalizedSignals, error) {
	id := strings.TrimSpace(raw.ProposalID)
	if id == "" {
		return NormalizedSignals{}, fmt.Errorf("%w: proposal id is required", ErrInvalidInput)
	}

	ns := NormalizedSignals{
		ProposalID: id,
		Title:      raw.Title,
		DAO:        raw.DAO,
		Status:     raw.Status,
		Open:       raw.Status.IsOpen(),
		Deadline:   raw.Deadline,
	}

	if raw.Prediction != nil {
		ns.PredictionProbability = n.unit(&ns, FieldPredictionProbability, raw.Prediction.Probability, 0, 1)
		ns.PredictionConfidence = n.unit(&ns, FieldPredictionConfidence, raw.Prediction.Confidence, 0, 1)
		ns.ModelIdentifier = raw.Prediction.ModelIdentifier
	}

	if raw.Sentiment != nil {
		n.normalizeSentiment(&ns, raw.Sentiment)
	}

	ns.ParticipationRate = n.unit(&ns, FieldParticipationRate, raw.ParticipationRate, 0, 1)
	ns.VotingConcentration = n.unit(&ns, FieldVotingConcentration, raw.VotingPowerConcentration, 0, 1)
	ns.RiskIndicator = n.unit(&ns, FieldRiskIndicator, raw.RiskIndicator, 0, 1)
	ns.ExecutionQuality = n.unit(&ns, FieldExecutionQuality, raw.ExecutionQuality, 0, 1)

	n.normalizeTreasury(&ns, raw.RequestedAmount, raw.TotalTreasury)

	for _, sv := range ns.Suspects {
		n.logger.Warn("Suspect signal value clamped",
			logger.StringField("proposal_id", id),
			logger.StringField("field", sv.Field),
			logger.Float64Field("raw", sv.Raw),
			logger.Float64Field("clamped", sv.Clamped),
			logger.StringField("reason", sv.Reason))
	}

	return ns, nil
}

func (n *Normalizer) normalizeSentiment(ns *NormalizedSignals, s *SentimentSignal) {
	ns.SentimentSamples = s.SampleSize
	ns.PositiveRatio = n.unit(ns, FieldSentimentPositive, s.PositiveRatio, 0, 1)
	ns.NegativeRatio = n.unit(ns, FieldSentimentNegative, s.NegativeRatio, 0, 1)
	ns.NeutralRatio = n.unit(ns, FieldSentimentNeutral, s.NeutralRatio, 0, 1)

	// An empty collection window is "not collected yet", not neutral sentiment.
	if s.Aggregate == nil && s.SampleSize == 0 {
		ns.SentimentAggregate = Unavailable()
		return
	}
	ns.SentimentAggregate = n.unit(ns, FieldSentimentAggregate, s.Aggregate, -1, 1)

	pos, okPos := ns.PositiveRatio.Value()
	neg, okNeg := ns.NegativeRatio.Value()
	neu, okNeu := ns.NeutralRatio.Value()
	if okPos && okNeg && okNeu {
		sum := pos + neg + neu
		if math.Abs(sum-1) > sentimentRatioTolerance {
			ns.Suspects = append(ns.Suspects, SuspectValue{
				Field:   FieldSentimentRatios,
				Raw:     sum,
				Clamped: sum,
				Reason:  "ratios do not sum to 1",
			})
		}
	}
}

func (n *Normalizer) normalizeTreasury(ns *NormalizedSignals, requested, total *decimal.Decimal) {
	if requested != nil {
		amount := *requested
		if amount.IsNegative() {
			f, _ := amount.Float64()
			ns.Suspects = append(ns.Suspects, SuspectValue{
				Field:  FieldRequestedAmount,
				Raw:    f,
				Reason: "below 0",
			})
			amount = decimal.Zero
		}
		ns.RequestedAmount = &amount
	}

	if ns.RequestedAmount == nil || total == nil {
		return
	}
	if !total.IsPositive() {
		if total.IsNegative() {
			f, _ := total.Float64()
			ns.Suspects = append(ns.Suspects, SuspectValue{
				Field:  FieldTotalTreasury,
				Raw:    f,
				Reason: "below 0",
			})
		}
		// Zero or negative treasury: the ratio is undefined rather than infinite.
		return
	}

	ratio, _ := ns.RequestedAmount.DivRound(*total, 12).Float64()
	ns.RawTreasuryRatio = Available(ratio)
	ns.TreasuryImpactRatio = n.clampInto(ns, FieldTreasuryImpactRatio, ratio, 0, 1)
}

// unit normalizes an optional value into [lo,hi].
func (n *Normalizer) unit(ns *NormalizedSignals, field string, v *float64, lo, hi float64) Metric {
	if v == nil {
		return Unavailable()
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		ns.Suspects = append(ns.Suspects, SuspectValue{
			Field:  field,
			Raw:    0,
			Reason: "not a finite number",
		})
		return Unavailable()
	}
	return n.clampInto(ns, field, *v, lo, hi)
}

func (n *Normalizer) clampInto(ns *NormalizedSignals, field string, v, lo, hi float64) Metric {
	clamped := clamp(v, lo, hi)
	if clamped != v {
		reason := fmt.Sprintf("above %g", hi)
		if v < lo {
			reason = fmt.Sprintf("below %g", lo)
		}
		ns.Suspects = append(ns.Suspects, SuspectValue{
			Field:   field,
			Raw:     v,
			Clamped: clamped,
			Reason:  reason,
		})
	}
	return Available(clamped)
}
