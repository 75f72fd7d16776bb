package governance

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// weightSumTolerance is how far configured weights may drift from 1.0.
const weightSumTolerance = 0.01

var validate = validator.New(validator.WithRequiredStructEnabled())

// Weights are the declared component weights. They must sum to 1.
type Weights struct {
	PredictionConfidence float64 `mapstructure:"prediction_confidence" json:"prediction_confidence" validate:"gte=0,lte=1"`
	Sentiment            float64 `mapstructure:"sentiment" json:"sentiment" validate:"gte=0,lte=1"`
	Participation        float64 `mapstructure:"participation" json:"participation" validate:"gte=0,lte=1"`
	RiskAssessment       float64 `mapstructure:"risk_assessment" json:"risk_assessment" validate:"gte=0,lte=1"`
	TreasuryImpact       float64 `mapstructure:"treasury_impact" json:"treasury_impact" validate:"gte=0,lte=1"`
	ExecutionQuality     float64 `mapstructure:"execution_quality" json:"execution_quality" validate:"gte=0,lte=1"`
}

// Of returns the declared weight for a component.
func (w Weights) Of(c Component) float64 {
	switch c {
	case ComponentPredictionConfidence:
		return w.PredictionConfidence
	case ComponentSentiment:
		return w.Sentiment
	case ComponentParticipation:
		return w.Participation
	case ComponentRiskAssessment:
		return w.RiskAssessment
	case ComponentTreasuryImpact:
		return w.TreasuryImpact
	case ComponentExecutionQuality:
		return w.ExecutionQuality
	}
	return 0
}

func (w Weights) Sum() float64 {
	var total float64
	for _, c := range Components {
		total += w.Of(c)
	}
	return total
}

// RatingThresholds are inclusive lower bounds on the 0-100 scale.
type RatingThresholds struct {
	Excellent int `mapstructure:"excellent" json:"excellent" validate:"lte=100,gtfield=Good"`
	Good      int `mapstructure:"good" json:"good" validate:"gtfield=Moderate"`
	Moderate  int `mapstructure:"moderate" json:"moderate" validate:"gtfield=Poor"`
	Poor      int `mapstructure:"poor" json:"poor" validate:"gte=0"`
}

// ScoringConfig parameterises the composite scorer.
type ScoringConfig struct {
	Weights Weights          `mapstructure:"weights" json:"weights"`
	Ratings RatingThresholds `mapstructure:"ratings" json:"ratings"`

	// TreasuryRatioPenalty scales the requested/treasury ratio before it is inverted.
	TreasuryRatioPenalty float64 `mapstructure:"treasury_ratio_penalty" json:"treasury_ratio_penalty" validate:"gt=0"`

	HighConfidenceLabel   float64 `mapstructure:"high_confidence_label" json:"high_confidence_label" validate:"gte=0,lte=1,gtefield=MediumConfidenceLabel"`
	MediumConfidenceLabel float64 `mapstructure:"medium_confidence_label" json:"medium_confidence_label" validate:"gte=0,lte=1"`
}

// DefaultScoringConfig returns the declared production weights and thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			PredictionConfidence: 0.25,
			Sentiment:            0.20,
			Participation:        0.15,
			RiskAssessment:       0.20,
			TreasuryImpact:       0.10,
			ExecutionQuality:     0.10,
		},
		Ratings: RatingThresholds{
			Excellent: 80,
			Good:      65,
			Moderate:  50,
			Poor:      35,
		},
		TreasuryRatioPenalty:  2.0,
		HighConfidenceLabel:   0.85,
		MediumConfidenceLabel: 0.5,
	}
}

// Validate checks ranges and that the weights sum to 1.
func (c ScoringConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: scoring config: %v", ErrInvalidInput, err)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %.4f", ErrInvalidInput, sum)
	}
	return nil
}

// AlertThresholds parameterises the default rule set.
type AlertThresholds struct {
	VotingConcentration      float64       `mapstructure:"voting_concentration" json:"voting_concentration" validate:"gte=0,lte=1"`
	LargeTreasuryRequest     float64       `mapstructure:"large_treasury_request" json:"large_treasury_request" validate:"gte=0"`
	NegativeSentiment        float64       `mapstructure:"negative_sentiment" json:"negative_sentiment" validate:"gte=-1,lte=1"`
	HighRisk                 float64       `mapstructure:"high_risk" json:"high_risk" validate:"gte=0,lte=1"`
	DeadlineWindow           time.Duration `mapstructure:"deadline_window" json:"deadline_window" validate:"gt=0"`
	HighConfidencePrediction float64       `mapstructure:"high_confidence_prediction" json:"high_confidence_prediction" validate:"gte=0,lte=1"`

	DisabledRules []AlertType `mapstructure:"disabled_rules" json:"disabled_rules,omitempty" validate:"dive,oneof=HIGH_VOTING_CONCENTRATION LARGE_TREASURY_REQUEST NEGATIVE_SENTIMENT HIGH_RISK DEADLINE_APPROACHING HIGH_CONFIDENCE_PREDICTION"`
}

// DefaultAlertThresholds returns the thresholds used by the alert manager in production.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		VotingConcentration:      0.10,
		LargeTreasuryRequest:     100000,
		NegativeSentiment:        -0.3,
		HighRisk:                 0.7,
		DeadlineWindow:           24 * time.Hour,
		HighConfidencePrediction: 0.8,
	}
}

func (t AlertThresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: alert thresholds: %v", ErrInvalidInput, err)
	}
	return nil
}

func (t AlertThresholds) isDisabled(alertType AlertType) bool {
	for _, d := range t.DisabledRules {
		if d == alertType {
			return true
		}
	}
	return false
}
