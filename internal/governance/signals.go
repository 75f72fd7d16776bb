package governance

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProposalStatus is the lifecycle state reported by the governance data provider.
type ProposalStatus string

const (
	StatusActive   ProposalStatus = "active"
	StatusPending  ProposalStatus = "pending"
	StatusClosed   ProposalStatus = "closed"
	StatusPassed   ProposalStatus = "passed"
	StatusFailed   ProposalStatus = "failed"
	StatusExecuted ProposalStatus = "executed"
	StatusCanceled ProposalStatus = "canceled"
)

// ClosedStatuses are the states in which a proposal no longer accepts votes.
var ClosedStatuses = []ProposalStatus{StatusClosed, StatusPassed, StatusFailed, StatusExecuted, StatusCanceled}

// IsOpen reports whether voting is still possible. An unknown status counts as open.
func (s ProposalStatus) IsOpen() bool {
	return !slices.Contains(ClosedStatuses, ProposalStatus(strings.ToLower(string(s))))
}

// PredictionSignal is the outcome-prediction provider's answer for a proposal.
type PredictionSignal struct {
	Probability     *float64 `json:"probability,omitempty" yaml:"probability"`
	Confidence      *float64 `json:"confidence,omitempty" yaml:"confidence"`
	ModelIdentifier string   `json:"model_identifier,omitempty" yaml:"model_identifier"`
}

// SentimentSignal is the already aggregated community sentiment across sources.
type SentimentSignal struct {
	Aggregate     *float64 `json:"aggregate,omitempty" yaml:"aggregate"`
	PositiveRatio *float64 `json:"positive_ratio,omitempty" yaml:"positive_ratio"`
	NegativeRatio *float64 `json:"negative_ratio,omitempty" yaml:"negative_ratio"`
	NeutralRatio  *float64 `json:"neutral_ratio,omitempty" yaml:"neutral_ratio"`
	SampleSize    int      `json:"sample_size" yaml:"sample_size"`
}

// ProposalSignals is the raw, unvalidated input for one evaluation.
// A nil pointer means the signal was not provided; it is never read as zero.
type ProposalSignals struct {
	ProposalID string         `json:"proposal_id" yaml:"proposal_id"`
	Title      string         `json:"title,omitempty" yaml:"title"`
	DAO        string         `json:"dao,omitempty" yaml:"dao"`
	Status     ProposalStatus `json:"status,omitempty" yaml:"status"`

	Prediction *PredictionSignal `json:"prediction,omitempty" yaml:"prediction"`
	Sentiment  *SentimentSignal  `json:"sentiment,omitempty" yaml:"sentiment"`

	ParticipationRate        *float64 `json:"participation_rate,omitempty" yaml:"participation_rate"`
	VotingPowerConcentration *float64 `json:"voting_power_concentration,omitempty" yaml:"voting_power_concentration"`

	RequestedAmount *decimal.Decimal `json:"requested_amount,omitempty" yaml:"requested_amount"`
	TotalTreasury   *decimal.Decimal `json:"total_treasury,omitempty" yaml:"total_treasury"`

	RiskIndicator    *float64   `json:"risk_indicator,omitempty" yaml:"risk_indicator"`
	ExecutionQuality *float64   `json:"execution_quality,omitempty" yaml:"execution_quality"`
	Deadline         *time.Time `json:"deadline,omitempty" yaml:"deadline"`
}
