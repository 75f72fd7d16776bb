package dto

import (
	"time"

	"dao-governance-scorer/internal/governance"
)

// EvaluateRequest is the body of a batch evaluation call.
type EvaluateRequest struct {
	Proposals []governance.ProposalSignals `json:"proposals" validate:"required,min=1"`
	// Limit caps the returned leaderboard; zero means the configured default.
	Limit int `json:"limit" validate:"gte=0"`
}

// EvaluateResponse is the persisted outcome of a batch evaluation.
// Unsaved lists the proposals whose evaluation could not be stored.
type EvaluateResponse struct {
	Evaluations []governance.Evaluation     `json:"evaluations"`
	Leaderboard []governance.CompositeScore `json:"leaderboard"`
	Omitted     []governance.Omission       `json:"omitted,omitempty"`
	Unsaved     []string                    `json:"unsaved,omitempty"`
	EvaluatedAt time.Time                   `json:"evaluated_at"`
}

// EvaluationHistoryResponse is one stored scoring pass of a proposal.
type EvaluationHistoryResponse struct {
	EvaluationID          string                           `json:"evaluation_id"`
	ProposalID            string                           `json:"proposal_id"`
	OverallScore          int                              `json:"overall_score"`
	Rating                governance.Rating                `json:"rating"`
	Recommendation        governance.Recommendation        `json:"recommendation"`
	Components            governance.ComponentScores       `json:"components"`
	EffectiveWeights      map[governance.Component]float64 `json:"effective_weights"`
	UnavailableComponents []string                         `json:"unavailable_components,omitempty"`
	SuspectFields         []string                         `json:"suspect_fields,omitempty"`
	ScoredAt              time.Time                        `json:"scored_at"`
}
