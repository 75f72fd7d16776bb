package dto

import (
	"time"

	"dao-governance-scorer/internal/governance"
)

// LeaderboardEntry is one ranked proposal, using its latest evaluation.
type LeaderboardEntry struct {
	Rank         int                        `json:"rank"`
	EvaluationID string                     `json:"evaluation_id"`
	ProposalID   string                     `json:"proposal_id"`
	Title        string                     `json:"title,omitempty"`
	DAO          string                     `json:"dao,omitempty"`
	OverallScore int                        `json:"overall_score"`
	Rating       governance.Rating          `json:"rating"`
	Action       governance.Action          `json:"action"`
	Confidence   governance.ConfidenceLabel `json:"confidence"`
	ScoredAt     time.Time                  `json:"scored_at"`
}

// LeaderboardResponse is the ranked view over the latest evaluation of every proposal.
type LeaderboardResponse struct {
	Limit   int                `json:"limit"`
	Entries []LeaderboardEntry `json:"entries"`
}
