package entity

import "time"

// ProposalAlert is an alert emitted during an evaluation pass. EvaluationID is
// nil when the proposal had too little data to be scored.
type ProposalAlert struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AlertID        string    `gorm:"unique;not null" json:"alert_id"`
	EvaluationID   *string   `gorm:"index" json:"evaluation_id,omitempty"`
	ProposalID     string    `gorm:"index;not null" json:"proposal_id"`
	Severity       string    `gorm:"not null" json:"severity"`
	Type           string    `gorm:"not null" json:"type"`
	Message        string    `gorm:"not null" json:"message"`
	Recommendation string    `json:"recommendation"`
	TriggeredAt    time.Time `gorm:"index;not null" json:"triggered_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ProposalAlert) TableName() string {
	return "proposal_alerts"
}
