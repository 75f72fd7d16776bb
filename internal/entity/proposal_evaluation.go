package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ProposalEvaluation is one persisted scoring pass. Rows are never updated;
// a re-evaluation inserts a new row with a new evaluation id.
type ProposalEvaluation struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	EvaluationID          string         `gorm:"unique;not null" json:"evaluation_id"`
	ProposalID            string         `gorm:"index;not null" json:"proposal_id"`
	Title                 string         `json:"title"`
	DAO                   string         `gorm:"column:dao" json:"dao"`
	OverallScore          int            `gorm:"not null" json:"overall_score"`
	Rating                string         `gorm:"not null" json:"rating"`
	Action                string         `gorm:"not null" json:"action"`
	Confidence            string         `gorm:"not null" json:"confidence"`
	Message               string         `json:"message"`
	Components            datatypes.JSON `gorm:"type:jsonb" json:"components"`
	EffectiveWeights      datatypes.JSON `gorm:"type:jsonb" json:"effective_weights"`
	Contributions         datatypes.JSON `gorm:"type:jsonb" json:"weighted_contributions"`
	Suspects              datatypes.JSON `gorm:"type:jsonb" json:"suspects"`
	SuspectFields         pq.StringArray `gorm:"type:text[]" json:"suspect_fields"`
	UnavailableComponents pq.StringArray `gorm:"type:text[]" json:"unavailable_components"`
	ScoredAt              time.Time      `gorm:"index;not null" json:"scored_at"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the ProposalEvaluation model.
func (ProposalEvaluation) TableName() string {
	return "proposal_evaluations"
}
