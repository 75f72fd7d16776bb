package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ProposalSignalSnapshot keeps the most recent raw signals received for a proposal,
// so open proposals can be re-evaluated as their deadline approaches.
type ProposalSignalSnapshot struct {
	ProposalID string         `gorm:"primaryKey" json:"proposal_id"`
	DAO        string         `gorm:"column:dao" json:"dao"`
	Status     string         `json:"status"`
	Deadline   *time.Time     `gorm:"index" json:"deadline,omitempty"`
	Signals    datatypes.JSON `gorm:"type:jsonb;not null" json:"signals"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProposalSignalSnapshot) TableName() string {
	return "proposal_signal_snapshots"
}
