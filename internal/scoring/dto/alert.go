package dto

import "dao-governance-scorer/internal/governance"

// AlertParam filters stored alerts. Empty fields do not filter.
type AlertParam struct {
	Severity   governance.Severity
	ProposalID string
	Limit      int
}
