package governance

import (
	"slices"
	"strings"
	"time"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityInfo     Severity = "INFO"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityInfo:     3,
}

// Rank orders severities from most (0) to least urgent. Unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// AtLeast reports whether s is as urgent as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() <= min.Rank()
}

// ParseSeverity accepts any casing.
func ParseSeverity(v string) (Severity, bool) {
	s := Severity(strings.ToUpper(strings.TrimSpace(v)))
	_, ok := severityRank[s]
	return s, ok
}

// AlertType enumerates the rule set.
type AlertType string

const (
	AlertHighVotingConcentration  AlertType = "HIGH_VOTING_CONCENTRATION"
	AlertLargeTreasuryRequest     AlertType = "LARGE_TREASURY_REQUEST"
	AlertNegativeSentiment        AlertType = "NEGATIVE_SENTIMENT"
	AlertHighRisk                 AlertType = "HIGH_RISK"
	AlertDeadlineApproaching      AlertType = "DEADLINE_APPROACHING"
	AlertHighConfidencePrediction AlertType = "HIGH_CONFIDENCE_PREDICTION"
)

// Alert is an append-only fact emitted by one rule for one proposal.
type Alert struct {
	ID             string    `json:"id"`
	Severity       Severity  `json:"severity"`
	Type           AlertType `json:"type"`
	Message        string    `json:"message"`
	ProposalID     string    `json:"proposal_id"`
	TriggeredAt    time.Time `json:"triggered_at"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// SortBySeverity returns a copy ordered most urgent first; rule order is kept within a severity.
func SortBySeverity(alerts []Alert) []Alert {
	out := slices.Clone(alerts)
	slices.SortStableFunc(out, func(a, b Alert) int {
		return a.Severity.Rank() - b.Severity.Rank()
	})
	return out
}

// FilterBySeverity keeps only alerts of exactly the given severity.
func FilterBySeverity(alerts []Alert, severity Severity) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out
}

// Actionable drops informational alerts.
func Actionable(alerts []Alert) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Severity.AtLeast(SeverityMedium) {
			out = append(out, a)
		}
	}
	return out
}
