// Package digest renders evaluation results as plain-text messages for the
// CLI and for chat-style notification transports.
package digest

import (
	"fmt"
	"strings"
	"time"

	"dao-governance-scorer/internal/governance"

	"github.com/dustin/go-humanize"
)

// MaxMessageLen keeps every part under common chat message limits.
const MaxMessageLen = 4090

var severityIcons = map[governance.Severity]string{
	governance.SeverityCritical: "🚨",
	governance.SeverityHigh:     "🔴",
	governance.SeverityMedium:   "🟡",
	governance.SeverityInfo:     "ℹ️",
}

func actionIcon(a governance.Action) string {
	switch a {
	case governance.ActionStrongSupport, governance.ActionSupport:
		return "🟢"
	case governance.ActionOppose, governance.ActionStrongOppose:
		return "🔴"
	default:
		return "🟡"
	}
}

// FormatLeaderboard renders ranked scores, one block per proposal.
func FormatLeaderboard(scores []governance.CompositeScore, now time.Time) string {
	if len(scores) == 0 {
		return "No scored proposals."
	}

	var b strings.Builder
	b.WriteString("🏛  Governance Leaderboard\n\n")
	for i, s := range scores {
		name := s.ProposalID
		if s.Title != "" {
			name = fmt.Sprintf("%s (%s)", s.ProposalID, s.Title)
		}
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, name))
		if s.DAO != "" {
			b.WriteString(fmt.Sprintf("   DAO: %s\n", s.DAO))
		}
		b.WriteString(fmt.Sprintf("   Score: %d/100 %s\n", s.OverallScore, s.Rating))
		b.WriteString(fmt.Sprintf("   %s Action: %s (confidence %s)\n", actionIcon(s.Recommendation.Action), s.Recommendation.Action, s.Recommendation.Confidence))
		if missing := s.Components.Unavailable(); len(missing) > 0 {
			names := make([]string, 0, len(missing))
			for _, c := range missing {
				names = append(names, string(c))
			}
			b.WriteString(fmt.Sprintf("   Missing: %s\n", strings.Join(names, ", ")))
		}
		b.WriteString(fmt.Sprintf("   Scored %s\n", humanize.RelTime(s.ScoredAt, now, "ago", "from now")))
	}
	return b.String()
}

// FormatScore renders the component breakdown of a single score.
func FormatScore(s governance.CompositeScore) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("--- %s ---\n", s.ProposalID))
	b.WriteString(fmt.Sprintf("Overall: %d/100 (%s)\n", s.OverallScore, s.Rating))
	for _, c := range governance.Components {
		v, ok := s.Components.Get(c).Value()
		if !ok {
			b.WriteString(fmt.Sprintf("  %-22s n/a\n", c))
			continue
		}
		b.WriteString(fmt.Sprintf("  %-22s %.3f  (weight %.3f)\n", c, v, s.EffectiveWeights[c]))
	}
	b.WriteString(fmt.Sprintf("%s %s\n", actionIcon(s.Recommendation.Action), s.Recommendation.Message))
	return b.String()
}

// FormatAlerts renders alerts most severe first, split into parts no longer
// than maxLen. A non-positive maxLen means MaxMessageLen. An alert longer than
// maxLen on its own gets a part of its own.
func FormatAlerts(alerts []governance.Alert, maxLen int) []string {
	if len(alerts) == 0 {
		return []string{"No alerts."}
	}
	if maxLen <= 0 {
		maxLen = MaxMessageLen
	}

	var messages []string
	var current strings.Builder
	part := 1
	headerLen := 0

	startNewPart := func() {
		defer func() { headerLen = current.Len() }()
		current.Reset()
		if part == 1 {
			current.WriteString("⚠️  Governance Alerts\n\n")
		} else {
			current.WriteString(fmt.Sprintf("--- Governance Alerts part %d ---\n\n", part))
		}
	}
	startNewPart()

	for _, a := range governance.SortBySeverity(alerts) {
		var entry strings.Builder
		icon, ok := severityIcons[a.Severity]
		if !ok {
			icon = "•"
		}
		entry.WriteString(fmt.Sprintf("%s [%s] %s\n", icon, a.Severity, a.Type))
		entry.WriteString(fmt.Sprintf("   %s\n", a.Message))
		if a.Recommendation != "" {
			entry.WriteString(fmt.Sprintf("   → %s\n", a.Recommendation))
		}
		entry.WriteString("\n")

		// An entry too long for any part is sent alone rather than after an empty header.
		if current.Len() > headerLen && current.Len()+entry.Len() > maxLen {
			messages = append(messages, current.String())
			part++
			startNewPart()
		}
		current.WriteString(entry.String())
	}

	return append(messages, current.String())
}
