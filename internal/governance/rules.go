package governance

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Rule is a single independent threshold predicate. Evaluate returns false when
// the rule does not fire, including when a signal it needs is unavailable.
type Rule interface {
	Type() AlertType
	Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool)
}

// DefaultRules builds the standard rule set in evaluation order, skipping disabled rules.
func DefaultRules(t AlertThresholds) []Rule {
	all := []Rule{
		&votingConcentrationRule{threshold: t.VotingConcentration},
		&largeTreasuryRule{threshold: decimal.NewFromFloat(t.LargeTreasuryRequest)},
		&negativeSentimentRule{threshold: t.NegativeSentiment},
		&highRiskRule{threshold: t.HighRisk},
		&deadlineRule{window: t.DeadlineWindow},
		&highConfidencePredictionRule{threshold: t.HighConfidencePrediction},
	}
	rules := make([]Rule, 0, len(all))
	for _, r := range all {
		if !t.isDisabled(r.Type()) {
			rules = append(rules, r)
		}
	}
	return rules
}

func newAlert(ns NormalizedSignals, now time.Time, severity Severity, alertType AlertType, message, recommendation string) Alert {
	return Alert{
		Severity:       severity,
		Type:           alertType,
		Message:        fmt.Sprintf("Proposal %s: %s", ns.ProposalID, message),
		ProposalID:     ns.ProposalID,
		TriggeredAt:    now,
		Recommendation: recommendation,
	}
}

type votingConcentrationRule struct {
	threshold float64
}

func (r *votingConcentrationRule) Type() AlertType { return AlertHighVotingConcentration }

func (r *votingConcentrationRule) Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool) {
	v, ok := ns.VotingConcentration.Value()
	if !ok || v <= r.threshold {
		return Alert{}, false
	}
	return newAlert(ns, now, SeverityCritical, r.Type(),
		fmt.Sprintf("Top voter holds %.1f%% of voting power", v*100),
		"Review delegate distribution; outcome may be decided by a single holder."), true
}

type largeTreasuryRule struct {
	threshold decimal.Decimal
}

func (r *largeTreasuryRule) Type() AlertType { return AlertLargeTreasuryRequest }

func (r *largeTreasuryRule) Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool) {
	if ns.RequestedAmount == nil || !ns.RequestedAmount.GreaterThan(r.threshold) {
		return Alert{}, false
	}
	msg := fmt.Sprintf("Requesting $%s from treasury", humanize.Comma(ns.RequestedAmount.Round(0).IntPart()))
	if ratio, ok := ns.RawTreasuryRatio.Value(); ok {
		msg += fmt.Sprintf(" (%.1f%% of total)", ratio*100)
	}
	return newAlert(ns, now, SeverityCritical, r.Type(), msg,
		"Verify budget breakdown and milestone-based disbursement."), true
}

type negativeSentimentRule struct {
	threshold float64
}

func (r *negativeSentimentRule) Type() AlertType { return AlertNegativeSentiment }

func (r *negativeSentimentRule) Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool) {
	v, ok := ns.SentimentAggregate.Value()
	if !ok || v >= r.threshold {
		return Alert{}, false
	}
	return newAlert(ns, now, SeverityMedium, r.Type(),
		fmt.Sprintf("Negative community sentiment detected (%.2f)", v),
		"Read the discussion threads before voting."), true
}

type highRiskRule struct {
	threshold float64
}

func (r *highRiskRule) Type() AlertType { return AlertHighRisk }

func (r *highRiskRule) Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool) {
	v, ok := ns.RiskIndicator.Value()
	if !ok || v <= r.threshold {
		return Alert{}, false
	}
	return newAlert(ns, now, SeverityHigh, r.Type(),
		fmt.Sprintf("High risk score (%.2f)", v),
		"Request an audit or risk assessment before supporting."), true
}

type deadlineRule struct {
	window time.Duration
}

func (r *deadlineRule) Type() AlertType { return AlertDeadlineApproaching }

func (r *deadlineRule) Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool) {
	if ns.Deadline == nil || !ns.Open {
		return Alert{}, false
	}
	remaining := ns.Deadline.Sub(now)
	if remaining <= 0 || remaining >= r.window {
		return Alert{}, false
	}
	return newAlert(ns, now, SeverityHigh, r.Type(),
		fmt.Sprintf("Voting ends in %.1f hours", remaining.Hours()),
		"Cast or delegate your vote before the deadline."), true
}

type highConfidencePredictionRule struct {
	threshold float64
}

func (r *highConfidencePredictionRule) Type() AlertType { return AlertHighConfidencePrediction }

func (r *highConfidencePredictionRule) Evaluate(ns NormalizedSignals, now time.Time) (Alert, bool) {
	c, ok := ns.PredictionConfidence.Value()
	if !ok || c <= r.threshold {
		return Alert{}, false
	}
	outcome := "FAIL"
	if p, ok := ns.PredictionProbability.Value(); ok && p > 0.5 {
		outcome = "PASS"
	} else if !ok {
		outcome = "resolve"
	}
	return newAlert(ns, now, SeverityInfo, r.Type(),
		fmt.Sprintf("Predicted to %s with %.1f%% confidence", outcome, c*100), ""), true
}
