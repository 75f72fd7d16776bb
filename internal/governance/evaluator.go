package governance

import (
	"time"

	"dao-governance-scorer/pkg/logger"

	"github.com/google/uuid"
)

// AlertEvaluator runs every rule against the signals. Rules never suppress each other.
type AlertEvaluator struct {
	rules  []Rule
	logger *logger.Logger
	clock  func() time.Time
}

// NewAlertEvaluator builds an evaluator from explicit rules, evaluated in the given order.
func NewAlertEvaluator(log *logger.Logger, rules ...Rule) *AlertEvaluator {
	if log == nil {
		log = logger.NewNop()
	}
	return &AlertEvaluator{rules: rules, logger: log, clock: time.Now}
}

// NewDefaultAlertEvaluator validates the thresholds and wires the standard rule set.
func NewDefaultAlertEvaluator(t AlertThresholds, log *logger.Logger) (*AlertEvaluator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return NewAlertEvaluator(log, DefaultRules(t)...), nil
}

// Rules returns the alert types this evaluator checks, in order.
func (e *AlertEvaluator) Rules() []AlertType {
	types := make([]AlertType, 0, len(e.rules))
	for _, r := range e.rules {
		types = append(types, r.Type())
	}
	return types
}

// Evaluate returns every alert that fired, in rule order. All alerts of one pass share a timestamp.
func (e *AlertEvaluator) Evaluate(ns NormalizedSignals) []Alert {
	return e.EvaluateAt(ns, e.clock())
}

// EvaluateAt is Evaluate against an explicit current time.
func (e *AlertEvaluator) EvaluateAt(ns NormalizedSignals, now time.Time) []Alert {
	now = now.UTC()
	var alerts []Alert
	for _, rule := range e.rules {
		alert, fired := rule.Evaluate(ns, now)
		if !fired {
			continue
		}
		alert.ID = uuid.NewString()
		alerts = append(alerts, alert)
		e.logger.Debug("Alert rule fired",
			logger.StringField("proposal_id", ns.ProposalID),
			logger.StringField("alert_type", string(alert.Type)),
			logger.StringField("severity", string(alert.Severity)))
	}
	return alerts
}
