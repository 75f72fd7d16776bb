package governance

// Rating is the qualitative bucket of an overall score.
type Rating string

const (
	RatingExcellent Rating = "EXCELLENT"
	RatingGood      Rating = "GOOD"
	RatingModerate  Rating = "MODERATE"
	RatingPoor      Rating = "POOR"
	RatingCritical  Rating = "CRITICAL"
)

// Action is the recommended voting stance.
type Action string

const (
	ActionStrongSupport Action = "STRONG_SUPPORT"
	ActionSupport       Action = "SUPPORT"
	ActionNeutral       Action = "NEUTRAL"
	ActionOppose        Action = "OPPOSE"
	ActionStrongOppose  Action = "STRONG_OPPOSE"
)

// ConfidenceLabel qualifies how much the recommendation can be trusted.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "HIGH"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceLow    ConfidenceLabel = "LOW"
)

// Recommendation is derived deterministically from the rating and the model confidence.
type Recommendation struct {
	Action     Action          `json:"action"`
	Confidence ConfidenceLabel `json:"confidence"`
	Message    string          `json:"message"`
}

var recommendations = map[Rating]struct {
	action  Action
	message string
}{
	RatingExcellent: {ActionStrongSupport, "This proposal shows excellent metrics across all dimensions. Recommended for strong support."},
	RatingGood:      {ActionSupport, "This proposal has strong fundamentals with minor concerns. Recommended for support."},
	RatingModerate:  {ActionNeutral, "This proposal has mixed signals. Further analysis recommended before voting."},
	RatingPoor:      {ActionOppose, "This proposal shows concerning metrics. Opposition recommended unless addressed."},
	RatingCritical:  {ActionStrongOppose, "This proposal presents significant risks and poor metrics. Strong opposition recommended."},
}

// Rate maps a 0-100 score to its bucket. Each bound is inclusive, so a score
// sitting exactly on a threshold lands in the more favorable bucket.
func (t RatingThresholds) Rate(score int) Rating {
	switch {
	case score >= t.Excellent:
		return RatingExcellent
	case score >= t.Good:
		return RatingGood
	case score >= t.Moderate:
		return RatingModerate
	case score >= t.Poor:
		return RatingPoor
	default:
		return RatingCritical
	}
}

// ActionFor returns the action for a rating.
func ActionFor(r Rating) Action {
	return recommendations[r].action
}
