package governance

import (
	"cmp"
	"fmt"
	"slices"
)

// Rank orders scores for leaderboard display: highest overall score first,
// earlier ScoredAt first on ties, then proposal id. The input is not modified.
// A non-positive limit is a caller error, not an empty leaderboard.
func Rank(scores []CompositeScore, limit int) ([]CompositeScore, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: ranking limit must be positive, got %d", ErrInvalidInput, limit)
	}

	ranked := slices.Clone(scores)
	slices.SortStableFunc(ranked, compareForRanking)

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func compareForRanking(a, b CompositeScore) int {
	if c := cmp.Compare(b.OverallScore, a.OverallScore); c != 0 {
		return c
	}
	if c := a.ScoredAt.Compare(b.ScoredAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ProposalID, b.ProposalID)
}
