package engine

import (
	"sort"

	"github.com/shuweilin/twsignal/internal/domain"
)

// ComposeRanked orders recommendations for the daily report: confidence
// descending, ties broken by grade severity (strong variants before plain
// variants) and then by ticker. The sort is stable and pure, so composing
// the same batch twice yields byte-identical ordering.
func ComposeRanked(recs []domain.Recommendation) []domain.Recommendation {
	out := make([]domain.Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Signal.Confidence != b.Signal.Confidence {
			return a.Signal.Confidence > b.Signal.Confidence
		}
		if sa, sb := a.Signal.Grade.Severity(), b.Signal.Grade.Severity(); sa != sb {
			return sa > sb
		}
		return a.Ticker < b.Ticker
	})
	return out
}

// Consensus intersects two windows' recommendations: an instrument makes the
// list when both windows grade it the same and the shared grade is not hold.
// Output keeps long's ordering and carries long's signal, the stronger
// evidence base.
func Consensus(short, long []domain.Recommendation) []domain.Recommendation {
	grades := make(map[string]domain.Grade, len(short))
	for _, r := range short {
		grades[r.Ticker] = r.Signal.Grade
	}

	var out []domain.Recommendation
	for _, r := range long {
		g, ok := grades[r.Ticker]
		if !ok || g != r.Signal.Grade || g == domain.GradeHold {
			continue
		}
		out = append(out, r)
	}
	return out
}
