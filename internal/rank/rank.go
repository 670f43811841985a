// Package rank orders criteria by estimated restrictiveness so the most
// constraining ones are applied first, shrinking the search area before the
// expensive feature-provider queries run.
package rank

import (
	"sort"

	"github.com/atashie/locationAnalyzer/internal/model"
)

// Order returns a copy of criteria stably sorted ascending by
// (type rank, mode rank, effective radius in miles).
//
// Specific named locations rank before POI-type searches: a single point is
// maximally restrictive, a tag search yields many candidate points. Within a
// type, shorter nominal reach comes first.
func Order(criteria []model.Criterion) []model.Criterion {
	out := make([]model.Criterion, len(criteria))
	copy(out, criteria)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b model.Criterion) bool {
	ta, tb := typeRank(a), typeRank(b)
	if ta != tb {
		return ta < tb
	}
	ma, mb := a.Mode.Rank(), b.Mode.Rank()
	if ma != mb {
		return ma < mb
	}
	return a.EffectiveRadiusMiles() < b.EffectiveRadiusMiles()
}

func typeRank(c model.Criterion) int {
	if c.Kind == model.KindLocation {
		return 0
	}
	return 1
}
