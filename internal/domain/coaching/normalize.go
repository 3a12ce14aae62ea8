package coaching

import (
	"sort"

	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

// Dedupe keeps one suggestion per field: the lowest priority, then a target over a
// delta, then the earliest. Survivors keep their input order.
func Dedupe(in []model.Suggestion) []model.Suggestion {
	kept := dedupeIndex(in)
	out := make([]model.Suggestion, len(kept))
	for i, idx := range kept {
		out[i] = in[idx]
	}
	return out
}

func dedupeIndex(in []model.Suggestion) []int {
	best := make(map[model.Field]int, len(in))
	for i, s := range in {
		j, seen := best[s.Field]
		if !seen || preferred(s, in[j]) {
			best[s.Field] = i
		}
	}
	kept := make([]int, 0, len(best))
	for _, idx := range best {
		kept = append(kept, idx)
	}
	sort.Ints(kept)
	return kept
}

// preferred reports whether a should replace the current best b.
func preferred(a, b model.Suggestion) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.HasTarget() && !b.HasTarget()
}

// Normalize clamps and rounds every suggestion to lim and drops the ones that are
// not actionable: no value at all, or a delta that rounds to zero.
func Normalize(in []model.Suggestion, lim Limits) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(in))
	for _, s := range in {
		if n, ok := normalizeOne(s, lim); ok {
			out = append(out, n)
		}
	}
	return out
}

func normalizeOne(s model.Suggestion, lim Limits) (model.Suggestion, bool) {
	switch {
	case s.Target != nil:
		v := *s.Target
		if r, ok := lim.Target[s.Field]; ok {
			v = mathutil.Round(mathutil.Clamp(v, r.Min, r.Max), r.Decimals)
		}
		s.Target = mathutil.Ptr(v)
		s.Delta = nil
		return s, true
	case s.Delta != nil:
		v := *s.Delta
		if r, ok := lim.Delta[s.Field]; ok {
			v = mathutil.Round(mathutil.Clamp(v, r.Min, r.Max), r.Decimals)
		}
		if v == 0 {
			return s, false
		}
		s.Delta = mathutil.Ptr(v)
		return s, true
	default:
		return s, false
	}
}

// SortByPriority orders suggestions by ascending priority, keeping input order for
// ties.
func SortByPriority(in []model.Suggestion) []model.Suggestion {
	out := append([]model.Suggestion(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Truncate returns at most n suggestions.
func Truncate(in []model.Suggestion, n int) []model.Suggestion {
	if n >= 0 && len(in) > n {
		return in[:n]
	}
	return in
}
