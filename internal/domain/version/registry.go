// Package version tracks the algorithm versions that produced a stored snapshot
// and decides when a snapshot must be recomputed.
package version

import (
	"sort"
	"strings"
	"time"
)

// Kind selects which registry a version belongs to.
type Kind string

// Registry kinds.
const (
	KindExtraction Kind = "extraction"
	KindCoaching   Kind = "coaching"
)

// Info describes one released algorithm version.
type Info struct {
	Version         string    `json:"version"`
	ReleaseDate     time.Time `json:"releaseDate"`
	Description     string    `json:"description"`
	BreakingChanges bool      `json:"breakingChanges"`
}

// Registry is an immutable set of versions with one current entry.
type Registry struct {
	current  string
	versions map[string]Info
}

// NewRegistry builds a registry. current must be one of infos.
func NewRegistry(current string, infos ...Info) Registry {
	r := Registry{current: current, versions: make(map[string]Info, len(infos))}
	for _, info := range infos {
		r.versions[info.Version] = info
	}
	return r
}

// Current returns the current version string.
func (r Registry) Current() string {
	return r.current
}

// Lookup returns the info for v.
func (r Registry) Lookup(v string) (Info, bool) {
	info, ok := r.versions[v]
	return info, ok
}

// All returns every version ordered by release date, oldest first.
func (r Registry) All() []Info {
	out := make([]Info, 0, len(r.versions))
	for _, info := range r.versions {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReleaseDate.Equal(out[j].ReleaseDate) {
			return out[i].Version < out[j].Version
		}
		return out[i].ReleaseDate.Before(out[j].ReleaseDate)
	})
	return out
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Extraction is the classifier version registry.
var Extraction = NewRegistry("extract-2025.10.03",
	Info{Version: "extract-2025.01.15", ReleaseDate: day("2025-01-15"), Description: "Taste-only weighted score.", BreakingChanges: true},
	Info{Version: "extract-2025.06.01", ReleaseDate: day("2025-06-01"), Description: "Shot time and ratio guards."},
	Info{Version: "extract-2025.10.03", ReleaseDate: day("2025-10-03"), Description: "Roast-aware weights, deadband and confidence tiers."},
)

// Coaching is the suggestion engine version registry.
var Coaching = NewRegistry("rule-v1.1.0",
	Info{Version: "rule-v1.0.0", ReleaseDate: day("2025-02-01"), Description: "Per-dimension rules with roast thresholds."},
	Info{Version: "rule-v1.1.0", ReleaseDate: day("2025-10-03"), Description: "Roast bias and extraction-direction ranking."},
	Info{Version: "ai-v0.1.0", ReleaseDate: day("2025-08-20"), Description: "Alternate provider suggestions."},
	Info{Version: "hybrid-v1.0.0", ReleaseDate: day("2025-10-03"), Description: "Rule suggestions merged with alternate provider output."},
)

// CurrentFor returns the coaching version reported for mode.
func CurrentFor(mode string) string {
	switch mode {
	case "ai":
		return "ai-v0.1.0"
	case "hybrid":
		return "hybrid-v1.0.0"
	default:
		return Coaching.Current()
	}
}

// Family is the part of a coaching version before the first "-".
func Family(v string) string {
	family, _, _ := strings.Cut(v, "-")
	return family
}

// ShouldRegenerateSnapshot reports whether a snapshot stored under stored must be
// recomputed now that current is in effect. Unknown versions never trigger.
//
// Extraction snapshots regenerate when current was released after stored or stored
// is flagged as breaking, but never when stored is the newer one. Coaching
// snapshots regenerate on a family change only.
func ShouldRegenerateSnapshot(current, stored string, kind Kind) bool {
	switch kind {
	case KindExtraction:
		cur, ok := Extraction.Lookup(current)
		if !ok {
			return false
		}
		old, ok := Extraction.Lookup(stored)
		if !ok {
			return false
		}
		if old.ReleaseDate.After(cur.ReleaseDate) {
			return false
		}
		return cur.ReleaseDate.After(old.ReleaseDate) || old.BreakingChanges
	case KindCoaching:
		if _, ok := Coaching.Lookup(current); !ok {
			return false
		}
		if _, ok := Coaching.Lookup(stored); !ok {
			return false
		}
		return Family(current) != Family(stored)
	default:
		return false
	}
}
