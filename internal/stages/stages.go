// Package stages holds the static ordered list of production stages. Movement
// between zones is only legal in the direction of this list.
package stages

// Stage identifiers, in the only legal direction of travel.
const (
	Unassigned   = "unassigned"
	Breeding     = "breeding"
	Fattening    = "fattening"
	Slaughter    = "slaughter"
	Curing       = "curing"
	Distribution = "distribution"
	Finished     = "finished"
)

// ordered is the canonical production order. Index positions drive both the
// forward-only movement rule and the ordering of snapshot phases.
var ordered = []string{
	Unassigned,
	Breeding,
	Fattening,
	Slaughter,
	Curing,
	Distribution,
	Finished,
}

var index = func() map[string]int {
	m := make(map[string]int, len(ordered))
	for i, s := range ordered {
		m[s] = i
	}
	return m
}()

// SplitStage is the stage whose zones accept lote splits: slaughtered lotes
// are cut into pieces that enter curing as sub-lotes.
const SplitStage = Curing

// TraceStage is the terminal physical stage; arriving here can trigger
// snapshot generation.
const TraceStage = Distribution

// All returns the canonical stage order. Callers must not mutate the slice.
func All() []string {
	return ordered
}

// IsValid reports whether s is a known stage identifier.
func IsValid(s string) bool {
	_, ok := index[s]
	return ok
}

// Index returns the position of s in the canonical order, or -1 for unknown
// stages.
func Index(s string) int {
	i, ok := index[s]
	if !ok {
		return -1
	}
	return i
}

// IsForward reports whether moving from one stage to another respects the
// strictly-forward ordering rule. Unknown stages are never forward.
func IsForward(from, to string) bool {
	fi, ok := index[from]
	if !ok {
		return false
	}
	ti, ok := index[to]
	if !ok {
		return false
	}
	return ti > fi
}
