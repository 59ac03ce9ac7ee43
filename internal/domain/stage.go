package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Stage records the first date the running cumulative GDD reached a
// threshold. Date is zero unless Reached is true.
type Stage struct {
	Threshold float64   `json:"threshold"`
	Reached   bool      `json:"reached"`
	Date      time.Time `json:"date,omitzero"`
}

// Stages tracks first-crossing dates for a set of thresholds, ordered by
// ascending threshold. A Stages value belongs to exactly one run; the engine
// is its single writer.
type Stages []Stage

// NewStages builds an all-unreached Stages from the given targets.
// Targets must be distinct and positive; input order does not matter.
func NewStages(targets []float64) (Stages, error) {
	if len(targets) == 0 {
		return nil, errors.New("at least one GDD target is required")
	}
	sorted := make([]float64, len(targets))
	copy(sorted, targets)
	sort.Float64s(sorted)

	s := make(Stages, 0, len(sorted))
	for i, thr := range sorted {
		if thr <= 0 {
			return nil, fmt.Errorf("GDD target must be positive, got %v", thr)
		}
		if i > 0 && thr == sorted[i-1] {
			return nil, fmt.Errorf("duplicate GDD target %v", thr)
		}
		s = append(s, Stage{Threshold: thr})
	}
	return s, nil
}

// Max returns the highest threshold. A run stops once the running total
// reaches it.
func (s Stages) Max() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Threshold
}

// MarkReached sets the crossing date on every still-unreached stage whose
// threshold the running total now meets, and returns how many were newly
// set. Already-set dates are never overwritten, which makes first-crossing
// the structural invariant.
func (s Stages) MarkReached(cum float64, date time.Time) int {
	marked := 0
	for i := range s {
		if s[i].Reached || s[i].Threshold > cum {
			continue
		}
		s[i].Reached = true
		s[i].Date = Day(date)
		marked++
	}
	return marked
}

// Lookup returns the stage for a threshold, if configured.
func (s Stages) Lookup(threshold float64) (Stage, bool) {
	for _, st := range s {
		if st.Threshold == threshold {
			return st, true
		}
	}
	return Stage{}, false
}

// Clone returns an independent copy. Used when handing results across a
// component boundary.
func (s Stages) Clone() Stages {
	out := make(Stages, len(s))
	copy(out, s)
	return out
}
