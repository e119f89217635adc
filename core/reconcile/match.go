package reconcile

import (
	"sort"
	"time"

	"mixer-report/core/errors"
)

// MatchedSuffix is appended to secondary columns whose name is already used by the primary row.
const MatchedSuffix = "_matched"

// MatchIndices pairs every primary timestamp with a secondary index.
//
// The result has one entry per primary timestamp; -1 means no secondary row was
// selected (secondary is empty, or no candidate exists in the requested direction).
// There is no maximum gap. Both inputs must be sorted ascending; otherwise an
// error marked with errors.ErrOrdering is returned.
func MatchIndices(primary, secondary []time.Time, dir Direction) ([]int, error) {
	if !dir.Valid() {
		return nil, errors.Mark(errors.Newf("unknown match direction %q", dir), errors.ErrInvalidConfig)
	}
	if err := checkSorted("primary", primary); err != nil {
		return nil, err
	}
	if err := checkSorted("secondary", secondary); err != nil {
		return nil, err
	}

	out := make([]int, len(primary))
	n := len(secondary)
	for i, p := range primary {
		out[i] = -1
		if n == 0 {
			continue
		}

		// fwd is the first secondary at or after p; back is the last one at or before p.
		fwd := sort.Search(n, func(j int) bool { return !secondary[j].Before(p) })
		back := sort.Search(n, func(j int) bool { return secondary[j].After(p) }) - 1

		switch dir {
		case DirectionForward:
			if fwd < n {
				out[i] = fwd
			}
		case DirectionBackward:
			if back >= 0 {
				out[i] = back
			}
		case DirectionNearest:
			switch {
			case back < 0:
				out[i] = fwd
			case fwd >= n:
				out[i] = back
			case p.Sub(secondary[back]) <= secondary[fwd].Sub(p):
				out[i] = back
			default:
				out[i] = fwd
			}
		}
	}
	return out, nil
}

// Join attaches to each primary row the columns of its matched secondary row.
//
// The returned rows are copies positioned at the primary timestamps. Primary
// columns win; a colliding secondary column is stored under name+MatchedSuffix.
// Unmatched rows carry no secondary columns, which later selection reads as null.
func Join(primary, secondary []Row, dir Direction) ([]Row, error) {
	idx, err := MatchIndices(times(primary), times(secondary), dir)
	if err != nil {
		return nil, err
	}

	out := make([]Row, len(primary))
	for i, p := range primary {
		row := p.Clone()
		if j := idx[i]; j >= 0 {
			for k, v := range secondary[j].Values {
				if _, taken := p.Values[k]; taken {
					k += MatchedSuffix
				}
				row.Values[k] = v
			}
		}
		out[i] = row
	}
	return out, nil
}

func times(rows []Row) []time.Time {
	out := make([]time.Time, len(rows))
	for i, r := range rows {
		out[i] = r.Time
	}
	return out
}

func checkSorted(name string, ts []time.Time) error {
	for i := 1; i < len(ts); i++ {
		if ts[i].Before(ts[i-1]) {
			return errors.Mark(
				errors.Newf("%s stream not sorted ascending at index %d (%s < %s)",
					name, i, ts[i].Format(time.RFC3339), ts[i-1].Format(time.RFC3339)),
				errors.ErrOrdering)
		}
	}
	return nil
}
