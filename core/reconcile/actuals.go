package reconcile

import (
	"mixer-report/core/utils"
)

// ActualsStats summarises what ReconcileActuals changed.
type ActualsStats struct {
	// Coerced counts non-empty values that could not be read as numbers.
	Coerced int
	// Faulted counts actuals discarded because dosing was commanded but nothing was measured.
	Faulted int
	// Filled counts actuals replaced by the nearest known value in time.
	Filled int
	// Defaulted counts actuals set to zero because the column had no usable value at all.
	Defaulted int
}

// ReconcileActuals repairs (setpoint, actual) column pairs in place.
//
// Rows must already be in time order; fill-forward and fill-backward walk the
// slice in that order. For every pair, after the call:
//   - the setpoint holds a float64 or nil,
//   - the actual holds a float64 (never nil),
//   - the actual is exactly 0 wherever the setpoint is 0.
//
// A missing setpoint is treated as "dosing commanded", so a non-positive actual
// next to it is discarded as a sensor fault.
func ReconcileActuals(rows []Row, pairs []ColumnPair) ActualsStats {
	var stats ActualsStats
	n := len(rows)
	if n == 0 {
		return stats
	}

	setpoints := make([]float64, n)
	spKnown := make([]bool, n)
	actuals := make([]float64, n)
	actKnown := make([]bool, n)

	for _, pair := range pairs {
		// 1. Coerce both columns.
		for i, r := range rows {
			sp := r.Values[pair.Setpoint]
			setpoints[i], spKnown[i] = utils.ToFloat(sp)
			if !spKnown[i] && !isBlank(sp) {
				stats.Coerced++
			}
			act := r.Values[pair.Actual]
			actuals[i], actKnown[i] = utils.ToFloat(act)
			if !actKnown[i] && !isBlank(act) {
				stats.Coerced++
			}
		}

		// 2. Commanded dosing with a non-positive reading is a fault.
		for i := 0; i < n; i++ {
			commanded := !spKnown[i] || setpoints[i] != 0
			if commanded && actKnown[i] && actuals[i] <= 0 {
				actKnown[i] = false
				stats.Faulted++
			}
		}

		// 3. Fill candidate: zeros count as unknown, then forward, then backward.
		candidate := make([]float64, n)
		candKnown := make([]bool, n)
		for i := 0; i < n; i++ {
			if actKnown[i] && actuals[i] != 0 {
				candidate[i], candKnown[i] = actuals[i], true
			}
		}
		for i := 1; i < n; i++ {
			if !candKnown[i] && candKnown[i-1] {
				candidate[i], candKnown[i] = candidate[i-1], true
			}
		}
		for i := n - 2; i >= 0; i-- {
			if !candKnown[i] && candKnown[i+1] {
				candidate[i], candKnown[i] = candidate[i+1], true
			}
		}

		// 4 and 5. Replace only unknown actuals, then force zero where nothing was commanded.
		for i, r := range rows {
			value := actuals[i]
			if !actKnown[i] {
				if candKnown[i] {
					value = candidate[i]
					stats.Filled++
				} else {
					value = 0
					stats.Defaulted++
				}
			}
			if spKnown[i] && setpoints[i] == 0 {
				value = 0
			}

			if spKnown[i] {
				r.Values[pair.Setpoint] = setpoints[i]
			} else {
				r.Values[pair.Setpoint] = nil
			}
			r.Values[pair.Actual] = value
		}
	}

	return stats
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case []byte:
		return len(s) == 0
	default:
		return false
	}
}
