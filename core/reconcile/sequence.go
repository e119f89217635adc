package reconcile

import (
	"fmt"
	"sort"
)

// AssignSequence writes a 1-based counter into column for every row.
//
// Counters are computed per distinct value of groupColumn, in ascending time
// order (input order breaks ties), so the key sequence [A, A, B, A] yields
// [1, 2, 1, 3]. Rows without the grouping column share the nil group. The slice
// order is not changed.
func AssignSequence(rows []Row, groupColumn, column string) {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].Time.Before(rows[order[b]].Time)
	})

	counters := make(map[string]int)
	for _, idx := range order {
		key := groupKey(rows[idx].Values[groupColumn])
		counters[key]++
		rows[idx].Values[column] = counters[key]
	}
}

// groupKey turns an arbitrary column value into a comparable map key.
// []byte is not comparable, and driver values of different types must not collide.
func groupKey(v any) string {
	switch g := v.(type) {
	case nil:
		return "<nil>"
	case []byte:
		return "string:" + string(g)
	case string:
		return "string:" + g
	default:
		return fmt.Sprintf("%T:%v", g, g)
	}
}
