package reconcile

import (
	"sort"
	"time"
)

// DefaultLongSpan is the window length above which a window is retried one day later.
const DefaultLongSpan = 12 * time.Hour

// WindowOptions tunes window matching.
type WindowOptions struct {
	// InclusiveEnd matches start <= ts <= end instead of start <= ts < end.
	InclusiveEnd bool
	// LongSpan overrides DefaultLongSpan.
	LongSpan time.Duration
}

type indexedWindow struct {
	start, end time.Time
	component  string
	order      int
}

// windowIndex holds windows sorted by start with a running maximum of end,
// so a lookup only walks windows that can still contain the timestamp.
type windowIndex struct {
	windows []indexedWindow
	maxEnd  []time.Time
}

func newWindowIndex(windows []indexedWindow) windowIndex {
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].start.Before(windows[j].start) })
	maxEnd := make([]time.Time, len(windows))
	for i, w := range windows {
		maxEnd[i] = w.end
		if i > 0 && maxEnd[i-1].After(w.end) {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return windowIndex{windows: windows, maxEnd: maxEnd}
}

// find returns the window with the lowest original position containing ts.
func (x windowIndex) find(ts time.Time, inclusive bool) (indexedWindow, bool) {
	covers := func(end time.Time) bool {
		if inclusive {
			return !end.Before(ts)
		}
		return end.After(ts)
	}

	upper := sort.Search(len(x.windows), func(i int) bool { return x.windows[i].start.After(ts) })
	best := -1
	for i := upper - 1; i >= 0; i-- {
		if !covers(x.maxEnd[i]) {
			break
		}
		w := x.windows[i]
		if covers(w.end) && (best < 0 || w.order < x.windows[best].order) {
			best = i
		}
	}
	if best < 0 {
		return indexedWindow{}, false
	}
	return x.windows[best], true
}

type resolved struct {
	component string
	ok        bool
}

// WindowResolver maps timestamps to the production window active at that instant.
//
// Overlapping windows resolve to the one listed first. When nothing matches and
// long windows exist, the lookup is retried one day later against those long
// windows only, which catches early-morning events of a run that began on the
// previous foundry day. A resolver memoizes its answers and is meant to live for
// one cycle; it is not safe for concurrent use.
type WindowResolver struct {
	all       windowIndex
	long      windowIndex
	inclusive bool
	memo      map[int64]resolved
}

// NewWindowResolver indexes windows. A window ending before it starts crosses midnight.
func NewWindowResolver(windows []Window, opts WindowOptions) *WindowResolver {
	longSpan := opts.LongSpan
	if longSpan <= 0 {
		longSpan = DefaultLongSpan
	}

	all := make([]indexedWindow, 0, len(windows))
	var long []indexedWindow
	for i, w := range windows {
		e := w.Effective()
		iw := indexedWindow{start: e.Start, end: e.End, component: w.ComponentID, order: i}
		all = append(all, iw)
		if e.End.Sub(e.Start) > longSpan {
			long = append(long, iw)
		}
	}

	return &WindowResolver{
		all:       newWindowIndex(all),
		long:      newWindowIndex(long),
		inclusive: opts.InclusiveEnd,
		memo:      make(map[int64]resolved),
	}
}

// Resolve returns the component produced at ts, or false when no window applies.
func (r *WindowResolver) Resolve(ts time.Time) (string, bool) {
	key := ts.UnixNano()
	if hit, ok := r.memo[key]; ok {
		return hit.component, hit.ok
	}

	w, ok := r.all.find(ts, r.inclusive)
	if !ok && len(r.long.windows) > 0 {
		w, ok = r.long.find(ts.AddDate(0, 0, 1), r.inclusive)
	}

	r.memo[key] = resolved{component: w.component, ok: ok}
	return w.component, ok
}

// Len returns the number of indexed windows.
func (r *WindowResolver) Len() int {
	return len(r.all.windows)
}
