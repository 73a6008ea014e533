package gallery

import "time"

// groupGap is the maximum spacing between consecutive items on different
// calendar days that still keeps them in the same group.
const groupGap = time.Hour

// Group is a contiguous run of items sharing a display cluster.
//
// Date is the start of day of the group's first item and serves as the
// group's stable identity.
type Group struct {
	Items []Item    `json:"items"`
	Date  time.Time `json:"groupDate"`
}

// EmptyGroup returns the distinguished empty sentinel group used by
// consumers that need a single unconditioned section identity.
func EmptyGroup() Group {
	return Group{Date: time.Unix(0, 0).UTC()}
}

// MakeGroups clusters a time-ascending item list into display groups.
//
// A new group starts when the next item falls on a different calendar day
// than the current group's last item AND is more than groupGap away from
// it. Same-day items always merge; cross-midnight items merge only when
// close in time. The returned groups partition the input exactly: every
// item appears in exactly one group, and input order is preserved.
//
// Empty input yields an empty slice, not a single empty group.
func MakeGroups(items []Item) []Group {
	if len(items) == 0 {
		return nil
	}

	var groups []Group
	current := []Item{items[0]}
	for _, item := range items[1:] {
		last := current[len(current)-1]
		if !sameDay(last.CreationTime, item.CreationTime) &&
			item.CreationTime.Sub(last.CreationTime) > groupGap {
			groups = append(groups, newGroup(current))
			current = []Item{item}
			continue
		}
		current = append(current, item)
	}
	groups = append(groups, newGroup(current))
	return groups
}

func newGroup(items []Item) Group {
	return Group{Items: items, Date: startOfDay(items[0].CreationTime)}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
