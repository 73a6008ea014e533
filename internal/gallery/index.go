package gallery

import (
	"sync"

	"scan-gallery/internal/dispatch"
	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"
)

// Subscriber receives the canonical item list along with the added and
// removed sets on every net-nonzero change, and once on subscription with
// empty deltas. Callbacks are delivered serially on the engine dispatcher.
type Subscriber func(items, added, removed []Item)

// Subscription is the handle returned by Subscribe; pass it to Unsubscribe
// to stop receiving notifications.
type Subscription struct {
	id int
}

// Index owns the canonical ordered list of gallery items. All mutation goes
// through its methods; it computes the add/remove delta on every change,
// maintains the derived temporal groups, and fans notifications out to
// subscribers on the dispatcher.
type Index struct {
	disp *dispatch.Dispatcher

	mu     sync.Mutex
	items  []Item
	groups []Group
	subs   map[int]Subscriber
	nextID int

	// invoked with the removed set before subscribers are notified, used
	// by the engine to drop cache entries for deleted items
	onRemoved func(removed []Item)
}

// NewIndex creates an empty index whose notifications are delivered through
// disp.
func NewIndex(disp *dispatch.Dispatcher) *Index {
	return &Index{
		disp: disp,
		subs: make(map[int]Subscriber),
	}
}

// SetOnRemoved registers a hook invoked with the removed items of every
// change, before subscriber fan-out. Must be called before any mutation.
func (x *Index) SetOnRemoved(fn func(removed []Item)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.onRemoved = fn
}

// Items returns a copy of the canonical ordered item list.
func (x *Index) Items() []Item {
	x.mu.Lock()
	defer x.mu.Unlock()
	items := make([]Item, len(x.items))
	copy(items, x.items)
	return items
}

// Groups returns the temporal groups derived from the current item list.
func (x *Index) Groups() []Group {
	x.mu.Lock()
	defer x.mu.Unlock()
	groups := make([]Group, len(x.groups))
	copy(groups, x.groups)
	return groups
}

// Contains reports whether a location is present in the canonical list.
func (x *Index) Contains(location string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return containsLocation(x.items, location)
}

// Subscribe registers fn and immediately delivers the current state with
// empty added/removed sets, so a new consumer renders without a separate
// initial-load path.
func (x *Index) Subscribe(fn Subscriber) *Subscription {
	x.mu.Lock()
	x.nextID++
	id := x.nextID
	x.subs[id] = fn
	snapshot := make([]Item, len(x.items))
	copy(snapshot, x.items)
	x.mu.Unlock()

	x.disp.Async(func() {
		fn(snapshot, nil, nil)
	})
	return &Subscription{id: id}
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (x *Index) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.subs, sub.id)
}

// Append adds newly written items to the canonical list in write order.
// Used after this process persists new scans, before the watcher sees them.
func (x *Index) Append(items ...Item) {
	if len(items) == 0 {
		return
	}
	x.mu.Lock()
	newItems := make([]Item, 0, len(x.items)+len(items))
	newItems = append(newItems, x.items...)
	newItems = append(newItems, items...)
	x.applyLocked(newItems)
}

// Remove drops an item from the canonical list. It does not touch the
// filesystem; the engine deletes backing files before calling it.
func (x *Index) Remove(item Item) {
	x.mu.Lock()
	newItems := make([]Item, 0, len(x.items))
	for _, it := range x.items {
		if !it.Equal(item) {
			newItems = append(newItems, it)
		}
	}
	x.applyLocked(newItems)
}

// SetItems replaces the canonical list, computing the symmetric difference
// against the previous list by item identity. Both deltas are re-sorted by
// creation time for deterministic notification order. When the change is a
// net no-op, no notification fires.
func (x *Index) SetItems(newItems []Item) {
	x.mu.Lock()
	x.applyLocked(newItems)
}

// applyLocked installs a new item list, computes deltas, and schedules
// notification fan-out. The caller must hold x.mu; applyLocked releases it.
func (x *Index) applyLocked(newItems []Item) {
	oldSet := itemSet(x.items)
	newSet := itemSet(newItems)

	var added, removed []Item
	for loc, it := range newSet {
		if _, ok := oldSet[loc]; !ok {
			added = append(added, it)
		}
	}
	for loc, it := range oldSet {
		if _, ok := newSet[loc]; !ok {
			removed = append(removed, it)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		x.mu.Unlock()
		return
	}

	sortByCreationTime(added)
	sortByCreationTime(removed)

	x.items = newItems
	x.groups = MakeGroups(newItems)
	metrics.IndexItems.Set(float64(len(newItems)))
	metrics.IndexGroups.Set(float64(len(x.groups)))

	onRemoved := x.onRemoved
	subs := make([]Subscriber, 0, len(x.subs))
	for _, fn := range x.subs {
		subs = append(subs, fn)
	}
	snapshot := make([]Item, len(newItems))
	copy(snapshot, newItems)
	x.mu.Unlock()

	if onRemoved != nil && len(removed) > 0 {
		onRemoved(removed)
	}

	logging.Debug("Index: %d items, +%d -%d", len(snapshot), len(added), len(removed))
	metrics.IndexNotificationsTotal.Inc()
	x.disp.Async(func() {
		for _, fn := range subs {
			fn(snapshot, added, removed)
		}
	})
}
