package tpoll

import "trpc.group/trpc-go/tpoll/internal/sys"

// Events is a fixed-capacity buffer of decoded events filled in by
// Poll.Poll. Its capacity bounds the amount of work one Poll call can do;
// it never grows, so a Poll/Events pair used in a steady-state loop does
// no per-iteration heap allocation.
type Events struct {
	raw []sys.Event
	len int
}

// NewEvents allocates an Events buffer with room for up to capacity
// events. A capacity of zero or less is raised to 1.
func NewEvents(capacity int) *Events {
	if capacity <= 0 {
		capacity = 1
	}
	return &Events{raw: make([]sys.Event, capacity)}
}

// Capacity returns the maximum number of events this buffer can hold.
func (e *Events) Capacity() int { return len(e.raw) }

// Len returns the number of events currently held, i.e. the count
// returned by the Poll call that last filled this buffer.
func (e *Events) Len() int { return e.len }

// Get returns the event at index i, which must be in [0, Len()).
func (e *Events) Get(i int) Event { return fromSys(e.raw[i]) }

// Iterate calls fn once for every event currently held, in delivery
// order. It stops early if fn returns false.
func (e *Events) Iterate(fn func(Event) bool) {
	for i := 0; i < e.len; i++ {
		if !fn(fromSys(e.raw[i])) {
			return
		}
	}
}

// Clear resets the buffer to empty without releasing its backing storage.
// Poll.Poll calls this internally before refilling; callers normally don't
// need to call it themselves.
func (e *Events) Clear() { e.len = 0 }

// slice exposes the backing storage to Poll.Poll, sized to e's full
// capacity so Selector.Select can fill up to that many entries.
func (e *Events) slice() []sys.Event { return e.raw }

// setLen records how many entries Selector.Select actually filled.
func (e *Events) setLen(n int) { e.len = n }
