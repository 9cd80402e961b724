package trackerengine

import "sort"

// EventQueue holds a time-sorted list of Events and an advancing cursor
// so the render thread can consume due events without allocating: once
// an event is behind the cursor it is never revisited or removed, just
// skipped, keeping Insert a simple sorted splice and drain a pointer
// bump.
type EventQueue struct {
	events []Event
	cursor int
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue { return &EventQueue{} }

// Len reports the number of events still at or ahead of the cursor.
func (q *EventQueue) Len() int { return len(q.events) - q.cursor }

// Insert adds an event at its sorted position (binary search over the
// not-yet-consumed tail; events before the cursor are already done and
// are never displaced).
func (q *EventQueue) Insert(e Event) {
	lo, hi := q.cursor, len(q.events)
	idx := lo + sort.Search(hi-lo, func(i int) bool {
		return e.Time.Less(q.events[lo+i].Time)
	})
	q.events = append(q.events, Event{})
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = e
}

// DrainUntil calls fn for every event with Time <= now, in time order,
// advancing the internal cursor past them. It performs no allocation and
// the consumed events remain in the backing slice (inert) until the
// queue is compacted or reset.
func (q *EventQueue) DrainUntil(now MusicalTime, fn func(Event)) {
	for q.cursor < len(q.events) && q.events[q.cursor].Time.LessOrEqual(now) {
		fn(q.events[q.cursor])
		q.cursor++
	}
}

// PopUntil removes and returns, as a newly allocated slice, every event
// with Time <= now. This is for setup/seek paths only (tests, song
// scrubbing) — the real-time render path must use DrainUntil.
func (q *EventQueue) PopUntil(now MusicalTime) []Event {
	var out []Event
	for q.cursor < len(q.events) && q.events[q.cursor].Time.LessOrEqual(now) {
		out = append(out, q.events[q.cursor])
		q.cursor++
	}
	return out
}

// Compact drops already-consumed events from the backing slice and
// resets the cursor to 0. Call this periodically off the render thread
// (e.g. between patterns) to bound memory growth during long playback.
func (q *EventQueue) Compact() {
	if q.cursor == 0 {
		return
	}
	q.events = append(q.events[:0], q.events[q.cursor:]...)
	q.cursor = 0
}

// Reset empties the queue entirely (used when re-scheduling from a new
// position, e.g. apply_edits / seek).
func (q *EventQueue) Reset() {
	q.events = q.events[:0]
	q.cursor = 0
}

// Peek returns the next due-or-later event without consuming it, and
// whether one exists.
func (q *EventQueue) Peek() (Event, bool) {
	if q.cursor >= len(q.events) {
		return Event{}, false
	}
	return q.events[q.cursor], true
}
