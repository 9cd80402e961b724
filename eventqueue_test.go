package trackerengine

import "testing"

func mkEvent(beat uint64, kind EventPayloadKind) Event {
	return Event{Time: TimeFromBeats(beat), Payload: EventPayload{Kind: kind}}
}

func TestEventQueueInsertKeepsSortedOrder(t *testing.T) {
	q := NewEventQueue()
	q.Insert(mkEvent(3, PayloadNoteOn))
	q.Insert(mkEvent(1, PayloadNoteOn))
	q.Insert(mkEvent(2, PayloadNoteOn))

	var seen []uint64
	q.DrainUntil(TimeFromBeats(10), func(e Event) { seen = append(seen, e.Time.Beat) })
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("got %v", seen)
	}
}

func TestEventQueueDrainUntilRespectsCutoff(t *testing.T) {
	q := NewEventQueue()
	q.Insert(mkEvent(1, PayloadNoteOn))
	q.Insert(mkEvent(5, PayloadNoteOff))

	var seen int
	q.DrainUntil(TimeFromBeats(2), func(e Event) { seen++ })
	if seen != 1 {
		t.Fatalf("got %d want 1", seen)
	}
	if q.Len() != 1 {
		t.Fatalf("got len %d want 1 remaining", q.Len())
	}
}

func TestEventQueueCursorNeverRevisits(t *testing.T) {
	q := NewEventQueue()
	q.Insert(mkEvent(1, PayloadNoteOn))

	var calls int
	q.DrainUntil(TimeFromBeats(5), func(e Event) { calls++ })
	q.DrainUntil(TimeFromBeats(5), func(e Event) { calls++ })
	if calls != 1 {
		t.Fatalf("got %d calls want 1", calls)
	}
}

func TestEventQueuePopUntilAllocatesAndReturns(t *testing.T) {
	q := NewEventQueue()
	q.Insert(mkEvent(1, PayloadNoteOn))
	q.Insert(mkEvent(2, PayloadNoteOff))

	popped := q.PopUntil(TimeFromBeats(2))
	if len(popped) != 2 {
		t.Fatalf("got %d want 2", len(popped))
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue drained, got len %d", q.Len())
	}
}

func TestEventQueueCompactResetsCursor(t *testing.T) {
	q := NewEventQueue()
	q.Insert(mkEvent(1, PayloadNoteOn))
	q.Insert(mkEvent(2, PayloadNoteOff))
	q.DrainUntil(TimeFromBeats(1), func(Event) {})
	q.Compact()
	if q.cursor != 0 {
		t.Fatalf("expected cursor reset, got %d", q.cursor)
	}
	if q.Len() != 1 {
		t.Fatalf("got len %d want 1", q.Len())
	}
}

func TestEventQueuePeekDoesNotConsume(t *testing.T) {
	q := NewEventQueue()
	q.Insert(mkEvent(1, PayloadNoteOn))
	e, ok := q.Peek()
	if !ok || e.Time.Beat != 1 {
		t.Fatalf("got %+v ok=%v", e, ok)
	}
	if q.Len() != 1 {
		t.Fatal("peek should not consume")
	}
}
