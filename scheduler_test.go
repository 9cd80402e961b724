package trackerengine

import "testing"

// buildSingleChannelSong builds a minimal one-channel, one-pattern song
// with rows cells supplied by the caller, wired with a matching track
// sequence that plays the whole pattern once.
func buildSingleChannelSong(rows int, rowsPerBeat uint32, speed uint8, cellAt func(row int) Cell) *Song {
	pattern := NewPattern(rows, 1, 1)
	for r := 0; r < rows; r++ {
		pattern.SetCellAt(r, 0, cellAt(r))
	}
	song := &Song{
		InitialSpeed: speed,
		RowsPerBeat:  rowsPerBeat,
		Patterns:     []Pattern{pattern},
		Tracks: []Track{
			{
				Clips:    []Clip{{Pattern: 0, StartRow: 0, Rows: rows}},
				Sequence: []SeqEntry{{Kind: SeqPlayClip, ClipIndex: 0}, {Kind: SeqEndOfSong}},
				Group:    -1,
			},
		},
	}
	song.WithChannels(1)
	return song
}

func TestScheduleEmptyPatternProducesNoEvents(t *testing.T) {
	song := buildSingleChannelSong(4, 4, 6, func(row int) Cell { return Cell{} })
	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)
	if q.Len() != 0 {
		t.Fatalf("got %d events want 0", q.Len())
	}
}

func TestScheduleSingleNoteProducesOneNoteOnAtRowZero(t *testing.T) {
	song := buildSingleChannelSong(4, 4, 6, func(row int) Cell {
		if row == 0 {
			return Cell{Note: Note{Kind: NoteKindOn, Pitch: 48}, Instrument: 1}
		}
		return Cell{}
	})
	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)

	events := q.PopUntil(TimeFromBeats(1000))
	if len(events) != 1 {
		t.Fatalf("got %d events want 1", len(events))
	}
	if events[0].Payload.Kind != PayloadNoteOn || events[0].Payload.Note != 48 {
		t.Fatalf("got %+v", events[0])
	}
	if events[0].Time != ZeroTime() {
		t.Fatalf("got time %+v want zero", events[0].Time)
	}
}

func TestScheduleTonePortaDoesNotScheduleNoteOn(t *testing.T) {
	song := buildSingleChannelSong(2, 4, 6, func(row int) Cell {
		if row == 0 {
			return Cell{Note: Note{Kind: NoteKindOn, Pitch: 60}, Effect: Effect{Kind: EffectTonePorta, A: 4}}
		}
		return Cell{}
	})
	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)

	events := q.PopUntil(TimeFromBeats(1000))
	for _, e := range events {
		if e.Payload.Kind == PayloadNoteOn {
			t.Fatalf("tone porta row should not schedule a NoteOn, got %+v", e)
		}
	}
}

func TestScheduleNoteDelayOffsetsNoteOnTime(t *testing.T) {
	song := buildSingleChannelSong(1, 4, 6, func(row int) Cell {
		return Cell{Note: Note{Kind: NoteKindOn, Pitch: 48}, Effect: Effect{Kind: EffectNoteDelay, A: 3}}
	})
	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)

	events := q.PopUntil(TimeFromBeats(1000))
	if len(events) != 1 {
		t.Fatalf("got %d events want 1", len(events))
	}
	want := ZeroTime().AddTicks(3, uint32(6)*4)
	if events[0].Time != want {
		t.Fatalf("got time %+v want %+v", events[0].Time, want)
	}
}

func TestScheduleRepeatedRowsAdvanceByRowsPerBeat(t *testing.T) {
	song := buildSingleChannelSong(2, 4, 6, func(row int) Cell {
		return Cell{Note: Note{Kind: NoteKindOn, Pitch: 48}}
	})
	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)

	events := q.PopUntil(TimeFromBeats(1000))
	if len(events) != 2 {
		t.Fatalf("got %d events want 2", len(events))
	}
	if events[0].Time != ZeroTime() {
		t.Fatalf("got %+v", events[0].Time)
	}
	wantSecond := ZeroTime().AddRows(1, 4)
	if events[1].Time != wantSecond {
		t.Fatalf("got %+v want %+v", events[1].Time, wantSecond)
	}
}

func TestScheduleNoteOffProducesNoteOffEvent(t *testing.T) {
	song := buildSingleChannelSong(1, 4, 6, func(row int) Cell {
		return Cell{Note: Note{Kind: NoteKindOff}}
	})
	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)

	events := q.PopUntil(TimeFromBeats(1000))
	if len(events) != 1 || events[0].Payload.Kind != PayloadNoteOff {
		t.Fatalf("got %+v", events)
	}
}

// TestSchedulePatternBreakJumpsToNextPatternAtBreakRow is scenario S3:
// a PatternBreak(0) on row 1 of a 4-row pattern should end the current
// pattern early and start the next one at its row 0, landing the next
// NoteOn at time = 2 rows (not 4).
func TestSchedulePatternBreakJumpsToNextPatternAtBreakRow(t *testing.T) {
	pat0 := NewPattern(4, 1, 1)
	pat0.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 60}})
	pat0.SetCellAt(1, 0, Cell{Effect: Effect{Kind: EffectPatternBreak, A: 0}})

	pat1 := NewPattern(4, 1, 1)
	pat1.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 64}})

	song := &Song{
		InitialSpeed: 6,
		RowsPerBeat:  4,
		Patterns:     []Pattern{pat0, pat1},
		Tracks: []Track{
			{
				Clips: []Clip{{Pattern: 0, StartRow: 0, Rows: 4}, {Pattern: 1, StartRow: 0, Rows: 4}},
				Sequence: []SeqEntry{
					{Kind: SeqPlayClip, ClipIndex: 0},
					{Kind: SeqPlayClip, ClipIndex: 1},
					{Kind: SeqEndOfSong},
				},
				Group: -1,
			},
		},
	}
	song.WithChannels(1)

	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)
	events := q.PopUntil(TimeFromBeats(1000))

	var noteOns []Event
	for _, e := range events {
		if e.Payload.Kind == PayloadNoteOn {
			noteOns = append(noteOns, e)
		}
	}
	if len(noteOns) != 2 {
		t.Fatalf("got %d NoteOn events want 2: %+v", len(noteOns), noteOns)
	}
	if noteOns[0].Payload.Note != 60 || noteOns[0].Time != ZeroTime() {
		t.Fatalf("got first NoteOn %+v", noteOns[0])
	}
	want := ZeroTime().AddRows(2, 4)
	if noteOns[1].Payload.Note != 64 || noteOns[1].Time != want {
		t.Fatalf("got second NoteOn %+v want time %+v", noteOns[1], want)
	}
}

// TestScheduleRepeatedOrderEntryYieldsRepeatedNoteOn is scenario S7: an
// order of [0, 0] over an 8-row pattern with a note at row 0 should
// produce two NoteOn events, one per pass, 2 beats apart.
func TestScheduleRepeatedOrderEntryYieldsRepeatedNoteOn(t *testing.T) {
	pat0 := NewPattern(8, 1, 1)
	pat0.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 60}})

	song := &Song{
		InitialSpeed: 6,
		RowsPerBeat:  4,
		Patterns:     []Pattern{pat0},
		Tracks: []Track{
			{
				Clips: []Clip{{Pattern: 0, StartRow: 0, Rows: 8}},
				Sequence: []SeqEntry{
					{Kind: SeqPlayClip, ClipIndex: 0},
					{Kind: SeqPlayClip, ClipIndex: 0},
					{Kind: SeqEndOfSong},
				},
				Group: -1,
			},
		},
	}
	song.WithChannels(1)

	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)
	events := q.PopUntil(TimeFromBeats(1000))

	if len(events) != 2 {
		t.Fatalf("got %d events want 2: %+v", len(events), events)
	}
	if events[0].Time != ZeroTime() {
		t.Fatalf("got first event time %+v want zero", events[0].Time)
	}
	want := TimeFromBeats(2)
	if events[1].Time != want {
		t.Fatalf("got second event time %+v want %+v", events[1].Time, want)
	}
}

// TestSchedulePositionJumpJumpsToOrderIndex verifies a PositionJump
// redirects the transport straight to the named sequence index, fully
// skipping any patterns in between.
func TestSchedulePositionJumpJumpsToOrderIndex(t *testing.T) {
	pat0 := NewPattern(2, 1, 1)
	pat0.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 60}})
	pat0.SetCellAt(1, 0, Cell{Effect: Effect{Kind: EffectPositionJump, A: 2}})

	pat1 := NewPattern(2, 1, 1)
	pat1.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 61}})

	pat2 := NewPattern(2, 1, 1)
	pat2.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 62}})

	song := &Song{
		InitialSpeed: 6,
		RowsPerBeat:  4,
		Patterns:     []Pattern{pat0, pat1, pat2},
		Tracks: []Track{
			{
				Clips: []Clip{
					{Pattern: 0, StartRow: 0, Rows: 2},
					{Pattern: 1, StartRow: 0, Rows: 2},
					{Pattern: 2, StartRow: 0, Rows: 2},
				},
				Sequence: []SeqEntry{
					{Kind: SeqPlayClip, ClipIndex: 0},
					{Kind: SeqPlayClip, ClipIndex: 1},
					{Kind: SeqPlayClip, ClipIndex: 2},
					{Kind: SeqEndOfSong},
				},
				Group: -1,
			},
		},
	}
	song.WithChannels(1)

	q := NewEventQueue()
	ScheduleSong(song, ZeroTime(), q)
	events := q.PopUntil(TimeFromBeats(1000))

	var notes []uint8
	for _, e := range events {
		if e.Payload.Kind == PayloadNoteOn {
			notes = append(notes, e.Payload.Note)
		}
	}
	want := []uint8{60, 62}
	if len(notes) != len(want) {
		t.Fatalf("got notes %v want %v (pattern 1's note 61 should be skipped)", notes, want)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Fatalf("got notes %v want %v", notes, want)
		}
	}
}
