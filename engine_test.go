package trackerengine

import "testing"

// buildTwoInstrumentSong builds a one-channel song with two samples/
// instruments and a track with two cells: row 0 triggers instrument 2
// explicitly, row 1 triggers a note with Instrument==0 ("no change"),
// which per the data model (spec.md section 3) must keep playing
// instrument 2 rather than falling back to instrument 1.
func buildTwoInstrumentSong() *Song {
	pattern := NewPattern(2, 1, 1)
	pattern.SetCellAt(0, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 48}, Instrument: 2})
	pattern.SetCellAt(1, 0, Cell{Note: Note{Kind: NoteKindOn, Pitch: 50}, Instrument: 0})

	mkInstrument := func(sampleIdx uint8) Instrument {
		var ins Instrument
		for n := range ins.SampleMap {
			ins.SampleMap[n] = sampleIdx
		}
		return ins
	}

	song := &Song{
		InitialSpeed: 6,
		RowsPerBeat:  4,
		Patterns:     []Pattern{pattern},
		Instruments:  []Instrument{mkInstrument(0), mkInstrument(1)},
		Samples: []Sample{
			{Data: SampleData{Kind: SampleMono16, Mono16: []int16{100, 100, 100, 100}}, C4Speed: 8363},
			{Data: SampleData{Kind: SampleMono16, Mono16: []int16{200, 200, 200, 200}}, C4Speed: 8363},
		},
		Tracks: []Track{
			{
				Clips:    []Clip{{Pattern: 0, StartRow: 0, Rows: 2}},
				Sequence: []SeqEntry{{Kind: SeqPlayClip, ClipIndex: 0}, {Kind: SeqEndOfSong}},
				Group:    -1,
			},
		},
	}
	song.WithChannels(1)
	return song
}

func TestEngineNoteOnWithZeroInstrumentKeepsCurrentInstrument(t *testing.T) {
	song := buildTwoInstrumentSong()
	e := NewEngine(song, 44100)
	e.Play()

	row0 := Event{Time: ZeroTime(), Target: EventTarget{Kind: EventTargetChannel, Channel: 0},
		Payload: EventPayload{Kind: PayloadNoteOn, Note: 48, Instrument: 2}}
	e.dispatchEvent(row0)
	if e.channels[0].InstrumentIdx != 1 {
		t.Fatalf("got instrument idx %d want 1 (instrument 2, 0-based)", e.channels[0].InstrumentIdx)
	}
	if e.channels[0].SampleIdx != 1 {
		t.Fatalf("got sample idx %d want 1", e.channels[0].SampleIdx)
	}

	row1 := Event{Time: ZeroTime(), Target: EventTarget{Kind: EventTargetChannel, Channel: 0},
		Payload: EventPayload{Kind: PayloadNoteOn, Note: 50, Instrument: 0}}
	e.dispatchEvent(row1)
	if e.channels[0].InstrumentIdx != 1 {
		t.Fatalf("instrument 0 (no change) should keep instrument idx 1, got %d", e.channels[0].InstrumentIdx)
	}
	if e.channels[0].SampleIdx != 1 {
		t.Fatalf("instrument 0 (no change) should keep sample idx 1, got %d", e.channels[0].SampleIdx)
	}
}

func TestEngineScheduleAndRenderProducesNonSilentOutput(t *testing.T) {
	song := buildTwoInstrumentSong()
	e := NewEngine(song, 44100)
	ScheduleSong(song, ZeroTime(), e.eventQueue)
	e.Play()

	out := make([]Frame, 256)
	e.RenderFramesInto(out)

	sawSound := false
	for _, f := range out {
		if f.Left != 0 || f.Right != 0 {
			sawSound = true
			break
		}
	}
	if !sawSound {
		t.Fatal("expected at least one non-silent frame after scheduling a NoteOn at time zero")
	}
}

func TestEngineStopSilencesChannelsAndRenderReturnsSilence(t *testing.T) {
	song := buildTwoInstrumentSong()
	e := NewEngine(song, 44100)
	ScheduleSong(song, ZeroTime(), e.eventQueue)
	e.Play()
	e.Stop()

	out := make([]Frame, 16)
	e.RenderFramesInto(out)
	for _, f := range out {
		if f != (Frame{}) {
			t.Fatalf("expected silence after Stop, got %+v", f)
		}
	}
}

func TestEnginePositionIsMonotonicWhilePlaying(t *testing.T) {
	song := buildTwoInstrumentSong()
	e := NewEngine(song, 44100)
	ScheduleSong(song, ZeroTime(), e.eventQueue)
	e.Play()

	last := e.Position()
	for i := 0; i < 10; i++ {
		out := make([]Frame, 64)
		e.RenderFramesInto(out)
		cur := e.Position()
		if cur.Beat < last.Beat || (cur.Beat == last.Beat && cur.SubBeat < last.SubBeat) {
			t.Fatalf("position went backwards: %+v -> %+v", last, cur)
		}
		last = cur
	}
}
