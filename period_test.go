package trackerengine

import "testing"

const testC4Speed = 8363
const testSampleRate = 44100

func TestReferenceNoteGivesBaseFrequency(t *testing.T) {
	inc := NoteToIncrement(48, testC4Speed, testSampleRate)
	expected := uint32((uint64(testC4Speed) * 65536) / uint64(testSampleRate))
	if inc != expected {
		t.Fatalf("got %d want %d", inc, expected)
	}
}

func TestOctaveUpDoublesIncrement(t *testing.T) {
	base := NoteToIncrement(48, testC4Speed, testSampleRate)
	octaveUp := NoteToIncrement(60, testC4Speed, testSampleRate)
	if octaveUp != base*2 {
		t.Fatalf("got %d want %d", octaveUp, base*2)
	}
}

func TestOctaveDownHalvesIncrement(t *testing.T) {
	base := NoteToIncrement(48, testC4Speed, testSampleRate)
	octaveDown := NoteToIncrement(36, testC4Speed, testSampleRate)
	diff := int64(octaveDown) - int64(base)/2
	if diff < -1 || diff > 1 {
		t.Fatalf("got %d want ~%d", octaveDown, base/2)
	}
}

func TestTwoOctavesUpQuadruples(t *testing.T) {
	base := NoteToIncrement(48, testC4Speed, testSampleRate)
	twoUp := NoteToIncrement(72, testC4Speed, testSampleRate)
	if twoUp != base*4 {
		t.Fatalf("got %d want %d", twoUp, base*4)
	}
}

func TestZeroSampleRateReturnsZero(t *testing.T) {
	if NoteToIncrement(48, testC4Speed, 0) != 0 {
		t.Fatal("expected zero")
	}
}

func TestZeroC4SpeedReturnsZero(t *testing.T) {
	if NoteToIncrement(48, 0, testSampleRate) != 0 {
		t.Fatal("expected zero")
	}
}

func TestDifferentSampleRateScalesInversely(t *testing.T) {
	inc44100 := NoteToIncrement(48, testC4Speed, 44100)
	inc22050 := NoteToIncrement(48, testC4Speed, 22050)
	if inc22050 != inc44100*2 {
		t.Fatalf("got %d want %d", inc22050, inc44100*2)
	}
}

func TestClampPeriodBounds(t *testing.T) {
	if ClampPeriod(0) != PeriodMin {
		t.Fatal("expected clamp to PeriodMin")
	}
	if ClampPeriod(10000) != PeriodMax {
		t.Fatal("expected clamp to PeriodMax")
	}
	if ClampPeriod(428) != 428 {
		t.Fatal("expected pass-through within range")
	}
}

func TestNoteToPeriodReferenceMatches428(t *testing.T) {
	if got := NoteToPeriod(48); got != 428 {
		t.Fatalf("got %d want 428", got)
	}
}

func TestPeriodToIncrementRoundTripsWithNoteToIncrement(t *testing.T) {
	period := NoteToPeriod(48)
	got := PeriodToIncrement(period, testC4Speed, testSampleRate)
	want := NoteToIncrement(48, testC4Speed, testSampleRate)
	diff := int64(got) - int64(want)
	if diff < -1 || diff > 1 {
		t.Fatalf("got %d want ~%d", got, want)
	}
}
