package trackerengine

import "testing"

func TestEnvelopeStateSingleLinearSegment(t *testing.T) {
	env := OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 100, Value: 10, Curve: CurveLinear},
	})
	s := NewEnvelopeState(env)
	s.Advance(50)
	if !almostEqual(s.Value(), 5, 1e-4) {
		t.Fatalf("got %v want 5", s.Value())
	}
	if s.IsFinished() {
		t.Fatal("should not be finished mid-segment")
	}
}

func TestEnvelopeStateStepInterpolationHolds(t *testing.T) {
	env := OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: 3, Curve: CurveStep},
		{DT: 100, Value: 9, Curve: CurveStep},
	})
	s := NewEnvelopeState(env)
	s.Advance(99)
	if s.Value() != 3 {
		t.Fatalf("got %v want 3 (step holds until segment end)", s.Value())
	}
}

func TestEnvelopeStateReachesFinalPointAndFinishes(t *testing.T) {
	env := OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 100, Value: 10, Curve: CurveLinear},
	})
	s := NewEnvelopeState(env)
	s.Advance(100)
	if !s.IsFinished() {
		t.Fatal("expected finished at final point")
	}
	if s.Value() != 10 {
		t.Fatalf("got %v want 10", s.Value())
	}
}

func TestEnvelopeStateOvershootPastEndClampsAtFinal(t *testing.T) {
	env := OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 100, Value: 10, Curve: CurveLinear},
	})
	s := NewEnvelopeState(env)
	s.Advance(500)
	if !s.IsFinished() || s.Value() != 10 {
		t.Fatalf("got finished=%v value=%v", s.IsFinished(), s.Value())
	}
}

func TestEnvelopeStateLoopingEnvelopeCycles(t *testing.T) {
	env := LoopingEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 50, Value: 10, Curve: CurveLinear},
		{DT: 50, Value: 0, Curve: CurveLinear},
	}, 0, 2)
	s := NewEnvelopeState(env)
	s.Advance(120) // wraps past the loop-end back to segment 0
	if !s.Looped() {
		t.Fatal("expected looped to be true")
	}
	if s.IsFinished() {
		t.Fatal("a looping envelope never finishes on its own")
	}
}

func TestEnvelopeStateSustainHoldsUntilGateOff(t *testing.T) {
	sp := uint16(1)
	env := ModEnvelope{
		Points: []ModBreakPoint{
			{DT: 0, Value: 0, Curve: CurveLinear},
			{DT: 50, Value: 10, Curve: CurveLinear},
			{DT: 50, Value: 0, Curve: CurveLinear},
		},
		SustainPoint: &sp,
	}
	s := NewEnvelopeState(env)
	s.Advance(1000)
	if s.Value() != 10 {
		t.Fatalf("expected to be held at sustain value 10, got %v", s.Value())
	}
	if s.IsFinished() {
		t.Fatal("should not finish while held at sustain")
	}

	s.GateOff()
	s.Advance(50)
	if !s.IsFinished() {
		t.Fatal("expected finish after gate off and remaining segment elapses")
	}
	if s.Value() != 0 {
		t.Fatalf("got %v want 0", s.Value())
	}
}

func TestEnvelopeStateEmptyEnvelopeStaysAtZero(t *testing.T) {
	s := NewEnvelopeState(ModEnvelope{})
	if !s.IsFinished() {
		t.Fatal("empty envelope should be immediately finished")
	}
	if s.Value() != 0 {
		t.Fatalf("got %v want 0", s.Value())
	}
	s.Advance(10)
	if s.Value() != 0 {
		t.Fatalf("advancing an empty envelope should stay at 0, got %v", s.Value())
	}
}

func TestEnvelopeStateOnePointEnvelopeHoldsValue(t *testing.T) {
	env := OneShotEnvelope([]ModBreakPoint{{DT: 0, Value: 7, Curve: CurveLinear}})
	s := NewEnvelopeState(env)
	if !s.IsFinished() {
		t.Fatal("single-point envelope finishes immediately")
	}
	s.Advance(100)
	if s.Value() != 7 {
		t.Fatalf("got %v want 7", s.Value())
	}
}

func TestEnvelopeStateMultiSegmentWalksThrough(t *testing.T) {
	env := OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 10, Value: 1, Curve: CurveLinear},
		{DT: 10, Value: 2, Curve: CurveLinear},
		{DT: 10, Value: 3, Curve: CurveLinear},
	})
	s := NewEnvelopeState(env)
	s.Advance(15)
	if !almostEqual(s.Value(), 1.5, 1e-4) {
		t.Fatalf("got %v want 1.5", s.Value())
	}
}
