package trackerengine

import "testing"

func almostEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestInterpolateStepHoldsValue(t *testing.T) {
	v := Interpolate(CurveStep, 0, 10, 0.5, 0)
	if v != 0 {
		t.Fatalf("got %v want 0", v)
	}
}

func TestInterpolateLinearMidpoint(t *testing.T) {
	v := Interpolate(CurveLinear, 0, 10, 0.5, 0)
	if !almostEqual(v, 5, 1e-6) {
		t.Fatalf("got %v want 5", v)
	}
}

func TestInterpolateLinearNegativeRange(t *testing.T) {
	v := Interpolate(CurveLinear, 10, -10, 0.5, 0)
	if !almostEqual(v, 0, 1e-6) {
		t.Fatalf("got %v want 0", v)
	}
}

func TestInterpolateSineQuarterEndpoints(t *testing.T) {
	start := Interpolate(CurveSineQuarter, 0, 10, 0, 0)
	end := Interpolate(CurveSineQuarter, 0, 10, 1, 0)
	if !almostEqual(start, 0, 1e-5) {
		t.Fatalf("start got %v want 0", start)
	}
	if !almostEqual(end, 10, 1e-4) {
		t.Fatalf("end got %v want 10", end)
	}
}

func TestInterpolateSineQuarterMidpointAboveLinear(t *testing.T) {
	sine := Interpolate(CurveSineQuarter, 0, 10, 0.5, 0)
	linear := Interpolate(CurveLinear, 0, 10, 0.5, 0)
	if sine <= linear {
		t.Fatalf("expected sine midpoint %v > linear midpoint %v", sine, linear)
	}
}

func TestInterpolateExponentialZeroIsLinear(t *testing.T) {
	exp := Interpolate(CurveExponential, 0, 10, 0.5, 0)
	linear := Interpolate(CurveLinear, 0, 10, 0.5, 0)
	if !almostEqual(exp, linear, 1e-4) {
		t.Fatalf("got %v want %v", exp, linear)
	}
}

func TestInterpolateExponentialPositiveStartsSlow(t *testing.T) {
	v := Interpolate(CurveExponential, 0, 10, 0.25, 4)
	if v >= 2.5 {
		t.Fatalf("expected slow start, got %v", v)
	}
}

func TestInterpolateExponentialNegativeStartsFast(t *testing.T) {
	v := Interpolate(CurveExponential, 0, 10, 0.25, -4)
	if v <= 2.5 {
		t.Fatalf("expected fast start, got %v", v)
	}
}

func TestEnvelopeOneShotConstruction(t *testing.T) {
	e := OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 1000, Value: 1, Curve: CurveLinear},
	})
	if e.LoopRange != nil {
		t.Fatal("expected no loop range")
	}
	if e.Len() != 2 {
		t.Fatalf("got len %d want 2", e.Len())
	}
}

func TestEnvelopeLoopingConstruction(t *testing.T) {
	e := LoopingEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveLinear},
		{DT: 1000, Value: 1, Curve: CurveLinear},
		{DT: 1000, Value: 0, Curve: CurveLinear},
	}, 1, 2)
	if e.LoopRange == nil || e.LoopRange.Start != 1 || e.LoopRange.End != 2 {
		t.Fatalf("got %+v", e.LoopRange)
	}
}
