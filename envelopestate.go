package trackerengine

// EnvelopeState is the runtime cursor that walks a ModEnvelope forward in
// time. It is driven by Advance (called once per tick, or with a larger
// dt to skip ahead) and never allocates.
type EnvelopeState struct {
	env EnvelopeSource

	segment       int
	timeInSegment uint32
	value         float32
	finished      bool
	gateHeld      bool
	looped        bool
}

// EnvelopeSource is the minimal view of a ModEnvelope the runtime needs;
// satisfied by ModEnvelope itself.
type EnvelopeSource interface {
	breakpoints() []ModBreakPoint
	loopRange() *LoopRange
	sustainPoint() *uint16
}

func (e ModEnvelope) breakpoints() []ModBreakPoint  { return e.Points }
func (e ModEnvelope) loopRange() *LoopRange         { return e.LoopRange }
func (e ModEnvelope) sustainPoint() *uint16          { return e.SustainPoint }

// NewEnvelopeState starts a state machine at the envelope's first point,
// with the sustain gate held (a new note always starts "held").
func NewEnvelopeState(env ModEnvelope) EnvelopeState {
	s := EnvelopeState{env: env, gateHeld: true}
	pts := env.breakpoints()
	if len(pts) == 0 {
		s.finished = true
		return s
	}
	s.value = pts[0].Value
	if len(pts) == 1 {
		s.finished = true
	}
	return s
}

// Value returns the current interpolated value.
func (s *EnvelopeState) Value() float32 { return s.value }

// IsFinished reports whether the envelope has reached its final point
// with no loop or sustain to hold it open.
func (s *EnvelopeState) IsFinished() bool { return s.finished }

// Looped reports whether the most recent Advance call crossed the loop
// end and jumped back to the loop start.
func (s *EnvelopeState) Looped() bool { return s.looped }

// GateOff releases the sustain hold, letting the envelope continue past
// its sustain point toward the end (used on note-off/NNA release).
func (s *EnvelopeState) GateOff() { s.gateHeld = false }

// Advance steps the envelope forward by dt sub-beat units, resolving any
// number of segment crossings, loop-backs, and sustain holds in one call
// (an envelope segment shorter than dt is walked through, not skipped).
func (s *EnvelopeState) Advance(dt uint32) {
	s.looped = false
	if s.finished {
		return
	}
	pts := s.env.breakpoints()
	if len(pts) == 0 {
		s.finished = true
		return
	}

	remaining := dt
	for remaining > 0 {
		if s.finished {
			return
		}
		s.resolve(&remaining)
	}
	s.updateValue()
}

// resolve consumes as much of *remaining as fits in the current segment,
// then either advances to the next segment, loops back, holds at
// sustain, or finishes.
func (s *EnvelopeState) resolve(remaining *uint32) {
	pts := s.env.breakpoints()
	next := s.segment + 1

	if next >= len(pts) {
		s.finished = true
		*remaining = 0
		s.updateValue()
		return
	}

	segLen := pts[next].DT
	if sp := s.env.sustainPoint(); sp != nil && int(*sp) == s.segment && s.gateHeld {
		// Held at a sustain point: time does not advance past it.
		*remaining = 0
		s.updateValue()
		return
	}

	timeLeftInSegment := segLen - s.timeInSegment
	if *remaining < timeLeftInSegment {
		s.timeInSegment += *remaining
		*remaining = 0
		s.updateValue()
		return
	}

	*remaining -= timeLeftInSegment
	s.segment = next
	s.timeInSegment = 0

	if lr := s.env.loopRange(); lr != nil && s.segment >= int(lr.End) {
		s.segment = int(lr.Start)
		s.looped = true
	} else if s.segment == len(pts)-1 {
		s.finished = true
		*remaining = 0
	}
	s.updateValue()
}

func (s *EnvelopeState) updateValue() {
	pts := s.env.breakpoints()
	if s.segment >= len(pts) {
		s.value = pts[len(pts)-1].Value
		return
	}
	if s.segment == len(pts)-1 {
		s.value = pts[s.segment].Value
		return
	}
	from := pts[s.segment]
	to := pts[s.segment+1]
	segLen := to.DT
	var t float32
	if segLen > 0 {
		t = float32(s.timeInSegment) / float32(segLen)
	}
	s.value = Interpolate(to.Curve, from.Value, to.Value, t, to.ExpK)
}
