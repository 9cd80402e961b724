package trackerengine

// LoopType selects how a sample's playback position behaves once it
// reaches LoopEnd.
type LoopType uint8

const (
	LoopNone LoopType = iota
	LoopForward
	LoopPingPong
	LoopSustain
)

// SampleFormatKind tags the sample's storage layout.
type SampleFormatKind uint8

const (
	SampleMono8 SampleFormatKind = iota
	SampleMono16
	SampleStereo8
	SampleStereo16
)

// SampleData holds raw sample frames in one of four layouts; only the
// slice matching Kind is populated.
type SampleData struct {
	Kind   SampleFormatKind
	Mono8  []int8
	Mono16 []int16
	// Stereo data is interleaved left/right.
	Stereo8  []int8
	Stereo16 []int16
}

// NumChannels reports 1 for mono formats, 2 for stereo.
func (d SampleData) NumChannels() int {
	switch d.Kind {
	case SampleStereo8, SampleStereo16:
		return 2
	default:
		return 1
	}
}

// Len reports the sample's length in frames.
func (d SampleData) Len() int {
	switch d.Kind {
	case SampleMono8:
		return len(d.Mono8)
	case SampleMono16:
		return len(d.Mono16)
	case SampleStereo8:
		return len(d.Stereo8) / 2
	case SampleStereo16:
		return len(d.Stereo16) / 2
	}
	return 0
}

// frameAt16 returns the left (or mono) and right channel values of
// frame i as i16, with out-of-range indices returning silence.
func (d SampleData) frameAt16(i int) (int16, int16) {
	if i < 0 || i >= d.Len() {
		return 0, 0
	}
	switch d.Kind {
	case SampleMono8:
		v := int16(d.Mono8[i]) << 8
		return v, v
	case SampleMono16:
		return d.Mono16[i], d.Mono16[i]
	case SampleStereo8:
		l := int16(d.Stereo8[i*2]) << 8
		r := int16(d.Stereo8[i*2+1]) << 8
		return l, r
	case SampleStereo16:
		return d.Stereo16[i*2], d.Stereo16[i*2+1]
	}
	return 0, 0
}

// AutoVibrato is a sample-level pitch LFO applied independent of any
// channel vibrato effect (common in XM/IT instruments).
type AutoVibrato struct {
	Speed    uint8
	Depth    uint8
	Sweep    uint8
	Waveform uint8
}

// Sample is one playable waveform plus its loop and reference-pitch
// metadata.
type Sample struct {
	Name          string
	Data          SampleData
	LoopStart     uint32
	LoopEnd       uint32
	LoopType      LoopType
	DefaultVolume uint8
	DefaultPan    int8
	C4Speed       uint32
	Vibrato       *AutoVibrato
}

// HasLoop reports whether the sample carries a usable loop range
// (loop_start < loop_end), per the sample invariant in the data model.
func (s Sample) HasLoop() bool {
	return s.LoopType != LoopNone && s.LoopStart < s.LoopEnd
}

// GetMono returns frame i's channel-0 value as i16, 0 outside range.
// Per the sample data model, mono playback always reads channel 0 of a
// stereo sample rather than averaging both channels.
func (s Sample) GetMono(i int) int16 {
	l, _ := s.Data.frameAt16(i)
	return l
}

// GetRight returns frame i's right channel (equal to left for mono
// samples).
func (s Sample) GetRight(i int) int16 {
	_, r := s.Data.frameAt16(i)
	return r
}

// GetMonoInterpolated returns a linearly interpolated mono sample at a
// 16.16 fixed-point position, the same precision NoteToIncrement and
// PeriodToIncrement produce.
func (s Sample) GetMonoInterpolated(posFixed uint32) int16 {
	idx := int(posFixed >> 16)
	frac := posFixed & 0xFFFF
	a := s.GetMono(idx)
	b := s.GetMono(idx + 1)
	return int16(int32(a) + ((int32(b)-int32(a))*int32(frac))>>16)
}
