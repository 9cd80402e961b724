package trackerengine

import "testing"

func TestSampleGetMonoOutOfRangeIsSilence(t *testing.T) {
	s := Sample{Data: SampleData{Kind: SampleMono16, Mono16: []int16{100, 200}}}
	if s.GetMono(-1) != 0 || s.GetMono(5) != 0 {
		t.Fatal("expected silence out of range")
	}
}

func TestSampleGetMonoInterpolatedMidpoint(t *testing.T) {
	s := Sample{Data: SampleData{Kind: SampleMono16, Mono16: []int16{0, 1000}}}
	got := s.GetMonoInterpolated(1 << 15) // halfway between frame 0 and 1
	if got < 480 || got > 520 {
		t.Fatalf("got %d want ~500", got)
	}
}

func TestSampleStereoChannelCount(t *testing.T) {
	s := Sample{Data: SampleData{Kind: SampleStereo16, Stereo16: []int16{1, 2, 3, 4}}}
	if s.Data.NumChannels() != 2 {
		t.Fatalf("got %d want 2", s.Data.NumChannels())
	}
	if s.Data.Len() != 2 {
		t.Fatalf("got len %d want 2 frames", s.Data.Len())
	}
}
