package trackerengine

import "testing"

func TestVoicePoolAllocateDistinctSlots(t *testing.T) {
	p := NewVoicePool()
	a := p.Allocate()
	b := p.Allocate()
	if a == b {
		t.Fatal("expected distinct voice ids")
	}
}

func TestVoicePoolFreeReturnsSlot(t *testing.T) {
	p := NewVoicePool()
	a := p.Allocate()
	p.Free(a)
	b := p.Allocate()
	if a != b {
		t.Fatalf("expected freed slot %d to be reused, got %d", a, b)
	}
}

func TestVoicePoolStealsLowestPriorityWhenFull(t *testing.T) {
	p := NewVoicePool()
	var fadingID VoiceID
	for i := 0; i < MaxVoices; i++ {
		id := p.Allocate()
		v := p.Get(id)
		v.State = VoiceActive
		if i == 3 {
			v.State = VoiceFading
			fadingID = id
		}
	}
	stolen := p.Allocate()
	if stolen != fadingID {
		t.Fatalf("expected the fading slot %d to be stolen, got %d", fadingID, stolen)
	}
}

func TestVoiceAdvanceLoopForwardWraps(t *testing.T) {
	s := Sample{
		Data:     SampleData{Kind: SampleMono16, Mono16: []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		LoopType: LoopForward,
		LoopStart: 2,
		LoopEnd:   8,
	}
	v := Voice{increment: 9 << 16, samplePos: 0, State: VoiceActive}
	v.AdvanceLoop(s)
	if v.State != VoiceActive {
		t.Fatal("expected voice to remain active after wrapping")
	}
	if idx := v.samplePos >> 16; idx < 2 || idx >= 8 {
		t.Fatalf("expected position to wrap into loop range, got %d", idx)
	}
}

func TestVoiceAdvanceLoopNoneEndsAtLength(t *testing.T) {
	s := Sample{Data: SampleData{Kind: SampleMono16, Mono16: []int16{1, 2, 3}}, LoopType: LoopNone}
	v := Voice{increment: 5 << 16, samplePos: 0, State: VoiceActive}
	v.AdvanceLoop(s)
	if v.State != VoiceFading {
		t.Fatal("expected voice to start fading once past sample end")
	}
}
