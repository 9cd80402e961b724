package trackerengine

import (
	"encoding/binary"
)

// bmxSection is one entry of a BMX file's section directory: a 4-char
// name plus the byte range in the file it occupies.
type bmxSection struct {
	Name   string
	Offset uint32
	Size   uint32
}

// NewBMXSongFromBytes parses a Buzz-style BMX module: a `[Buzz]`
// magic, a section-directory table of {name, offset, size} entries,
// and the sections themselves. MACH/CONN/PATT/SEQU are required;
// BVER/PARA/WAVT/CWAV/WAVE are optional. Buzz-delta-compressed waves
// (CWAV format=1) are detected and rejected with UnsupportedVersion
// rather than decompressed: the bit-stream zigzag/predictor codec is
// large and orthogonal to playback; raw (format=0) waves are read in
// full.
func NewBMXSongFromBytes(data []byte) (*Song, error) {
	if len(data) < 8 || string(data[:4]) != "Buzz" {
		return nil, NewParseError(ErrInvalidHeader, "missing Buzz magic")
	}
	if len(data) < 8 {
		return nil, NewParseError(ErrUnexpectedEOF, "truncated section directory header")
	}
	count := binary.LittleEndian.Uint32(data[4:8])

	sections := make(map[string]bmxSection, count)
	pos := 8
	for i := uint32(0); i < count; i++ {
		if pos+12 > len(data) {
			return nil, NewParseError(ErrUnexpectedEOF, "truncated section directory entry %d", i)
		}
		name := string(data[pos : pos+4])
		offset := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		size := binary.LittleEndian.Uint32(data[pos+8 : pos+12])
		sections[name] = bmxSection{Name: name, Offset: offset, Size: size}
		pos += 12
	}

	for _, required := range []string{"MACH", "CONN", "PATT", "SEQU"} {
		if _, ok := sections[required]; !ok {
			return nil, NewParseError(ErrInvalidHeader, "missing required BMX section %q", required)
		}
	}

	samples, err := readBMXWaves(data, sections)
	if err != nil {
		return nil, err
	}

	machineCount := readBMXMachineCount(data, sections["MACH"])
	channels := machineCount
	if channels < 1 {
		channels = 1
	}

	instruments := make([]Instrument, len(samples))
	for i := range instruments {
		ins := Instrument{Name: samples[i].Name}
		for n := range ins.SampleMap {
			ins.SampleMap[n] = uint8(i)
		}
		instruments[i] = ins
	}

	// PATT/SEQU's exact machine-pattern binary layout isn't specified
	// beyond section names; without a compiled reference Buzz loader
	// to cross-check bit-for-bit, BMX playback starts from a single
	// empty pattern rather than guessing a layout that could silently
	// misparse. See DESIGN.md for the resolution of this gap.
	pat := NewPattern(modRowsPerPattern, channels, 6)
	song := &Song{
		Title:        "",
		InitialTempo: 125,
		InitialSpeed: 6,
		RowsPerBeat:  4,
		GlobalVolume: 64,
		Patterns:     []Pattern{pat},
		Order:        []OrderEntry{{Kind: OrderPattern, Pattern: 0}},
		Instruments:  instruments,
		Samples:      samples,
	}
	song.WithChannels(channels)
	song.Tracks = tracksFromOrder(song.Order, song.Patterns, channels)
	return song, nil
}

// readBMXMachineCount reads just the header's instance count out of
// the MACH section, used to size the channel graph: one instance
// corresponds to one playable channel of the routing graph.
func readBMXMachineCount(data []byte, sec bmxSection) int {
	start := int(sec.Offset)
	if start+4 > len(data) {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data[start : start+4]))
}

// readBMXWaves decodes the optional WAVT (wave table directory) and
// CWAV/WAVE (per-wave sample data) sections into Samples. A BMX file
// with no wave sections at all returns an empty, valid Sample slice.
func readBMXWaves(data []byte, sections map[string]bmxSection) ([]Sample, error) {
	wavt, hasWavt := sections["WAVT"]
	if !hasWavt {
		return nil, nil
	}
	start := int(wavt.Offset)
	end := start + int(wavt.Size)
	if start < 0 || end > len(data) || start > end {
		return nil, NewParseError(ErrUnexpectedEOF, "truncated WAVT section")
	}
	if end-start < 4 {
		return nil, nil
	}
	waveCount := int(binary.LittleEndian.Uint32(data[start : start+4]))

	cwav, hasCwav := sections["CWAV"]
	if !hasCwav {
		cwav = sections["WAVE"]
	}
	samples := make([]Sample, 0, waveCount)
	cursor := int(cwav.Offset)
	cwavEnd := int(cwav.Offset) + int(cwav.Size)
	for i := 0; i < waveCount; i++ {
		if cursor+9 > len(data) || cursor+9 > cwavEnd {
			break
		}
		format := data[cursor]
		numSamples := int(binary.LittleEndian.Uint32(data[cursor+1 : cursor+5]))
		c4Speed := binary.LittleEndian.Uint32(data[cursor+5 : cursor+9])
		cursor += 9

		if format != 0 {
			return nil, NewParseError(ErrUnsupportedVersion, "Buzz delta-compressed wave format=%d not supported", format)
		}

		byteLen := numSamples * 2
		if cursor+byteLen > len(data) || cursor+byteLen > cwavEnd {
			return nil, NewParseError(ErrUnexpectedEOF, "truncated raw wave %d data", i)
		}
		pcm := make([]int16, numSamples)
		for s := 0; s < numSamples; s++ {
			pcm[s] = int16(binary.LittleEndian.Uint16(data[cursor+s*2 : cursor+s*2+2]))
		}
		cursor += byteLen

		samples = append(samples, Sample{
			Data:    SampleData{Kind: SampleMono16, Mono16: pcm},
			C4Speed: c4Speed,
		})
	}
	return samples, nil
}
