// A very simple WAVE file writer
// Wrote my own after trying out a couple of others I found but
// both required me to know the quantity of audio data before I
// write it.
// See http://soundfile.sapp.org/doc/WaveFormat/ for format
// documentation.

package wav

import (
	"encoding/binary"
	"errors"
	"io"
)

const PCM = 1

var (
	errNotRIFF         = errors.New("wav: not a RIFF/WAVE file")
	errMissingFmt      = errors.New("wav: missing fmt chunk")
	errTruncatedFmt    = errors.New("wav: truncated fmt chunk")
	errNotPCM          = errors.New("wav: only PCM audio format is supported")
	errUnsupportedBits = errors.New("wav: only 8 or 16-bit samples are supported")
)

type Writer struct {
	WS io.WriteSeeker
}

type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// samples is N samples organized by channel
// [channel][sampleNum]samples
func (w *Writer) WriteFrame(samples [][]int16) error {
	for i := range samples[0] {
		s := [2]int16{samples[0][i], samples[1][i]}
		if err := binary.Write(w.WS, binary.LittleEndian, s); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Finish() (int64, error) {
	wlen, err := w.WS.Seek(0, io.SeekCurrent)

	offset, err := w.WS.Seek(4, io.SeekStart)
	if offset != 4 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-8)); err != nil {
		return 0, err
	}
	offset, err = w.WS.Seek(40, io.SeekStart)
	if offset != 40 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-44)); err != nil {
		return 0, err
	}

	return wlen, nil
}

// Reader decodes a RIFF/WAVE file: 8 or 16-bit PCM, mono or stereo.
// 8-bit samples are unsigned (0..255, centered at 128); 16-bit samples
// are signed little-endian, matching the canonical WAVE layout.
type Reader struct {
	Format  Format
	Samples []int16 // interleaved by channel
}

// NewReader parses data as a WAVE file, rejecting anything that isn't
// PCM or isn't 8/16-bit.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotRIFF
	}

	var format Format
	var haveFormat bool
	var pcm []byte

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errTruncatedFmt
			}
			format.AudioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			format.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			format.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			format.ByteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			format.BlockAlign = binary.LittleEndian.Uint16(data[body+12 : body+14])
			format.BitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFormat = true
		case "data":
			pcm = data[body : body+size]
		}
		pos = body + size
		if pos%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFormat {
		return nil, errMissingFmt
	}
	if format.AudioFormat != PCM {
		return nil, errNotPCM
	}

	var samples []int16
	switch format.BitsPerSample {
	case 8:
		samples = make([]int16, len(pcm))
		for i, b := range pcm {
			samples[i] = (int16(b) - 128) << 8
		}
	case 16:
		samples = make([]int16, len(pcm)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		}
	default:
		return nil, errUnsupportedBits
	}

	return &Reader{Format: format, Samples: samples}, nil
}

func NewWriter(ws io.WriteSeeker, sampleRate int) (*Writer, error) {
	writer := &Writer{WS: ws}

	if _, err := ws.Write([]byte("RIFF")); err != nil {
		return nil, err
	}

	// Write out zero for now, come back and fill this later
	if err := binary.Write(ws, binary.LittleEndian, int32(0)); err != nil {
		return nil, err
	}

	if _, err := ws.Write([]byte("WAVE")); err != nil {
		return nil, err
	}

	// Write format chunk
	if _, err := ws.Write([]byte("fmt ")); err != nil {
		return nil, err
	}
	if err := binary.Write(ws, binary.LittleEndian, int32(16)); err != nil {
		return nil, err
	}
	format := Format{AudioFormat: PCM, Channels: 2, SampleRate: uint32(sampleRate), BitsPerSample: 16}
	format.ByteRate = uint32(sampleRate) * 2 * (16 / 8)
	format.BlockAlign = 2 * (16 / 8)
	if err := binary.Write(ws, binary.LittleEndian, format); err != nil {
		return nil, err
	}

	// Write data chunk header
	if _, err := ws.Write([]byte("data")); err != nil {
		return nil, err
	}
	// Write out zero for the data size for now, come back and fill this later
	if err := binary.Write(ws, binary.LittleEndian, int32(0)); err != nil {
		return nil, err
	}

	return writer, nil
}
