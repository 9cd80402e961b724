// cli renders a MOD/S3M/BMX module to a WAV file through the tracker
// engine. There is no live audio device output here: the audio device
// backend is out of scope, a named external collaborator rather than
// something this repo implements.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	trackerengine "github.com/chriskillpack/trackerengine"
	"github.com/chriskillpack/trackerengine/cmd/internal/config"
	"github.com/chriskillpack/trackerengine/wav"
	"github.com/fatih/color"
)

const sampleRate = 44100

// renderSeconds bounds how long cli renders when writing a WAV file:
// long enough to capture a full play-through of a typical module
// without needing end-of-song detection wired up at the CLI layer.
const renderSeconds = 180

func main() {
	log.SetFlags(0)
	log.SetPrefix("cli: ")

	wavOut := flag.String("wav", "", "render to this WAV file instead of just reporting song info")
	pattern := flag.Int("pattern", -1, "if N is an existing pattern index, reschedule the song before rendering (playback still starts at the song's start)")
	reverb := flag.String("reverb", "none", "reverb preset: none, light, medium, silly")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cli <file> [--wav <out>] [--pattern N] [--reverb mode]")
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *wavOut, *pattern, *reverb); err != nil {
		log.Println(color.RedString(err.Error()))
		os.Exit(1)
	}
}

func run(path, wavOut string, pattern int, reverb string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	song, err := loadSong(path, data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	decay, damping, mix, err := config.ReverbPreset(reverb)
	if err != nil {
		return err
	}
	if mix > 0 {
		song.WithReverb(decay, damping, mix)
	}

	engine := trackerengine.NewEngine(song, sampleRate)
	if pattern >= 0 {
		engine.PushEdit(trackerengine.Edit{Kind: trackerengine.EditSetPattern, PatternIdx: pattern})
		engine.ApplyEdits()
	}
	engine.Play()

	if wavOut == "" {
		fmt.Printf("%q: %d channel(s), %d pattern(s), %d instrument(s), %d sample(s)\n",
			song.Title, len(song.Channels), len(song.Patterns), len(song.Instruments), len(song.Samples))
		return nil
	}

	out, err := os.Create(wavOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", wavOut, err)
	}
	defer out.Close()

	writer, err := wav.NewWriter(out, sampleRate)
	if err != nil {
		return fmt.Errorf("writing WAV header: %w", err)
	}

	const blockFrames = 2048
	frames := make([]trackerengine.Frame, blockFrames)
	left := make([]int16, blockFrames)
	right := make([]int16, blockFrames)

	totalFrames := renderSeconds * sampleRate
	for rendered := 0; rendered < totalFrames; rendered += blockFrames {
		n := blockFrames
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		engine.RenderFramesInto(frames[:n])
		for i := 0; i < n; i++ {
			left[i] = frames[i].Left
			right[i] = frames[i].Right
		}
		if err := writer.WriteFrame([][]int16{left[:n], right[:n]}); err != nil {
			return fmt.Errorf("writing WAV data: %w", err)
		}
	}

	if _, err := writer.Finish(); err != nil {
		return fmt.Errorf("finalizing WAV file: %w", err)
	}
	return nil
}

func loadSong(path string, data []byte) (*trackerengine.Song, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mod":
		return trackerengine.NewMODSongFromBytes(data)
	case ".s3m":
		return trackerengine.NewS3MSongFromBytes(data)
	case ".bmx":
		return trackerengine.NewBMXSongFromBytes(data)
	default:
		return nil, fmt.Errorf("unrecognized song extension %q", filepath.Ext(path))
	}
}
