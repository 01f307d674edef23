// Command kaiku-play renders a chord through an effect chain, either to the
// platform audio device or to a .wav file.
//
// The chain is configured from a JSON or YAML state file (-state), a builtin
// preset (-preset), or left empty.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kaikusynth/kaiku"
	"github.com/kaikusynth/kaiku/engine"
	"github.com/kaikusynth/kaiku/oto"
	"github.com/kaikusynth/kaiku/preset"
	"github.com/kaikusynth/kaiku/rack"
	"github.com/kaikusynth/kaiku/registry"
)

var (
	stateFile  = flag.String("state", "", "chain state file, JSON or YAML")
	presetName = flag.String("preset", "", "builtin chain preset")
	synth      = flag.String("synth", "dsaw", "synth sound")
	voices     = flag.Int("voices", 8, "maximum voice count")
	sampleRate = flag.Int("samplerate", 48000, "sample rate in Hz")
	length     = flag.Float64("length", 4, "render length in seconds")
	notes      = flag.String("notes", "60,64,67", "comma-separated MIDI notes")
	output     = flag.String("o", "", "write a .wav file instead of playing")
	pcm16      = flag.Bool("pcm16", false, "write 16-bit PCM instead of float")
	list       = flag.Bool("list", false, "list synths, effects and presets")
)

const bufferFrames = 512

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	effects := registry.BuiltinEffects()
	synths := registry.BuiltinSynths()
	if *list {
		fmt.Println("synths: ", strings.Join(synths.Names(), ", "))
		fmt.Println("effects:", strings.Join(effects.Names(), ", "))
		fmt.Println("presets:", strings.Join(preset.Names(), ", "))
		return nil
	}
	if !synths.Contains(*synth) {
		return fmt.Errorf("unknown synth %q", *synth)
	}
	chord, err := parseNotes(*notes)
	if err != nil {
		return err
	}

	e := engine.New(effects, synths, *synth, *voices)
	e.SetLogger(logrus.StandardLogger())
	e.SetSampleRate(float64(*sampleRate))
	if state, err := loadChainState(); err != nil {
		return err
	} else if state != nil {
		e.LoadState(*state)
	}

	for _, note := range chord {
		e.NoteOn(note, 0.8)
	}

	totalFrames := int(*length * float64(*sampleRate))
	releaseFrame := totalFrames * 3 / 4
	buffer := make(kaiku.AudioBuffer, 0, totalFrames)
	block := make(kaiku.AudioBuffer, bufferFrames)
	for rendered := 0; rendered < totalFrames; rendered += len(block) {
		if rendered >= releaseFrame && rendered-len(block) < releaseFrame {
			for _, note := range chord {
				e.NoteOff(note)
			}
		}
		e.Render(block)
		buffer = append(buffer, block...)
	}

	m := e.Metrics()
	logrus.WithFields(logrus.Fields{
		"cpu":      fmt.Sprintf("%.1f%%", m.CPUPercent()),
		"overload": m.Overloaded(),
	}).Info("render finished")

	if *output != "" {
		data, err := buffer.Wav(*sampleRate, *pcm16)
		if err != nil {
			return err
		}
		return os.WriteFile(*output, data, 0644)
	}
	return play(buffer)
}

func loadChainState() (*rack.State, error) {
	switch {
	case *stateFile != "" && *presetName != "":
		return nil, fmt.Errorf("use either -state or -preset, not both")
	case *stateFile != "":
		s, err := rack.LoadState(*stateFile)
		if err != nil {
			return nil, fmt.Errorf("cannot load %s: %w", *stateFile, err)
		}
		return &s, nil
	case *presetName != "":
		s, ok := preset.Load(*presetName)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", *presetName)
		}
		return &s, nil
	}
	return nil, nil
}

func play(buffer kaiku.AudioBuffer) error {
	ctx, err := oto.NewContext(*sampleRate)
	if err != nil {
		return err
	}
	defer ctx.Close()
	sink := ctx.Output()
	defer sink.Close()
	return sink.WriteAudio(buffer)
}

func parseNotes(s string) ([]byte, error) {
	var chord []byte
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid MIDI note %q", field)
		}
		chord = append(chord, byte(n))
	}
	return chord, nil
}
