// Package oto wraps the ebitengine/oto playback library behind the
// kaiku.AudioContext interface so real-time output and offline rendering
// share the same sink contract.
package oto

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ebitengine/oto/v3"

	"github.com/kaikusynth/kaiku"
)

type (
	// Context is a kaiku.AudioContext playing through the platform audio
	// device.
	Context struct {
		ctx *oto.Context
	}

	sink struct {
		player *oto.Player
		pipe   *io.PipeWriter
		buf    []byte
	}
)

// NewContext opens the platform audio device at the given sample rate,
// blocking until the device is ready.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Output starts a new playing sink. WriteAudio blocks while the device
// drains, which paces an offline render loop to real time.
func (c *Context) Output() kaiku.AudioSink {
	pr, pw := io.Pipe()
	player := c.ctx.NewPlayer(pr)
	player.Play()
	return &sink{player: player, pipe: pw}
}

// Close suspends the device.
func (c *Context) Close() error {
	return c.ctx.Suspend()
}

func (s *sink) WriteAudio(buffer kaiku.AudioBuffer) error {
	need := len(buffer) * 8
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	data := s.buf[:need]
	for i, frame := range buffer {
		binary.LittleEndian.PutUint32(data[i*8:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(data[i*8+4:], math.Float32bits(frame[1]))
	}
	if _, err := s.pipe.Write(data); err != nil {
		return fmt.Errorf("cannot write to audio device: %w", err)
	}
	return nil
}

func (s *sink) Close() error {
	s.pipe.Close()
	return s.player.Close()
}
