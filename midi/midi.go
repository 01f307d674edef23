// Package midi routes MIDI messages to an engine. It is driver-agnostic:
// hook Handler.HandleMessage up to whatever gomidi input driver the platform
// provides, or feed it messages from a file or a test.
package midi

import (
	"github.com/chewxy/math32"
	"gitlab.com/gomidi/midi/v2"

	"github.com/kaikusynth/kaiku/engine"
)

// Control change numbers the handler responds to.
const (
	ccBrightness  = 74 // filter cutoff
	ccHarmonics   = 71 // filter resonance
	ccAllNotesOff = 123
)

// Handler translates channel voice messages into engine events. Messages on
// all channels are merged; kaiku is single-timbral.
type Handler struct {
	engine    *engine.Engine
	bendRange float32
}

// NewHandler returns a handler driving the given engine, with the
// conventional ±2 semitone pitch bend range.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e, bendRange: 2}
}

// SetBendRange sets how many semitones a full pitch wheel deflection bends.
func (h *Handler) SetBendRange(semitones float32) { h.bendRange = semitones }

// HandleMessage dispatches one MIDI message. Unrecognized messages are
// ignored. Safe to call from the driver's callback goroutine.
func (h *Handler) HandleMessage(msg midi.Message) {
	var (
		channel, key, velocity uint8
		controller, value      uint8
		pressure               uint8
		rel                    int16
		abs                    uint16
	)
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		// running status note-on with velocity 0 is a note-off
		if velocity == 0 {
			h.engine.NoteOff(key)
		} else {
			h.engine.NoteOn(key, float32(velocity)/127)
		}
	case msg.GetNoteOff(&channel, &key, &velocity):
		h.engine.NoteOff(key)
	case msg.GetPitchBend(&channel, &rel, &abs):
		h.engine.PitchBend(float32(rel) / 8192 * h.bendRange)
	case msg.GetAfterTouch(&channel, &pressure):
		h.engine.SetPressure(float32(pressure) / 127)
	case msg.GetControlChange(&channel, &controller, &value):
		h.handleControlChange(controller, value)
	}
}

func (h *Handler) handleControlChange(controller, value uint8) {
	switch controller {
	case ccBrightness:
		// exponential sweep from 20 Hz to roughly 20 kHz
		h.engine.SetCutoff(20 * math32.Exp2(float32(value)/127*10))
	case ccHarmonics:
		h.engine.SetResonance(0.1 + float32(value)/127*1.9)
	case ccAllNotesOff:
		h.engine.AllNotesOff()
	}
}
