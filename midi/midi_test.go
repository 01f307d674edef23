package midi_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/kaikusynth/kaiku"
	"github.com/kaikusynth/kaiku/engine"
	kaikumidi "github.com/kaikusynth/kaiku/midi"
	"github.com/kaikusynth/kaiku/registry"
)

func newTestRig(t *testing.T) (*engine.Engine, *kaikumidi.Handler, kaiku.AudioBuffer) {
	t.Helper()
	e := engine.New(registry.BuiltinEffects(), registry.BuiltinSynths(), "sine", 4)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	e.SetLogger(log)
	e.SetSampleRate(48000)
	return e, kaikumidi.NewHandler(e), make(kaiku.AudioBuffer, 16)
}

func TestHandlerNoteOnOff(t *testing.T) {
	e, h, buf := newTestRig(t)

	h.HandleMessage(gomidi.NoteOn(0, 60, 100))
	h.HandleMessage(gomidi.NoteOn(3, 64, 100)) // channels are merged
	e.Render(buf)
	assert.Equal(t, []byte{60, 64}, e.Voices().PlayingNotes())

	h.HandleMessage(gomidi.NoteOff(0, 60))
	h.HandleMessage(gomidi.NoteOn(3, 64, 0)) // velocity 0 acts as note-off
	e.Render(buf)
	assert.Zero(t, e.Voices().ActiveVoices())
}

func TestHandlerAllNotesOff(t *testing.T) {
	e, h, buf := newTestRig(t)
	h.HandleMessage(gomidi.NoteOn(0, 60, 80))
	h.HandleMessage(gomidi.NoteOn(0, 67, 80))
	h.HandleMessage(gomidi.ControlChange(0, 123, 0))
	e.Render(buf)
	assert.Zero(t, e.Voices().ActiveVoices())
}

func TestHandlerContinuousControllers(t *testing.T) {
	e, h, buf := newTestRig(t)
	h.HandleMessage(gomidi.NoteOn(0, 60, 80))
	// none of these may panic or disturb the held note
	h.HandleMessage(gomidi.Pitchbend(0, 4096))
	h.HandleMessage(gomidi.AfterTouch(0, 64))
	h.HandleMessage(gomidi.ControlChange(0, 74, 100))
	h.HandleMessage(gomidi.ControlChange(0, 71, 30))
	h.HandleMessage(gomidi.ControlChange(0, 1, 50)) // unmapped, ignored
	e.Render(buf)
	assert.Equal(t, []byte{60}, e.Voices().PlayingNotes())
}
