// Package speaker plays a synth Context on the default audio device.
//
// It is kept apart from synth so that offline rendering and MIDI export do
// not link the platform audio backend.
package speaker

import (
	"fmt"
	"sync"
	"time"

	beepspeaker "github.com/gopxl/beep/v2/speaker"

	"github.com/RyanBlaney/trastes/synth"
)

// DefaultBufferDuration is the device buffer length
const DefaultBufferDuration = 50 * time.Millisecond

// Output plays a Context on the default audio device
type Output struct {
	mu      sync.Mutex
	ctx     *synth.Context
	started bool
}

// NewOutput binds a context to the speaker. Only one Output may be open per process.
func NewOutput(ctx *synth.Context) *Output {
	return &Output{ctx: ctx}
}

// Open initialises the device and starts streaming the context
func (o *Output) Open(bufferDuration time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return nil
	}
	if bufferDuration <= 0 {
		bufferDuration = DefaultBufferDuration
	}

	sr := o.ctx.SampleRate()
	if err := beepspeaker.Init(sr, sr.N(bufferDuration)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	beepspeaker.Play(o.ctx)
	o.started = true
	return nil
}

// Close stops playback and releases the device
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return
	}
	beepspeaker.Clear()
	beepspeaker.Close()
	o.started = false
}
