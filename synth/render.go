package synth

import (
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// RenderWAV renders the next duration seconds of a context into a 16-bit
// stereo WAV file, advancing its clock
func RenderWAV(w io.WriteSeeker, ctx *Context, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("render duration must be positive, got %f", duration)
	}

	sr := ctx.SampleRate()
	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	frames := frameCount(int(sr), duration)

	if err := wav.Encode(w, beep.Take(frames, ctx), format); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	return nil
}
