package synth

import (
	"math"
	"math/rand/v2"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/trastes/algorithms/filters"
)

// releaseFloor is the gain an exponential release decays to before the voice ends
const releaseFloor = 0.001

// monoVoice plays a pre-rendered mono signal on both channels
type monoVoice struct {
	frames []float64
	gain   float64
	pos    int
}

func newMonoVoice(frames []float64, gain float64) *monoVoice {
	return &monoVoice{frames: frames, gain: gain}
}

func (v *monoVoice) Stream(samples [][2]float64) (n int, ok bool) {
	if v.pos >= len(v.frames) {
		return 0, false
	}
	n = min(len(samples), len(v.frames)-v.pos)
	for i := 0; i < n; i++ {
		s := v.frames[v.pos+i] * v.gain
		samples[i][0] = s
		samples[i][1] = s
	}
	v.pos += n
	return n, true
}

func (v *monoVoice) Err() error { return nil }

// releaseEnvelope scales a streamer by an exponential decay from gain down to
// gain*releaseFloor over a fixed number of frames, then ends it
type releaseEnvelope struct {
	streamer  beep.Streamer
	gain      float64
	factor    float64
	remaining int
}

func newReleaseEnvelope(s beep.Streamer, gain float64, frames int) *releaseEnvelope {
	frames = max(1, frames)
	return &releaseEnvelope{
		streamer:  s,
		gain:      gain,
		factor:    math.Pow(releaseFloor, 1/float64(frames)),
		remaining: frames,
	}
}

func (e *releaseEnvelope) Stream(samples [][2]float64) (n int, ok bool) {
	if e.remaining <= 0 {
		return 0, false
	}
	want := min(len(samples), e.remaining)
	n, ok = e.streamer.Stream(samples[:want])
	for i := 0; i < n; i++ {
		samples[i][0] *= e.gain
		samples[i][1] *= e.gain
		e.gain *= e.factor
	}
	e.remaining -= n
	if n == 0 && !ok {
		e.remaining = 0
		return 0, false
	}
	return n, true
}

func (e *releaseEnvelope) Err() error { return e.streamer.Err() }

// applyRelease applies the exponential release to a rendered signal in place
func applyRelease(frames []float64) []float64 {
	if len(frames) == 0 {
		return frames
	}
	factor := math.Pow(releaseFloor, 1/float64(len(frames)))
	gain := 1.0
	for i := range frames {
		frames[i] *= gain
		gain *= factor
	}
	return frames
}

func frameCount(sampleRate int, seconds float64) int {
	return max(1, int(math.Round(seconds*float64(sampleRate))))
}

// renderPluck synthesises a plucked string with the Karplus-Strong algorithm:
// a noise burst circulates through a delay line whose two-point average acts
// as the string's loss filter. The averager adds half a sample of delay, so
// the line is sampleRate/freq - 0.5 samples long.
func renderPluck(sampleRate int, freq, duration float64, rng *rand.Rand) []float64 {
	n := frameCount(sampleRate, duration)
	out := make([]float64, n)
	if freq <= 0 {
		return out
	}

	delay := max(2, int(math.Round(float64(sampleRate)/freq-0.5)))
	const damping = 0.996

	for i := 0; i < n; i++ {
		switch {
		case i < delay:
			out[i] = rng.Float64()*2 - 1
		case i == delay:
			out[i] = damping * 0.5 * out[i-delay]
		default:
			out[i] = damping * 0.5 * (out[i-delay] + out[i-delay-1])
		}
	}

	// The noise burst leaves a DC offset that the loop never decays
	if dc, err := filters.NewDCRemoval(sampleRate, 10); err == nil {
		dc.ProcessBuffer(out)
	}
	normalizePeak(out, 0.8)
	return applyRelease(out)
}

// renderTone is the simple metronome beep
func renderTone(sampleRate int, freq, duration float64) []float64 {
	n := frameCount(sampleRate, duration)
	tone, err := generators.SineTone(beep.SampleRate(sampleRate), freq)
	if err != nil {
		return make([]float64, n)
	}
	return applyRelease(drain(tone, n, 0.6))
}

// renderKick is a sine whose pitch sweeps exponentially from 150 Hz to 50 Hz
func renderKick(sampleRate int, duration float64) []float64 {
	n := frameCount(sampleRate, duration)
	out := make([]float64, n)

	const startHz, endHz, sweep = 150.0, 50.0, 0.15
	phase := 0.0
	for i := range out {
		t := float64(i) / float64(sampleRate)
		freq := max(endHz, startHz*math.Pow(endHz/startHz, t/sweep))
		phase += 2 * math.Pi * freq / float64(sampleRate)
		out[i] = math.Sin(phase)
	}
	return applyRelease(out)
}

// renderCowbell mixes two detuned square waves through a bandpass
func renderCowbell(sampleRate int, duration float64) []float64 {
	n := frameCount(sampleRate, duration)
	out := make([]float64, n)

	sr := beep.SampleRate(sampleRate)
	for _, freq := range []float64{587, 845} {
		square, err := generators.SquareTone(sr, freq)
		if err != nil {
			continue
		}
		for i, v := range drain(square, n, 0.5) {
			out[i] += v
		}
	}

	out = filtered(filters.Bandpass, sampleRate, 800, 1.2, out)
	return applyRelease(out)
}

// renderHiHat is white noise through a highpass
func renderHiHat(sampleRate int, duration float64, rng *rand.Rand) []float64 {
	out := whiteNoise(frameCount(sampleRate, duration), rng)
	out = filtered(filters.Highpass, sampleRate, 7000, 0.707, out)
	return applyRelease(out)
}

// renderSnare mixes bandpassed noise with a 180 Hz body
func renderSnare(sampleRate int, duration float64, rng *rand.Rand) []float64 {
	n := frameCount(sampleRate, duration)
	noise := filtered(filters.Bandpass, sampleRate, 1800, 1.0, whiteNoise(n, rng))

	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = 0.7*noise[i] + 0.4*math.Sin(2*math.Pi*180*t)
	}
	return applyRelease(out)
}

// renderHit synthesises one metronome hit at unit gain
func renderHit(hit Hit, sampleRate int, rng *rand.Rand) []float64 {
	switch hit.Sound {
	case SoundHiHat:
		return renderHiHat(sampleRate, 0.05, rng)
	case SoundKick:
		return renderKick(sampleRate, 0.4)
	case SoundCowbell:
		return renderCowbell(sampleRate, 0.3)
	case SoundSnare:
		return renderSnare(sampleRate, 0.18, rng)
	default:
		pitch := hit.Pitch
		if pitch <= 0 {
			pitch = 800
		}
		return renderTone(sampleRate, pitch, 0.08)
	}
}

func whiteNoise(n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

// filtered runs a signal through a biquad, passing it through unchanged if
// the filter cannot be built at this sample rate
func filtered(response filters.Response, sampleRate int, freq, q float64, in []float64) []float64 {
	bq, err := filters.NewBiquad(response, sampleRate, freq, q)
	if err != nil {
		return in
	}
	return bq.ProcessBuffer(in)
}

// drain reads n frames of a streamer's left channel, scaled by gain
func drain(s beep.Streamer, n int, gain float64) []float64 {
	out := make([]float64, n)
	buf := make([][2]float64, 512)
	for pos := 0; pos < n; {
		got, ok := s.Stream(buf[:min(len(buf), n-pos)])
		for i := 0; i < got; i++ {
			out[pos+i] = buf[i][0] * gain
		}
		pos += got
		if !ok || got == 0 {
			break
		}
	}
	return out
}

func normalizePeak(frames []float64, peak float64) {
	if len(frames) == 0 {
		return
	}
	maxAbs := math.Max(floats.Max(frames), -floats.Min(frames))
	if maxAbs == 0 {
		return
	}
	floats.Scale(peak/maxAbs, frames)
}
