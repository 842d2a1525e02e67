package filters

import (
	"fmt"
	"math"
)

// Response selects the biquad transfer function
type Response int

const (
	// Bandpass passes a band around the center frequency (constant 0 dB peak gain)
	Bandpass Response = iota
	// Highpass attenuates below the corner frequency
	Highpass
	// Lowpass attenuates above the corner frequency
	Lowpass
)

// String returns the response name
func (r Response) String() string {
	switch r {
	case Bandpass:
		return "bandpass"
	case Highpass:
		return "highpass"
	case Lowpass:
		return "lowpass"
	default:
		return "unknown"
	}
}

// Biquad is a second-order IIR section used to shape synthesized percussion:
// noise through a highpass for hi-hats, square partials through a bandpass
// for the cowbell.
//
// Coefficients follow Robert Bristow-Johnson's audio EQ cookbook.
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type Biquad struct {
	response   Response
	sampleRate int
	freq       float64 // Center or corner frequency in Hz
	q          float64

	b0, b1, b2 float64
	a1, a2     float64 // Normalised by a0

	// Direct form II state
	w1, w2 float64
}

// NewBandpassFilter creates a bandpass filter from a center frequency and bandwidth in Hz.
// The Q factor is centerFreq/bandwidth.
func NewBandpassFilter(sampleRate int, centerFreq, bandwidth float64) (*Biquad, error) {
	if bandwidth <= 0 {
		return nil, fmt.Errorf("bandwidth must be positive")
	}
	return NewBiquad(Bandpass, sampleRate, centerFreq, centerFreq/bandwidth)
}

// NewBiquad creates a filter with an explicit response and Q factor
func NewBiquad(response Response, sampleRate int, freq, q float64) (*Biquad, error) {
	bq := &Biquad{response: response, sampleRate: sampleRate}
	if err := bq.SetParameters(freq, q); err != nil {
		return nil, err
	}
	return bq, nil
}

// SetParameters updates frequency and Q and recomputes coefficients.
// Filter state is kept so sweeps do not click.
func (bq *Biquad) SetParameters(freq, q float64) error {
	if bq.sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", bq.sampleRate)
	}
	nyquist := float64(bq.sampleRate) / 2
	if freq <= 0 || freq >= nyquist {
		return fmt.Errorf("frequency must be between 0 and Nyquist (%.0f Hz), got %.1f", nyquist, freq)
	}
	if q <= 0 {
		return fmt.Errorf("Q factor must be positive, got %f", q)
	}

	bq.freq = freq
	bq.q = q
	bq.computeCoefficients()
	return nil
}

func (bq *Biquad) computeCoefficients() {
	w0 := 2.0 * math.Pi * bq.freq / float64(bq.sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * bq.q)

	var b0, b1, b2 float64
	switch bq.response {
	case Highpass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
	case Lowpass:
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
	default:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	}
	a0 := 1 + alpha

	bq.b0 = b0 / a0
	bq.b1 = b1 / a0
	bq.b2 = b2 / a0
	bq.a1 = -2 * cosW0 / a0
	bq.a2 = (1 - alpha) / a0
}

// Process filters a single sample.
//
//	w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
//	y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
func (bq *Biquad) Process(input float64) float64 {
	w := input - bq.a1*bq.w1 - bq.a2*bq.w2
	output := bq.b0*w + bq.b1*bq.w1 + bq.b2*bq.w2
	bq.w2 = bq.w1
	bq.w1 = w
	return output
}

// ProcessBuffer filters a buffer into a new slice
func (bq *Biquad) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = bq.Process(sample)
	}
	return output
}

// Reset clears the delay line
func (bq *Biquad) Reset() {
	bq.w1, bq.w2 = 0, 0
}

// Magnitude returns the linear gain of the filter at a frequency.
//
// H(e^jw) = (b0 + b1*e^-jw + b2*e^-j2w) / (1 + a1*e^-jw + a2*e^-j2w)
func (bq *Biquad) Magnitude(frequency float64) float64 {
	w := 2.0 * math.Pi * frequency / float64(bq.sampleRate)
	z1 := complex(math.Cos(w), -math.Sin(w))
	z2 := z1 * z1

	num := complex(bq.b0, 0) + complex(bq.b1, 0)*z1 + complex(bq.b2, 0)*z2
	den := 1 + complex(bq.a1, 0)*z1 + complex(bq.a2, 0)*z2
	h := num / den
	return math.Hypot(real(h), imag(h))
}

// Parameters returns the current frequency and Q
func (bq *Biquad) Parameters() (freq, q float64) {
	return bq.freq, bq.q
}

// Response returns the filter's transfer function type
func (bq *Biquad) Response() Response {
	return bq.response
}
