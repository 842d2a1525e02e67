package filters

import (
	"fmt"
	"math"
)

// DCRemoval is a one-pole DC blocker: y[n] = x[n] - x[n-1] + R*y[n-1].
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	poleLocation float64 // R, 0 < R < 1
	cutoffFreq   float64
	sampleRate   int

	x1 float64
	y1 float64
}

// NewDCRemoval creates a DC blocker with the given -3 dB cutoff
func NewDCRemoval(sampleRate int, cutoffFreq float64) (*DCRemoval, error) {
	dc := &DCRemoval{}
	if err := dc.SetCutoffFrequency(sampleRate, cutoffFreq); err != nil {
		return nil, err
	}
	return dc, nil
}

// SetCutoffFrequency recomputes the pole as R = 1 - 2*pi*fc/fs
func (dc *DCRemoval) SetCutoffFrequency(sampleRate int, cutoffFreq float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	r := 1 - 2*math.Pi*cutoffFreq/float64(sampleRate)
	if cutoffFreq <= 0 || r <= 0 {
		return fmt.Errorf("cutoff %.2f Hz out of range for %d Hz", cutoffFreq, sampleRate)
	}
	dc.sampleRate = sampleRate
	dc.cutoffFreq = cutoffFreq
	dc.poleLocation = r
	return nil
}

// Process filters one sample
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters a buffer in place and returns it
func (dc *DCRemoval) ProcessBuffer(buffer []float64) []float64 {
	for i, x := range buffer {
		buffer[i] = dc.Process(x)
	}
	return buffer
}

// Reset clears the filter state
func (dc *DCRemoval) Reset() {
	dc.x1 = 0
	dc.y1 = 0
}

// PoleLocation returns R
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}

// Magnitude returns |H(f)| = |1 - z^-1| / |1 - R z^-1|
func (dc *DCRemoval) Magnitude(freq float64) float64 {
	w := 2 * math.Pi * freq / float64(dc.sampleRate)
	num := math.Hypot(1-math.Cos(w), math.Sin(w))
	den := math.Hypot(1-dc.poleLocation*math.Cos(w), dc.poleLocation*math.Sin(w))
	return num / den
}
