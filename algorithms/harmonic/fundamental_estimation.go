package harmonic

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Estimate is a fundamental frequency reading
type Estimate struct {
	Frequency  float64 `json:"frequency"`  // Hz, 0 when unvoiced
	Confidence float64 `json:"confidence"` // 0-1
	Method     string  `json:"method"`
}

// EstimatorParams configures fundamental frequency estimation
type EstimatorParams struct {
	MinF0         float64 `json:"min_f0"`
	MaxF0         float64 `json:"max_f0"`
	YINThreshold  float64 `json:"yin_threshold"`  // CMNDF dip accepted as periodic
	SilenceRMS    float64 `json:"silence_rms"`    // Frames quieter than this are unvoiced
	MinConfidence float64 `json:"min_confidence"` // Autocorrelation fallback acceptance
}

// DefaultEstimatorParams covers the guitar range, drop tunings to the top of the neck
func DefaultEstimatorParams() EstimatorParams {
	return EstimatorParams{
		MinF0:         60.0,
		MaxF0:         1400.0,
		YINThreshold:  0.15,
		SilenceRMS:    1e-3,
		MinConfidence: 0.5,
	}
}

// FundamentalEstimation provides fundamental frequency (F0) estimation
type FundamentalEstimation struct {
	sampleRate int
	params     EstimatorParams
}

// NewFundamentalEstimation creates a new F0 estimator
func NewFundamentalEstimation(sampleRate int, minF0, maxF0 float64) *FundamentalEstimation {
	params := DefaultEstimatorParams()
	params.MinF0 = minF0
	params.MaxF0 = maxF0
	return NewFundamentalEstimationWithParams(sampleRate, params)
}

// NewFundamentalEstimationWithParams creates an estimator with custom parameters
func NewFundamentalEstimationWithParams(sampleRate int, params EstimatorParams) *FundamentalEstimation {
	return &FundamentalEstimation{
		sampleRate: sampleRate,
		params:     params,
	}
}

// Estimate removes DC, rejects silent frames, then runs YIN with an
// autocorrelation fallback. The boolean is false when no pitch was found.
func (fe *FundamentalEstimation) Estimate(signal []float64) (Estimate, bool) {
	if len(signal) < 2 {
		return Estimate{}, false
	}

	frame := make([]float64, len(signal))
	copy(frame, signal)
	floats.AddConst(-stat.Mean(frame, nil), frame)

	if rms := floats.Norm(frame, 2) / math.Sqrt(float64(len(frame))); rms < fe.params.SilenceRMS {
		return Estimate{}, false
	}

	if f0, aperiodicity := fe.yin(frame, fe.params.YINThreshold); f0 > 0 {
		return Estimate{Frequency: f0, Confidence: 1 - aperiodicity, Method: "yin"}, true
	}

	if f0, peak := fe.autocorrelation(frame); f0 > 0 && peak >= fe.params.MinConfidence {
		return Estimate{Frequency: f0, Confidence: peak, Method: "autocorrelation"}, true
	}

	return Estimate{}, false
}

// EstimateYIN estimates F0 using the YIN algorithm, 0 if aperiodic
func (fe *FundamentalEstimation) EstimateYIN(signal []float64, threshold float64) float64 {
	f0, _ := fe.yin(signal, threshold)
	return f0
}

// EstimateAutocorrelation estimates F0 from the highest autocorrelation peak
func (fe *FundamentalEstimation) EstimateAutocorrelation(signal []float64) float64 {
	f0, _ := fe.autocorrelation(signal)
	return f0
}

// EstimateSpectral returns the frequency of the strongest Hann-windowed FFT
// peak inside the F0 range. Suited to pure tones, not harmonic-rich signals.
func (fe *FundamentalEstimation) EstimateSpectral(signal []float64) float64 {
	n := len(signal)
	if n < 4 {
		return 0.0
	}

	windowed := make([]float64, n)
	copy(windowed, signal)
	window.Apply(windowed, window.Hann)
	spectrum := fft.FFTReal(windowed)

	binHz := float64(fe.sampleRate) / float64(n)
	lo := max(1, int(fe.params.MinF0/binHz))
	hi := min(n/2-1, int(math.Ceil(fe.params.MaxF0/binHz)))
	if lo >= hi {
		return 0.0
	}

	mags := make([]float64, hi+2)
	for i := lo - 1; i <= hi+1; i++ {
		c := spectrum[i]
		mags[i] = math.Hypot(real(c), imag(c))
	}

	peak := lo + floats.MaxIdx(mags[lo:hi+1])
	if mags[peak] == 0 {
		return 0.0
	}
	return parabolicInterpolation(mags, peak) * binHz
}

func (fe *FundamentalEstimation) lagBounds(n int) (minLag, maxLag int) {
	minLag = max(1, int(float64(fe.sampleRate)/fe.params.MaxF0))
	maxLag = min(n/2-1, int(float64(fe.sampleRate)/fe.params.MinF0))
	return minLag, maxLag
}

// yin returns the F0 and the CMNDF value at the chosen lag
func (fe *FundamentalEstimation) yin(signal []float64, threshold float64) (float64, float64) {
	minLag, maxLag := fe.lagBounds(len(signal))
	if maxLag <= minLag {
		return 0.0, 1.0
	}

	cmndf := cumulativeMeanNormalizedDifference(signal, maxLag)

	for lag := minLag; lag <= maxLag; lag++ {
		if cmndf[lag] >= threshold {
			continue
		}
		// Walk down to the bottom of the dip
		for lag+1 <= maxLag && cmndf[lag+1] < cmndf[lag] {
			lag++
		}
		period := parabolicInterpolation(cmndf, lag)
		if period <= 0 {
			return 0.0, 1.0
		}
		return float64(fe.sampleRate) / period, cmndf[lag]
	}

	return 0.0, 1.0
}

// cumulativeMeanNormalizedDifference computes YIN's d'(tau) over a fixed
// integration window of len(signal)-maxLag samples
func cumulativeMeanNormalizedDifference(signal []float64, maxLag int) []float64 {
	width := len(signal) - maxLag
	cmndf := make([]float64, maxLag+2)
	cmndf[0] = 1.0

	running := 0.0
	for lag := 1; lag < len(cmndf); lag++ {
		sum := 0.0
		for i := 0; i < width && i+lag < len(signal); i++ {
			d := signal[i] - signal[i+lag]
			sum += d * d
		}
		running += sum
		if running > 0 {
			cmndf[lag] = sum * float64(lag) / running
		} else {
			cmndf[lag] = 1.0
		}
	}
	return cmndf
}

// autocorrelation returns the F0 at the best normalised autocorrelation peak and its height
func (fe *FundamentalEstimation) autocorrelation(signal []float64) (float64, float64) {
	minLag, maxLag := fe.lagBounds(len(signal))
	if maxLag <= minLag {
		return 0.0, 0.0
	}

	autocorr := make([]float64, maxLag+2)
	for lag := range autocorr {
		autocorr[lag] = floats.Dot(signal[:len(signal)-lag], signal[lag:]) / float64(len(signal)-lag)
	}
	if autocorr[0] <= 0 {
		return 0.0, 0.0
	}
	floats.Scale(1/autocorr[0], autocorr)

	bestLag := 0
	bestValue := -1.0
	for lag := minLag; lag <= maxLag; lag++ {
		if autocorr[lag] > autocorr[lag-1] && autocorr[lag] > autocorr[lag+1] && autocorr[lag] > bestValue {
			bestValue = autocorr[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0.0, 0.0
	}

	return float64(fe.sampleRate) / parabolicInterpolation(autocorr, bestLag), bestValue
}

// parabolicInterpolation provides sub-sample accuracy around a peak or dip
func parabolicInterpolation(data []float64, index int) float64 {
	if index <= 0 || index >= len(data)-1 {
		return float64(index)
	}

	y1 := data[index-1]
	y2 := data[index]
	y3 := data[index+1]

	denom := 2.0 * (2.0*y2 - y1 - y3)
	if math.Abs(denom) < 1e-12 {
		return float64(index)
	}

	return float64(index) + (y3-y1)/denom
}
