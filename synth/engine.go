package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/RyanBlaney/trastes/logging"
)

// StrumDirection orders chord onsets
type StrumDirection string

const (
	StrumDown StrumDirection = "down" // Lowest note first
	StrumUp   StrumDirection = "up"   // Highest note first
)

// ParseStrumDirection parses "down" or "up"
func ParseStrumDirection(name string) (StrumDirection, error) {
	switch StrumDirection(strings.ToLower(strings.TrimSpace(name))) {
	case StrumDown, "":
		return StrumDown, nil
	case StrumUp:
		return StrumUp, nil
	default:
		return "", fmt.Errorf("unknown strum direction %q", name)
	}
}

// EngineParams configures audio rendering
type EngineParams struct {
	SampleRate      int            `json:"sample_rate"`
	NoteDuration    float64        `json:"note_duration"` // Seconds
	StrumDelay      float64        `json:"strum_delay"`   // Seconds between chord onsets
	StrumDirection  StrumDirection `json:"strum_direction"`
	ResampleQuality int            `json:"resample_quality"` // beep resampler quality, 1-64
	MasterVolume    float64        `json:"master_volume"`
	MetronomeVolume float64        `json:"metronome_volume"`

	StringSamples []SampleSource `json:"string_samples"`
	DrumSamples   []SampleSource `json:"drum_samples"` // Named kick, snare and hihat
}

// DefaultEngineParams returns settings for 44.1 kHz playback with the open
// string and drum samples under ./samples
func DefaultEngineParams() EngineParams {
	return EngineParams{
		SampleRate:      44100,
		NoteDuration:    1.5,
		StrumDelay:      0.03,
		StrumDirection:  StrumDown,
		ResampleQuality: 4,
		MasterVolume:    1.0,
		MetronomeVolume: 0.8,
		StringSamples: []SampleSource{
			{Name: "E4", URL: "samples/guitar/e4.wav", BaseFrequency: 329.63},
			{Name: "B3", URL: "samples/guitar/b3.wav", BaseFrequency: 246.94},
			{Name: "G3", URL: "samples/guitar/g3.wav", BaseFrequency: 196.00},
			{Name: "D3", URL: "samples/guitar/d3.wav", BaseFrequency: 146.83},
			{Name: "A2", URL: "samples/guitar/a2.wav", BaseFrequency: 110.00},
			{Name: "E2", URL: "samples/guitar/e2.wav", BaseFrequency: 82.41},
		},
		DrumSamples: []SampleSource{
			{Name: "kick", URL: "samples/drums/kick.wav"},
			{Name: "snare", URL: "samples/drums/snare.wav"},
			{Name: "hihat", URL: "samples/drums/hihat.wav"},
		},
	}
}

// Onset is one note of a strummed chord
type Onset struct {
	Frequency float64 `json:"frequency"`
	At        float64 `json:"at"` // Absolute context time in seconds
}

// StrumOnsets orders chord notes by pitch and staggers them by delay. Up
// strums start from the highest note. Non-positive frequencies are dropped.
func StrumOnsets(freqs []float64, at, delay float64, direction StrumDirection) []Onset {
	sorted := make([]float64, 0, len(freqs))
	for _, f := range freqs {
		if f > 0 && !math.IsInf(f, 0) {
			sorted = append(sorted, f)
		}
	}
	slices.Sort(sorted)
	if direction == StrumUp {
		slices.Reverse(sorted)
	}

	onsets := make([]Onset, len(sorted))
	for i, f := range sorted {
		onsets[i] = Onset{Frequency: f, At: at + float64(i)*delay}
	}
	return onsets
}

// Engine renders notes, chords and metronome ticks onto a shared Context.
// Sample caches and metronome volume are owned by the engine.
type Engine struct {
	params EngineParams
	logger logging.Logger

	once sync.Once
	ctx  *Context

	stringBank *SampleBank
	drumBank   *SampleBank

	mu              sync.Mutex // Guards rng and metronomeVolume
	rng             *rand.Rand
	metronomeVolume float64
}

// Option configures an Engine
type Option func(*engineOptions)

type engineOptions struct {
	logger  logging.Logger
	client  *http.Client
	context *Context
	seed    uint64
}

// WithLogger sets the engine's logger
func WithLogger(logger logging.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithHTTPClient sets the client used to fetch remote samples
func WithHTTPClient(client *http.Client) Option {
	return func(o *engineOptions) { o.client = client }
}

// WithContext renders onto an existing context instead of creating one
func WithContext(c *Context) Option {
	return func(o *engineOptions) { o.context = c }
}

// WithSeed fixes the noise generator seed
func WithSeed(seed uint64) Option {
	return func(o *engineOptions) { o.seed = seed }
}

// NewEngine creates an engine. The audio context is created lazily by
// InitAudioContext or the first playback call.
func NewEngine(params EngineParams, opts ...Option) *Engine {
	defaults := DefaultEngineParams()
	if params.SampleRate <= 0 {
		params.SampleRate = defaults.SampleRate
	}
	if params.NoteDuration <= 0 {
		params.NoteDuration = defaults.NoteDuration
	}
	if params.MasterVolume <= 0 {
		params.MasterVolume = defaults.MasterVolume
	}
	if params.ResampleQuality < 1 || params.ResampleQuality > 64 {
		params.ResampleQuality = defaults.ResampleQuality
	}

	o := engineOptions{seed: 0x5eed}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Component("synth_engine")
	}
	if o.context != nil {
		params.SampleRate = int(o.context.SampleRate())
	}

	return &Engine{
		params:          params,
		logger:          o.logger,
		ctx:             o.context,
		stringBank:      NewSampleBank(o.client, o.logger.WithFields(logging.Fields{"bank": "strings"})),
		drumBank:        NewSampleBank(o.client, o.logger.WithFields(logging.Fields{"bank": "drums"})),
		rng:             rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
		metronomeVolume: params.MetronomeVolume,
	}
}

// InitAudioContext creates the context on first use and resumes it on every
// call, re-arming audio after a suspension.
func (e *Engine) InitAudioContext() *Context {
	e.once.Do(func() {
		if e.ctx == nil {
			e.ctx = NewContext(beep.SampleRate(e.params.SampleRate))
		}
		e.ctx.SetVolume(e.params.MasterVolume)
		e.logger.Debug("audio context initialized", logging.Fields{
			"sample_rate": int(e.ctx.SampleRate()),
		})
	})
	e.ctx.Resume()
	return e.ctx
}

// Params returns the engine's configuration
func (e *Engine) Params() EngineParams {
	return e.params
}

// StringSamples returns the open-string sample bank
func (e *Engine) StringSamples() *SampleBank {
	return e.stringBank
}

// DrumSamples returns the drum sample bank
func (e *Engine) DrumSamples() *SampleBank {
	return e.drumBank
}

// LoadSamples loads string and drum samples concurrently. Failures are
// logged and joined; whatever loaded is usable and the rest falls back to
// synthesis.
func (e *Engine) LoadSamples(ctx context.Context) error {
	var stringsErr, drumsErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stringsErr = e.stringBank.LoadAll(ctx, e.params.StringSamples)
	}()
	go func() {
		defer wg.Done()
		drumsErr = e.drumBank.LoadAll(ctx, e.params.DrumSamples)
	}()
	wg.Wait()

	e.logger.Info("samples loaded", logging.Fields{
		"strings": e.stringBank.Len(),
		"drums":   e.drumBank.Len(),
	})
	return errors.Join(stringsErr, drumsErr)
}

// SetMetronomeVolume sets the gain applied to metronome hits
func (e *Engine) SetMetronomeVolume(volume float64) {
	e.mu.Lock()
	e.metronomeVolume = math.Max(0, math.Min(volume, 1))
	e.mu.Unlock()
}

// MetronomeVolume returns the gain applied to metronome hits
func (e *Engine) MetronomeVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metronomeVolume
}

// PlayNote plays a note now. A non-positive duration uses the configured default.
func (e *Engine) PlayNote(freq, duration float64) {
	c := e.InitAudioContext()
	e.PlayNoteAt(c.CurrentTime(), freq, duration)
}

// PlayNoteAt schedules a note at an absolute context time
func (e *Engine) PlayNoteAt(at, freq, duration float64) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		e.logger.Warn("ignoring note with invalid frequency", logging.Fields{"frequency": freq})
		return
	}
	if duration <= 0 {
		duration = e.params.NoteDuration
	}

	c := e.InitAudioContext()
	c.Schedule(at, e.noteVoice(freq, duration))
}

// PlayChord strums frequencies now in the configured direction
func (e *Engine) PlayChord(freqs []float64) {
	c := e.InitAudioContext()
	e.PlayChordAt(c.CurrentTime(), freqs, e.params.StrumDirection)
}

// PlayChordAt strums frequencies starting at an absolute context time
func (e *Engine) PlayChordAt(at float64, freqs []float64, direction StrumDirection) {
	for _, onset := range StrumOnsets(freqs, at, e.params.StrumDelay, direction) {
		e.PlayNoteAt(onset.At, onset.Frequency, e.params.NoteDuration)
	}
}

// PlayMetronomeTick plays one metronome subdivision now
func (e *Engine) PlayMetronomeTick(kit Kit, accent bool, tick int, fill bool) {
	c := e.InitAudioContext()
	e.PlayMetronomeTickAt(c.CurrentTime(), kit, accent, tick, fill)
}

// PlayMetronomeTickAt schedules one metronome subdivision at an absolute
// context time. Ticks without hits schedule nothing.
func (e *Engine) PlayMetronomeTickAt(at float64, kit Kit, accent bool, tick int, fill bool) {
	hits := Pattern(kit, accent, tick, fill)
	if len(hits) == 0 {
		return
	}

	c := e.InitAudioContext()
	volume := e.MetronomeVolume()
	for _, hit := range hits {
		c.Schedule(at, e.hitVoice(hit, hit.Velocity*volume))
	}
}

// noteVoice plays the nearest open-string sample shifted to freq, or a
// plucked-string model when no sample is loaded
func (e *Engine) noteVoice(freq, duration float64) beep.Streamer {
	frames := frameCount(e.params.SampleRate, duration)

	if sample, ok := e.stringBank.Nearest(freq); ok {
		src := e.sampleStreamer(sample, freq/sample.BaseFrequency)
		return newReleaseEnvelope(beep.Take(frames, src), 1.0, frames)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return newMonoVoice(renderPluck(e.params.SampleRate, freq, duration, e.rng), 1.0)
}

func (e *Engine) hitVoice(hit Hit, gain float64) beep.Streamer {
	if hit.Sampled {
		if sample, err := e.drumBank.Get(hit.Sound.String()); err == nil {
			return &effects.Gain{Streamer: e.sampleStreamer(sample, 1.0), Gain: gain - 1}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return newMonoVoice(renderHit(hit, e.params.SampleRate, e.rng), gain)
}

// sampleStreamer plays a buffer at a pitch ratio, correcting for any
// difference between the file's and the context's sample rate
func (e *Engine) sampleStreamer(sample *Sample, ratio float64) beep.Streamer {
	buf := sample.Buffer
	src := buf.Streamer(0, buf.Len())

	ratio *= float64(buf.Format().SampleRate) / float64(e.params.SampleRate)
	if math.Abs(ratio-1) < 1e-9 {
		return src
	}
	return beep.ResampleRatio(e.params.ResampleQuality, ratio, src)
}
