package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/trastes/logging"
)

// ErrMetronomeRunning is returned by Start on a running metronome
var ErrMetronomeRunning = errors.New("metronome already running")

// MetronomeParams configures the metronome runner
type MetronomeParams struct {
	BPM          float64       `json:"bpm"`
	Kit          Kit           `json:"kit"`
	FillEvery    int           `json:"fill_every"`    // Every Nth bar is a fill, 0 disables
	Lookahead    float64       `json:"lookahead"`     // Seconds of audio scheduled ahead of the clock
	PollInterval time.Duration `json:"poll_interval"` // Scheduler wake-up period
	StartDelay   float64       `json:"start_delay"`   // Seconds before the first tick
}

// DefaultMetronomeParams returns a 100 BPM loop with a fill every fourth bar
func DefaultMetronomeParams() MetronomeParams {
	return MetronomeParams{
		BPM:          100,
		Kit:          KitLoop,
		FillEvery:    4,
		Lookahead:    0.1,
		PollInterval: 25 * time.Millisecond,
		StartDelay:   0.05,
	}
}

// Validate checks the parameters are usable
func (p MetronomeParams) Validate() error {
	if p.BPM < MinBPM || p.BPM > MaxBPM {
		return fmt.Errorf("bpm must be between %.0f and %.0f, got %.1f", MinBPM, MaxBPM, p.BPM)
	}
	if _, err := ParseKit(string(p.Kit)); err != nil {
		return err
	}
	if p.FillEvery < 0 {
		return fmt.Errorf("fill_every must not be negative")
	}
	if p.Lookahead <= 0 {
		return fmt.Errorf("lookahead must be positive")
	}
	if p.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if p.Lookahead <= p.PollInterval.Seconds() {
		return fmt.Errorf("lookahead (%.3fs) must exceed poll_interval (%s)", p.Lookahead, p.PollInterval)
	}
	return nil
}

// Tempo bounds
const (
	MinBPM = 20.0
	MaxBPM = 400.0
)

// TickScheduler places metronome subdivisions on an audio clock
type TickScheduler interface {
	InitAudioContext() *Context
	PlayMetronomeTickAt(at float64, kit Kit, accent bool, tick int, fill bool)
}

// Metronome schedules eighth-note ticks ahead of the audio clock. A poll
// loop wakes every PollInterval and queues every tick that falls inside
// the lookahead window at its absolute time, so scheduling latency never
// accumulates into drift.
type Metronome struct {
	scheduler TickScheduler
	logger    logging.Logger

	mu     sync.Mutex
	params MetronomeParams
	next   float64 // Absolute time of the next unscheduled tick
	tick   int
	bar    int
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMetronome creates a stopped metronome
func NewMetronome(scheduler TickScheduler, params MetronomeParams) (*Metronome, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metronome parameters: %w", err)
	}
	return &Metronome{
		scheduler: scheduler,
		params:    params,
		logger:    logging.Component("metronome"),
	}, nil
}

// SetLogger replaces the metronome's logger
func (m *Metronome) SetLogger(logger logging.Logger) {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	m.logger = logger
}

// Start begins scheduling from the start of a bar. It returns
// ErrMetronomeRunning if already started.
func (m *Metronome) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return ErrMetronomeRunning
	}
	m.prime()

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.Info("metronome started", logging.Fields{
		"bpm": m.params.BPM,
		"kit": string(m.params.Kit),
	})

	go m.run(runCtx, m.done, m.params.PollInterval)
	return nil
}

// prime rewinds to the first tick of a bar, StartDelay after the current
// clock time. Callers hold m.mu.
func (m *Metronome) prime() {
	clock := m.scheduler.InitAudioContext()
	m.next = clock.CurrentTime() + m.params.StartDelay
	m.tick = 0
	m.bar = 0
	m.active = true
}

func (m *Metronome) run(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)
	defer m.release(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.scheduleAhead()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scheduleAhead()
		}
	}
}

// release marks the loop finished when it exits on its own, e.g. when the
// parent context is cancelled
func (m *Metronome) release(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == done {
		m.active = false
		m.cancel()
		m.cancel = nil
		m.done = nil
	}
}

// Stop stops scheduling new ticks and waits for the loop to exit. Ticks
// already handed to the audio clock still sound.
func (m *Metronome) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.active = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("metronome stopped")
}

// Running reports whether the scheduler loop is active
func (m *Metronome) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetBPM changes the tempo from the next unscheduled tick
func (m *Metronome) SetBPM(bpm float64) error {
	if bpm < MinBPM || bpm > MaxBPM {
		return fmt.Errorf("bpm must be between %.0f and %.0f, got %.1f", MinBPM, MaxBPM, bpm)
	}
	m.mu.Lock()
	m.params.BPM = bpm
	m.mu.Unlock()
	return nil
}

// SetKit changes the sound kit from the next unscheduled tick
func (m *Metronome) SetKit(kit Kit) error {
	if _, err := ParseKit(string(kit)); err != nil {
		return err
	}
	m.mu.Lock()
	m.params.Kit = kit
	m.mu.Unlock()
	return nil
}

// Params returns the current parameters
func (m *Metronome) Params() MetronomeParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// TickInterval is the duration of one eighth note at a tempo, in seconds
func TickInterval(bpm float64) float64 {
	return 60.0 / bpm / 2.0
}

// scheduleAhead queues every tick due before now+lookahead and returns how many it queued
func (m *Metronome) scheduleAhead() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return 0
	}

	clock := m.scheduler.InitAudioContext()
	horizon := clock.CurrentTime() + m.params.Lookahead

	scheduled := 0
	for m.next < horizon {
		fill := m.params.FillEvery > 0 && (m.bar+1)%m.params.FillEvery == 0
		m.scheduler.PlayMetronomeTickAt(m.next, m.params.Kit, m.tick == 0, m.tick, fill)

		m.next += TickInterval(m.params.BPM)
		m.tick++
		if m.tick == TicksPerBar {
			m.tick = 0
			m.bar++
		}
		scheduled++
	}
	return scheduled
}
