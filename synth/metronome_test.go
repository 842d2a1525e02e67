package synth

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/RyanBlaney/trastes/logging"
)

type recordedTick struct {
	at     float64
	kit    Kit
	accent bool
	tick   int
	fill   bool
}

// tickRecorder is a TickScheduler that records ticks against a real clock
type tickRecorder struct {
	clock *Context

	mu    sync.Mutex
	ticks []recordedTick
}

func newTickRecorder() *tickRecorder {
	return &tickRecorder{clock: NewContext(1000)}
}

func (r *tickRecorder) InitAudioContext() *Context {
	r.clock.Resume()
	return r.clock
}

func (r *tickRecorder) PlayMetronomeTickAt(at float64, kit Kit, accent bool, tick int, fill bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, recordedTick{at, kit, accent, tick, fill})
}

func (r *tickRecorder) recorded() []recordedTick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedTick(nil), r.ticks...)
}

// advance moves the recorder's clock forward by rendering silence
func (r *tickRecorder) advance(seconds float64) {
	render(r.clock, int(seconds*1000), 100)
}

func testMetronome(t *testing.T, rec *tickRecorder, params MetronomeParams) *Metronome {
	t.Helper()
	m, err := NewMetronome(rec, params)
	if err != nil {
		t.Fatal(err)
	}
	m.SetLogger(&logging.NoOpLogger{})
	return m
}

func TestMetronomeScheduleAhead(t *testing.T) {
	rec := newTickRecorder()
	params := DefaultMetronomeParams()
	params.BPM = 120 // 0.25 s per eighth
	params.StartDelay = 0.05
	m := testMetronome(t, rec, params)

	if n := m.scheduleAhead(); n != 0 {
		t.Fatalf("stopped metronome scheduled %d ticks", n)
	}

	m.mu.Lock()
	m.prime()
	m.mu.Unlock()

	if n := m.scheduleAhead(); n != 1 {
		t.Fatalf("first pass scheduled %d ticks, want 1", n)
	}
	if n := m.scheduleAhead(); n != 0 {
		t.Fatalf("repeat pass without clock movement scheduled %d ticks", n)
	}

	rec.advance(1.0)
	if n := m.scheduleAhead(); n != 4 {
		t.Fatalf("after 1s scheduled %d ticks, want 4", n)
	}

	ticks := rec.recorded()
	for i, tick := range ticks {
		want := 0.05 + float64(i)*0.25
		if math.Abs(tick.at-want) > 1e-9 {
			t.Errorf("tick %d at %.6f, want %.6f", i, tick.at, want)
		}
		if tick.tick != i%TicksPerBar {
			t.Errorf("tick %d has subdivision %d", i, tick.tick)
		}
		if tick.accent != (tick.tick == 0) {
			t.Errorf("tick %d accent = %v", i, tick.accent)
		}
	}
}

func TestMetronomeNoDrift(t *testing.T) {
	rec := newTickRecorder()
	params := DefaultMetronomeParams()
	params.BPM = 97
	m := testMetronome(t, rec, params)

	m.mu.Lock()
	m.prime()
	m.mu.Unlock()

	// Irregular wake-ups must not shift tick times
	for _, step := range []float64{0.013, 0.2, 0.051, 0.7, 0.002, 1.3, 0.09} {
		rec.advance(step)
		m.scheduleAhead()
	}

	interval := TickInterval(97)
	for i, tick := range rec.recorded() {
		want := params.StartDelay + float64(i)*interval
		if math.Abs(tick.at-want) > 1e-9 {
			t.Fatalf("tick %d at %.9f, want %.9f", i, tick.at, want)
		}
	}
}

func TestMetronomeFillBars(t *testing.T) {
	rec := newTickRecorder()
	params := DefaultMetronomeParams()
	params.BPM = 240
	params.FillEvery = 2
	m := testMetronome(t, rec, params)

	m.mu.Lock()
	m.prime()
	m.mu.Unlock()

	rec.advance(4.0) // 4 bars at 240 BPM
	m.scheduleAhead()

	ticks := rec.recorded()
	if len(ticks) < 4*TicksPerBar {
		t.Fatalf("scheduled %d ticks, want at least %d", len(ticks), 4*TicksPerBar)
	}
	for i, tick := range ticks[:4*TicksPerBar] {
		bar := i / TicksPerBar
		if want := bar%2 == 1; tick.fill != want {
			t.Errorf("bar %d tick %d fill = %v, want %v", bar, tick.tick, tick.fill, want)
		}
		if tick.kit != KitLoop {
			t.Errorf("tick %d kit = %s", i, tick.kit)
		}
	}
}

func TestMetronomeSetBPM(t *testing.T) {
	rec := newTickRecorder()
	params := DefaultMetronomeParams()
	params.BPM = 120
	m := testMetronome(t, rec, params)

	m.mu.Lock()
	m.prime()
	m.mu.Unlock()
	m.scheduleAhead() // tick at 0.05

	if err := m.SetBPM(60); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBPM(1000); err == nil {
		t.Error("out of range tempo should be rejected")
	}

	rec.advance(1.0)
	m.scheduleAhead()

	ticks := rec.recorded()
	// Next tick was already placed at 0.30 by the 120 BPM step; later ticks use 0.5 s
	want := []float64{0.05, 0.30, 0.80}
	if len(ticks) != len(want) {
		t.Fatalf("got %d ticks, want %d", len(ticks), len(want))
	}
	for i := range want {
		if math.Abs(ticks[i].at-want[i]) > 1e-9 {
			t.Errorf("tick %d at %.3f, want %.3f", i, ticks[i].at, want[i])
		}
	}
}

func TestMetronomeStartStop(t *testing.T) {
	rec := newTickRecorder()
	params := DefaultMetronomeParams()
	params.PollInterval = time.Millisecond
	params.Lookahead = 0.1
	m := testMetronome(t, rec, params)

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrMetronomeRunning) {
		t.Errorf("second Start = %v, want ErrMetronomeRunning", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.recorded()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(rec.recorded()) == 0 {
		t.Fatal("running metronome scheduled nothing")
	}

	m.Stop()
	if m.Running() {
		t.Error("Running should be false after Stop")
	}
	stopped := len(rec.recorded())

	rec.advance(2.0)
	time.Sleep(10 * time.Millisecond)
	if got := len(rec.recorded()); got != stopped {
		t.Errorf("ticks scheduled after Stop: %d -> %d", stopped, got)
	}

	m.Stop() // idempotent
}

func TestMetronomeParentCancel(t *testing.T) {
	rec := newTickRecorder()
	params := DefaultMetronomeParams()
	params.PollInterval = time.Millisecond
	m := testMetronome(t, rec, params)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for m.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Running() {
		t.Fatal("metronome should stop when its parent context is cancelled")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Errorf("restart after cancel: %v", err)
	}
	m.Stop()
}

func TestMetronomeParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*MetronomeParams)
	}{
		{"tempo too slow", func(p *MetronomeParams) { p.BPM = 5 }},
		{"unknown kit", func(p *MetronomeParams) { p.Kit = "tabla" }},
		{"negative fill", func(p *MetronomeParams) { p.FillEvery = -1 }},
		{"no lookahead", func(p *MetronomeParams) { p.Lookahead = 0 }},
		{"lookahead shorter than poll", func(p *MetronomeParams) { p.PollInterval = 200 * time.Millisecond }},
	}

	if err := DefaultMetronomeParams().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultMetronomeParams()
			tt.modify(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
			if _, err := NewMetronome(newTickRecorder(), p); err == nil {
				t.Error("NewMetronome should reject invalid parameters")
			}
		})
	}
}
