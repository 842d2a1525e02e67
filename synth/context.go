package synth

import (
	"container/heap"
	"math"
	"sort"
	"sync"

	"github.com/gopxl/beep/v2"
)

// State is the lifecycle state of an audio context
type State int

const (
	// Uninitialized contexts have never been resumed
	Uninitialized State = iota
	// Running contexts render scheduled voices and advance the clock
	Running
	// Suspended contexts output silence with a frozen clock
	Suspended
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

type scheduledVoice struct {
	start    int // absolute frame
	seq      uint64
	streamer beep.Streamer
}

// voiceQueue is a min-heap of voices ordered by start frame, then insertion order
type voiceQueue []*scheduledVoice

func (q voiceQueue) Len() int { return len(q) }
func (q voiceQueue) Less(i, j int) bool {
	if q[i].start != q[j].start {
		return q[i].start < q[j].start
	}
	return q[i].seq < q[j].seq
}
func (q voiceQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *voiceQueue) Push(x any)   { *q = append(*q, x.(*scheduledVoice)) }
func (q *voiceQueue) Pop() any {
	old := *q
	n := len(old)
	v := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return v
}

// Context is a beep.Streamer that mixes voices scheduled at absolute times
// on its own frame clock. The clock advances only while the context is
// running and being streamed, so schedule times stay sample accurate
// regardless of wall-clock jitter in the callers.
type Context struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	state      State
	frame      int
	queue      voiceQueue
	active     []*scheduledVoice
	seq        uint64
	sources    int
	volume     float64
	scratch    [][2]float64
}

// NewContext creates an uninitialized context at the given sample rate
func NewContext(sampleRate beep.SampleRate) *Context {
	return &Context{
		sampleRate: sampleRate,
		state:      Uninitialized,
		volume:     1.0,
	}
}

// SampleRate returns the context's sample rate
func (c *Context) SampleRate() beep.SampleRate {
	return c.sampleRate
}

// State returns the current lifecycle state
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume starts or restarts rendering. Calling it on a running context is a no-op.
func (c *Context) Resume() {
	c.mu.Lock()
	c.state = Running
	c.mu.Unlock()
}

// Suspend freezes the clock. An uninitialized context stays uninitialized.
func (c *Context) Suspend() {
	c.mu.Lock()
	if c.state == Running {
		c.state = Suspended
	}
	c.mu.Unlock()
}

// CurrentTime returns the seconds of audio rendered so far
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds(c.frame)
}

func (c *Context) seconds(frame int) float64 {
	return float64(frame) / float64(c.sampleRate)
}

// Schedule queues a voice to start at an absolute context time in seconds.
// Times already in the past start with the next rendered frame.
func (c *Context) Schedule(at float64, voice beep.Streamer) {
	if voice == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.frame
	if !math.IsNaN(at) && !math.IsInf(at, 0) {
		start = max(c.frame, int(math.Round(at*float64(c.sampleRate))))
	}

	c.seq++
	c.sources++
	heap.Push(&c.queue, &scheduledVoice{start: start, seq: c.seq, streamer: voice})
}

// Play starts a voice as soon as possible
func (c *Context) Play(voice beep.Streamer) {
	c.Schedule(math.Inf(-1), voice)
}

// SourceCount returns how many voices have ever been scheduled
func (c *Context) SourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources
}

// Pending returns the number of queued and sounding voices
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) + len(c.active)
}

// Upcoming returns the start times of voices that have not started yet, in order
func (c *Context) Upcoming() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	starts := make([]float64, len(c.queue))
	for i, v := range c.queue {
		starts[i] = c.seconds(v.start)
	}
	sort.Float64s(starts)
	return starts
}

// SetVolume sets the master gain applied to the mix
func (c *Context) SetVolume(volume float64) {
	c.mu.Lock()
	c.volume = max(0, volume)
	c.mu.Unlock()
}

// Volume returns the master gain
func (c *Context) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Stream renders the next block of the mix. It never drains.
func (c *Context) Stream(samples [][2]float64) (n int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(samples)
	if c.state != Running {
		return len(samples), true
	}

	n = len(samples)
	end := c.frame + n
	for c.queue.Len() > 0 && c.queue[0].start < end {
		c.active = append(c.active, heap.Pop(&c.queue).(*scheduledVoice))
	}

	if cap(c.scratch) < n {
		c.scratch = make([][2]float64, n)
	}

	live := c.active[:0]
	for _, v := range c.active {
		offset := max(0, v.start-c.frame)
		want := n - offset
		buf := c.scratch[:want]

		got, more := v.streamer.Stream(buf)
		for i := 0; i < got; i++ {
			samples[offset+i][0] += buf[i][0]
			samples[offset+i][1] += buf[i][1]
		}
		if more && got == want {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(c.active); i++ {
		c.active[i] = nil
	}
	c.active = live

	if c.volume != 1.0 {
		for i := range samples {
			samples[i][0] *= c.volume
			samples[i][1] *= c.volume
		}
	}

	c.frame = end
	return n, true
}

// Err always returns nil; voice errors end the voice
func (c *Context) Err() error {
	return nil
}
