package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/RyanBlaney/trastes/logging"
)

var (
	// ErrSampleNotFound is returned when a sample name is not in the bank
	ErrSampleNotFound = errors.New("sample not found")
	// ErrUnsupportedFormat is returned for files that are neither WAV nor MP3
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	// ErrUnsupportedSource is returned for URL schemes other than http, https and file
	ErrUnsupportedSource = errors.New("unsupported sample source")
)

// SampleSource names an audio file to load into a bank
type SampleSource struct {
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	BaseFrequency float64 `json:"base_frequency,omitempty"` // Recorded pitch in Hz, 0 for unpitched drums
}

// Sample is a decoded, playable buffer
type Sample struct {
	Name          string
	BaseFrequency float64
	Buffer        *beep.Buffer
}

// SampleBank caches decoded samples by name. Reads are concurrent; writes
// for the same name replace the previous buffer.
type SampleBank struct {
	mu      sync.RWMutex
	samples map[string]*Sample
	order   []string

	client *http.Client
	logger logging.Logger
}

// NewSampleBank creates an empty bank. A nil client uses http.DefaultClient.
func NewSampleBank(client *http.Client, logger logging.Logger) *SampleBank {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Component("sample_bank")
	}
	return &SampleBank{
		samples: make(map[string]*Sample),
		client:  client,
		logger:  logger,
	}
}

// Put stores a sample, replacing any sample with the same name
func (b *SampleBank) Put(sample *Sample) {
	if sample == nil || sample.Buffer == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.samples[sample.Name]; !exists {
		b.order = append(b.order, sample.Name)
	}
	b.samples[sample.Name] = sample
}

// Get returns a cached sample
func (b *SampleBank) Get(name string) (*Sample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sample, ok := b.samples[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSampleNotFound, name)
	}
	return sample, nil
}

// Len returns the number of cached samples
func (b *SampleBank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Names returns cached sample names in load order
func (b *SampleBank) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Nearest returns the pitched sample needing the least pitch shift to sound
// freq, minimising |log2(freq/base)|
func (b *SampleBank) Nearest(freq float64) (*Sample, bool) {
	if freq <= 0 || math.IsNaN(freq) {
		return nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var best *Sample
	bestDistance := math.Inf(1)
	for _, name := range b.order {
		sample := b.samples[name]
		if sample.BaseFrequency <= 0 {
			continue
		}
		if d := math.Abs(math.Log2(freq / sample.BaseFrequency)); d < bestDistance {
			bestDistance = d
			best = sample
		}
	}
	return best, best != nil
}

// Load fetches and decodes a sample unless one with the same name is cached
func (b *SampleBank) Load(ctx context.Context, src SampleSource) error {
	if _, err := b.Get(src.Name); err == nil {
		return nil
	}

	buffer, err := b.fetch(ctx, src.URL)
	if err != nil {
		b.logger.Error(err, "failed to load sample", logging.Fields{
			"name": src.Name,
			"url":  src.URL,
		})
		return fmt.Errorf("failed to load sample %s: %w", src.Name, err)
	}

	b.Put(&Sample{Name: src.Name, BaseFrequency: src.BaseFrequency, Buffer: buffer})
	b.logger.Debug("sample loaded", logging.Fields{
		"name":   src.Name,
		"frames": buffer.Len(),
		"rate":   int(buffer.Format().SampleRate),
	})
	return nil
}

// LoadAll loads sources concurrently. A failing source does not stop the
// others; all failures are joined into the returned error.
func (b *SampleBank) LoadAll(ctx context.Context, sources []SampleSource) error {
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = b.Load(ctx, src)
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (b *SampleBank) fetch(ctx context.Context, rawURL string) (*beep.Buffer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sample URL: %w", err)
	}

	rc, err := b.open(ctx, u, rawURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return decode(rc, path.Ext(u.Path))
}

func (b *SampleBank) open(ctx context.Context, u *url.URL, rawURL string) (io.ReadCloser, error) {
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch sample: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch sample: unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	case "file":
		return os.Open(u.Path)
	case "":
		return os.Open(rawURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, u.Scheme)
	}
}

// decode reads a whole WAV or MP3 stream into memory
func decode(rc io.ReadCloser, ext string) (*beep.Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)

	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		streamer, format, err = wav.Decode(rc)
	case ".mp3":
		streamer, format, err = mp3.Decode(rc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sample: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode sample: %w", err)
	}
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("failed to decode sample: no audio frames")
	}
	return buffer, nil
}
