package synth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"

	"github.com/RyanBlaney/trastes/logging"
)

func writeTestWAV(t *testing.T, dir, name string, freq float64, frames int) string {
	t.Helper()

	sr := beep.SampleRate(22050)
	tone, err := generators.SineTone(sr, freq)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: sr, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Take(frames, tone), format); err != nil {
		t.Fatal(err)
	}
	return path
}

func silentBuffer(frames int) *beep.Buffer {
	buf := beep.NewBuffer(beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2})
	buf.Append(beep.Take(frames, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		clear(samples)
		return len(samples), true
	})))
	return buf
}

func quietBank() *SampleBank {
	return NewSampleBank(nil, &logging.NoOpLogger{})
}

func TestSampleBankLoadLocal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestWAV(t, dir, "a2.wav", 110, 2205)

	tests := []struct {
		name string
		url  string
	}{
		{"plain path", path},
		{"file URL", "file://" + path},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := quietBank()
			if err := bank.Load(context.Background(), SampleSource{Name: "A2", URL: tt.url, BaseFrequency: 110}); err != nil {
				t.Fatalf("Load: %v", err)
			}
			sample, err := bank.Get("A2")
			if err != nil {
				t.Fatal(err)
			}
			if sample.Buffer.Len() != 2205 {
				t.Errorf("decoded %d frames, want 2205", sample.Buffer.Len())
			}
			if sample.Buffer.Format().SampleRate != 22050 {
				t.Errorf("sample rate = %d", sample.Buffer.Format().SampleRate)
			}
			if sample.BaseFrequency != 110 {
				t.Errorf("base frequency = %f", sample.BaseFrequency)
			}
		})
	}
}

func TestSampleBankHTTPCache(t *testing.T) {
	dir := t.TempDir()
	writeTestWAV(t, dir, "kick.wav", 60, 1000)

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.ServeFile(w, r, filepath.Join(dir, filepath.Base(r.URL.Path)))
	}))
	defer srv.Close()

	bank := NewSampleBank(srv.Client(), &logging.NoOpLogger{})
	src := SampleSource{Name: "kick", URL: srv.URL + "/kick.wav"}

	for i := 0; i < 3; i++ {
		if err := bank.Load(context.Background(), src); err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("cached sample fetched %d times, want 1", got)
	}
	if bank.Len() != 1 {
		t.Errorf("Len = %d, want 1", bank.Len())
	}
}

func TestSampleBankLoadAllIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeTestWAV(t, dir, "snare.wav", 200, 500)
	if err := os.WriteFile(filepath.Join(dir, "hihat.ogg"), []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	bank := NewSampleBank(srv.Client(), &logging.NoOpLogger{})
	err := bank.LoadAll(context.Background(), []SampleSource{
		{Name: "snare", URL: srv.URL + "/snare.wav"},
		{Name: "kick", URL: srv.URL + "/missing.wav"},
		{Name: "hihat", URL: srv.URL + "/hihat.ogg"},
		{Name: "ride", URL: "ftp://example.com/ride.wav"},
	})

	if err == nil {
		t.Fatal("expected joined errors")
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error should wrap ErrUnsupportedFormat: %v", err)
	}
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("error should wrap ErrUnsupportedSource: %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should report the missing file: %v", err)
	}

	if _, err := bank.Get("snare"); err != nil {
		t.Errorf("good sample should load despite failures: %v", err)
	}
	if _, err := bank.Get("kick"); !errors.Is(err, ErrSampleNotFound) {
		t.Errorf("failed sample should not be cached, got %v", err)
	}
}

func TestSampleBankConcurrentSameKey(t *testing.T) {
	dir := t.TempDir()
	path := writeTestWAV(t, dir, "e2.wav", 82.41, 800)

	sources := make([]SampleSource, 8)
	for i := range sources {
		sources[i] = SampleSource{Name: "E2", URL: path, BaseFrequency: 82.41}
	}

	bank := quietBank()
	if err := bank.LoadAll(context.Background(), sources); err != nil {
		t.Fatal(err)
	}
	if bank.Len() != 1 || len(bank.Names()) != 1 {
		t.Errorf("same-key loads should collapse to one entry, got %v", bank.Names())
	}
	sample, _ := bank.Get("E2")
	if sample.Buffer.Len() != 800 {
		t.Errorf("cached buffer has %d frames, want 800", sample.Buffer.Len())
	}
}

func TestSampleBankNearest(t *testing.T) {
	bank := quietBank()
	for _, s := range []struct {
		name string
		base float64
	}{
		{"E4", 329.63}, {"B3", 246.94}, {"G3", 196.00},
		{"D3", 146.83}, {"A2", 110.00}, {"E2", 82.41},
	} {
		bank.Put(&Sample{Name: s.name, BaseFrequency: s.base, Buffer: silentBuffer(10)})
	}
	bank.Put(&Sample{Name: "kick", Buffer: silentBuffer(10)})

	tests := []struct {
		freq float64
		want string
	}{
		{82.41, "E2"},
		{100, "A2"},
		{160, "D3"},
		{200, "G3"},
		{261.63, "B3"},
		{440, "E4"},
		{1318.5, "E4"},
		{40, "E2"},
	}
	for _, tt := range tests {
		got, ok := bank.Nearest(tt.freq)
		if !ok || got.Name != tt.want {
			t.Errorf("Nearest(%.2f) = %v, want %s", tt.freq, got, tt.want)
		}
	}

	if _, ok := bank.Nearest(-1); ok {
		t.Error("negative frequency should have no nearest sample")
	}

	drumsOnly := quietBank()
	drumsOnly.Put(&Sample{Name: "kick", Buffer: silentBuffer(10)})
	if _, ok := drumsOnly.Nearest(100); ok {
		t.Error("unpitched samples must not be used for notes")
	}
}
