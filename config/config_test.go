package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/logging"
	"github.com/RyanBlaney/trastes/synth"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trastes.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Level() != logging.InfoLevel {
		t.Errorf("default level = %s", cfg.Level())
	}
	if got := cfg.IntervalClassifier().Label(4, 0); got != "3" {
		t.Errorf("default classifier labels E over C as %q", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"theory": {"tuning": "drop-d", "interval_table": "quality"},
		"synth": {"strum_direction": "up", "metronome_volume": 0.5},
		"metronome": {"bpm": 132, "kit": "cowbell"},
		"log_level": "debug"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Synth.StrumDirection != synth.StrumUp || cfg.Synth.MetronomeVolume != 0.5 {
		t.Errorf("synth overrides not applied: %+v", cfg.Synth)
	}
	if cfg.Metronome.BPM != 132 || cfg.Metronome.Kit != synth.KitCowbell {
		t.Errorf("metronome overrides not applied: %+v", cfg.Metronome)
	}
	if cfg.Level() != logging.DebugLevel {
		t.Errorf("level = %s, want DEBUG", cfg.Level())
	}

	// Untouched keys keep their defaults
	if cfg.Theory.MaxFret != fretboard.DefaultMaxFret {
		t.Errorf("max fret = %d", cfg.Theory.MaxFret)
	}
	if cfg.Synth.SampleRate != 44100 || len(cfg.Synth.StringSamples) != 6 {
		t.Errorf("synth defaults lost: rate %d, %d samples", cfg.Synth.SampleRate, len(cfg.Synth.StringSamples))
	}
	if cfg.Metronome.PollInterval != 25*time.Millisecond {
		t.Errorf("poll interval = %s", cfg.Metronome.PollInterval)
	}

	pm, err := cfg.PitchModel()
	if err != nil {
		t.Fatal(err)
	}
	if got := pm.ScientificPitchAt(5, 0).String(); got != "D2" {
		t.Errorf("configured tuning lowest string = %s, want D2", got)
	}
	if got := cfg.IntervalClassifier().Label(3, 0); got != "m" {
		t.Errorf("quality table labels a minor third %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed json", `{"theory": `, "parse"},
		{"bad tuning", `{"theory": {"tuning": "E2 A2"}}`, "theory.tuning"},
		{"bad table", `{"theory": {"interval_table": "roman"}}`, "theory.interval_table"},
		{"bad kit", `{"metronome": {"kit": "tabla"}}`, "metronome"},
		{"bad tempo", `{"metronome": {"bpm": 900}}`, "metronome"},
		{"bad direction", `{"synth": {"strum_direction": "sideways"}}`, "synth.strum_direction"},
		{"bad level", `{"log_level": "loud"}`, "log_level"},
		{"bad score channel", `{"score": {"channel": 9}}`, "score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Theory.MaxFret = 0
	cfg.Synth.SampleRate = 100
	cfg.Metronome.BPM = 1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"max_fret", "sample_rate", "bpm"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s: %v", field, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Theory.Tuning = "dadgad"
	cfg.Metronome.FillEvery = 8

	path := filepath.Join(t.TempDir(), "saved.json")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Theory.Tuning != "dadgad" || loaded.Metronome.FillEvery != 8 {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
	if loaded.Metronome.PollInterval != cfg.Metronome.PollInterval {
		t.Errorf("poll interval = %s, want %s", loaded.Metronome.PollInterval, cfg.Metronome.PollInterval)
	}

	if empty, err := Load(""); err != nil || empty.Theory.Tuning != fretboard.StandardTuning.Name {
		t.Errorf("empty path should return defaults, got %v", err)
	}
}
