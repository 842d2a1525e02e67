package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/algorithms/tonal"
	"github.com/RyanBlaney/trastes/logging"
	"github.com/RyanBlaney/trastes/score"
	"github.com/RyanBlaney/trastes/synth"
)

// Config is the complete runtime configuration
type Config struct {
	Theory    TheoryConfig           `json:"theory"`
	Identify  tonal.IdentifierParams `json:"identify"`
	Synth     synth.EngineParams     `json:"synth"`
	Metronome synth.MetronomeParams  `json:"metronome"`
	Score     score.Params           `json:"score"`
	LogLevel  string                 `json:"log_level"`
}

// TheoryConfig selects the instrument and labelling conventions
type TheoryConfig struct {
	Tuning        string `json:"tuning"`         // Built-in name or six pitches, lowest first
	IntervalTable string `json:"interval_table"` // "flat" or "quality"
	MaxFret       int    `json:"max_fret"`
}

// DefaultConfig returns standard tuning, flat interval labels and the
// default engine, metronome and export settings
func DefaultConfig() *Config {
	return &Config{
		Theory: TheoryConfig{
			Tuning:        fretboard.StandardTuning.Name,
			IntervalTable: "flat",
			MaxFret:       fretboard.DefaultMaxFret,
		},
		Identify:  tonal.DefaultIdentifierParams(),
		Synth:     synth.DefaultEngineParams(),
		Metronome: synth.DefaultMetronomeParams(),
		Score:     score.DefaultParams(),
		LogLevel:  "info",
	}
}

// Load reads a JSON configuration file over the defaults. Keys missing from
// the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error

	if _, err := fretboard.ParseTuning(c.Theory.Tuning); err != nil {
		errs = append(errs, fmt.Errorf("theory.tuning: %w", err))
	}
	if _, ok := fretboard.LabelTableByName(c.Theory.IntervalTable); !ok {
		errs = append(errs, fmt.Errorf("theory.interval_table: unknown table %q", c.Theory.IntervalTable))
	}
	if c.Theory.MaxFret < 1 || c.Theory.MaxFret > 36 {
		errs = append(errs, fmt.Errorf("theory.max_fret must be 1-36, got %d", c.Theory.MaxFret))
	}

	if c.Identify.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("identify.max_results must be positive"))
	}
	if c.Identify.MinPositions < 1 {
		errs = append(errs, fmt.Errorf("identify.min_positions must be positive"))
	}

	if c.Synth.SampleRate < 8000 || c.Synth.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("synth.sample_rate must be 8000-192000, got %d", c.Synth.SampleRate))
	}
	if c.Synth.NoteDuration <= 0 {
		errs = append(errs, fmt.Errorf("synth.note_duration must be positive"))
	}
	if c.Synth.StrumDelay < 0 {
		errs = append(errs, fmt.Errorf("synth.strum_delay must not be negative"))
	}
	if _, err := synth.ParseStrumDirection(string(c.Synth.StrumDirection)); err != nil {
		errs = append(errs, fmt.Errorf("synth.strum_direction: %w", err))
	}
	if c.Synth.MetronomeVolume < 0 || c.Synth.MetronomeVolume > 1 {
		errs = append(errs, fmt.Errorf("synth.metronome_volume must be 0-1, got %.2f", c.Synth.MetronomeVolume))
	}

	if err := c.Metronome.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metronome: %w", err))
	}
	if err := c.Score.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("score: %w", err))
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

// PitchModel builds the pitch model for the configured tuning
func (c *Config) PitchModel() (*fretboard.PitchModel, error) {
	tuning, err := fretboard.ParseTuning(c.Theory.Tuning)
	if err != nil {
		return nil, err
	}
	return fretboard.NewPitchModel(tuning), nil
}

// IntervalClassifier builds the classifier for the configured label table
func (c *Config) IntervalClassifier() *fretboard.IntervalClassifier {
	table, _ := fretboard.LabelTableByName(c.Theory.IntervalTable)
	return fretboard.NewIntervalClassifier(table)
}

// Level returns the configured log level
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}
