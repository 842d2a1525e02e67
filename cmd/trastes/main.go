package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/config"
	"github.com/RyanBlaney/trastes/logging"
)

var (
	version = "0.1.0"

	configPath string
	logLevel   string
	tuningName string
	noColor    bool

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trastes",
	Short: "Guitar chord identification, fingering and playback",
	Long: `trastes names the chord under a fretboard selection, labels its
intervals, suggests fingers and plays it back through a sampled or
synthesized guitar with a drum-loop metronome.

Voicings are written from the lowest string to the highest, with x for a
muted string: x32010, 133211 or 8-10-10-9-8-8.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")
	rootCmd.PersistentFlags().StringVarP(&tuningName, "tuning", "t", "", "Tuning name or six pitches lowest first, e.g. \"D2 A2 D3 G3 B3 E4\"")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if tuningName != "" {
		loaded.Theory.Tuning = tuningName
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	if noColor {
		logging.DisableColors()
	}
	logging.SetLevel(loaded.Level())
	cmd.SetContext(logging.ContextWithFields(cmd.Context(), logging.Fields{"command": cmd.Name()}))
	cfg = loaded
	return nil
}

// pitchModel returns the pitch model for the configured tuning
func pitchModel() (*fretboard.PitchModel, error) {
	pm, err := cfg.PitchModel()
	if err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return pm, nil
}

// parseVoicings parses every argument as a voicing
func parseVoicings(args []string) ([]fretboard.Voicing, error) {
	voicings := make([]fretboard.Voicing, 0, len(args))
	for _, arg := range args {
		v, err := fretboard.ParseVoicing(arg)
		if err != nil {
			return nil, err
		}
		voicings = append(voicings, v)
	}
	return voicings, nil
}
