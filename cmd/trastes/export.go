package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/algorithms/tonal"
	"github.com/RyanBlaney/trastes/score"
	"github.com/RyanBlaney/trastes/synth"
)

var (
	exportOut       string
	exportMetronome int
	exportKit       string
	exportBPM       float64
)

var exportCmd = &cobra.Command{
	Use:   "export <voicing[:name[:beats]]>...",
	Short: "Write a chord progression or metronome bars as a MIDI file",
	Long: `Write a Standard MIDI File. Each argument is a voicing, optionally
followed by a chord name and a length in beats; unnamed chords take the
best identified name. With --metronome N the file holds N bars of the
metronome kit instead.

Examples:
  trastes export -o song.mid x32010 320003:G:2 x02210::2
  trastes export -o click.mid --metronome 8 --kit loop --bpm 96`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output MIDI file")
	exportCmd.Flags().IntVar(&exportMetronome, "metronome", 0, "Export this many metronome bars instead of chords")
	exportCmd.Flags().StringVarP(&exportKit, "kit", "k", "", "Metronome kit (default from config)")
	exportCmd.Flags().Float64VarP(&exportBPM, "bpm", "b", 0, "Tempo (default from config)")
	exportCmd.MarkFlagRequired("out")
}

// exportParams returns the score settings, taking tempo and fill cadence
// from the metronome section where the score section leaves them at default
func exportParams() score.Params {
	params := cfg.Score
	defaults := score.DefaultParams()
	if params.BPM == defaults.BPM {
		params.BPM = cfg.Metronome.BPM
	}
	if params.FillEvery == defaults.FillEvery {
		params.FillEvery = cfg.Metronome.FillEvery
	}
	return params
}

func runExport(cmd *cobra.Command, args []string) error {
	params := exportParams()
	if exportBPM > 0 {
		params.BPM = exportBPM
	}

	var write func(f *os.File) error
	if exportMetronome > 0 {
		kit := cfg.Metronome.Kit
		if exportKit != "" {
			var err error
			if kit, err = synth.ParseKit(exportKit); err != nil {
				return err
			}
		}
		write = func(f *os.File) error {
			return score.WriteMetronome(f, kit, exportMetronome, params)
		}
	} else {
		if len(args) == 0 {
			return fmt.Errorf("at least one voicing is required")
		}
		pm, err := pitchModel()
		if err != nil {
			return err
		}
		chords, err := parseChords(pm, args)
		if err != nil {
			return err
		}
		write = func(f *os.File) error {
			return score.WriteChords(f, pm, chords, params)
		}
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(exportOut)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", exportOut, err)
	}
	cmd.Printf("wrote %s\n", exportOut)
	return nil
}

// parseChords parses voicing[:name[:beats]] arguments, naming unnamed
// chords with the identifier's best candidate
func parseChords(pm *fretboard.PitchModel, args []string) ([]score.Chord, error) {
	identifier := tonal.NewIdentifierWithParams(pm, tonal.NewTemplateOracle(), cfg.Identify)

	chords := make([]score.Chord, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ":")
		if len(parts) > 3 {
			return nil, fmt.Errorf("chord %q: expected voicing[:name[:beats]]", arg)
		}

		voicing, err := fretboard.ParseVoicing(parts[0])
		if err != nil {
			return nil, err
		}
		chord := score.Chord{Voicing: voicing, Direction: cfg.Synth.StrumDirection}

		if len(parts) > 1 {
			chord.Name = parts[1]
		}
		if chord.Name == "" {
			if candidates := identifier.Identify(voicing.Positions()); len(candidates) > 0 {
				chord.Name = candidates[0].Name
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			beats, err := strconv.ParseFloat(parts[2], 64)
			if err != nil || beats <= 0 {
				return nil, fmt.Errorf("chord %q: invalid beats %q", arg, parts[2])
			}
			chord.Beats = beats
		}
		chords = append(chords, chord)
	}
	return chords, nil
}
