package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/algorithms/tonal"
)

var (
	identifyJSON bool
	rootName     string
)

var identifyCmd = &cobra.Command{
	Use:   "identify <voicing>",
	Short: "Name the chord for a voicing and label its intervals",
	Long: `Rank up to four chord names for a voicing, then show each sounding
string with its pitch, interval from the root and suggested finger.

Examples:
  trastes identify x32010
  trastes identify 032010 --root C
  trastes identify x02010 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

var fingersCmd = &cobra.Command{
	Use:   "fingers <voicing>",
	Short: "Suggest fretting-hand fingers for a voicing",
	Long: `Assign fingers 1-4 to the fretted notes of a voicing. Two or more
notes on the lowest fret are barred with the index finger.

Example:
  trastes fingers 133211`,
	Args: cobra.ExactArgs(1),
	RunE: runFingers,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(fingersCmd)

	identifyCmd.Flags().BoolVar(&identifyJSON, "json", false, "Print candidates as JSON")
	identifyCmd.Flags().StringVar(&rootName, "root", "", "Root for interval labels (default: best candidate's root)")
}

// identifyReport is the JSON form of an identify result
type identifyReport struct {
	Voicing    string                 `json:"voicing"`
	Tuning     string                 `json:"tuning"`
	Candidates []tonal.ChordCandidate `json:"candidates"`
	Notes      []noteReport           `json:"notes"`
}

type noteReport struct {
	String    int              `json:"string"`
	Fret      int              `json:"fret"`
	Pitch     string           `json:"pitch"`
	Frequency float64          `json:"frequency"`
	Interval  string           `json:"interval"`
	Finger    fretboard.Finger `json:"finger"`
}

func runIdentify(cmd *cobra.Command, args []string) error {
	pm, err := pitchModel()
	if err != nil {
		return err
	}
	voicing, err := fretboard.ParseVoicing(args[0])
	if err != nil {
		return err
	}
	positions := voicing.Positions()

	identifier := tonal.NewIdentifierWithParams(pm, tonal.NewTemplateOracle(), cfg.Identify)
	candidates := identifier.Identify(positions)

	root, err := intervalRoot(pm, positions, candidates)
	if err != nil {
		return err
	}

	report := identifyReport{
		Voicing:    voicing.String(),
		Tuning:     pm.Tuning().Name,
		Candidates: candidates,
		Notes:      describeNotes(pm, positions, root),
	}

	out := cmd.OutOrStdout()
	if identifyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "%s (%s tuning)\n\n", report.Voicing, report.Tuning)
	if len(candidates) == 0 {
		fmt.Fprintln(out, "no chord found")
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHORD\tSCORE\tNOTES")
		for _, c := range candidates {
			fmt.Fprintf(w, "%s\t%d\t%v\n", c.Name, c.Score, c.PitchClasses)
		}
		w.Flush()
	}
	fmt.Fprintf(out, "\nintervals from %s\n", root)
	printNotes(out, pm, report.Notes)
	return nil
}

func runFingers(cmd *cobra.Command, args []string) error {
	pm, err := pitchModel()
	if err != nil {
		return err
	}
	voicing, err := fretboard.ParseVoicing(args[0])
	if err != nil {
		return err
	}
	positions := voicing.Positions()

	out := cmd.OutOrStdout()
	if fret, ok := fretboard.IsBarre(positions); ok {
		fmt.Fprintf(out, "barre at fret %d\n", fret)
	}
	bass := fretboard.PitchClass(0)
	if len(positions) > 0 {
		bass = pm.PitchClassOf(positions[0])
	}
	printNotes(out, pm, describeNotes(pm, positions, bass))
	return nil
}

// intervalRoot picks the --root flag, else the best candidate, else the bass
func intervalRoot(pm *fretboard.PitchModel, positions []fretboard.Position, candidates []tonal.ChordCandidate) (fretboard.PitchClass, error) {
	if rootName != "" {
		root, err := fretboard.ParsePitchClass(rootName)
		if err != nil {
			return 0, fmt.Errorf("invalid --root: %w", err)
		}
		return root, nil
	}
	if len(candidates) > 0 {
		return candidates[0].Root, nil
	}
	if len(positions) > 0 {
		return pm.PitchClassOf(fretboard.SortByPitch(pm, positions)[0]), nil
	}
	return 0, nil
}

func describeNotes(pm *fretboard.PitchModel, positions []fretboard.Position, root fretboard.PitchClass) []noteReport {
	fingers := fretboard.AssignFingers(positions)
	labels := cfg.IntervalClassifier().Labels(pm, positions, root)

	notes := make([]noteReport, 0, len(positions))
	for _, p := range positions {
		notes = append(notes, noteReport{
			String:    p.String,
			Fret:      p.Fret,
			Pitch:     pm.ScientificPitchAt(p.String, p.Fret).String(),
			Frequency: pm.FrequencyOf(p),
			Interval:  labels[p],
			Finger:    fingers[p],
		})
	}
	return notes
}

func printNotes(out io.Writer, pm *fretboard.PitchModel, notes []noteReport) {
	open := pm.Tuning().Open

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRING\tFRET\tPITCH\tHZ\tINTERVAL\tFINGER")
	for _, n := range notes {
		finger := "open"
		if n.Finger != fretboard.NoFinger {
			finger = fmt.Sprint(int(n.Finger))
		}
		fmt.Fprintf(w, "%d (%s)\t%d\t%s\t%.2f\t%s\t%s\n",
			n.String+1, open[n.String].Class, n.Fret, n.Pitch, n.Frequency, n.Interval, finger)
	}
	w.Flush()
}
