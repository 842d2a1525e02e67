package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trastes/algorithms/filters"
	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/algorithms/harmonic"
	"github.com/RyanBlaney/trastes/logging"
	"github.com/RyanBlaney/trastes/synth"
)

const (
	tuneWindow = 4096
	tuneHop    = 2048
)

var tuneFreq float64

var tuneCmd = &cobra.Command{
	Use:   "tune [recording]",
	Short: "Find the pitch of a recording and where it lies on the fretboard",
	Long: `Estimate the fundamental frequency of a WAV or MP3 recording (a path
or http(s) URL), report the nearest note with its deviation in cents and
list every position that plays it. With --freq the estimate is skipped.

Examples:
  trastes tune low-e.wav
  trastes tune --freq 196`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTune,
}

func init() {
	rootCmd.AddCommand(tuneCmd)

	tuneCmd.Flags().Float64VarP(&tuneFreq, "freq", "f", 0, "Locate this frequency instead of analysing a recording")
}

func runTune(cmd *cobra.Command, args []string) error {
	pm, err := pitchModel()
	if err != nil {
		return err
	}

	freq := tuneFreq
	if freq <= 0 {
		if len(args) == 0 {
			return fmt.Errorf("a recording or --freq is required")
		}
		estimate, err := estimateRecording(cmd, args[0])
		if err != nil {
			return err
		}
		freq = estimate.Frequency
		cmd.Printf("estimated %.2f Hz (%s, confidence %.2f)\n", estimate.Frequency, estimate.Method, estimate.Confidence)
	}

	return printLocation(cmd.OutOrStdout(), pm, freq, cfg.Theory.MaxFret)
}

// estimateRecording decodes a recording and returns the median estimate of
// its confident analysis windows
func estimateRecording(cmd *cobra.Command, url string) (harmonic.Estimate, error) {
	bank := synth.NewSampleBank(nil, logging.Component("tune"))
	if err := bank.Load(cmd.Context(), synth.SampleSource{Name: "recording", URL: url}); err != nil {
		return harmonic.Estimate{}, err
	}
	sample, err := bank.Get("recording")
	if err != nil {
		return harmonic.Estimate{}, err
	}

	sr := int(sample.Buffer.Format().SampleRate)
	signal := monoFrames(sample)
	if dc, err := filters.NewDCRemoval(sr, 20); err == nil {
		dc.ProcessBuffer(signal)
	}
	estimator := harmonic.NewFundamentalEstimationWithParams(sr, harmonic.DefaultEstimatorParams())

	var estimates []harmonic.Estimate
	for start := 0; start+tuneWindow <= len(signal); start += tuneHop {
		if e, ok := estimator.Estimate(signal[start : start+tuneWindow]); ok {
			estimates = append(estimates, e)
		}
	}
	if len(estimates) == 0 && len(signal) > 0 {
		if e, ok := estimator.Estimate(signal); ok {
			estimates = append(estimates, e)
		}
	}
	if len(estimates) == 0 {
		return harmonic.Estimate{}, fmt.Errorf("no stable pitch found in %s", url)
	}

	sort.Slice(estimates, func(i, j int) bool {
		return estimates[i].Frequency < estimates[j].Frequency
	})
	return estimates[len(estimates)/2], nil
}

// monoFrames averages a sample's channels into one signal
func monoFrames(sample *synth.Sample) []float64 {
	buf := sample.Buffer
	streamer := buf.Streamer(0, buf.Len())

	signal := make([]float64, 0, buf.Len())
	block := make([][2]float64, 1024)
	for {
		n, ok := streamer.Stream(block)
		for _, frame := range block[:n] {
			signal = append(signal, (frame[0]+frame[1])/2)
		}
		if !ok {
			break
		}
	}
	return signal
}

func printLocation(out io.Writer, pm *fretboard.PitchModel, freq float64, maxFret int) error {
	pitch, cents, ok := fretboard.NearestPitch(freq)
	if !ok {
		return fmt.Errorf("invalid frequency %.2f", freq)
	}
	fmt.Fprintf(out, "%s %+.1f cents\n", pitch, cents)

	positions := pm.Locate(freq, maxFret)
	if len(positions) == 0 {
		fmt.Fprintln(out, "not playable in this tuning")
		return nil
	}
	open := pm.Tuning().Open
	for _, p := range positions {
		fmt.Fprintf(out, "  string %d (%s) fret %d\n", p.String+1, open[p.String].Class, p.Fret)
	}
	return nil
}
