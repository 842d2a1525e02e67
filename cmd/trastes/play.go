package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trastes/logging"
	"github.com/RyanBlaney/trastes/synth"
	"github.com/RyanBlaney/trastes/synth/speaker"
)

var (
	playOut       string
	playDirection string
	playGap       float64
	playNoSamples bool
)

var playCmd = &cobra.Command{
	Use:   "play <voicing>...",
	Short: "Strum one or more voicings",
	Long: `Strum each voicing in turn through the sampled guitar, falling back to
a plucked-string synth for any note without a sample. With --out the
audio is rendered to a WAV file instead of the speaker.

Examples:
  trastes play x32010
  trastes play x32010 320003 x02210 --gap 1
  trastes play 133211 --direction up --out f.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringVarP(&playOut, "out", "o", "", "Render to a WAV file instead of the speaker")
	playCmd.Flags().StringVarP(&playDirection, "direction", "d", "", "Strum direction (down, up)")
	playCmd.Flags().Float64Var(&playGap, "gap", 0, "Seconds between chords (default: note duration)")
	playCmd.Flags().BoolVar(&playNoSamples, "no-samples", false, "Skip sample loading and use the synthesized guitar")
}

// newEngine builds an engine from the configuration and loads its samples.
// Missing samples are logged and leave the synthesized fallbacks in place.
func newEngine(ctx context.Context, loadSamples bool) *synth.Engine {
	logger := logging.WithContext(ctx)
	engine := synth.NewEngine(cfg.Synth, synth.WithLogger(logger.WithFields(logging.Fields{"component": "synth_engine"})))
	if !loadSamples {
		return engine
	}
	if err := engine.LoadSamples(ctx); err != nil {
		logger.Warn("some samples failed to load, using synthesized voices", logging.Fields{
			"error": err.Error(),
		})
	}
	return engine
}

func runPlay(cmd *cobra.Command, args []string) error {
	pm, err := pitchModel()
	if err != nil {
		return err
	}
	voicings, err := parseVoicings(args)
	if err != nil {
		return err
	}

	direction := cfg.Synth.StrumDirection
	if playDirection != "" {
		if direction, err = synth.ParseStrumDirection(playDirection); err != nil {
			return err
		}
	}
	gap := playGap
	if gap <= 0 {
		gap = cfg.Synth.NoteDuration
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := newEngine(ctx, !playNoSamples)
	audio := engine.InitAudioContext()

	// Leave room for the first strum to be scheduled before output starts
	start := audio.CurrentTime() + 0.05
	for i, v := range voicings {
		engine.PlayChordAt(start+float64(i)*gap, pm.Frequencies(v.Positions()), direction)
	}
	length := 0.05 + float64(len(voicings)-1)*gap + cfg.Synth.NoteDuration +
		float64(len(pm.Tuning().Open))*cfg.Synth.StrumDelay

	if playOut != "" {
		return renderToFile(playOut, audio, length)
	}
	return playLive(ctx, audio, time.Duration(length*float64(time.Second)))
}

func renderToFile(path string, audio *synth.Context, seconds float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := synth.RenderWAV(f, audio, seconds); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	logging.Info("rendered audio", logging.Fields{"path": path, "seconds": seconds})
	return nil
}

// playLive streams the context to the speaker until length elapses or ctx
// is cancelled. A zero length plays until cancelled.
func playLive(ctx context.Context, audio *synth.Context, length time.Duration) error {
	out := speaker.NewOutput(audio)
	if err := out.Open(speaker.DefaultBufferDuration); err != nil {
		return err
	}
	defer out.Close()

	if length <= 0 {
		<-ctx.Done()
		return nil
	}

	timer := time.NewTimer(length)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return nil
}
