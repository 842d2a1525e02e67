package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trastes/synth"
)

var (
	metronomeBPM      float64
	metronomeKit      string
	metronomeFill     int
	metronomeVolume   float64
	metronomeDuration time.Duration
	metronomeSamples  bool
)

var metronomeCmd = &cobra.Command{
	Use:   "metronome",
	Short: "Run the metronome on the speaker",
	Long: `Play eighth-note metronome ticks until interrupted. The loop kit plays
a hi-hat, kick and snare groove with a snare fill every --fill bars; the
beep, hihat, kick and cowbell kits click on each beat with an accent on
the downbeat.

Examples:
  trastes metronome --bpm 90
  trastes metronome --kit cowbell --bpm 140 --duration 30s
  trastes metronome --kit loop --fill 8 --volume 0.5`,
	Args: cobra.NoArgs,
	RunE: runMetronome,
}

func init() {
	rootCmd.AddCommand(metronomeCmd)

	metronomeCmd.Flags().Float64VarP(&metronomeBPM, "bpm", "b", 0, "Tempo in beats per minute (default from config)")
	metronomeCmd.Flags().StringVarP(&metronomeKit, "kit", "k", "", "Sound kit (beep, hihat, kick, cowbell, loop)")
	metronomeCmd.Flags().IntVar(&metronomeFill, "fill", -1, "Fill every N bars, 0 disables (loop kit only)")
	metronomeCmd.Flags().Float64Var(&metronomeVolume, "volume", -1, "Metronome volume 0-1")
	metronomeCmd.Flags().DurationVar(&metronomeDuration, "duration", 0, "Stop after this long (default: until interrupted)")
	metronomeCmd.Flags().BoolVar(&metronomeSamples, "samples", true, "Load drum samples for the loop kit")
}

func runMetronome(cmd *cobra.Command, args []string) error {
	params := cfg.Metronome
	if metronomeBPM > 0 {
		params.BPM = metronomeBPM
	}
	if metronomeKit != "" {
		kit, err := synth.ParseKit(metronomeKit)
		if err != nil {
			return err
		}
		params.Kit = kit
	}
	if metronomeFill >= 0 {
		params.FillEvery = metronomeFill
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := newEngine(ctx, metronomeSamples && params.Kit == synth.KitLoop)
	if metronomeVolume >= 0 {
		engine.SetMetronomeVolume(metronomeVolume)
	}

	m, err := synth.NewMetronome(engine, params)
	if err != nil {
		return err
	}

	audio := engine.InitAudioContext()
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	cmd.Printf("metronome at %.0f BPM (%s), ctrl-c to stop\n", params.BPM, params.Kit)
	return playLive(ctx, audio, metronomeDuration)
}
