package score

import (
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/synth"
)

// DrumChannel is the General MIDI percussion channel (10, zero based)
const DrumChannel = 9

// General MIDI percussion keys
const (
	keyKick          = 36
	keySnare         = 38
	keyClosedHiHat   = 42
	keyCowbell       = 56
	keyHighWoodblock = 76
	keyLowWoodblock  = 77
)

// Params configures Standard MIDI File export
type Params struct {
	TicksPerQuarter uint16  `json:"ticks_per_quarter"`
	BPM             float64 `json:"bpm"`
	Channel         uint8   `json:"channel"`     // Guitar channel, zero based
	Program         uint8   `json:"program"`     // General MIDI program, zero based
	Velocity        uint8   `json:"velocity"`    // Chord note velocity
	StrumTicks      uint32  `json:"strum_ticks"` // Delay between strummed notes
	FillEvery       int     `json:"fill_every"`  // Metronome fill cadence in bars, 0 disables
}

// DefaultParams returns 480 PPQ at 100 BPM on a steel-string acoustic
func DefaultParams() Params {
	return Params{
		TicksPerQuarter: 480,
		BPM:             100,
		Channel:         0,
		Program:         25,
		Velocity:        96,
		StrumTicks:      15,
		FillEvery:       4,
	}
}

// Validate checks the parameters can be encoded
func (p Params) Validate() error {
	if p.TicksPerQuarter == 0 {
		return fmt.Errorf("ticks_per_quarter must be positive")
	}
	if p.BPM < synth.MinBPM || p.BPM > synth.MaxBPM {
		return fmt.Errorf("bpm must be between %.0f and %.0f, got %.1f", synth.MinBPM, synth.MaxBPM, p.BPM)
	}
	if p.Channel > 15 {
		return fmt.Errorf("channel must be 0-15, got %d", p.Channel)
	}
	if p.Channel == DrumChannel {
		return fmt.Errorf("channel %d is reserved for percussion", DrumChannel)
	}
	if p.Program > 127 {
		return fmt.Errorf("program must be 0-127, got %d", p.Program)
	}
	if p.Velocity == 0 || p.Velocity > 127 {
		return fmt.Errorf("velocity must be 1-127, got %d", p.Velocity)
	}
	if p.FillEvery < 0 {
		return fmt.Errorf("fill_every must not be negative")
	}
	return nil
}

// Chord is one strummed voicing in a progression
type Chord struct {
	Name      string               `json:"name"`
	Voicing   fretboard.Voicing    `json:"voicing"`
	Beats     float64              `json:"beats"` // Quarter notes, a whole bar when zero
	Direction synth.StrumDirection `json:"direction"`
}

// timed is a message at an absolute tick
type timed struct {
	tick uint32
	off  bool // Note-offs sort before note-ons on the same tick
	msg  []byte
}

// BuildChords renders a progression as a two-track SMF: a conductor track
// with meter and tempo, and a guitar track with one marker per chord.
func BuildChords(pm *fretboard.PitchModel, chords []Chord, params Params) (*smf.SMF, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score parameters: %w", err)
	}
	if pm == nil {
		pm = fretboard.NewStandardPitchModel()
	}

	s := newSMF(params)
	if err := s.Add(conductorTrack(params, "trastes")); err != nil {
		return nil, fmt.Errorf("error adding conductor track: %w", err)
	}

	ppq := uint32(params.TicksPerQuarter)
	events := []timed{{tick: 0, msg: midi.ProgramChange(params.Channel, params.Program)}}

	var at uint32
	for i, chord := range chords {
		beats := chord.Beats
		if beats <= 0 {
			beats = 4
		}
		length := uint32(math.Round(beats * float64(ppq)))
		if length == 0 {
			return nil, fmt.Errorf("chord %d is shorter than one tick", i)
		}

		if chord.Name != "" {
			events = append(events, timed{tick: at, msg: smf.MetaMarker(chord.Name)})
		}

		keys := chordKeys(pm, chord.Voicing.Positions(), chord.Direction)
		for n, key := range keys {
			start := at + uint32(n)*params.StrumTicks
			if start >= at+length {
				start = at + length - 1
			}
			events = append(events,
				timed{tick: start, msg: midi.NoteOn(params.Channel, key, params.Velocity)},
				timed{tick: at + length, off: true, msg: midi.NoteOff(params.Channel, key)},
			)
		}
		at += length
	}

	track := buildTrack("guitar", events, at)
	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("error adding guitar track: %w", err)
	}
	return s, nil
}

// BuildMetronome renders bars of a metronome kit on the percussion channel
// using the same patterns as live playback
func BuildMetronome(kit synth.Kit, bars int, params Params) (*smf.SMF, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score parameters: %w", err)
	}
	if _, err := synth.ParseKit(string(kit)); err != nil {
		return nil, err
	}
	if bars <= 0 {
		return nil, fmt.Errorf("bars must be positive, got %d", bars)
	}

	s := newSMF(params)
	if err := s.Add(conductorTrack(params, "metronome")); err != nil {
		return nil, fmt.Errorf("error adding conductor track: %w", err)
	}

	step := uint32(params.TicksPerQuarter) / 2 // Eighth notes
	gate := max(step/2, 1)

	var events []timed
	var at uint32
	for bar := 0; bar < bars; bar++ {
		fill := params.FillEvery > 0 && (bar+1)%params.FillEvery == 0
		for tick := 0; tick < synth.TicksPerBar; tick++ {
			for _, hit := range synth.Pattern(kit, tick == 0, tick, fill) {
				key := drumKey(hit)
				events = append(events,
					timed{tick: at, msg: midi.NoteOn(DrumChannel, key, velocity(hit.Velocity))},
					timed{tick: at + gate, off: true, msg: midi.NoteOff(DrumChannel, key)},
				)
			}
			at += step
		}
	}

	if err := s.Add(buildTrack("drums", events, at)); err != nil {
		return nil, fmt.Errorf("error adding drum track: %w", err)
	}
	return s, nil
}

// WriteChords encodes a chord progression as a Standard MIDI File
func WriteChords(w io.Writer, pm *fretboard.PitchModel, chords []Chord, params Params) error {
	s, err := BuildChords(pm, chords, params)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// WriteMetronome encodes metronome bars as a Standard MIDI File
func WriteMetronome(w io.Writer, kit synth.Kit, bars int, params Params) error {
	s, err := BuildMetronome(kit, bars, params)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

func newSMF(params Params) *smf.SMF {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(params.TicksPerQuarter)
	return s
}

func conductorTrack(params Params, name string) smf.Track {
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(name))
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(params.BPM))
	track.Close(0)
	return track
}

// buildTrack sorts absolute events and converts them to delta times
func buildTrack(name string, events []timed, end uint32) smf.Track {
	slices.SortStableFunc(events, func(a, b timed) int {
		if a.tick != b.tick {
			if a.tick < b.tick {
				return -1
			}
			return 1
		}
		switch {
		case a.off && !b.off:
			return -1
		case !a.off && b.off:
			return 1
		}
		return 0
	})

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(name))

	var last uint32
	for _, ev := range events {
		track.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}

	var tail uint32
	if end > last {
		tail = end - last
	}
	track.Close(tail)
	return track
}

// chordKeys returns the MIDI keys of a voicing in strum order
func chordKeys(pm *fretboard.PitchModel, positions []fretboard.Position, direction synth.StrumDirection) []uint8 {
	keys := make([]uint8, 0, len(positions))
	for _, p := range fretboard.SortByPitch(pm, positions) {
		key := pm.ScientificPitchAt(p.String, p.Fret).MIDI()
		if key < 0 || key > 127 {
			continue
		}
		keys = append(keys, uint8(key))
	}
	if direction == synth.StrumUp {
		slices.Reverse(keys)
	}
	return keys
}

func drumKey(hit synth.Hit) uint8 {
	switch hit.Sound {
	case synth.SoundKick:
		return keyKick
	case synth.SoundSnare:
		return keySnare
	case synth.SoundHiHat:
		return keyClosedHiHat
	case synth.SoundCowbell:
		return keyCowbell
	default:
		if hit.Pitch >= 1000 {
			return keyHighWoodblock
		}
		return keyLowWoodblock
	}
}

// velocity maps a 0-1 gain to a MIDI velocity, never zero
func velocity(v float64) uint8 {
	return uint8(min(max(math.Round(v*127), 1), 127))
}
