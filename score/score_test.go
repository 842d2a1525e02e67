package score

import (
	"bytes"
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/synth"
)

// Simple kits sound on every other tick
const simpleKitHits = synth.TicksPerBar / 2

type note struct {
	tick     uint32
	channel  uint8
	key      uint8
	velocity uint8
}

// readBack round-trips through the encoder and returns the note-ons and
// note-offs of one track with absolute ticks
func readBack(t *testing.T, buf *bytes.Buffer, track int) (*smf.SMF, []note, []note) {
	t.Helper()

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(s.Tracks) <= track {
		t.Fatalf("file has %d tracks, want more than %d", len(s.Tracks), track)
	}

	var ons, offs []note
	var at uint32
	for _, ev := range s.Tracks[track] {
		at += ev.Delta
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			ons = append(ons, note{at, ch, key, vel})
		case msg.GetNoteEnd(&ch, &key):
			offs = append(offs, note{tick: at, channel: ch, key: key})
		}
	}
	return s, ons, offs
}

func mustVoicing(t *testing.T, tab string) fretboard.Voicing {
	t.Helper()
	v, err := fretboard.ParseVoicing(tab)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestWriteChordsRoundTrip(t *testing.T) {
	params := DefaultParams()
	chords := []Chord{
		{Name: "C", Voicing: mustVoicing(t, "x32010"), Direction: synth.StrumDown},
		{Name: "G", Voicing: mustVoicing(t, "320003"), Beats: 2, Direction: synth.StrumUp},
	}

	var buf bytes.Buffer
	if err := WriteChords(&buf, nil, chords, params); err != nil {
		t.Fatal(err)
	}
	s, ons, offs := readBack(t, &buf, 1)

	if len(s.Tracks) != 2 {
		t.Errorf("got %d tracks, want conductor and guitar", len(s.Tracks))
	}
	if tf, ok := s.TimeFormat.(smf.MetricTicks); !ok || tf.Ticks4th() != 480 {
		t.Errorf("time format = %v, want 480 ticks per quarter", s.TimeFormat)
	}
	if tempos := s.TempoChanges(); len(tempos) == 0 || math.Abs(tempos[0].BPM-100) > 0.01 {
		t.Errorf("tempo changes = %v, want 100 BPM", tempos)
	}

	want := []note{
		// C major strummed down from the A string
		{0, 0, 48, 96}, {15, 0, 52, 96}, {30, 0, 55, 96}, {45, 0, 60, 96}, {60, 0, 64, 96},
		// G major strummed up from the high E string
		{1920, 0, 67, 96}, {1935, 0, 59, 96}, {1950, 0, 55, 96},
		{1965, 0, 50, 96}, {1980, 0, 47, 96}, {1995, 0, 43, 96},
	}
	if len(ons) != len(want) {
		t.Fatalf("got %d note-ons, want %d: %v", len(ons), len(want), ons)
	}
	for i := range want {
		if ons[i] != want[i] {
			t.Errorf("note-on %d = %+v, want %+v", i, ons[i], want[i])
		}
	}

	if len(offs) != len(ons) {
		t.Fatalf("got %d note-offs for %d note-ons", len(offs), len(ons))
	}
	for _, off := range offs[:5] {
		if off.tick != 1920 {
			t.Errorf("C chord note %d released at %d, want 1920", off.key, off.tick)
		}
	}
	for _, off := range offs[5:] {
		if off.tick != 2880 {
			t.Errorf("G chord note %d released at %d, want 2880", off.key, off.tick)
		}
	}
}

func TestWriteChordsCustomTuning(t *testing.T) {
	dropD := fretboard.StandardTuning
	dropD.Name = "drop d"
	dropD.Open[5] = fretboard.ScientificPitch{Class: 2, Octave: 2}
	dropD.Frequencies[5] = 73.42

	var buf bytes.Buffer
	chords := []Chord{{Voicing: mustVoicing(t, "0xxxxx"), Beats: 1}}
	if err := WriteChords(&buf, fretboard.NewPitchModel(dropD), chords, DefaultParams()); err != nil {
		t.Fatal(err)
	}
	_, ons, _ := readBack(t, &buf, 1)
	if len(ons) != 1 || ons[0].key != 38 {
		t.Errorf("open low string in drop D = %v, want key 38", ons)
	}
}

func TestWriteMetronomeLoopFill(t *testing.T) {
	params := DefaultParams()
	params.FillEvery = 2

	var buf bytes.Buffer
	if err := WriteMetronome(&buf, synth.KitLoop, 2, params); err != nil {
		t.Fatal(err)
	}
	_, ons, offs := readBack(t, &buf, 1)

	// Bar one: 8 hi-hats, 2 kicks, 2 snares. Bar two: half a groove then a 4-snare fill.
	if len(ons) != 22 {
		t.Fatalf("got %d hits, want 22", len(ons))
	}
	if len(offs) != len(ons) {
		t.Errorf("got %d note-offs for %d hits", len(offs), len(ons))
	}

	var fill []note
	for _, n := range ons {
		if n.channel != DrumChannel {
			t.Errorf("hit %+v is not on the percussion channel", n)
		}
		if n.tick >= 8*240+4*240 {
			fill = append(fill, n)
		}
	}

	wantVelocities := []uint8{51, 70, 89, 108}
	if len(fill) != len(wantVelocities) {
		t.Fatalf("fill has %d hits, want %d", len(fill), len(wantVelocities))
	}
	for i, n := range fill {
		if n.key != keySnare {
			t.Errorf("fill hit %d key = %d, want snare", i, n.key)
		}
		if n.velocity != wantVelocities[i] {
			t.Errorf("fill hit %d velocity = %d, want %d", i, n.velocity, wantVelocities[i])
		}
		if want := uint32(12+i) * 240; n.tick != want {
			t.Errorf("fill hit %d at tick %d, want %d", i, n.tick, want)
		}
	}
}

func TestWriteMetronomeSimpleKits(t *testing.T) {
	tests := []struct {
		kit       synth.Kit
		accentKey uint8
		otherKey  uint8
	}{
		{synth.KitBeep, keyHighWoodblock, keyLowWoodblock},
		{synth.KitHiHat, keyClosedHiHat, keyClosedHiHat},
		{synth.KitKick, keyKick, keyKick},
		{synth.KitCowbell, keyCowbell, keyCowbell},
	}

	for _, tt := range tests {
		t.Run(string(tt.kit), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteMetronome(&buf, tt.kit, 3, DefaultParams()); err != nil {
				t.Fatal(err)
			}
			_, ons, _ := readBack(t, &buf, 1)

			if len(ons) != 3*simpleKitHits {
				t.Fatalf("got %d hits, want %d", len(ons), 3*simpleKitHits)
			}
			for i, n := range ons {
				if want := uint32(i) * 480; n.tick != want {
					t.Errorf("hit %d at tick %d, want %d", i, n.tick, want)
				}
				accent := i%simpleKitHits == 0
				wantKey := tt.otherKey
				if accent {
					wantKey = tt.accentKey
				}
				if n.key != wantKey {
					t.Errorf("hit %d key = %d, want %d", i, n.key, wantKey)
				}
				if accent && i+1 < len(ons) && n.velocity <= ons[i+1].velocity {
					t.Errorf("accent velocity %d should exceed %d", n.velocity, ons[i+1].velocity)
				}
			}
		})
	}
}

func TestScoreRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer

	bad := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero resolution", func(p *Params) { p.TicksPerQuarter = 0 }},
		{"tempo", func(p *Params) { p.BPM = 0 }},
		{"percussion channel", func(p *Params) { p.Channel = DrumChannel }},
		{"channel range", func(p *Params) { p.Channel = 16 }},
		{"silent velocity", func(p *Params) { p.Velocity = 0 }},
		{"program range", func(p *Params) { p.Program = 200 }},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if err := WriteChords(&buf, nil, nil, p); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := WriteMetronome(&buf, synth.KitLoop, 0, DefaultParams()); err == nil {
		t.Error("zero bars should fail")
	}
	if err := WriteMetronome(&buf, synth.Kit("tabla"), 1, DefaultParams()); err == nil {
		t.Error("unknown kit should fail")
	}
	if buf.Len() != 0 {
		t.Errorf("failed exports wrote %d bytes", buf.Len())
	}
}
