package fretboard

import (
	"math"
	"testing"
)

func TestPitchClassAt(t *testing.T) {
	tests := []struct {
		name   string
		str    int
		fret   int
		expect string
	}{
		{"high E open", 0, 0, "E"},
		{"B string first fret", 1, 1, "C"},
		{"G string open", 2, 0, "G"},
		{"A string third fret", 4, 3, "C"},
		{"low E third fret", 5, 3, "G"},
		{"low E eleventh fret", 5, 11, "D#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PitchClassAt(tt.str, tt.fret).String(); got != tt.expect {
				t.Errorf("PitchClassAt(%d, %d) = %s, want %s", tt.str, tt.fret, got, tt.expect)
			}
		})
	}
}

func TestScientificPitchAt(t *testing.T) {
	tests := []struct {
		str    int
		fret   int
		expect string
		midi   int
	}{
		{5, 0, "E2", 40},
		{4, 3, "C3", 48},
		{5, 8, "C3", 48},
		{1, 1, "C4", 60},
		{0, 0, "E4", 64},
		{0, 12, "E5", 76},
		{2, 5, "C4", 60},
	}

	for _, tt := range tests {
		sp := ScientificPitchAt(tt.str, tt.fret)
		if sp.String() != tt.expect {
			t.Errorf("ScientificPitchAt(%d, %d) = %s, want %s", tt.str, tt.fret, sp, tt.expect)
		}
		if sp.MIDI() != tt.midi {
			t.Errorf("ScientificPitchAt(%d, %d).MIDI() = %d, want %d", tt.str, tt.fret, sp.MIDI(), tt.midi)
		}
	}
}

func TestPitchPeriodicity(t *testing.T) {
	for s := 0; s < NumStrings; s++ {
		for f := 0; f <= 12; f++ {
			if PitchClassAt(s, f+12) != PitchClassAt(s, f) {
				t.Errorf("string %d fret %d: pitch class not periodic over 12 frets", s, f)
			}
			lower := ScientificPitchAt(s, f)
			upper := ScientificPitchAt(s, f+12)
			if upper.Octave != lower.Octave+1 || upper.Class != lower.Class {
				t.Errorf("string %d fret %d: %s + 12 frets = %s", s, f, lower, upper)
			}
		}
	}
}

func TestFrequencyDoubling(t *testing.T) {
	for s := 0; s < NumStrings; s++ {
		for f := 0; f <= 12; f++ {
			lower := FrequencyAt(s, f)
			upper := FrequencyAt(s, f+12)
			if math.Abs(upper-2*lower) > 1e-9*upper {
				t.Errorf("string %d fret %d: %f is not double %f", s, f, upper, lower)
			}
		}
	}
}

func TestFrequencyAtOpenStrings(t *testing.T) {
	expected := []float64{329.63, 246.94, 196.00, 146.83, 110.00, 82.41}
	for s, want := range expected {
		if got := FrequencyAt(s, 0); got != want {
			t.Errorf("open string %d = %f Hz, want %f", s, got, want)
		}
	}
	// A string, 12th fret
	if got := FrequencyAt(4, 12); math.Abs(got-220.0) > 1e-9 {
		t.Errorf("A string 12th fret = %f, want 220", got)
	}
}

func TestParsePitchClass(t *testing.T) {
	tests := []struct {
		in      string
		want    PitchClass
		wantErr bool
	}{
		{"C", 0, false},
		{"F#", 6, false},
		{"Bb", 10, false},
		{"eb", 3, false},
		{"H", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePitchClass(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePitchClass(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePitchClass(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLocate(t *testing.T) {
	pm := NewStandardPitchModel()

	got := pm.Locate(440.0, 12)
	want := []Position{{String: 1, Fret: 10}, {String: 0, Fret: 5}}
	if len(got) != len(want) {
		t.Fatalf("Locate(440, 12) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Locate(440, 12)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Slightly flat A still resolves to A
	if got := pm.Locate(437.0, 24); len(got) != 5 {
		t.Errorf("Locate(437, 24) returned %d positions, want 5", len(got))
	}

	if got := pm.Locate(-1, 12); got != nil {
		t.Errorf("Locate of a negative frequency should be nil, got %v", got)
	}
}

func TestNearestPitch(t *testing.T) {
	pitch, cents, ok := NearestPitch(261.63)
	if !ok || pitch.String() != "C4" {
		t.Fatalf("NearestPitch(261.63) = %s ok=%v, want C4", pitch, ok)
	}
	if math.Abs(cents) > 1 {
		t.Errorf("NearestPitch(261.63) cents = %f, want ~0", cents)
	}
}
