package fretboard

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// NumStrings is the number of strings on the instrument. String indices are
// stable identifiers: 0 is the highest-pitched string, 5 the lowest.
const NumStrings = 6

// PitchClass is a chromatic pitch class (0=C, 1=C#, ..., 11=B)
type PitchClass int

// pitchClassNames uses sharps only; flats never appear in stored names
var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// flatAliases maps flat spellings to their sharp equivalents
var flatAliases = map[string]string{
	"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	"Cb": "B", "Fb": "E", "E#": "F", "B#": "C",
}

// String returns the sharp spelling of the pitch class
func (pc PitchClass) String() string {
	if !pc.Valid() {
		return "?"
	}
	return pitchClassNames[pc]
}

// Valid reports whether pc is one of the 12 pitch classes
func (pc PitchClass) Valid() bool {
	return pc >= 0 && pc < 12
}

// Transpose moves the pitch class by semitones, wrapping modulo 12
func (pc PitchClass) Transpose(semitones int) PitchClass {
	return PitchClass(((int(pc)+semitones)%12 + 12) % 12)
}

// ParsePitchClass parses a pitch class name such as "C", "F#" or "Bb".
func ParsePitchClass(name string) (PitchClass, error) {
	name = strings.TrimSpace(name)
	if len(name) > 1 {
		name = strings.ToUpper(name[:1]) + name[1:]
	} else {
		name = strings.ToUpper(name)
	}
	if alias, ok := flatAliases[name]; ok {
		name = alias
	}
	for i, n := range pitchClassNames {
		if n == name {
			return PitchClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pitch class %q", name)
}

// ScientificPitch is a pitch class with its octave number (C4 = middle C)
type ScientificPitch struct {
	Class  PitchClass
	Octave int
}

// Semitones returns the absolute semitone index (C0 = 0)
func (sp ScientificPitch) Semitones() int {
	return sp.Octave*12 + int(sp.Class)
}

// MIDI returns the MIDI note number (C4 = 60)
func (sp ScientificPitch) MIDI() int {
	return sp.Semitones() + 12
}

func (sp ScientificPitch) String() string {
	return fmt.Sprintf("%s%d", sp.Class, sp.Octave)
}

// FromSemitones builds a ScientificPitch from an absolute semitone index
func FromSemitones(abs int) ScientificPitch {
	octave := abs / 12
	class := abs % 12
	if class < 0 {
		class += 12
		octave--
	}
	return ScientificPitch{Class: PitchClass(class), Octave: octave}
}

// Tuning describes the open strings of the instrument, highest string first.
type Tuning struct {
	Name        string
	Open        [NumStrings]ScientificPitch
	Frequencies [NumStrings]float64
}

// StandardTuning is E4 B3 G3 D3 A2 E2
var StandardTuning = Tuning{
	Name: "standard",
	Open: [NumStrings]ScientificPitch{
		{Class: 4, Octave: 4},  // E4
		{Class: 11, Octave: 3}, // B3
		{Class: 7, Octave: 3},  // G3
		{Class: 2, Octave: 3},  // D3
		{Class: 9, Octave: 2},  // A2
		{Class: 4, Octave: 2},  // E2
	},
	Frequencies: [NumStrings]float64{329.63, 246.94, 196.00, 146.83, 110.00, 82.41},
}

// Frequency returns the equal-tempered frequency of the pitch (A4 = 440 Hz)
func (sp ScientificPitch) Frequency() float64 {
	return referenceFrequency * math.Pow(2, float64(sp.Semitones()-referenceSemitones)/12)
}

// ParseScientificPitch parses names such as "E2", "F#3" or "Bb4"
func ParseScientificPitch(name string) (ScientificPitch, error) {
	name = strings.TrimSpace(name)
	split := strings.IndexFunc(name, func(r rune) bool {
		return r == '-' || unicode.IsDigit(r)
	})
	if split <= 0 {
		return ScientificPitch{}, fmt.Errorf("invalid pitch %q: missing octave", name)
	}

	class, err := ParsePitchClass(name[:split])
	if err != nil {
		return ScientificPitch{}, fmt.Errorf("invalid pitch %q: %w", name, err)
	}
	octave, err := strconv.Atoi(name[split:])
	if err != nil {
		return ScientificPitch{}, fmt.Errorf("invalid pitch %q: bad octave", name)
	}
	return ScientificPitch{Class: class, Octave: octave}, nil
}

// namedTunings are open-string pitches written lowest string first
var namedTunings = map[string]string{
	"standard":       "E2 A2 D3 G3 B3 E4",
	"drop-d":         "D2 A2 D3 G3 B3 E4",
	"half-step-down": "D#2 G#2 C#3 F#3 A#3 D#4",
	"dadgad":         "D2 A2 D3 G3 A3 D4",
	"open-g":         "D2 G2 D3 G3 B3 D4",
	"open-d":         "D2 A2 D3 F#3 A3 D4",
}

// TuningNames lists the built-in tunings in sorted order
func TuningNames() []string {
	names := make([]string, 0, len(namedTunings))
	for name := range namedTunings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseTuning resolves a built-in tuning name or a list of six open-string
// pitches written lowest string first, e.g. "D2 A2 D3 G3 B3 E4".
func ParseTuning(spec string) (Tuning, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, StandardTuning.Name) {
		return StandardTuning, nil
	}

	name := strings.ToLower(spec)
	pitches, ok := namedTunings[name]
	if !ok {
		name = "custom"
		pitches = spec
	}

	fields := strings.FieldsFunc(pitches, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != NumStrings {
		return Tuning{}, fmt.Errorf("tuning %q: expected %d strings, got %d", spec, NumStrings, len(fields))
	}

	tuning := Tuning{Name: name}
	for i, field := range fields {
		sp, err := ParseScientificPitch(field)
		if err != nil {
			return Tuning{}, fmt.Errorf("tuning %q: %w", spec, err)
		}
		s := NumStrings - 1 - i
		tuning.Open[s] = sp
		tuning.Frequencies[s] = sp.Frequency()
	}
	return tuning, nil
}
