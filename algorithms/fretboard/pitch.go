package fretboard

import (
	"math"
)

// Position is a fretted position on one string. Fret 0 is the open string.
type Position struct {
	String int `json:"string"`
	Fret   int `json:"fret"`
}

// Muted is the UI sentinel for a string that is not played. It is never part
// of a selected set passed to the theory components.
const Muted = -1

// PitchModel maps fretted positions to pitches for a fixed tuning
type PitchModel struct {
	tuning Tuning

	// Absolute semitone position of each open string, computed once
	openSemitones [NumStrings]int
}

// NewPitchModel creates a pitch model for the given tuning
func NewPitchModel(tuning Tuning) *PitchModel {
	pm := &PitchModel{tuning: tuning}
	for s, open := range tuning.Open {
		pm.openSemitones[s] = open.Semitones()
	}
	return pm
}

// NewStandardPitchModel creates a pitch model in standard tuning
func NewStandardPitchModel() *PitchModel {
	return NewPitchModel(StandardTuning)
}

// Tuning returns the tuning the model was built with
func (pm *PitchModel) Tuning() Tuning {
	return pm.tuning
}

// PitchClassAt returns the pitch class sounding at (stringIndex, fret)
func (pm *PitchModel) PitchClassAt(stringIndex, fret int) PitchClass {
	return pm.tuning.Open[stringIndex].Class.Transpose(fret)
}

// ScientificPitchAt returns the pitch class and octave sounding at (stringIndex, fret).
// The octave comes from the absolute semitone count, so crossing B->C bumps it.
func (pm *PitchModel) ScientificPitchAt(stringIndex, fret int) ScientificPitch {
	return FromSemitones(pm.openSemitones[stringIndex] + fret)
}

// FrequencyAt returns the equal-tempered frequency in Hz at (stringIndex, fret)
func (pm *PitchModel) FrequencyAt(stringIndex, fret int) float64 {
	return pm.tuning.Frequencies[stringIndex] * math.Pow(2, float64(fret)/12.0)
}

// PitchClassOf is PitchClassAt for a Position
func (pm *PitchModel) PitchClassOf(p Position) PitchClass {
	return pm.PitchClassAt(p.String, p.Fret)
}

// FrequencyOf is FrequencyAt for a Position
func (pm *PitchModel) FrequencyOf(p Position) float64 {
	return pm.FrequencyAt(p.String, p.Fret)
}

// Frequencies returns the frequency of every position in the set, in set order
func (pm *PitchModel) Frequencies(positions []Position) []float64 {
	freqs := make([]float64, len(positions))
	for i, p := range positions {
		freqs[i] = pm.FrequencyOf(p)
	}
	return freqs
}

// Valid reports whether p addresses a real string with a non-negative fret
func (p Position) Valid() bool {
	return p.String >= 0 && p.String < NumStrings && p.Fret >= 0
}

// Package-level helpers in standard tuning

var standardModel = NewStandardPitchModel()

// PitchClassAt returns the pitch class at (stringIndex, fret) in standard tuning
func PitchClassAt(stringIndex, fret int) PitchClass {
	return standardModel.PitchClassAt(stringIndex, fret)
}

// ScientificPitchAt returns the scientific pitch at (stringIndex, fret) in standard tuning
func ScientificPitchAt(stringIndex, fret int) ScientificPitch {
	return standardModel.ScientificPitchAt(stringIndex, fret)
}

// FrequencyAt returns the frequency at (stringIndex, fret) in standard tuning
func FrequencyAt(stringIndex, fret int) float64 {
	return standardModel.FrequencyAt(stringIndex, fret)
}
