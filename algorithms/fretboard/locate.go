package fretboard

import (
	"math"
)

// DefaultMaxFret bounds fretboard searches
const DefaultMaxFret = 24

const (
	referenceFrequency = 440.0
	referenceSemitones = 4*12 + 9 // A4
)

// NearestPitch returns the equal-tempered pitch closest to freq and the
// deviation from it in cents. Non-positive frequencies return ok=false.
func NearestPitch(freq float64) (pitch ScientificPitch, cents float64, ok bool) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return ScientificPitch{}, 0, false
	}
	exact := 12*math.Log2(freq/referenceFrequency) + referenceSemitones
	nearest := math.Round(exact)
	return FromSemitones(int(nearest)), (exact - nearest) * 100, true
}

// Locate returns every position up to maxFret that sounds the semitone nearest
// to freq, lowest string first.
func (pm *PitchModel) Locate(freq float64, maxFret int) []Position {
	pitch, _, ok := NearestPitch(freq)
	if !ok {
		return nil
	}
	if maxFret <= 0 {
		maxFret = DefaultMaxFret
	}

	target := pitch.Semitones()
	var positions []Position
	for s := NumStrings - 1; s >= 0; s-- {
		fret := target - pm.openSemitones[s]
		if fret >= 0 && fret <= maxFret {
			positions = append(positions, Position{String: s, Fret: fret})
		}
	}
	return positions
}
