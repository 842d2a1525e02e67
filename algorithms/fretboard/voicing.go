package fretboard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Voicing is the per-string UI toggle state, indexed by string (0 = highest).
// Muted strings hold the Muted sentinel.
type Voicing [NumStrings]int

// MutedVoicing returns a voicing with every string muted
func MutedVoicing() Voicing {
	var v Voicing
	for i := range v {
		v[i] = Muted
	}
	return v
}

// ParseVoicing parses tab shorthand written from the lowest string to the
// highest, e.g. "x32010" or "8-10-10-9-8-8". 'x' marks a muted string.
func ParseVoicing(tab string) (Voicing, error) {
	tab = strings.TrimSpace(tab)

	var tokens []string
	if strings.ContainsAny(tab, " -,") {
		tokens = strings.FieldsFunc(tab, func(r rune) bool {
			return r == ' ' || r == '-' || r == ','
		})
	} else {
		for _, r := range tab {
			tokens = append(tokens, string(r))
		}
	}

	if len(tokens) != NumStrings {
		return Voicing{}, fmt.Errorf("voicing %q: expected %d strings, got %d", tab, NumStrings, len(tokens))
	}

	var v Voicing
	for i, tok := range tokens {
		stringIndex := NumStrings - 1 - i
		if tok == "x" || tok == "X" {
			v[stringIndex] = Muted
			continue
		}
		fret, err := strconv.Atoi(tok)
		if err != nil || fret < 0 {
			return Voicing{}, fmt.Errorf("voicing %q: invalid fret %q", tab, tok)
		}
		v[stringIndex] = fret
	}
	return v, nil
}

// Positions returns the selected set: every non-muted string, lowest string first
func (v Voicing) Positions() []Position {
	positions := make([]Position, 0, NumStrings)
	for s := NumStrings - 1; s >= 0; s-- {
		if v[s] >= 0 {
			positions = append(positions, Position{String: s, Fret: v[s]})
		}
	}
	return positions
}

// String renders the voicing in the same shorthand ParseVoicing accepts
func (v Voicing) String() string {
	parts := make([]string, 0, NumStrings)
	wide := false
	for s := NumStrings - 1; s >= 0; s-- {
		if v[s] < 0 {
			parts = append(parts, "x")
			continue
		}
		if v[s] > 9 {
			wide = true
		}
		parts = append(parts, strconv.Itoa(v[s]))
	}
	if wide {
		return strings.Join(parts, "-")
	}
	return strings.Join(parts, "")
}

// Selection maintains a selected set with at most one position per string
type Selection struct {
	voicing Voicing
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{voicing: MutedVoicing()}
}

// Toggle selects fret on stringIndex, replacing any other fret on that string.
// Toggling the fret that is already selected clears the string. It reports
// whether the position is selected afterwards.
func (s *Selection) Toggle(stringIndex, fret int) bool {
	if stringIndex < 0 || stringIndex >= NumStrings || fret < 0 {
		return false
	}
	if s.voicing[stringIndex] == fret {
		s.voicing[stringIndex] = Muted
		return false
	}
	s.voicing[stringIndex] = fret
	return true
}

// Clear mutes every string
func (s *Selection) Clear() {
	s.voicing = MutedVoicing()
}

// Voicing returns a copy of the current toggle state
func (s *Selection) Voicing() Voicing {
	return s.voicing
}

// Positions returns the selected set
func (s *Selection) Positions() []Position {
	return s.voicing.Positions()
}

// SortByPitch orders positions from the lowest sounding pitch to the highest
func SortByPitch(pm *PitchModel, positions []Position) []Position {
	sorted := make([]Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return pm.ScientificPitchAt(sorted[i].String, sorted[i].Fret).Semitones() <
			pm.ScientificPitchAt(sorted[j].String, sorted[j].Fret).Semitones()
	})
	return sorted
}
