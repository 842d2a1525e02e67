package tonal

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
)

// ChordOracle names chords from a set of unique pitch classes. Implementations
// return zero or more chord symbols such as "CM", "Am7" or "G7".
type ChordOracle interface {
	Detect(pitchClasses []fretboard.PitchClass) ([]string, error)
}

// OracleFunc adapts a function to the ChordOracle interface
type OracleFunc func(pitchClasses []fretboard.PitchClass) ([]string, error)

// Detect calls f
func (f OracleFunc) Detect(pitchClasses []fretboard.PitchClass) ([]string, error) {
	return f(pitchClasses)
}

// ChordTemplate represents a chord template for matching
type ChordTemplate struct {
	Symbol    string    `json:"symbol"`    // Quality symbol appended to the root
	Pattern   []float64 `json:"pattern"`   // Chroma pattern for the chord rooted on C
	Intervals []int     `json:"intervals"` // Intervals from root
	Weight    float64   `json:"weight"`    // Template importance (simplicity) weight
	OmitFifth bool      `json:"omit_fifth"`

	// Pattern with the perfect fifth removed, when OmitFifth is set
	omitted []float64
}

// DefaultChordTemplates returns the template set used by NewTemplateOracle.
// Symbols follow common chord-symbol spelling with "M" for a plain major triad.
func DefaultChordTemplates() []*ChordTemplate {
	return []*ChordTemplate{
		newTemplate("M", 1.0, false, 0, 4, 7),
		newTemplate("m", 1.0, false, 0, 3, 7),
		newTemplate("7", 0.9, true, 0, 4, 7, 10),
		newTemplate("maj7", 0.85, true, 0, 4, 7, 11),
		newTemplate("m7", 0.85, true, 0, 3, 7, 10),
		newTemplate("dim", 0.8, false, 0, 3, 6),
		newTemplate("6", 0.75, false, 0, 4, 7, 9),
		newTemplate("sus4", 0.7, false, 0, 5, 7),
		newTemplate("sus2", 0.7, false, 0, 2, 7),
		newTemplate("aug", 0.7, false, 0, 4, 8),
		newTemplate("add9", 0.7, false, 0, 2, 4, 7),
		newTemplate("m6", 0.7, false, 0, 3, 7, 9),
		newTemplate("7sus4", 0.65, false, 0, 5, 7, 10),
		newTemplate("m7b5", 0.65, false, 0, 3, 6, 10),
		newTemplate("5", 0.6, false, 0, 7),
		newTemplate("madd9", 0.6, false, 0, 2, 3, 7),
		newTemplate("dim7", 0.6, false, 0, 3, 6, 9),
		newTemplate("9", 0.6, true, 0, 2, 4, 7, 10),
		newTemplate("mMaj7", 0.55, false, 0, 3, 7, 11),
		newTemplate("maj9", 0.55, true, 0, 2, 4, 7, 11),
		newTemplate("m9", 0.55, true, 0, 2, 3, 7, 10),
		newTemplate("69", 0.5, false, 0, 2, 4, 7, 9),
		newTemplate("7#5", 0.45, false, 0, 4, 8, 10),
		newTemplate("7b9", 0.4, false, 0, 1, 4, 7, 10),
		newTemplate("7#9", 0.4, false, 0, 3, 4, 7, 10),
	}
}

func newTemplate(symbol string, weight float64, omitFifth bool, intervals ...int) *ChordTemplate {
	t := &ChordTemplate{
		Symbol:    symbol,
		Pattern:   make([]float64, 12),
		Intervals: intervals,
		Weight:    weight,
		OmitFifth: omitFifth,
	}
	for _, interval := range intervals {
		t.Pattern[interval%12] = 1.0
	}
	if omitFifth {
		t.omitted = make([]float64, 12)
		copy(t.omitted, t.Pattern)
		t.omitted[7] = 0.0
	}
	return t
}

// TemplateOracle detects chords by exact template matching over a binary
// 12-bin chroma vector, trying every pitch class of the input as root.
type TemplateOracle struct {
	templates []*ChordTemplate
}

// NewTemplateOracle creates an oracle with the default chord templates
func NewTemplateOracle() *TemplateOracle {
	return NewTemplateOracleWithTemplates(DefaultChordTemplates())
}

// NewTemplateOracleWithTemplates creates an oracle over custom templates
func NewTemplateOracleWithTemplates(templates []*ChordTemplate) *TemplateOracle {
	for _, t := range templates {
		if t.OmitFifth && t.omitted == nil {
			t.omitted = make([]float64, 12)
			copy(t.omitted, t.Pattern)
			t.omitted[7] = 0.0
		}
	}
	return &TemplateOracle{templates: templates}
}

type templateMatch struct {
	name      string
	weight    float64
	rootOrder int
}

// Detect returns chord symbols whose tones equal the input pitch classes.
// Roots are tried in input order, so callers list the bass first to favour
// root-position names. Results are ordered by template weight.
func (to *TemplateOracle) Detect(pitchClasses []fretboard.PitchClass) ([]string, error) {
	chroma := to.chromaVector(pitchClasses)
	if floats.Sum(chroma) < 2 {
		return nil, nil
	}

	var matches []templateMatch
	seenRoots := make(map[fretboard.PitchClass]bool)
	rootOrder := 0

	for _, root := range pitchClasses {
		if !root.Valid() || seenRoots[root] {
			continue
		}
		seenRoots[root] = true

		for _, template := range to.templates {
			rotated := to.rotatePattern(template.Pattern, int(root))
			if floats.Equal(chroma, rotated) {
				matches = append(matches, templateMatch{
					name:      root.String() + template.Symbol,
					weight:    template.Weight,
					rootOrder: rootOrder,
				})
				continue
			}
			// Omitted-fifth voicings count for less than the full chord
			if template.OmitFifth && floats.Equal(chroma, to.rotatePattern(template.omitted, int(root))) {
				matches = append(matches, templateMatch{
					name:      root.String() + template.Symbol,
					weight:    template.Weight * 0.8,
					rootOrder: rootOrder,
				})
			}
		}
		rootOrder++
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].weight != matches[j].weight {
			return matches[i].weight > matches[j].weight
		}
		return matches[i].rootOrder < matches[j].rootOrder
	})

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names, nil
}

// chromaVector builds a binary pitch-class profile
func (to *TemplateOracle) chromaVector(pitchClasses []fretboard.PitchClass) []float64 {
	chroma := make([]float64, 12)
	for _, pc := range pitchClasses {
		if pc.Valid() {
			chroma[pc] = 1.0
		}
	}
	return chroma
}

func (to *TemplateOracle) rotatePattern(pattern []float64, semitones int) []float64 {
	result := make([]float64, len(pattern))
	for i, val := range pattern {
		newIndex := (i + semitones) % len(pattern)
		result[newIndex] = val
	}
	return result
}

// Templates returns the oracle's templates
func (to *TemplateOracle) Templates() []*ChordTemplate {
	return to.templates
}

