package tonal

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/RyanBlaney/trastes/algorithms/fretboard"
	"github.com/RyanBlaney/trastes/logging"
)

// ChordCandidate is one ranked chord name for a selected set
type ChordCandidate struct {
	Root         fretboard.PitchClass   `json:"root"`
	RootName     string                 `json:"root_name"`
	Suffix       string                 `json:"suffix"`        // Normalised quality suffix ("" for major)
	Name         string                 `json:"name"`          // Display name, with "/bass" for inversions
	Bass         fretboard.PitchClass   `json:"bass"`          // Pitch class of the lowest selected string
	PitchClasses []fretboard.PitchClass `json:"pitch_classes"` // Unique sounding pitch classes
	Score        int                    `json:"score"`         // Ranking score (0-100)
	Symbol       string                 `json:"symbol"`        // Raw name reported by the oracle
}

// IsInversion reports whether the chord's root differs from the bass
func (c ChordCandidate) IsInversion() bool {
	return c.Root != c.Bass
}

// IdentifierParams controls candidate ranking
type IdentifierParams struct {
	MaxResults   int `json:"max_results"`
	MinPositions int `json:"min_positions"`

	// Scoring: base, root-position bonus, and a bonus per rank in
	// CanonicalSuffixes (simplest first)
	BaseScore         int      `json:"base_score"`
	RootPositionBonus int      `json:"root_position_bonus"`
	CanonicalSuffixes []string `json:"canonical_suffixes"`
	SuffixBonusStep   int      `json:"suffix_bonus_step"`

	// Raw oracle names longer than LongNameLength lose LongNamePenalty
	LongNameLength  int `json:"long_name_length"`
	LongNamePenalty int `json:"long_name_penalty"`
}

// DefaultIdentifierParams returns the standard ranking parameters
func DefaultIdentifierParams() IdentifierParams {
	return IdentifierParams{
		MaxResults:        4,
		MinPositions:      2,
		BaseScore:         50,
		RootPositionBonus: 40,
		CanonicalSuffixes: []string{"", "m", "7", "maj7", "m7", "sus4", "sus2", "dim", "aug"},
		SuffixBonusStep:   10,
		LongNameLength:    8,
		LongNamePenalty:   30,
	}
}

// suffixAliases normalises oracle spellings to the suffixes used for display
var suffixAliases = map[string]string{
	"M":    "",
	"maj":  "",
	"Maj":  "",
	"ma7":  "maj7",
	"Maj7": "maj7",
	"M7":   "maj7",
	"Δ":    "maj7",
	"Δ7":   "maj7",
	"mi":   "m",
	"min":  "m",
	"-":    "m",
	"mi7":  "m7",
	"min7": "m7",
	"-7":   "m7",
	"o":    "dim",
	"°":    "dim",
	"o7":   "dim7",
	"°7":   "dim7",
	"+":    "aug",
	"ø":    "m7b5",
	"ø7":   "m7b5",
	"mM7":  "mMaj7",
	"sus":  "sus4",
}

// pitchNoise matches a bare pitch with a stray octave digit, e.g. "E4"
var pitchNoise = regexp.MustCompile(`^[A-G][#b]?[0-48]$`)

// Identifier names chords from fretted positions
type Identifier struct {
	params IdentifierParams
	model  *fretboard.PitchModel
	oracle ChordOracle
	logger logging.Logger
}

// NewIdentifier creates an identifier in standard tuning backed by the template oracle
func NewIdentifier() *Identifier {
	return NewIdentifierWithParams(fretboard.NewStandardPitchModel(), NewTemplateOracle(), DefaultIdentifierParams())
}

// NewIdentifierWithParams creates an identifier with a custom model, oracle and ranking
func NewIdentifierWithParams(model *fretboard.PitchModel, oracle ChordOracle, params IdentifierParams) *Identifier {
	if params.MaxResults <= 0 {
		params.MaxResults = DefaultIdentifierParams().MaxResults
	}
	return &Identifier{
		params: params,
		model:  model,
		oracle: oracle,
		logger: logging.Component("chord_identifier"),
	}
}

// SetLogger replaces the identifier's logger
func (id *Identifier) SetLogger(logger logging.Logger) {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	id.logger = logger
}

// Identify returns up to MaxResults ranked chord candidates for the selected
// set. Sets smaller than MinPositions and oracle failures yield no candidates.
func (id *Identifier) Identify(positions []fretboard.Position) []ChordCandidate {
	if len(positions) < id.params.MinPositions || len(positions) == 0 {
		return []ChordCandidate{}
	}

	bass := id.bassPitchClass(positions)
	pitchClasses := id.uniquePitchClasses(positions)

	names, err := id.detect(pitchClasses)
	if err != nil {
		id.logger.Error(err, "chord oracle failed", logging.Fields{
			"pitch_classes": pitchClassNames(pitchClasses),
		})
		return []ChordCandidate{}
	}

	best := make(map[string]ChordCandidate)
	order := make([]string, 0, len(names))
	for _, symbol := range names {
		candidate, ok := id.rank(symbol, bass, pitchClasses)
		if !ok {
			continue
		}
		// Octave-numbered pitch names ("E4") are oracle noise, not chords
		if pitchNoise.MatchString(candidate.RootName + candidate.Suffix) {
			continue
		}
		existing, seen := best[candidate.Name]
		if !seen {
			order = append(order, candidate.Name)
		}
		if !seen || candidate.Score > existing.Score {
			best[candidate.Name] = candidate
		}
	}

	candidates := make([]ChordCandidate, 0, len(order))
	for _, name := range order {
		candidates = append(candidates, best[name])
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > id.params.MaxResults {
		candidates = candidates[:id.params.MaxResults]
	}

	id.logger.Debug("chord identified", logging.Fields{
		"positions":  len(positions),
		"candidates": len(candidates),
	})
	return candidates
}

// detect calls the oracle, converting a panic into an error
func (id *Identifier) detect(pitchClasses []fretboard.PitchClass) (names []string, err error) {
	if id.oracle == nil {
		return nil, fmt.Errorf("no chord oracle configured")
	}
	defer func() {
		if r := recover(); r != nil {
			names = nil
			err = fmt.Errorf("chord oracle panicked: %v", r)
		}
	}()
	return id.oracle.Detect(pitchClasses)
}

// bassPitchClass is the pitch class on the lowest selected string (highest index)
func (id *Identifier) bassPitchClass(positions []fretboard.Position) fretboard.PitchClass {
	lowest := positions[0]
	for _, p := range positions[1:] {
		if p.String > lowest.String {
			lowest = p
		}
	}
	return id.model.PitchClassOf(lowest)
}

// uniquePitchClasses lists each sounding pitch class once, lowest pitch first
func (id *Identifier) uniquePitchClasses(positions []fretboard.Position) []fretboard.PitchClass {
	sorted := fretboard.SortByPitch(id.model, positions)
	seen := make(map[fretboard.PitchClass]bool, len(sorted))
	unique := make([]fretboard.PitchClass, 0, len(sorted))
	for _, p := range sorted {
		pc := id.model.PitchClassOf(p)
		if !seen[pc] {
			seen[pc] = true
			unique = append(unique, pc)
		}
	}
	return unique
}

// rank parses an oracle symbol and scores it against the bass
func (id *Identifier) rank(symbol string, bass fretboard.PitchClass, pitchClasses []fretboard.PitchClass) (ChordCandidate, bool) {
	root, suffix, ok := ParseChordSymbol(symbol)
	if !ok {
		id.logger.Debug("unparseable chord symbol", logging.Fields{"symbol": symbol})
		return ChordCandidate{}, false
	}

	score := id.params.BaseScore
	if root == bass {
		score += id.params.RootPositionBonus
	}
	if idx := slices.Index(id.params.CanonicalSuffixes, suffix); idx >= 0 {
		score += (len(id.params.CanonicalSuffixes) - idx) * id.params.SuffixBonusStep
	}
	if id.params.LongNameLength > 0 && len(symbol) > id.params.LongNameLength {
		score -= id.params.LongNamePenalty
	}
	score = max(0, min(score, 100))

	name := root.String() + suffix
	if root != bass {
		name += "/" + bass.String()
	}

	return ChordCandidate{
		Root:         root,
		RootName:     root.String(),
		Suffix:       suffix,
		Name:         name,
		Bass:         bass,
		PitchClasses: slices.Clone(pitchClasses),
		Score:        score,
		Symbol:       symbol,
	}, true
}

// ParseChordSymbol splits a chord symbol into its root and normalised suffix.
// Any "/bass" part is discarded; flat roots are respelled with sharps.
func ParseChordSymbol(symbol string) (fretboard.PitchClass, string, bool) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, "", false
	}
	if slash := strings.Index(symbol, "/"); slash > 0 {
		symbol = symbol[:slash]
	}

	letter := symbol[:1]
	if letter < "A" || letter > "G" {
		return 0, "", false
	}
	rootLen := 1
	if len(symbol) > 1 && (symbol[1] == '#' || symbol[1] == 'b') {
		rootLen = 2
	}

	root, err := fretboard.ParsePitchClass(symbol[:rootLen])
	if err != nil {
		return 0, "", false
	}
	return root, NormalizeSuffix(symbol[rootLen:]), true
}

// NormalizeSuffix maps alternative quality spellings to display suffixes
func NormalizeSuffix(suffix string) string {
	if alias, ok := suffixAliases[suffix]; ok {
		return alias
	}
	return suffix
}

func pitchClassNames(pcs []fretboard.PitchClass) []string {
	names := make([]string, len(pcs))
	for i, pc := range pcs {
		names[i] = pc.String()
	}
	return names
}
