package fretboard

// LabelTable maps semitone distance from a root (0-11) to an interval label.
// The labels follow semitone distance, not diatonic spelling.
type LabelTable [12]string

// FlatLabels spells the minor third and minor seventh as b3 and b7
var FlatLabels = LabelTable{"T", "b2", "2", "b3", "3", "4", "b5", "5", "b6", "6", "b7", "7M"}

// QualityLabels spells the minor third as m and the minor seventh as 7
var QualityLabels = LabelTable{"T", "b2", "2", "m", "3", "4", "b5", "5", "b6", "6", "7", "7M"}

// TonicLabel is returned for the root itself and for inputs outside the table
const TonicLabel = "T"

// LabelTableByName resolves a configured table name ("flat" or "quality").
func LabelTableByName(name string) (LabelTable, bool) {
	switch name {
	case "", "flat":
		return FlatLabels, true
	case "quality":
		return QualityLabels, true
	default:
		return FlatLabels, false
	}
}

// IntervalClassifier labels notes by their semitone distance from a root
type IntervalClassifier struct {
	table LabelTable
}

// NewIntervalClassifier creates a classifier over the given label table
func NewIntervalClassifier(table LabelTable) *IntervalClassifier {
	return &IntervalClassifier{table: table}
}

// Label returns the interval label of note against root.
// Invalid pitch classes fall back to TonicLabel.
func (ic *IntervalClassifier) Label(note, root PitchClass) string {
	if !note.Valid() || !root.Valid() {
		return TonicLabel
	}
	distance := (int(note) - int(root) + 12) % 12
	label := ic.table[distance]
	if label == "" {
		return TonicLabel
	}
	return label
}

// Labels returns the label of every position in the set against root
func (ic *IntervalClassifier) Labels(pm *PitchModel, positions []Position, root PitchClass) map[Position]string {
	labels := make(map[Position]string, len(positions))
	for _, p := range positions {
		labels[p] = ic.Label(pm.PitchClassOf(p), root)
	}
	return labels
}

var defaultClassifier = NewIntervalClassifier(FlatLabels)

// IntervalLabel labels note against root with the default (flat) table
func IntervalLabel(note, root PitchClass) string {
	return defaultClassifier.Label(note, root)
}
