package gesture

import "strings"

// Label is a recognized hand gesture.
//
// The set is closed: anything the classifier returns outside of it
// normalizes to LabelNone, which never triggers a dispatch.
type Label string

const (
	LabelNone     Label = "none"
	LabelHello    Label = "hello"
	LabelThumbsUp Label = "thumbs_up"
	LabelVictory  Label = "victory"
	LabelNamaste  Label = "namaste"
)

var knownLabels = map[Label]struct{}{
	LabelHello:    {},
	LabelThumbsUp: {},
	LabelVictory:  {},
	LabelNamaste:  {},
}

// ParseLabel normalizes raw classifier output to a Label. Unrecognized or
// empty output maps to LabelNone rather than propagating as a new variant.
func ParseLabel(raw string) Label {
	l := Label(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownLabels[l]; ok {
		return l
	}
	return LabelNone
}

// IsNone reports whether the label is the empty/unknown outcome.
func (l Label) IsNone() bool {
	_, ok := knownLabels[l]
	return !ok
}

// Phrase returns the fixed interaction phrase for a confirmed gesture.
// None has no phrase.
func (l Label) Phrase() string {
	switch l {
	case LabelHello:
		return "Wave back and greet the audience warmly."
	case LabelThumbsUp:
		return "React with enthusiasm, the audience loved that."
	case LabelVictory:
		return "Celebrate the moment with a victory flourish."
	case LabelNamaste:
		return "Bow gracefully and thank the audience."
	default:
		return ""
	}
}

// Labels returns the closed set of recognizable gestures, excluding none.
func Labels() []Label {
	return []Label{LabelHello, LabelThumbsUp, LabelVictory, LabelNamaste}
}
