package gesture

import "testing"

func TestParseLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want Label
	}{
		{"hello", LabelHello},
		{"thumbs_up", LabelThumbsUp},
		{"victory", LabelVictory},
		{"namaste", LabelNamaste},
		{"  Thumbs_Up  ", LabelThumbsUp},
		{"none", LabelNone},
		{"", LabelNone},
		{"wave", LabelNone},
		{"thumbs up", LabelNone},
	}

	for _, tt := range tests {
		if got := ParseLabel(tt.raw); got != tt.want {
			t.Errorf("ParseLabel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLabel_IsNone(t *testing.T) {
	if LabelHello.IsNone() {
		t.Error("hello should not be none")
	}
	if !LabelNone.IsNone() {
		t.Error("none should be none")
	}
	if !Label("sideways_glance").IsNone() {
		t.Error("out-of-set label should behave as none")
	}
}

func TestLabel_Phrase(t *testing.T) {
	for _, l := range Labels() {
		if l.Phrase() == "" {
			t.Errorf("label %v has no interaction phrase", l)
		}
	}
	if LabelNone.Phrase() != "" {
		t.Error("none must not map to an interaction phrase")
	}
}
