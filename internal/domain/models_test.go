package domain

import (
	"testing"
)

func TestParseMood(t *testing.T) {
	cases := map[string]Mood{
		"happy":      MoodHappy,
		"  Calm ":    MoodCalm,
		"NEUTRAL":    MoodNeutral,
		"sad":        MoodSad,
		"Stressed":   MoodStressed,
		"excited\n":  MoodExcited,
	}
	for in, want := range cases {
		got, err := ParseMood(in)
		if err != nil {
			t.Fatalf("ParseMood(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMood(%q) = %q; want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", "all", "angry", "hap py"} {
		if _, err := ParseMood(bad); err == nil {
			t.Errorf("ParseMood(%q) should fail", bad)
		}
	}
}

func TestMoods_AllValidAndOrdered(t *testing.T) {
	ms := Moods()
	if len(ms) != 6 {
		t.Fatalf("expected 6 moods, got %d", len(ms))
	}
	if ms[0] != MoodHappy || ms[5] != MoodExcited {
		t.Fatalf("unexpected order: %v", ms)
	}
	for _, m := range ms {
		if !m.Valid() {
			t.Errorf("mood %q should be valid", m)
		}
		if m.Emoji() == "" {
			t.Errorf("mood %q has no emoji", m)
		}
	}
	if DefaultMood != MoodNeutral {
		t.Fatalf("DefaultMood = %q; want neutral", DefaultMood)
	}
}

func TestMood_EmojiFallsBackToNeutralFace(t *testing.T) {
	if got := Mood("bogus").Emoji(); got != MoodNeutral.Emoji() {
		t.Fatalf("unknown mood emoji = %q; want neutral face", got)
	}
}

func TestJournalEntry_HasReflection(t *testing.T) {
	empty := ""
	text := "be kind to yourself"
	if (JournalEntry{}).HasReflection() {
		t.Fatalf("nil reflection should report false")
	}
	if (JournalEntry{AIReflection: &empty}).HasReflection() {
		t.Fatalf("empty reflection should report false")
	}
	if !(JournalEntry{AIReflection: &text}).HasReflection() {
		t.Fatalf("non-empty reflection should report true")
	}
}

func TestView_String(t *testing.T) {
	cases := map[View]string{
		ViewAuthenticating: "authenticating",
		ViewBrowsing:       "browsing",
		ViewEditing:        "editing",
		View(9):            "view(9)",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("View(%d).String() = %q; want %q", int(v), got, want)
		}
	}
}
