package inspection

import (
	"errors"
	"testing"
)

func items(ratings ...Rating) []Item {
	out := make([]Item, 0, len(ratings))
	for i, r := range ratings {
		out = append(out, Item{Key: string(rune('a' + i)), Label: "Item", Rating: r})
	}
	return out
}

func TestDeriveStatusRules(t *testing.T) {
	tests := []struct {
		name    string
		ratings []Rating
		want    SectionStatus
	}{
		{"all unchecked", []Rating{RatingNotChecked, RatingNotChecked}, StatusNotStarted},
		{"single unchecked", []Rating{RatingNotChecked}, StatusNotStarted},
		{"needs-attention dominates great", []Rating{RatingGreat, RatingGreat, RatingNeedsAttention}, StatusNeedsAttention},
		{"needs-attention dominates fair", []Rating{RatingFair, RatingNeedsAttention}, StatusNeedsAttention},
		{"needs-attention dominates unchecked", []Rating{RatingNotChecked, RatingNeedsAttention}, StatusNeedsAttention},
		{"fair beats incompleteness", []Rating{RatingGreat, RatingFair}, StatusPending},
		{"all fair", []Rating{RatingFair, RatingFair}, StatusPending},
		{"all great completes", []Rating{RatingGreat, RatingGreat, RatingGreat}, StatusCompleted},
		{"single great completes", []Rating{RatingGreat}, StatusCompleted},
		{"partial great stays pending", []Rating{RatingGreat, RatingNotChecked}, StatusPending},
		{"empty rating counts as unchecked", []Rating{RatingGreat, ""}, StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveStatus(items(tt.ratings...))
			if err != nil {
				t.Fatalf("DeriveStatus: %v", err)
			}
			if got != tt.want {
				t.Errorf("DeriveStatus(%v) = %q, want %q", tt.ratings, got, tt.want)
			}
		})
	}
}

func TestDeriveStatusEmptySection(t *testing.T) {
	if _, err := DeriveStatus(nil); !errors.Is(err, ErrNoItems) {
		t.Fatalf("DeriveStatus(nil): err=%v, want ErrNoItems", err)
	}
	if _, err := DeriveStatus([]Item{}); !errors.Is(err, ErrNoItems) {
		t.Fatalf("DeriveStatus(empty): err=%v, want ErrNoItems", err)
	}
}

// Exhaustive sweep over every rating combination up to three items:
// the derivation is deterministic, always lands on a defined status,
// needs-attention dominates, completed requires unanimity, and
// not-started appears exactly when nothing is checked.
func TestDeriveStatusProperties(t *testing.T) {
	ratings := []Rating{RatingGreat, RatingFair, RatingNeedsAttention, RatingNotChecked}

	var combos [][]Rating
	for _, a := range ratings {
		combos = append(combos, []Rating{a})
		for _, b := range ratings {
			combos = append(combos, []Rating{a, b})
			for _, c := range ratings {
				combos = append(combos, []Rating{a, b, c})
			}
		}
	}

	for _, combo := range combos {
		got, err := DeriveStatus(items(combo...))
		if err != nil {
			t.Fatalf("DeriveStatus(%v): %v", combo, err)
		}
		if !got.IsValid() {
			t.Fatalf("DeriveStatus(%v) = %q, not a defined status", combo, got)
		}

		again, err := DeriveStatus(items(combo...))
		if err != nil || again != got {
			t.Fatalf("DeriveStatus(%v) not deterministic: %q then %q (err=%v)", combo, got, again, err)
		}

		anyNeedsAttention := false
		allGreat := true
		allUnchecked := true
		for _, r := range combo {
			if r == RatingNeedsAttention {
				anyNeedsAttention = true
			}
			if r != RatingGreat {
				allGreat = false
			}
			if r != RatingNotChecked {
				allUnchecked = false
			}
		}

		if anyNeedsAttention && got != StatusNeedsAttention {
			t.Errorf("DeriveStatus(%v) = %q, needs-attention must dominate", combo, got)
		}
		if (got == StatusCompleted) != allGreat {
			t.Errorf("DeriveStatus(%v) = %q, completed iff all great", combo, got)
		}
		if (got == StatusNotStarted) != allUnchecked {
			t.Errorf("DeriveStatus(%v) = %q, not-started iff all unchecked", combo, got)
		}
	}
}

func TestParseRating(t *testing.T) {
	if r, err := ParseRating("Needs-Attention"); err != nil || r != RatingNeedsAttention {
		t.Errorf("ParseRating(Needs-Attention) = (%q, %v)", r, err)
	}
	if r, err := ParseRating(""); err != nil || r != RatingNotChecked {
		t.Errorf("ParseRating(empty) = (%q, %v), want not-checked", r, err)
	}
	if _, err := ParseRating("excellent"); err == nil {
		t.Error("ParseRating(excellent) should be rejected")
	}
}

func TestItemKey(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"OBD Scan", "obd-scan"},
		{"Glass & Mirrors", "glass-mirrors"},
		{"Wheels & Tires", "wheels-tires"},
		{"Engine Operation", "engine-operation"},
		{"  Padded  Label  ", "padded-label"},
		{"Trailing!", "trailing"},
	}
	for _, tt := range tests {
		if got := itemKey(tt.label); got != tt.want {
			t.Errorf("itemKey(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestSeedChecklist(t *testing.T) {
	checklist := SeedChecklist()
	if len(checklist) != len(FixedSections) {
		t.Fatalf("seeded %d sections, want %d", len(checklist), len(FixedSections))
	}
	for _, section := range FixedSections {
		items, ok := checklist[section]
		if !ok || len(items) == 0 {
			t.Fatalf("section %q missing or empty", section)
		}
		for _, it := range items {
			if it.Rating != RatingNotChecked {
				t.Errorf("section %q item %q seeded as %q, want not-checked", section, it.Key, it.Rating)
			}
			if it.Key == "" || it.Label == "" {
				t.Errorf("section %q has item with empty key or label", section)
			}
		}
		status, err := DeriveStatus(items)
		if err != nil || status != StatusNotStarted {
			t.Errorf("fresh section %q derives %q (err=%v), want not-started", section, status, err)
		}
	}
}
