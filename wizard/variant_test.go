package wizard

import "testing"

func TestRegistry_ResolveVariant(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		category string
		want     Variant
	}{
		{"classic_slots", VariantSlots},
		{"video_slots", VariantSlots},
		{"megaways", VariantSlots},
		{"instant_win", VariantInstant},
		{"scratch", VariantInstant},
		{"crash", VariantCrash},
		{"aviator", VariantCrash},
		{"", DefaultVariant},
		{"table_games", DefaultVariant},
	}
	for _, tt := range tests {
		cfg := Config{}
		if tt.category != "" {
			cfg[KeyCategory] = tt.category
		}
		if got := r.ResolveVariant(cfg); got != tt.want {
			t.Errorf("ResolveVariant(%q) = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestRegistry_StepCounts(t *testing.T) {
	r := NewRegistry()
	counts := map[Variant]int{
		VariantSlots:   12,
		VariantInstant: 6,
		VariantCrash:   3,
	}
	for v, want := range counts {
		if got := len(r.Steps(v)); got != want {
			t.Errorf("len(Steps(%v)) = %d, want %d", v, got, want)
		}
	}
}

// TestRegistry_StableStepSlices verifies repeated lookups for the same
// variant return the same underlying slice, so callers can compare and
// cache without copying.
func TestRegistry_StableStepSlices(t *testing.T) {
	r := NewRegistry()
	a := r.Steps(VariantSlots)
	b := r.Steps(VariantSlots)
	if len(a) == 0 || len(b) == 0 {
		t.Fatal("empty step list")
	}
	if &a[0] != &b[0] {
		t.Error("Steps should return a stable slice per variant")
	}
}

func TestRegistry_StepsEndWithReview(t *testing.T) {
	r := NewRegistry()
	for _, v := range []Variant{VariantSlots, VariantInstant, VariantCrash} {
		steps := r.Steps(v)
		if last := steps[len(steps)-1].ID; last != "review" {
			t.Errorf("%v final step = %q, want review", v, last)
		}
	}
}
