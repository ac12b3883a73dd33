package submission

import "testing"

func TestScaleOf(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"F-1", "F"},
		{"f-12", "F"},
		{"A-3", "A"},
		{"AB-1", "AB"},
		{"F1", ""},
		{"-1", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ScaleOf(c.code); got != c.want {
			t.Fatalf("ScaleOf(%q) = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestDefaultScoringRules(t *testing.T) {
	rules := DefaultScoringRules()
	for raw := MinScore; raw <= MaxScore; raw++ {
		if got := rules.Score("F-1", raw); got+raw != 7 {
			t.Fatalf("reversed F-1 raw=%d scored=%d, want sum 7", raw, got)
		}
		for _, code := range []string{"A-1", "B-2", "C-3", "D-4", "E-5", "F1"} {
			if got := rules.Score(code, raw); got != raw {
				t.Fatalf("%s raw=%d scored=%d, want pass-through", code, raw, got)
			}
		}
	}
}

func TestTransformApply(t *testing.T) {
	cases := []struct {
		tr        Transform
		raw, want int
	}{
		{Transform{Kind: Identity}, 4, 4},
		{ReverseTransform(1, 6), 1, 6},
		{ReverseTransform(1, 6), 6, 1},
		{ReverseTransform(1, 5), 2, 4},
		{ReverseTransform(1, 7), 7, 1},
	}
	for _, c := range cases {
		if got := c.tr.Apply(c.raw); got != c.want {
			t.Fatalf("%+v.Apply(%d) = %d, want %d", c.tr, c.raw, got, c.want)
		}
	}
}

func TestWithReversed(t *testing.T) {
	base := DefaultScoringRules()
	rules := base.WithReversed("c", " ", "D")

	if got := rules.Score("C-2", 2); got != 5 {
		t.Fatalf("C-2 scored %d, want 5", got)
	}
	if got := rules.Score("D-1", 6); got != 1 {
		t.Fatalf("D-1 scored %d, want 1", got)
	}
	if got := rules.Score("F-1", 2); got != 5 {
		t.Fatalf("F-1 scored %d, want 5", got)
	}
	if _, ok := base["C"]; ok {
		t.Fatal("WithReversed must not modify the receiver")
	}
}
