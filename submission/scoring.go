package submission

import "strings"

// Likert bounds accepted for raw_score.
const (
	MinScore = 1
	MaxScore = 6
)

// TransformKind tags the scoring variant of a scale.
type TransformKind int

const (
	Identity TransformKind = iota
	Reverse
)

// Transform maps a raw answer to its scored value.
type Transform struct {
	Kind     TransformKind
	Min, Max int
}

// ReverseTransform scores raw as (min+max)-raw.
func ReverseTransform(min, max int) Transform {
	return Transform{Kind: Reverse, Min: min, Max: max}
}

func (t Transform) Apply(raw int) int {
	switch t.Kind {
	case Reverse:
		return t.Min + t.Max - raw
	default:
		return raw
	}
}

// ScoringRules maps an uppercase scale tag to its transform.
// Scales without an entry pass the raw value through.
type ScoringRules map[string]Transform

// DefaultScoringRules reverses the F scale on the 1..6 range.
func DefaultScoringRules() ScoringRules {
	return ScoringRules{"F": ReverseTransform(MinScore, MaxScore)}
}

// WithReversed returns a copy of r that also reverses the given scales.
func (r ScoringRules) WithReversed(scales ...string) ScoringRules {
	out := make(ScoringRules, len(r)+len(scales))
	for k, v := range r {
		out[k] = v
	}
	for _, s := range scales {
		if tag := strings.ToUpper(strings.TrimSpace(s)); tag != "" {
			out[tag] = ReverseTransform(MinScore, MaxScore)
		}
	}
	return out
}

// Score applies the rule for questionCode's scale to raw.
func (r ScoringRules) Score(questionCode string, raw int) int {
	t, ok := r[ScaleOf(questionCode)]
	if !ok {
		return raw
	}
	return t.Apply(raw)
}

// ScaleOf returns the uppercase prefix before the first '-' ("f-3" => "F").
// Codes without a dash belong to no scale.
func ScaleOf(questionCode string) string {
	i := strings.IndexByte(questionCode, '-')
	if i <= 0 {
		return ""
	}
	return strings.ToUpper(questionCode[:i])
}
