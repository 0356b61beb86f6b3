// Package classify holds the contracts and lookup tables between the event
// pipeline and the external classification service.
package classify

import "context"

// Classification is the outcome of classifying one disclosure or headline.
type Classification struct {
	// Labels holds event type codes, most specific first. A single "other"
	// label means the text matched no known event type.
	Labels     []string
	Confidence float64
}

// Other reports whether the classification carries no usable label.
func (c *Classification) Other() bool {
	if c == nil || len(c.Labels) == 0 {
		return true
	}
	for _, l := range c.Labels {
		if l != "other" {
			return false
		}
	}
	return true
}

// EventClassifier assigns event type codes to free text. Implementations
// typically call an external model service; tests supply static mappings.
type EventClassifier interface {
	Classify(ctx context.Context, title, summary string) (*Classification, error)
}

// StaticClassifier maps exact titles to labels. Used in tests and dry runs.
type StaticClassifier struct {
	Labels map[string][]string
}

func (s *StaticClassifier) Classify(_ context.Context, title, _ string) (*Classification, error) {
	labels, ok := s.Labels[title]
	if !ok {
		return &Classification{Labels: []string{"other"}, Confidence: 0}, nil
	}
	return &Classification{Labels: labels, Confidence: 1}, nil
}

var _ EventClassifier = (*StaticClassifier)(nil)
