package collector

import (
	"strings"

	"k8s.io/apimachinery/pkg/labels"
)

// parseEqualitySelector accepts a single "key=value" selector. Anything else,
// including set-based or multi-term selectors, yields ok=false and is treated
// as no filter.
func parseEqualitySelector(raw string) (labels.Selector, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, ",!()") {
		return nil, false
	}
	key, value, found := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if !found || key == "" || value == "" || strings.Contains(value, "=") {
		return nil, false
	}

	sel, err := labels.ValidatedSelectorFromSet(labels.Set{key: value})
	if err != nil {
		return nil, false
	}
	return sel, true
}

// matchesLabels reports whether every key/value in want is present in have
func matchesLabels(want, have map[string]string) bool {
	if len(want) == 0 {
		return false
	}
	return labels.SelectorFromSet(want).Matches(labels.Set(have))
}
