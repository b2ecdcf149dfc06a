package util

import (
	"cmp"
	"sort"
	"strings"
)

// MakeTextList joins items into a human-readable list: "a", "a and b", or
// "a, b, and c".
func MakeTextList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		// if its more than two, use an oxford comma
		withAnd := make([]string, len(items))
		copy(withAnd, items)
		withAnd[len(withAnd)-1] = "and " + withAnd[len(withAnd)-1]
		return strings.Join(withAnd, ", ")
	}
}

// OrderedKeys returns the keys of m in ascending order. The order is
// guaranteed to be the same on every run.
func OrderedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

// Ordered returns the elements of s in ascending order.
func Ordered[E cmp.Ordered](s KeySet[E]) []E {
	return OrderedKeys(map[E]bool(s))
}
