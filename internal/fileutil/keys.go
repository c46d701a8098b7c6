package fileutil

import "sort"

// MapKeysSorted returns the keys of values in ascending order.
func MapKeysSorted[V any](values map[string]V) []string {
	out := make([]string, 0, len(values))
	for key := range values {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
