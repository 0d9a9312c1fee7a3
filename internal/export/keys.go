package export

import "sort"

func sortedFloatKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysExcept(m map[string]float64, except string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != except {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
