package enums

import (
	"fmt"
	"slices"
)

func member[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// parse matches raw exactly against set; kind names the enum in the error.
func parse[T ~string](set []T, kind, raw string) (T, error) {
	if v := T(raw); member(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
