// Package utils contains small, dependency-free helpers shared across layers.
package utils

import "strconv"

// AtoiDefault parses s as an int and returns def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
