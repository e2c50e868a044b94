package util

import (
	"strconv"
)

// MustParseUint returns 0 when s is not a valid unsigned integer.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseID parses a path id and rejects zero.
func ParseID(s string) (uint, bool) {
	id := MustParseUint(s)
	return id, id != 0
}

// Round1 rounds to one decimal place.
func Round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
