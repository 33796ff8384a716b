package utils

import "strings"

// PlateLength is the only accepted length of a normalized plate code.
const PlateLength = 6

// NormalizePlate uppercases the input and drops everything outside [A-Z0-9].
func NormalizePlate(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AcceptPlate normalizes raw OCR text and reports whether the result
// is a plate code the resolver should see.
func AcceptPlate(raw string) (string, bool) {
	plate := NormalizePlate(raw)
	return plate, len(plate) == PlateLength
}
