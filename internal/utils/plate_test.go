package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"abc123", "ABC123"},
		{" ABC-123\n", "ABC123"},
		{"a.b c_1/2*3", "ABC123"},
		{"ñandú 42", "AND42"},
		{"", ""},
		{"--__", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePlate(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizePlateOutputAlphabet(t *testing.T) {
	inputs := []string{"x", "Zz9!", "ü-ß-ç", "\t\x00abc", "日本ABC", "12345678901"}
	for _, in := range inputs {
		for _, r := range NormalizePlate(in) {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q from %q", r, in)
		}
	}
}

func TestAcceptPlate(t *testing.T) {
	tests := []struct {
		raw    string
		plate  string
		accept bool
	}{
		{"ABC123", "ABC123", true},
		{"abc-123\n", "ABC123", true},
		{"AB123", "AB123", false},
		{"ABCD1234", "ABCD1234", false},
		{"ABC 1234", "ABC1234", false},
		{"", "", false},
	}
	for _, tt := range tests {
		plate, ok := AcceptPlate(tt.raw)
		assert.Equal(t, tt.plate, plate, "raw=%q", tt.raw)
		assert.Equal(t, tt.accept, ok, "raw=%q", tt.raw)
	}
}
