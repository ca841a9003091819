package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "typed_identifier", input: "V12345678", expected: "V*****678"},
		{name: "dotted_raw_value", input: "CI: 12.345.678", expected: "CI: **.***.678"},
		{name: "bare_digits", input: "12345678", expected: "*****678"},
		{name: "short_value_untouched", input: "123", expected: "123"},
		{name: "no_digits", input: "garbage", expected: "garbage"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskDigits(tt.input))
		})
	}
}

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "V*****678", MaskIdentifier("V12345678"))
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "normalized_mobile", input: "04121234567", expected: "0412****567"},
		{name: "separators_survive", input: "0412-123.45.67", expected: "0412-***.*5.67"},
		{name: "short_number_keeps_no_prefix", input: "1234567", expected: "****567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPhone(tt.input))
		})
	}
}
