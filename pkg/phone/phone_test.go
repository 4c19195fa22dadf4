package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ValidNumbers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Number
	}{
		{"us formatted", "+1 (415) 555-0100", "14155550100"},
		{"us bare digits", "14155550100", "14155550100"},
		{"uk with plus", "+44 20 7946 0958", "442079460958"},
		{"surrounding whitespace", "  +14155550100  ", "14155550100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"non numeric", "not-a-number"},
		{"too short", "+1 415"},
		{"bare plus", "+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidNumber)
		})
	}
}
