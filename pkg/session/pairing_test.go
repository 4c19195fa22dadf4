package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPairingCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"ABCDEFGH", "ABCD-EFGH"},
		{"ABCDEFG", "ABCD-EFG"},
		{"ABCD", "ABCD"},
		{"ABC", "ABC"},
		{"", ""},
		{"ABCDEFGHIJKL", "ABCD-EFGH-IJKL"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPairingCode(tt.raw))
		})
	}
}

func TestFormatPairingCode_GroupInvariants(t *testing.T) {
	raw := "ABCDEFGHIJ" // N=10 → ceil(10/4)=3 groups
	formatted := FormatPairingCode(raw)

	groups := strings.Split(formatted, "-")
	assert.Len(t, groups, 3)
	for _, g := range groups {
		assert.LessOrEqual(t, len(g), 4)
		assert.NotEmpty(t, g)
	}
	assert.Equal(t, raw, strings.ReplaceAll(formatted, "-", ""))
}
