package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGroupID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234567890", "-1001234567890"},
		{"-1001234567890", "-1001234567890"},
		{"@channelname", "@channelname"},
		{"-987654", "-987654"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeGroupID(tc.in))
		})
	}
}

func TestAlternateGroupID(t *testing.T) {
	t.Run("falls back to the raw id after normalization", func(t *testing.T) {
		formatted := normalizeGroupID("1234567890")
		assert.Equal(t, "1234567890", alternateGroupID("1234567890", formatted))
	})

	t.Run("prefixes an id that was passed through unchanged", func(t *testing.T) {
		assert.Equal(t, "-100987654", alternateGroupID("987654", "987654"))
	})
}
