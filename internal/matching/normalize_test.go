package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plural", "Gloves", "glove"},
		{"padded", " Wheelchair ", "wheelchair"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
		{"naive singular", "glasses", "glasse"},
		{"single trailing s only", "crutchess", "crutches"},
		{"email", " A@X.com ", "a@x.com"},
		{"single s", "s", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSameKey_EmptyNeverMatches(t *testing.T) {
	assert.False(t, sameKey("", ""))
	assert.False(t, sameKey("  ", "s"))
	assert.True(t, sameKey("Walker", "walkers"))
}
