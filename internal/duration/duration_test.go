package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"5m":  300 * time.Second,
		"2h":  7200 * time.Second,
		"3d":  259200 * time.Second,
		"1w":  604800 * time.Second,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseRejectsBadGrammar(t *testing.T) {
	for _, in := range []string{"", "5", "m5", "1h30m", "5x", "-5m", "5 m", "h", "1.5h", "30S "} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}
