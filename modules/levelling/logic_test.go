package levelling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForXPBoundaries(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{399, 1},
		{400, 2},
		{899, 2},
		{900, 3},
		{10000, 10},
		{-5, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LevelForXP(c.xp), "xp=%d", c.xp)
	}
}

func TestXPForLevelInvertsLevelForXP(t *testing.T) {
	for level := 0; level <= 50; level++ {
		floor := XPForLevel(level)
		assert.Equal(t, level, LevelForXP(floor), "level %d floor", level)
		if floor > 0 {
			assert.Equal(t, level-1, LevelForXP(floor-1), "level %d floor-1", level)
		}
	}
}

func TestProgress(t *testing.T) {
	into, span := Progress(0)
	assert.Equal(t, 0, into)
	assert.Equal(t, 100, span)

	// level 1 runs 100..399
	into, span = Progress(250)
	assert.Equal(t, 150, into)
	assert.Equal(t, 300, span)
}

func TestXPForMessageRange(t *testing.T) {
	for range 200 {
		xp := xpForMessage()
		assert.GreaterOrEqual(t, xp, xpMin)
		assert.LessOrEqual(t, xp, xpMax)
	}
}
