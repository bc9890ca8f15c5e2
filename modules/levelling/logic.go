// Package levelling awards XP for guild messages and exposes rank and
// leaderboard views. Levels follow floor(sqrt(xp/100)): level 1 at 100
// XP, level 2 at 400, level 10 at 10000.
package levelling

import (
	"math"
	"math/rand/v2"
)

const (
	xpMin = 15
	xpMax = 25
)

func xpForMessage() int {
	return xpMin + rand.IntN(xpMax-xpMin+1)
}

func LevelForXP(xp int) int {
	if xp < 0 {
		return 0
	}
	return int(math.Sqrt(float64(xp) / 100))
}

// XPForLevel is the total XP at which level starts.
func XPForLevel(level int) int {
	if level < 0 {
		return 0
	}
	return level * level * 100
}

// Progress reports xp earned within the current level and the size of
// the level's XP span.
func Progress(xp int) (into, span int) {
	level := LevelForXP(xp)
	floor := XPForLevel(level)
	ceil := XPForLevel(level + 1)
	return xp - floor, ceil - floor
}
