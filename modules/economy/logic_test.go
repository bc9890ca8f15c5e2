package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanClaimDaily(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	assert.True(t, canClaimDaily(0, now))
	assert.True(t, canClaimDaily(now.Add(-24*time.Hour).Unix(), now))
	assert.True(t, canClaimDaily(now.Add(-30*time.Hour).Unix(), now))
	assert.False(t, canClaimDaily(now.Add(-23*time.Hour).Unix(), now))
	assert.False(t, canClaimDaily(now.Add(-time.Minute).Unix(), now))
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// first claim ever
	assert.Equal(t, 1, nextStreak(0, 0, now))

	// claimed 25h ago, inside the 48h window: streak continues
	assert.Equal(t, 4, nextStreak(now.Add(-25*time.Hour).Unix(), 3, now))

	// window edge
	assert.Equal(t, 2, nextStreak(now.Add(-48*time.Hour).Unix(), 1, now))

	// lapsed: streak resets
	assert.Equal(t, 1, nextStreak(now.Add(-49*time.Hour).Unix(), 9, now))

	// corrupt stored streak still yields a sane continuation
	assert.Equal(t, 2, nextStreak(now.Add(-25*time.Hour).Unix(), 0, now))
}

func TestStreakBonusCapsAtSixDays(t *testing.T) {
	assert.Equal(t, 0, streakBonus(1))
	assert.Equal(t, 50, streakBonus(2))
	assert.Equal(t, 300, streakBonus(7))
	assert.Equal(t, 300, streakBonus(30))
	assert.Equal(t, 0, streakBonus(0))
}

func TestPickJobWithinRange(t *testing.T) {
	for range 200 {
		description, pay := pickJob()
		assert.NotEmpty(t, description)
		assert.GreaterOrEqual(t, pay, 50)
		assert.LessOrEqual(t, pay, 400)
	}
}

func TestGambleOutcomeBounds(t *testing.T) {
	const stake = 1000
	for range 500 {
		won, delta := gambleOutcome(stake)
		if won {
			// net winnings between 0.5x and 1.0x the stake
			assert.GreaterOrEqual(t, delta, stake/2)
			assert.LessOrEqual(t, delta, stake)
		} else {
			assert.Equal(t, -stake, delta)
		}
	}
}

func TestWealthTier(t *testing.T) {
	assert.Equal(t, "🌱 Starter", wealthTier(0))
	assert.Equal(t, "🥉 Bronze Tier", wealthTier(10_000))
	assert.Equal(t, "🥈 Silver Tier", wealthTier(25_000))
	assert.Equal(t, "🏆 Gold Tier", wealthTier(99_999))
	assert.Equal(t, "💎 Diamond Tier", wealthTier(100_000))
}
