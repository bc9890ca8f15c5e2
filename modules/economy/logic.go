// Package economy implements the per-guild coin economy: daily rewards
// with streaks, hourly work payouts, gambling, transfers and a wealth
// leaderboard.
package economy

import (
	"math/rand/v2"
	"time"
)

const (
	dailyBase     = 500
	dailyBonusMax = 200
	streakWindow  = 48 * time.Hour
	dailyCooldown = 24 * time.Hour
	workCooldown  = time.Hour

	gambleMin       = 10
	gambleMax       = 10_000
	gambleWinChance = 0.45
)

func randBonus() int {
	return rand.IntN(dailyBonusMax + 1)
}

// canClaimDaily reports whether the 24h cooldown since the previous
// claim has elapsed. lastDaily is Unix seconds, zero meaning never.
func canClaimDaily(lastDaily int64, now time.Time) bool {
	if lastDaily == 0 {
		return true
	}
	return !now.Before(time.Unix(lastDaily, 0).Add(dailyCooldown))
}

// nextStreak continues the streak when the previous claim happened
// within the 48h window, otherwise starts over at 1.
func nextStreak(lastDaily int64, prevStreak int, now time.Time) int {
	if lastDaily == 0 {
		return 1
	}
	if now.Sub(time.Unix(lastDaily, 0)) <= streakWindow {
		if prevStreak < 1 {
			prevStreak = 1
		}
		return prevStreak + 1
	}
	return 1
}

// streakBonus caps out after a week of consecutive claims.
func streakBonus(streak int) int {
	bonus := streak - 1
	if bonus > 6 {
		bonus = 6
	}
	if bonus < 0 {
		bonus = 0
	}
	return bonus * 50
}

type job struct {
	description string
	min, max    int
}

var jobs = []job{
	{"You delivered packages for Nova Express", 100, 250},
	{"You helped at the local café", 80, 200},
	{"You walked dogs in the park", 60, 150},
	{"You did freelance coding", 150, 300},
	{"You tutored someone in Discord", 90, 180},
	{"You cleaned windows downtown", 70, 160},
	{"You helped an elderly neighbor", 50, 120},
	{"You organized a local event", 200, 400},
}

func pickJob() (string, int) {
	j := jobs[rand.IntN(len(jobs))]
	return j.description, j.min + rand.IntN(j.max-j.min+1)
}

// gambleOutcome resolves one bet: a win pays out 1.5-2.0x the stake
// (net winnings returned positive), a loss forfeits it.
func gambleOutcome(amount int) (won bool, delta int) {
	if rand.Float64() < gambleWinChance {
		multiplier := 1.5 + rand.Float64()*0.5
		return true, int(float64(amount)*multiplier) - amount
	}
	return false, -amount
}

func wealthTier(balance int) string {
	switch {
	case balance >= 100_000:
		return "💎 Diamond Tier"
	case balance >= 50_000:
		return "🏆 Gold Tier"
	case balance >= 25_000:
		return "🥈 Silver Tier"
	case balance >= 10_000:
		return "🥉 Bronze Tier"
	default:
		return "🌱 Starter"
	}
}
