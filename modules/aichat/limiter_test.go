package aichat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"golang.org/x/time/rate"
)

func TestLimiterPoolAllowsBurstThenBlocks(t *testing.T) {
	p := newLimiterPool(rate.Every(5*time.Second), 2, 10*time.Minute)

	assert.True(t, p.Allow("chan1"))
	assert.True(t, p.Allow("chan1"))
	assert.False(t, p.Allow("chan1"))

	// independent channel has its own budget
	assert.True(t, p.Allow("chan2"))
}

func TestLimiterPoolEvictsIdleEntries(t *testing.T) {
	p := newLimiterPool(rate.Every(5*time.Second), 2, time.Minute)
	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	for n := range 50 {
		p.Allow(fmt.Sprintf("chan%d", n))
	}
	assert.Equal(t, 50, p.Len())

	clock = clock.Add(2 * time.Minute)
	p.Allow("fresh")

	// everything idle past the window is gone, only the new key remains
	assert.Equal(t, 1, p.Len())
}
