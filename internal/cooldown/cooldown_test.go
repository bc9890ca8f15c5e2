package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestMap(window time.Duration) (*Map, *time.Time) {
	m := New(window)
	current := time.Unix(1000, 0)
	m.now = func() time.Time { return current }
	return m, &current
}

func TestAllowBlocksInsideWindow(t *testing.T) {
	m, clock := newTestMap(60 * time.Second)

	assert.True(t, m.Allow("u1"))
	assert.False(t, m.Allow("u1"))

	*clock = clock.Add(59 * time.Second)
	assert.False(t, m.Allow("u1"))

	*clock = clock.Add(2 * time.Second)
	assert.True(t, m.Allow("u1"))
}

func TestRemaining(t *testing.T) {
	m, clock := newTestMap(60 * time.Second)

	assert.Equal(t, time.Duration(0), m.Remaining("u1"))
	m.Allow("u1")

	*clock = clock.Add(20 * time.Second)
	assert.Equal(t, 40*time.Second, m.Remaining("u1"))

	*clock = clock.Add(50 * time.Second)
	assert.Equal(t, time.Duration(0), m.Remaining("u1"))
}

func TestIndependentKeys(t *testing.T) {
	m, _ := newTestMap(time.Minute)

	assert.True(t, m.Allow("u1"))
	assert.True(t, m.Allow("u2"))
	assert.False(t, m.Allow("u1"))
}

func TestSweepEvictsExpired(t *testing.T) {
	m, clock := newTestMap(time.Minute)

	for _, key := range []string{"a", "b", "c"} {
		m.Allow(key)
	}
	assert.Equal(t, 3, m.Len())

	// Past the window, the next access sweeps the stale entries.
	*clock = clock.Add(2 * time.Minute)
	m.Allow("d")
	assert.Equal(t, 1, m.Len())
}
