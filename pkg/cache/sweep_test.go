package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c, clock := newTestCache(t, 10)

	c.Set("short", "1", time.Second)
	c.Set("long", "2", time.Hour)
	clock.Advance(time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, []string{"long"}, c.Stats().Keys)
	assert.Equal(t, 0, c.Sweep())
}

func TestBackgroundSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](Options{MaxSize: 10, SweepInterval: time.Minute, Clock: clock})
	c.Start()
	defer c.Stop()

	c.Set("a", "1", 30*time.Second)
	c.Set("b", "2", 30*time.Second)
	c.Set("c", "3", time.Hour)

	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.Has("c"))
}

func TestStopIsIdempotent(t *testing.T) {
	c := New[string](Options{})

	// stopping a cache that never started is a no-op
	c.Stop()

	c.Start()
	c.Start()
	c.Stop()
	c.Stop()
}

func TestRestartAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](Options{MaxSize: 10, SweepInterval: time.Minute, Clock: clock})
	c.Start()
	c.Stop()

	c.Start()
	defer c.Stop()

	c.Set("a", "1", 30*time.Second)
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond)
}
