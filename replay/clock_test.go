package replay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StartReleasesPreviousLease(t *testing.T) {
	mc := clock.NewMock()
	c := NewClock(mc)

	var first, second atomic.Int32
	g1 := c.Start(time.Second, func(uint64) { first.Add(1) })
	g2 := c.Start(time.Second, func(uint64) { second.Add(1) })

	assert.NotEqual(t, g1, g2)
	assert.False(t, c.Valid(g1))
	assert.True(t, c.Valid(g2))

	mc.Add(time.Second)
	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, pollEvery)
	assert.Zero(t, first.Load())
	require.Eventually(t, func() bool { return c.Active() == 1 }, waitFor, pollEvery)

	c.Stop()
	assert.False(t, c.Held())
	assert.False(t, c.Valid(g2))
	require.Eventually(t, func() bool { return c.Active() == 0 }, waitFor, pollEvery)

	// stopping twice is fine
	c.Stop()
}
