package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_NowMs(t *testing.T) {
	before := RealClock{}.NowMs()
	after := RealClock{}.NowMs()
	assert.LessOrEqual(t, before, after)
	assert.Greater(t, before, int64(0))
}

func TestFixedClock_NowMs(t *testing.T) {
	c := FixedClock{AtMs: 12345}
	assert.Equal(t, int64(12345), c.NowMs())
}

func TestResolve_BeforeStart(t *testing.T) {
	pos := Resolve(1000, 5000, 60000)
	assert.True(t, pos.BeforeStart)
	assert.Equal(t, int64(4000), pos.UntilStartMs)
}

func TestResolve_AtStart(t *testing.T) {
	pos := Resolve(5000, 5000, 60000)
	assert.False(t, pos.BeforeStart)
	assert.Equal(t, int64(0), pos.ElapsedMs)
}

func TestResolve_MidLoop(t *testing.T) {
	pos := Resolve(5000+30000, 5000, 60000)
	assert.False(t, pos.BeforeStart)
	assert.Equal(t, int64(30000), pos.ElapsedMs)
}

func TestResolve_WrapsAcrossMultipleLoops(t *testing.T) {
	durationMs := int64(60000)
	startMs := int64(5000)
	nowMs := startMs + durationMs*7 + 12345
	pos := Resolve(nowMs, startMs, durationMs)
	assert.False(t, pos.BeforeStart)
	assert.Equal(t, int64(12345), pos.ElapsedMs)
}

func TestResolve_ZeroDuration(t *testing.T) {
	pos := Resolve(10000, 5000, 0)
	assert.False(t, pos.BeforeStart)
	assert.Equal(t, int64(0), pos.ElapsedMs)
}

func TestMod_NeverNegative(t *testing.T) {
	assert.Equal(t, int64(5), mod(-1, 6))
	assert.Equal(t, int64(0), mod(-6, 6))
	assert.Equal(t, int64(4), mod(10, 6))
}
