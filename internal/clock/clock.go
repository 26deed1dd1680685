// Package clock provides the wall-clock source and modular loop-position
// arithmetic every other component resolves lineups against. It has no
// dependency on models so that pure time math stays testable in isolation
// from the data model.
package clock

import "time"

// Clock abstracts the wall-clock source so resolution logic can be driven
// by a fixed instant in tests instead of the real system clock.
type Clock interface {
	NowMs() int64
}

// RealClock reads the system clock.
type RealClock struct{}

// NowMs returns the current time as epoch milliseconds.
func (RealClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

// FixedClock always returns the same instant, for deterministic tests.
type FixedClock struct {
	AtMs int64
}

// NowMs returns the fixed instant.
func (f FixedClock) NowMs() int64 {
	return f.AtMs
}

// LoopPosition is where a channel's wall-clock position falls within one
// pass of its looping lineup.
type LoopPosition struct {
	// BeforeStart is true when nowMs is still earlier than the channel's
	// startTimeMs; ElapsedMs is meaningless in that case.
	BeforeStart bool
	// UntilStartMs is how many ms remain before the channel goes live,
	// valid only when BeforeStart is true.
	UntilStartMs int64
	// ElapsedMs is how far into the current loop pass nowMs falls,
	// valid only when BeforeStart is false.
	ElapsedMs int64
}

// Resolve computes where nowMs falls relative to a channel's loop, per
// spec §4.2 steps 1-2: if nowMs precedes startTimeMs the channel hasn't
// gone live yet; otherwise ElapsedMs = (nowMs - startTimeMs) mod durationMs.
func Resolve(nowMs, startTimeMs, durationMs int64) LoopPosition {
	if nowMs < startTimeMs {
		return LoopPosition{BeforeStart: true, UntilStartMs: startTimeMs - nowMs}
	}
	if durationMs <= 0 {
		return LoopPosition{ElapsedMs: 0}
	}
	return LoopPosition{ElapsedMs: mod(nowMs-startTimeMs, durationMs)}
}

// mod is Euclidean modulo: always non-negative for a positive divisor,
// unlike Go's %, which keeps the sign of its left operand.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
