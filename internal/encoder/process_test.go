package encoder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, p *Process, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("timed out waiting for process events")
		}
	}
}

func TestProcess_CleanExit_EmitsDataThenEnd(t *testing.T) {
	p := New("sh", []string{"-c", "printf hello"})
	require.NoError(t, p.Start(context.Background()))

	events := drain(t, p, 5*time.Second)
	require.NotEmpty(t, events)
	assert.Equal(t, EventClose, events[len(events)-1].Kind)

	var sawData, sawEnd bool
	for _, ev := range events {
		switch ev.Kind {
		case EventData:
			sawData = true
			assert.Equal(t, "hello", string(ev.Data))
		case EventEnd:
			sawEnd = true
		}
	}
	assert.True(t, sawData)
	assert.True(t, sawEnd)
	assert.Equal(t, StateCompleted, p.State())
}

func TestProcess_BytesProduced_TrueAfterData(t *testing.T) {
	p := New("sh", []string{"-c", "printf hello"})
	require.NoError(t, p.Start(context.Background()))

	assert.False(t, p.BytesProduced(), "must not report bytes before any are read")
	drain(t, p, 5*time.Second)
	assert.True(t, p.BytesProduced())
}

func TestProcess_BytesProduced_FalseOnImmediateExit(t *testing.T) {
	p := New("sh", []string{"-c", "exit 255"})
	require.NoError(t, p.Start(context.Background()))

	drain(t, p, 5*time.Second)
	assert.False(t, p.BytesProduced())
}

func TestProcess_Exit255BeforeBytes_IsError(t *testing.T) {
	p := New("sh", []string{"-c", "exit 255"})
	require.NoError(t, p.Start(context.Background()))

	events := drain(t, p, 5*time.Second)
	var sawError bool
	for _, ev := range events {
		if ev.Kind == EventError {
			sawError = true
			require.Error(t, ev.Err)
		}
	}
	assert.True(t, sawError)
	assert.Equal(t, StateErrored, p.State())
}

func TestProcess_Exit255AfterBytes_IsBenign(t *testing.T) {
	p := New("sh", []string{"-c", "printf hi; exit 255"})
	require.NoError(t, p.Start(context.Background()))

	events := drain(t, p, 5*time.Second)
	var sawEnd, sawError bool
	for _, ev := range events {
		if ev.Kind == EventEnd {
			sawEnd = true
		}
		if ev.Kind == EventError {
			sawError = true
		}
	}
	assert.True(t, sawEnd)
	assert.False(t, sawError)
	assert.Equal(t, StateCompleted, p.State())
}

func TestProcess_NonZeroNon255Exit_IsError(t *testing.T) {
	p := New("sh", []string{"-c", "exit 1"})
	require.NoError(t, p.Start(context.Background()))

	events := drain(t, p, 5*time.Second)
	var sawError bool
	for _, ev := range events {
		if ev.Kind == EventError {
			sawError = true
		}
	}
	assert.True(t, sawError)
	assert.Equal(t, StateErrored, p.State())
}

func TestProcess_Kill_WhileRunning(t *testing.T) {
	p := New("sh", []string{"-c", "sleep 30"})
	require.NoError(t, p.Start(context.Background()))

	time.Sleep(50 * time.Millisecond)
	p.Kill()

	drain(t, p, 5*time.Second)
	assert.Equal(t, StateKilled, p.State())
}

func TestProcess_PreemptiveKill_NeverSpawns(t *testing.T) {
	p := New("sh", []string{"-c", "sleep 30"})
	p.Kill()

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StateKilled, p.State())
	assert.Nil(t, p.cmd)

	drain(t, p, time.Second)
}

func TestProcess_Stats_NilWhenNotRunning(t *testing.T) {
	p := New("sh", []string{"-c", "exit 0"})
	assert.Nil(t, p.Stats())
}
