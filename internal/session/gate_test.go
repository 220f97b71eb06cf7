package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateRejectsWhileHeld(t *testing.T) {
	var g Gate

	require.True(t, g.TryAcquire(100*time.Millisecond))
	assert.True(t, g.Held())
	assert.False(t, g.TryAcquire(100*time.Millisecond), "second acquire within the window must fail")
}

func TestGateReleasesAfterWindow(t *testing.T) {
	var g Gate

	require.True(t, g.TryAcquire(30*time.Millisecond))
	time.Sleep(80 * time.Millisecond)

	assert.False(t, g.Held())
	assert.True(t, g.TryAcquire(30*time.Millisecond), "gate must reopen after the hold window")
}

func TestGateStaleTimerDoesNotReleaseLaterHolder(t *testing.T) {
	var g Gate

	require.True(t, g.TryAcquire(20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	require.False(t, g.Held())

	// Take the gate again with a long window; the first acquisition's
	// timer has already fired and must not touch this one.
	require.True(t, g.TryAcquire(500*time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	assert.True(t, g.Held())
}

func TestGateRun(t *testing.T) {
	var g Gate

	ran := false
	err := g.Run(50*time.Millisecond, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	err = g.Run(50*time.Millisecond, func() error {
		t.Fatal("must not run while gate is held")
		return nil
	})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestGateActionMayOutliveWindow(t *testing.T) {
	var g Gate

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Run(10*time.Millisecond, func() error {
			time.Sleep(60 * time.Millisecond)
			return nil
		})
	}()

	// The window expires mid-action; a new acquisition is admitted even
	// though the first action is still running.
	time.Sleep(40 * time.Millisecond)
	assert.True(t, g.TryAcquire(10*time.Millisecond))
	<-done
}
