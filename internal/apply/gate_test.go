package apply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateConfirmIdempotent(t *testing.T) {
	g := NewConfirmGate()

	assert.True(t, g.Confirm())
	assert.False(t, g.Confirm())
	assert.False(t, g.Cancel()) // first resolution wins
	assert.Equal(t, GateConfirmed, g.State())
}

func TestGateCancelIdempotent(t *testing.T) {
	g := NewConfirmGate()

	assert.True(t, g.Cancel())
	assert.False(t, g.Cancel())
	assert.False(t, g.Confirm())
	assert.Equal(t, GateCancelled, g.State())
}

func TestGateWaitConfirmed(t *testing.T) {
	g := NewConfirmGate()

	go func() {
		time.Sleep(10 * time.Millisecond)
		g.Confirm()
	}()

	assert.Equal(t, GateConfirmed, g.Wait(time.Second, make(chan struct{})))
}

func TestGateWaitTimeout(t *testing.T) {
	g := NewConfirmGate()

	start := time.Now()
	state := g.Wait(20*time.Millisecond, make(chan struct{}))

	assert.Equal(t, GateTimedOut, state)
	assert.Less(t, time.Since(start), time.Second)
	// A confirm after expiry stays a no-op
	assert.False(t, g.Confirm())
}

func TestGateWaitWakesOnCancelSignal(t *testing.T) {
	g := NewConfirmGate()
	cancel := make(chan struct{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(cancel)
	}()

	assert.Equal(t, GateCancelled, g.Wait(time.Minute, cancel))
	assert.Equal(t, GateCancelled, g.State())
}

func TestGateWaitAlreadyResolved(t *testing.T) {
	g := NewConfirmGate()
	g.Confirm()

	assert.Equal(t, GateConfirmed, g.Wait(time.Millisecond, make(chan struct{})))
}
