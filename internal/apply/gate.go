package apply

import (
	"sync"
	"time"
)

// GateState is the resolution of a confirmation gate.
type GateState int

const (
	GatePending GateState = iota
	GateConfirmed
	GateCancelled
	GateTimedOut
)

func (s GateState) String() string {
	switch s {
	case GateConfirmed:
		return "confirmed"
	case GateCancelled:
		return "cancelled"
	case GateTimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// ConfirmGate is a one-shot tri-state signal. A worker blocks on Wait before
// a mutating action; the dashboard resolves it via Confirm or Cancel. The
// first resolution wins; later calls are no-ops.
type ConfirmGate struct {
	mu       sync.Mutex
	state    GateState
	resolved chan struct{}
}

// NewConfirmGate creates a pending gate
func NewConfirmGate() *ConfirmGate {
	return &ConfirmGate{resolved: make(chan struct{})}
}

// Confirm resolves the gate to confirmed. Returns false if already resolved.
func (g *ConfirmGate) Confirm() bool {
	return g.resolve(GateConfirmed)
}

// Cancel resolves the gate to cancelled. Returns false if already resolved.
func (g *ConfirmGate) Cancel() bool {
	return g.resolve(GateCancelled)
}

func (g *ConfirmGate) resolve(state GateState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GatePending {
		return false
	}
	g.state = state
	close(g.resolved)
	return true
}

// State returns the current resolution.
func (g *ConfirmGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Wait blocks until the gate resolves, the cancel signal fires, or the
// timeout elapses. An external cancel resolves the gate to cancelled so a
// later Confirm stays a no-op; an expired wait resolves it to timed out.
func (g *ConfirmGate) Wait(timeout time.Duration, cancel <-chan struct{}) GateState {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-g.resolved:
		return g.State()
	case <-cancel:
		g.resolve(GateCancelled)
		return g.State()
	case <-timer.C:
		g.resolve(GateTimedOut)
		return g.State()
	}
}
