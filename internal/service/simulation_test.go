package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"harmonia/internal/clock"
)

type countingUpdater struct {
	calls []time.Time
}

func (u *countingUpdater) Update(now time.Time) int {
	u.calls = append(u.calls, now)
	return 1
}

func TestSimulationTick(t *testing.T) {
	clk := clock.NewMock(t0)
	a, b := &countingUpdater{}, &countingUpdater{}
	sim := NewSimulation(clk, time.Second, a, b)

	if got := sim.Tick(); got != 2 {
		t.Errorf("Tick() = %d, want 2", got)
	}
	clk.Advance(time.Minute)
	sim.Tick()
	if len(a.calls) != 2 || !a.calls[1].Equal(t0.Add(time.Minute)) || len(b.calls) != 2 {
		t.Errorf("calls = %v / %v", a.calls, b.calls)
	}
}

func TestSimulationRunStopsOnCancel(t *testing.T) {
	u := &countingUpdater{}
	sim := NewSimulation(nil, time.Millisecond, u)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
