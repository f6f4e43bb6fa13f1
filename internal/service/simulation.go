package service

import (
	"context"
	"log"
	"time"

	"harmonia/internal/clock"
)

// Updater is advanced once per simulation tick
type Updater interface {
	Update(now time.Time) int
}

// Simulation drives the time-based parts of the game: difficulty cooldowns,
// echo decay and resonance
type Simulation struct {
	clock    clock.Clock
	interval time.Duration
	updaters []Updater
}

// NewSimulation creates a loop ticking every interval
func NewSimulation(clk clock.Clock, interval time.Duration, updaters ...Updater) *Simulation {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Simulation{clock: clk, interval: interval, updaters: updaters}
}

// Run ticks until ctx is cancelled
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Simulation loop started (interval %s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Simulation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances every updater to the current time and returns the total work done
func (s *Simulation) Tick() int {
	now := s.clock.Now()
	total := 0
	for _, u := range s.updaters {
		total += u.Update(now)
	}
	return total
}
