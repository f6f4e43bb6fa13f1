// Package events carries difficulty and death-penalty notifications to subscribers
package events

import (
	"sync"
	"time"
)

// Type names an event kind
type Type string

const (
	DifficultyChanged   Type = "difficulty_changed"
	EchoCreated         Type = "echo_created"
	EchoDecayed         Type = "echo_decayed"
	EchoRecovered       Type = "echo_recovered"
	EchoDestroyed       Type = "echo_destroyed"
	DoubleDeath         Type = "double_death"
	PenaltyStateChanged Type = "penalty_state_changed"
)

// Event is a single notification. PlayerID is the player the event concerns.
type Event struct {
	Type     Type        `json:"type"`
	PlayerID string      `json:"player_id"`
	At       time.Time   `json:"at"`
	Payload  interface{} `json:"payload,omitempty"`
}

// Publisher accepts events
type Publisher interface {
	Publish(ev Event)
}

// Bus fans events out to subscribers synchronously, in subscription order
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]func(Event)
	order  []int
	nextID int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers ev to every current subscriber
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Discard is a Publisher that drops everything
type Discard struct{}

func (Discard) Publish(Event) {}
