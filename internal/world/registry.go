// Package world tracks hostile actors for spatial queries and resonance buffs
package world

import (
	"sort"
	"sync"

	"harmonia/internal/models"
)

type buff struct {
	damagePct float64
	healthPct float64
}

// Hostile is a hostile actor known to the server
type Hostile struct {
	ID               string        `json:"id"`
	Position         models.Vector `json:"position"`
	ResonanceStacks  int           `json:"resonance_stacks"`
	DamageMultiplier float64       `json:"damage_multiplier"`
	HealthMultiplier float64       `json:"health_multiplier"`
}

type hostile struct {
	id  string
	pos models.Vector
	// resonance buffs keyed by the echo that applied them
	buffs map[string]buff
}

func (h *hostile) snapshot() Hostile {
	dmg, hp := 1.0, 1.0
	for _, b := range h.buffs {
		dmg += b.damagePct
		hp += b.healthPct
	}
	return Hostile{
		ID:               h.id,
		Position:         h.pos,
		ResonanceStacks:  len(h.buffs),
		DamageMultiplier: dmg,
		HealthMultiplier: hp,
	}
}

// Registry holds hostile positions and buffs
type Registry struct {
	mu       sync.RWMutex
	hostiles map[string]*hostile
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{hostiles: make(map[string]*hostile)}
}

// Upsert adds a hostile or moves an existing one, keeping its buffs
func (r *Registry) Upsert(id string, pos models.Vector) Hostile {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hostiles[id]
	if !ok {
		h = &hostile{id: id, buffs: make(map[string]buff)}
		r.hostiles[id] = h
	}
	h.pos = pos
	return h.snapshot()
}

// Remove forgets a hostile. It returns false if it was unknown.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hostiles[id]; !ok {
		return false
	}
	delete(r.hostiles, id)
	return true
}

// Get returns a hostile with its effective multipliers
func (r *Registry) Get(id string) (Hostile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hostiles[id]
	if !ok {
		return Hostile{}, false
	}
	return h.snapshot(), true
}

// All returns every hostile sorted by id
func (r *Registry) All() []Hostile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hostile, 0, len(r.hostiles))
	for _, h := range r.hostiles {
		out = append(out, h.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HostilesWithin returns the ids of hostiles at most radius from center, sorted
func (r *Registry) HostilesWithin(center models.Vector, radius float64) []string {
	if radius < 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, h := range r.hostiles {
		if h.pos.DistanceTo(center) <= radius {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ApplyResonanceBuff gives a hostile the resonance stack of one echo. Reapplying from the same echo
// leaves a single stack.
func (r *Registry) ApplyResonanceBuff(echoID, hostileID string, damagePct, healthPct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hostiles[hostileID]; ok {
		h.buffs[echoID] = buff{damagePct: damagePct, healthPct: healthPct}
	}
}

// RemoveResonanceBuff removes the stack applied by one echo
func (r *Registry) RemoveResonanceBuff(echoID, hostileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hostiles[hostileID]; ok {
		delete(h.buffs, echoID)
	}
}
