package deathpenalty

import (
	"math"
	"sort"
	"time"

	"harmonia/internal/models"
	"harmonia/internal/scheduler"
)

// rounding tolerance so products like 100*0.07 do not round up past the true value
const roundingEpsilon = 1e-9

// MemoryEcho holds the currency a player dropped at a death location.
// Only the engine mutates it, under the engine lock.
type MemoryEcho struct {
	models.EchoRecord

	buffed    map[string]struct{}
	decay     *scheduler.Handle
	resonance *scheduler.Handle
	destroyed bool
}

func newMemoryEcho(rec models.EchoRecord) *MemoryEcho {
	return &MemoryEcho{
		EchoRecord: rec,
		buffed:     make(map[string]struct{}),
	}
}

// Record returns a copy safe to hand outside the engine
func (e *MemoryEcho) Record() models.EchoRecord {
	rec := e.EchoRecord
	rec.Currencies = append([]models.CurrencyAmount(nil), e.Currencies...)
	rec.BuffedHostiles = e.BuffedHostiles()
	return rec
}

// BuffedHostiles lists the hostiles currently buffed by this echo, sorted
func (e *MemoryEcho) BuffedHostiles() []string {
	if len(e.buffed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(e.buffed))
	for id := range e.buffed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Amount returns the stored amount of one currency
func (e *MemoryEcho) Amount(t models.CurrencyType) int64 {
	for _, c := range e.Currencies {
		if c.Type == t {
			return c.Amount
		}
	}
	return 0
}

// Age is the time since the echo was created
func (e *MemoryEcho) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// cancelTimers invalidates the decay and resonance handles
func (e *MemoryEcho) cancelTimers() {
	e.decay.Cancel()
	e.resonance.Cancel()
	e.decay = nil
	e.resonance = nil
}

// applyDecay removes ceil(amount*pct) from each currency and accumulates the decay percentage.
// It returns the amounts removed.
func (e *MemoryEcho) applyDecay(pct float64) []models.CurrencyAmount {
	pct = clampFraction(pct)
	if pct == 0 {
		return nil
	}
	var removed []models.CurrencyAmount
	for i, c := range e.Currencies {
		if c.Amount <= 0 {
			continue
		}
		loss := ceilPortion(c.Amount, pct)
		if loss > c.Amount {
			loss = c.Amount
		}
		e.Currencies[i].Amount = c.Amount - loss
		if loss > 0 {
			removed = append(removed, models.CurrencyAmount{Type: c.Type, Amount: loss})
		}
	}
	e.TotalDecayPercentage = clampFraction(e.TotalDecayPercentage + pct)
	return removed
}

// ceilPortion rounds against the player: drops, decay, theft and permanent loss
func ceilPortion(amount int64, pct float64) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	v := int64(math.Ceil(float64(amount)*pct - roundingEpsilon))
	if v < 0 {
		return 0
	}
	return v
}

// floorPortion rounds in the engine's favour: recovery bonuses
func floorPortion(amount int64, pct float64) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	v := int64(math.Floor(float64(amount)*pct + roundingEpsilon))
	if v < 0 {
		return 0
	}
	return v
}

func clampFraction(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
