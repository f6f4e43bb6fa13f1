package deathpenalty

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"harmonia/internal/clock"
	"harmonia/internal/events"
	"harmonia/internal/models"
	"harmonia/internal/scheduler"
)

var (
	ErrEchoNotFound     = errors.New("memory echo not found")
	ErrNotAllowed       = errors.New("player may not recover this echo")
	ErrTooFar           = errors.New("player is too far from the echo")
	ErrNoLedger         = errors.New("player has no currency ledger")
	ErrNothingToRecover = errors.New("nothing to recover")
)

// Destroy reasons reported in EchoDestroyed events
const (
	ReasonRecovered  = "recovered"
	ReasonDecayed    = "decayed"
	ReasonSuperseded = "superseded"
	ReasonReset      = "reset"
)

// Ledger is a player's currency balance
type Ledger interface {
	Amount(t models.CurrencyType) int64
	Add(t models.CurrencyType, n int64) bool
	Remove(t models.CurrencyType, n int64) bool
}

// LedgerProvider resolves a player's ledger
type LedgerProvider interface {
	LedgerFor(playerID string) (Ledger, bool)
}

// HostileFinder answers spatial queries for hostile actors
type HostileFinder interface {
	HostilesWithin(center models.Vector, radius float64) []string
}

// BuffApplier applies and removes the resonance buff on hostile actors.
// Buffs are keyed by the echo that applies them; applying twice from the same echo is a no-op.
type BuffApplier interface {
	ApplyResonanceBuff(echoID, hostileID string, damagePct, healthPct float64)
	RemoveResonanceBuff(echoID, hostileID string)
}

// Options wires the engine to its collaborators. Only Ledgers is required for drops.
type Options struct {
	Clock     clock.Clock
	Scheduler *scheduler.Scheduler
	Ledgers   LedgerProvider
	Hostiles  HostileFinder
	Buffs     BuffApplier
	Events    events.Publisher
}

// DeathResult reports what a death did
type DeathResult struct {
	PlayerID         string                  `json:"player_id"`
	EchoID           string                  `json:"echo_id,omitempty"`
	Dropped          []models.CurrencyAmount `json:"dropped,omitempty"`
	CarriedOver      []models.CurrencyAmount `json:"carried_over,omitempty"`
	SupersededEchoID string                  `json:"superseded_echo_id,omitempty"`
	PermanentlyLost  []models.CurrencyAmount `json:"permanently_lost,omitempty"`
	State            models.DeathState       `json:"state"`
}

// RecoveryResult reports what a recovery attempt paid out
type RecoveryResult struct {
	EchoID        string                  `json:"echo_id"`
	OwnerID       string                  `json:"owner_id"`
	RecovererID   string                  `json:"recoverer_id"`
	IsOwner       bool                    `json:"is_owner"`
	FastRecovery  bool                    `json:"fast_recovery"`
	Recovered     []models.CurrencyAmount `json:"recovered"`
	Bonus         []models.CurrencyAmount `json:"bonus,omitempty"`
	Remaining     []models.CurrencyAmount `json:"remaining"`
	EchoDestroyed bool                    `json:"echo_destroyed"`
}

// DoubleDeath is the payload of a DoubleDeath event
type DoubleDeath struct {
	EchoID    string                  `json:"echo_id"`
	Lost      []models.CurrencyAmount `json:"lost"`
	Remainder []models.CurrencyAmount `json:"remainder,omitempty"`
}

// EchoDecay is the payload of an EchoDecayed event
type EchoDecay struct {
	Echo    models.EchoRecord       `json:"echo"`
	Removed []models.CurrencyAmount `json:"removed"`
}

// EchoDestroyed is the payload of an EchoDestroyed event
type EchoDestroyed struct {
	Echo   models.EchoRecord `json:"echo"`
	Reason string            `json:"reason"`
}

// EchoRecovered is the payload of an EchoRecovered event
type EchoRecovered struct {
	Result RecoveryResult    `json:"result"`
	Echo   models.EchoRecord `json:"echo"`
}

// Engine owns every player's death state and memory echoes.
// All operations are serialized by one mutex; events are published after it is released.
type Engine struct {
	mu sync.Mutex
	// publishMu is taken before mu is released so events are delivered in the order they happened.
	// Subscribers must not call back into the engine.
	publishMu sync.Mutex

	cfg    Config
	clock  clock.Clock
	sched  *scheduler.Scheduler
	ledger LedgerProvider
	finder HostileFinder
	buffs  BuffApplier
	events events.Publisher

	states map[string]*models.DeathState
	echoes map[string]*MemoryEcho

	pending []events.Event
}

// NewEngine creates an engine. Invalid currency rules are dropped with a warning.
func NewEngine(cfg Config, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New()
	}
	if opts.Events == nil {
		opts.Events = events.Discard{}
	}
	return &Engine{
		cfg:    sanitize(cfg),
		clock:  opts.Clock,
		sched:  opts.Scheduler,
		ledger: opts.Ledgers,
		finder: opts.Hostiles,
		buffs:  opts.Buffs,
		events: opts.Events,
		states: make(map[string]*models.DeathState),
		echoes: make(map[string]*MemoryEcho),
	}
}

func sanitize(cfg Config) Config {
	rules := make([]CurrencyRule, 0, len(cfg.Currencies))
	seen := make(map[models.CurrencyType]bool)
	for _, r := range cfg.Currencies {
		if !r.Currency.IsValid() {
			log.Printf("Warning: ignoring death penalty rule for unknown currency %q", r.Currency)
			continue
		}
		if seen[r.Currency] {
			log.Printf("Warning: duplicate death penalty rule for %s, keeping the first", r.Currency)
			continue
		}
		seen[r.Currency] = true
		r.DropPercentage = clampFraction(r.DropPercentage)
		r.PermanentLossPercentage = clampFraction(r.PermanentLossPercentage)
		rules = append(rules, r)
	}
	cfg.Currencies = rules
	cfg.MaxHealthPenaltyPerDeath = clampFraction(cfg.MaxHealthPenaltyPerDeath)
	if cfg.MaxHealthPenaltyStacks < 0 {
		cfg.MaxHealthPenaltyStacks = 0
	}
	cfg.FastRecoveryBonus = clampFraction(cfg.FastRecoveryBonus)
	cfg.OtherPlayerRecoveryPercentage = clampFraction(cfg.OtherPlayerRecoveryPercentage)
	cfg.Decay.DecayPercentage = clampFraction(cfg.Decay.DecayPercentage)
	return cfg
}

// Config returns the sanitized configuration in use
func (e *Engine) Config() Config {
	return e.cfg
}

// OnPlayerDeath applies the death penalty to playerID at location.
// Any unclaimed echo is permanently lost before the new one is created.
func (e *Engine) OnPlayerDeath(playerID string, location models.Vector) DeathResult {
	e.mu.Lock()
	defer e.flush()

	now := e.clock.Now()
	st := e.stateLocked(playerID)
	result := DeathResult{PlayerID: playerID}

	var carry []models.CurrencyAmount
	if old, ok := e.echoes[st.EchoID]; ok && !old.destroyed {
		lost, remainder := e.permanentLoss(old)
		result.SupersededEchoID = old.ID
		result.PermanentlyLost = lost
		e.emit(events.DoubleDeath, playerID, now, DoubleDeath{EchoID: old.ID, Lost: lost, Remainder: remainder})
		log.Printf("Player %s died again before recovering echo %s, lost %v", playerID, old.ID, lost)
		e.destroyLocked(old, ReasonSuperseded, now)
		if e.cfg.CarryOverUnlostCurrency {
			carry = remainder
			result.CarriedOver = remainder
		}
	}
	st.EchoID = ""

	result.Dropped = e.dropLocked(playerID)

	stored := mergeAmounts(result.Dropped, carry)
	if models.SumAmounts(stored) > 0 {
		echo := newMemoryEcho(models.EchoRecord{
			ID:         uuid.New().String(),
			OwnerID:    playerID,
			Location:   location,
			Currencies: stored,
			CreatedAt:  now,
		})
		e.echoes[echo.ID] = echo
		e.armTimers(echo, now)
		st.EchoID = echo.ID
		result.EchoID = echo.ID
		e.emit(events.EchoCreated, playerID, now, echo.Record())
	}

	st.ConsecutiveDeaths++
	if st.EchoID != "" {
		st.State = models.PenaltyStateEthereal
		if e.cfg.CorruptionThreshold > 0 && st.ConsecutiveDeaths >= e.cfg.CorruptionThreshold {
			st.State = models.PenaltyStateCorrupted
		}
		st.Penalty = e.penaltyFor(st.ConsecutiveDeaths)
	} else {
		st.State = models.PenaltyStateNormal
		st.Penalty = models.NoPenalty()
	}
	st.UpdatedAt = now
	result.State = *st
	e.emit(events.PenaltyStateChanged, playerID, now, *st)

	log.Printf("Player %s died (consecutive=%d, state=%s, dropped=%v)",
		playerID, st.ConsecutiveDeaths, st.State, result.Dropped)
	return result
}

// RecoverCurrencies pays out echoID to recovererID standing at location.
// The owner takes everything left; another player takes a configured share if allowed.
func (e *Engine) RecoverCurrencies(recovererID, echoID string, location models.Vector) (RecoveryResult, error) {
	e.mu.Lock()
	defer e.flush()

	echo, ok := e.echoes[echoID]
	if !ok || echo.destroyed {
		return RecoveryResult{}, ErrEchoNotFound
	}
	isOwner := recovererID == echo.OwnerID
	if !isOwner && !e.cfg.AllowOtherPlayerRecovery {
		log.Printf("Player %s tried to recover echo %s owned by %s", recovererID, echoID, echo.OwnerID)
		return RecoveryResult{}, ErrNotAllowed
	}
	if e.cfg.RecoveryRadius > 0 && location.DistanceTo(echo.Location) > e.cfg.RecoveryRadius {
		return RecoveryResult{}, ErrTooFar
	}
	ledger, ok := e.ledgerFor(recovererID)
	if !ok {
		return RecoveryResult{}, ErrNoLedger
	}

	now := e.clock.Now()
	result := RecoveryResult{
		EchoID:      echo.ID,
		OwnerID:     echo.OwnerID,
		RecovererID: recovererID,
		IsOwner:     isOwner,
	}
	if isOwner {
		window := e.cfg.FastRecoveryWindow.Std()
		result.FastRecovery = window > 0 && echo.Age(now) <= window
	}

	for i, c := range echo.Currencies {
		if c.Amount <= 0 {
			continue
		}
		take := c.Amount
		if !isOwner {
			take = ceilPortion(c.Amount, e.cfg.OtherPlayerRecoveryPercentage)
			if take > c.Amount {
				take = c.Amount
			}
		}
		if take <= 0 || !ledger.Add(c.Type, take) {
			continue
		}
		echo.Currencies[i].Amount = c.Amount - take
		result.Recovered = append(result.Recovered, models.CurrencyAmount{Type: c.Type, Amount: take})

		if result.FastRecovery {
			if bonus := floorPortion(take, e.cfg.FastRecoveryBonus); bonus > 0 && ledger.Add(c.Type, bonus) {
				result.Bonus = append(result.Bonus, models.CurrencyAmount{Type: c.Type, Amount: bonus})
			}
		}
	}
	if len(result.Recovered) == 0 {
		return RecoveryResult{}, ErrNothingToRecover
	}

	result.Remaining = append([]models.CurrencyAmount(nil), echo.Currencies...)
	e.emit(events.EchoRecovered, echo.OwnerID, now, EchoRecovered{Result: result, Echo: echo.Record()})
	log.Printf("Player %s recovered %v from echo %s (owner=%t, bonus=%v)",
		recovererID, result.Recovered, echo.ID, isOwner, result.Bonus)

	if echo.IsEmpty() {
		e.exhaustLocked(echo, ReasonRecovered, now)
		result.EchoDestroyed = true
	}
	return result, nil
}

// ApplyDecay runs one decay step on echoID. It returns false for a missing or destroyed echo.
func (e *Engine) ApplyDecay(echoID string) bool {
	e.mu.Lock()
	defer e.flush()

	echo, ok := e.echoes[echoID]
	if !ok || echo.destroyed {
		return false
	}
	e.decayLocked(echo, e.clock.Now())
	return true
}

// UpdateResonance buffs hostiles that entered the echo's radius and unbuffs those that left
func (e *Engine) UpdateResonance(echoID string) bool {
	e.mu.Lock()
	defer e.flush()

	echo, ok := e.echoes[echoID]
	if !ok || echo.destroyed {
		return false
	}
	e.resonanceLocked(echo)
	return true
}

// ResetPlayer destroys the player's echo without payout and clears their penalty state
func (e *Engine) ResetPlayer(playerID string) bool {
	e.mu.Lock()
	defer e.flush()

	st, ok := e.states[playerID]
	if !ok {
		return false
	}
	now := e.clock.Now()
	if echo, ok := e.echoes[st.EchoID]; ok && !echo.destroyed {
		e.destroyLocked(echo, ReasonReset, now)
	}
	e.clearStateLocked(st, now)
	log.Printf("Death penalty state reset for player %s", playerID)
	return true
}

// Update fires due decay and resonance timers
func (e *Engine) Update(now time.Time) int {
	return e.sched.RunDue(now)
}

// State returns the player's death state; unknown players are normal
func (e *Engine) State(playerID string) models.DeathState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[playerID]; ok {
		return *st
	}
	return models.DeathState{PlayerID: playerID, State: models.PenaltyStateNormal, Penalty: models.NoPenalty()}
}

// States returns every tracked death state ordered by player id
func (e *Engine) States() []models.DeathState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.DeathState, 0, len(e.states))
	for _, st := range e.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Echo returns a snapshot of a live echo
func (e *Engine) Echo(echoID string) (models.EchoRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	echo, ok := e.echoes[echoID]
	if !ok || echo.destroyed {
		return models.EchoRecord{}, false
	}
	return echo.Record(), true
}

// Echoes returns snapshots of every live echo, oldest first
func (e *Engine) Echoes() []models.EchoRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.EchoRecord, 0, len(e.echoes))
	for _, echo := range e.echoes {
		out = append(out, echo.Record())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore loads persisted states and echoes and re-arms echo timers.
// Only the echo referenced by its owner's state comes back; empty and unreferenced
// echoes are dropped and states pointing at a missing echo fall back to normal.
func (e *Engine) Restore(states []models.DeathState, echoes []models.EchoRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	loaded := make(map[string]models.EchoRecord, len(echoes))
	for _, rec := range echoes {
		if rec.IsEmpty() {
			continue
		}
		loaded[rec.ID] = rec
	}

	referenced := make(map[string]bool)
	for _, s := range states {
		st := s
		if st.State == "" {
			st.State = models.PenaltyStateNormal
		}
		if st.EchoID != "" {
			rec, ok := loaded[st.EchoID]
			if !ok || rec.OwnerID != st.PlayerID {
				log.Printf("Warning: player %s references missing echo %s, clearing penalty", st.PlayerID, st.EchoID)
				st.EchoID = ""
			} else {
				referenced[st.EchoID] = true
			}
		}
		if st.EchoID == "" && st.IsPenalized() {
			st.State = models.PenaltyStateNormal
			st.ConsecutiveDeaths = 0
			st.Penalty = models.NoPenalty()
		}
		if !st.IsPenalized() {
			st.Penalty = models.NoPenalty()
		}
		e.states[st.PlayerID] = &st
	}

	for id, rec := range loaded {
		if !referenced[id] {
			log.Printf("Warning: echo %s of player %s is not referenced by its owner, discarding", id, rec.OwnerID)
			continue
		}
		if old, ok := e.echoes[id]; ok {
			old.cancelTimers()
			old.destroyed = true
		}
		rec.TotalDecayPercentage = clampFraction(rec.TotalDecayPercentage)
		rec.BuffedHostiles = nil
		echo := newMemoryEcho(rec)
		e.echoes[echo.ID] = echo
		e.armTimers(echo, now)
	}
	log.Printf("Restored %d death states and %d memory echoes", len(states), len(e.echoes))
}

// flush releases the lock and publishes the events collected while it was held
func (e *Engine) flush() {
	pending := e.pending
	e.pending = nil
	if len(pending) == 0 {
		e.mu.Unlock()
		return
	}
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	e.mu.Unlock()
	for _, ev := range pending {
		e.events.Publish(ev)
	}
}

func (e *Engine) emit(t events.Type, playerID string, at time.Time, payload interface{}) {
	e.pending = append(e.pending, events.Event{Type: t, PlayerID: playerID, At: at, Payload: payload})
}

func (e *Engine) stateLocked(playerID string) *models.DeathState {
	st, ok := e.states[playerID]
	if !ok {
		st = &models.DeathState{PlayerID: playerID, State: models.PenaltyStateNormal, Penalty: models.NoPenalty()}
		e.states[playerID] = st
	}
	return st
}

func (e *Engine) ledgerFor(playerID string) (Ledger, bool) {
	if e.ledger == nil {
		return nil, false
	}
	return e.ledger.LedgerFor(playerID)
}

// dropLocked removes ceil(balance*DropPercentage) of each configured currency from the player's ledger
func (e *Engine) dropLocked(playerID string) []models.CurrencyAmount {
	ledger, ok := e.ledgerFor(playerID)
	if !ok {
		log.Printf("Warning: no ledger for player %s, nothing dropped", playerID)
		return nil
	}
	var dropped []models.CurrencyAmount
	for _, r := range e.cfg.Currencies {
		if r.DropPercentage <= 0 {
			continue
		}
		balance := ledger.Amount(r.Currency)
		if balance <= 0 {
			continue
		}
		amount := ceilPortion(balance, r.DropPercentage)
		if amount > balance {
			amount = balance
		}
		if amount <= 0 {
			continue
		}
		if !ledger.Remove(r.Currency, amount) {
			log.Printf("Warning: failed to remove %d %s from player %s", amount, r.Currency, playerID)
			continue
		}
		dropped = append(dropped, models.CurrencyAmount{Type: r.Currency, Amount: amount})
	}
	return dropped
}

// permanentLoss splits an echo's contents into what is lost and what survives.
// Currencies without a rule are lost entirely.
func (e *Engine) permanentLoss(echo *MemoryEcho) (lost, remainder []models.CurrencyAmount) {
	for _, c := range echo.Currencies {
		if c.Amount <= 0 {
			continue
		}
		pct := 1.0
		if r, ok := e.cfg.rule(c.Type); ok {
			pct = r.PermanentLossPercentage
		}
		loss := ceilPortion(c.Amount, pct)
		if loss > c.Amount {
			loss = c.Amount
		}
		if loss > 0 {
			lost = append(lost, models.CurrencyAmount{Type: c.Type, Amount: loss})
		}
		if rest := c.Amount - loss; rest > 0 {
			remainder = append(remainder, models.CurrencyAmount{Type: c.Type, Amount: rest})
		}
	}
	return lost, remainder
}

func (e *Engine) penaltyFor(consecutiveDeaths int) models.AttributePenalty {
	p := e.cfg.EtherealPenalty
	stacks := consecutiveDeaths - 1
	if stacks > e.cfg.MaxHealthPenaltyStacks {
		stacks = e.cfg.MaxHealthPenaltyStacks
	}
	if stacks < 0 {
		stacks = 0
	}
	p.MaxHealthPenalty = clampFraction(float64(stacks) * e.cfg.MaxHealthPenaltyPerDeath)
	return p
}

func (e *Engine) armTimers(echo *MemoryEcho, now time.Time) {
	id := echo.ID
	if e.cfg.Decay.Enabled {
		echo.decay = e.sched.Every(now, e.cfg.Decay.Interval.Std(), func(time.Time) {
			e.ApplyDecay(id)
		})
	}
	if e.cfg.Resonance.Enabled && e.finder != nil && e.buffs != nil {
		echo.resonance = e.sched.Every(now, e.cfg.Resonance.TickInterval.Std(), func(time.Time) {
			e.UpdateResonance(id)
		})
	}
}

func (e *Engine) decayLocked(echo *MemoryEcho, now time.Time) {
	removed := echo.applyDecay(e.cfg.Decay.DecayPercentage)
	if len(removed) == 0 {
		return
	}
	e.emit(events.EchoDecayed, echo.OwnerID, now, EchoDecay{Echo: echo.Record(), Removed: removed})
	if echo.IsEmpty() {
		log.Printf("Echo %s of player %s decayed away", echo.ID, echo.OwnerID)
		e.exhaustLocked(echo, ReasonDecayed, now)
	}
}

func (e *Engine) resonanceLocked(echo *MemoryEcho) {
	if !e.cfg.Resonance.Enabled || e.finder == nil || e.buffs == nil {
		return
	}
	inRange := make(map[string]struct{})
	for _, id := range e.finder.HostilesWithin(echo.Location, e.cfg.Resonance.Radius) {
		inRange[id] = struct{}{}
	}
	// reapplied every tick so a hostile that was removed and registered again is buffed anew
	for id := range inRange {
		e.buffs.ApplyResonanceBuff(echo.ID, id, e.cfg.Resonance.EnemyDamageBuffPercentage, e.cfg.Resonance.EnemyHealthBuffPercentage)
		echo.buffed[id] = struct{}{}
	}
	for id := range echo.buffed {
		if _, ok := inRange[id]; !ok {
			e.buffs.RemoveResonanceBuff(echo.ID, id)
			delete(echo.buffed, id)
		}
	}
}

// exhaustLocked destroys an emptied echo and returns its owner to normal
func (e *Engine) exhaustLocked(echo *MemoryEcho, reason string, now time.Time) {
	e.destroyLocked(echo, reason, now)
	if st, ok := e.states[echo.OwnerID]; ok && st.EchoID == echo.ID {
		e.clearStateLocked(st, now)
	}
}

// destroyLocked cancels the echo's timers, removes its buffs and forgets it
func (e *Engine) destroyLocked(echo *MemoryEcho, reason string, now time.Time) {
	echo.cancelTimers()
	if e.buffs != nil {
		for _, id := range echo.BuffedHostiles() {
			e.buffs.RemoveResonanceBuff(echo.ID, id)
		}
	}
	echo.buffed = make(map[string]struct{})
	echo.destroyed = true
	delete(e.echoes, echo.ID)
	e.emit(events.EchoDestroyed, echo.OwnerID, now, EchoDestroyed{Echo: echo.Record(), Reason: reason})
}

func (e *Engine) clearStateLocked(st *models.DeathState, now time.Time) {
	st.State = models.PenaltyStateNormal
	st.ConsecutiveDeaths = 0
	st.EchoID = ""
	st.Penalty = models.NoPenalty()
	st.UpdatedAt = now
	e.emit(events.PenaltyStateChanged, st.PlayerID, now, *st)
}

// mergeAmounts sums amounts per currency, keeping first-seen order
func mergeAmounts(lists ...[]models.CurrencyAmount) []models.CurrencyAmount {
	var out []models.CurrencyAmount
	index := make(map[models.CurrencyType]int)
	for _, list := range lists {
		for _, c := range list {
			if c.Amount <= 0 {
				continue
			}
			if i, ok := index[c.Type]; ok {
				out[i].Amount += c.Amount
				continue
			}
			index[c.Type] = len(out)
			out = append(out, c)
		}
	}
	return out
}
