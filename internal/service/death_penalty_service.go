package service

import (
	"fmt"
	"log"
	"time"

	"harmonia/internal/deathpenalty"
	"harmonia/internal/events"
	"harmonia/internal/models"
	"harmonia/internal/repository"
	"harmonia/internal/validation"
)

// DeathPenaltyService wraps the death penalty engine with wallet loading and persistence.
// Engine events drive the writes: HandleEvent must be subscribed to the engine's bus.
type DeathPenaltyService struct {
	engine    *deathpenalty.Engine
	currency  *CurrencyService
	stateRepo *repository.DeathStateRepository
	echoRepo  *repository.EchoRepository
}

// NewDeathPenaltyService creates a new death penalty service
func NewDeathPenaltyService(engine *deathpenalty.Engine, currency *CurrencyService, stateRepo *repository.DeathStateRepository, echoRepo *repository.EchoRepository) *DeathPenaltyService {
	return &DeathPenaltyService{
		engine:    engine,
		currency:  currency,
		stateRepo: stateRepo,
		echoRepo:  echoRepo,
	}
}

// Engine exposes the wrapped engine
func (s *DeathPenaltyService) Engine() *deathpenalty.Engine {
	return s.engine
}

// Restore loads persisted states and echoes into the engine
func (s *DeathPenaltyService) Restore() error {
	states, err := s.stateRepo.ListStates()
	if err != nil {
		return fmt.Errorf("failed to load death states: %w", err)
	}
	echoes, err := s.echoRepo.ListEchoes()
	if err != nil {
		return fmt.Errorf("failed to load memory echoes: %w", err)
	}
	s.engine.Restore(states, echoes)

	// Rows the engine discarded on restore are removed from the database too
	for _, rec := range echoes {
		if _, ok := s.engine.Echo(rec.ID); !ok {
			if err := s.echoRepo.DeleteEcho(rec.ID); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
	}
	for _, st := range s.engine.States() {
		if err := s.stateRepo.SaveState(st); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return nil
}

// OnPlayerDeath applies the death penalty and saves the player's wallet
func (s *DeathPenaltyService) OnPlayerDeath(playerID string, location models.Vector) (deathpenalty.DeathResult, error) {
	if err := validation.ValidateLocation(location); err != nil {
		return deathpenalty.DeathResult{}, err
	}
	if _, err := s.currency.Wallet(playerID); err != nil {
		return deathpenalty.DeathResult{}, err
	}
	result := s.engine.OnPlayerDeath(playerID, location)
	if err := s.currency.Save(playerID); err != nil {
		return result, err
	}
	return result, nil
}

// Recover pays out an echo to the recovering player and saves their wallet
func (s *DeathPenaltyService) Recover(recovererID, echoID string, location models.Vector) (deathpenalty.RecoveryResult, error) {
	if err := validation.ValidateLocation(location); err != nil {
		return deathpenalty.RecoveryResult{}, err
	}
	if _, err := s.currency.Wallet(recovererID); err != nil {
		return deathpenalty.RecoveryResult{}, err
	}
	result, err := s.engine.RecoverCurrencies(recovererID, echoID, location)
	if err != nil {
		return result, err
	}
	if err := s.currency.Save(recovererID); err != nil {
		return result, err
	}
	return result, nil
}

// State returns the player's death state
func (s *DeathPenaltyService) State(playerID string) models.DeathState {
	return s.engine.State(playerID)
}

// Echo returns a live echo
func (s *DeathPenaltyService) Echo(echoID string) (models.EchoRecord, error) {
	rec, ok := s.engine.Echo(echoID)
	if !ok {
		return models.EchoRecord{}, deathpenalty.ErrEchoNotFound
	}
	return rec, nil
}

// ResetPlayer destroys the player's echo without payout and clears their state
func (s *DeathPenaltyService) ResetPlayer(playerID string) bool {
	return s.engine.ResetPlayer(playerID)
}

// Update fires due decay and resonance timers
func (s *DeathPenaltyService) Update(now time.Time) int {
	return s.engine.Update(now)
}

// HandleEvent writes engine changes through to the database
func (s *DeathPenaltyService) HandleEvent(ev events.Event) {
	var err error
	switch p := ev.Payload.(type) {
	case models.EchoRecord:
		err = s.echoRepo.SaveEcho(p)
	case deathpenalty.EchoDecay:
		err = s.echoRepo.SaveEcho(p.Echo)
	case deathpenalty.EchoRecovered:
		if !p.Echo.IsEmpty() {
			err = s.echoRepo.SaveEcho(p.Echo)
		}
	case deathpenalty.EchoDestroyed:
		err = s.echoRepo.DeleteEcho(p.Echo.ID)
	case models.DeathState:
		err = s.stateRepo.SaveState(p)
	}
	if err != nil {
		log.Printf("Warning: failed to persist %s event for player %s: %v", ev.Type, ev.PlayerID, err)
	}
}
