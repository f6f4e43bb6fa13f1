package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"harmonia/internal/clock"
	"harmonia/internal/difficulty"
	"harmonia/internal/events"
	"harmonia/internal/models"
	"harmonia/internal/repository"
	"harmonia/internal/validation"
)

var ErrUnknownReport = errors.New("unknown report kind")

// Report kinds accepted by DifficultyService.Report
const (
	ReportDeath        = "death"
	ReportVictory      = "victory"
	ReportParry        = "parry"
	ReportDodge        = "dodge"
	ReportAttack       = "attack"
	ReportDamage       = "damage"
	ReportBossStart    = "boss-start"
	ReportBossDefeated = "boss-defeated"
)

// Report is one gameplay observation sent by a client
type Report struct {
	Kind           string          `json:"-"`
	Success        bool            `json:"success"`
	Perfect        bool            `json:"perfect"`
	Hit            bool            `json:"hit"`
	HealthFraction float64         `json:"health_fraction"`
	CombatDuration models.Duration `json:"combat_duration"`
	Dealt          float64         `json:"dealt"`
	Taken          float64         `json:"taken"`
	BossID         string          `json:"boss_id"`
}

// Validate checks the fields used by the report's kind
func (r Report) Validate() error {
	switch r.Kind {
	case ReportDeath, ReportParry, ReportDodge, ReportAttack:
		return nil
	case ReportVictory:
		if err := validation.ValidateFraction("health_fraction", r.HealthFraction); err != nil {
			return err
		}
		return validation.ValidateNonNegative("combat_duration", r.CombatDuration.Std().Seconds())
	case ReportDamage:
		if err := validation.ValidateNonNegative("dealt", r.Dealt); err != nil {
			return err
		}
		return validation.ValidateNonNegative("taken", r.Taken)
	case ReportBossStart:
		return validation.ValidateIdentifier("boss_id", r.BossID)
	case ReportBossDefeated:
		if r.BossID == "" {
			return nil
		}
		return validation.ValidateIdentifier("boss_id", r.BossID)
	default:
		return ErrUnknownReport
	}
}

// DifficultyService owns one difficulty controller per active player and persists their metrics
type DifficultyService struct {
	cfg         difficulty.Config
	clock       clock.Clock
	metricsRepo *repository.MetricsRepository
	events      events.Publisher

	mu          sync.Mutex
	controllers map[string]*difficulty.Controller
}

// NewDifficultyService creates a new difficulty service
func NewDifficultyService(cfg difficulty.Config, clk clock.Clock, metricsRepo *repository.MetricsRepository, pub events.Publisher) *DifficultyService {
	if clk == nil {
		clk = clock.Real{}
	}
	if pub == nil {
		pub = events.Discard{}
	}
	return &DifficultyService{
		cfg:         cfg,
		clock:       clk,
		metricsRepo: metricsRepo,
		events:      pub,
		controllers: make(map[string]*difficulty.Controller),
	}
}

// Controller returns the player's controller, loading stored metrics on first use
func (s *DifficultyService) Controller(playerID string) (*difficulty.Controller, error) {
	s.mu.Lock()
	c, ok := s.controllers[playerID]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	// loaded without the lock held; another caller may have won the race, checked below
	metrics, err := s.loadMetrics(playerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controllers[playerID]; ok {
		return c, nil
	}
	c = difficulty.NewController(playerID, s.cfg, s.clock, metrics)
	c.OnChange(func(ch difficulty.Change) {
		log.Printf("Difficulty for player %s changed: rating=%.1f profile=%s frustrated=%t",
			ch.PlayerID, ch.Rating, ch.Profile, ch.Frustrated)
		s.events.Publish(events.Event{
			Type:     events.DifficultyChanged,
			PlayerID: ch.PlayerID,
			At:       s.clock.Now(),
			Payload:  ch,
		})
	})
	s.controllers[playerID] = c
	return c, nil
}

func (s *DifficultyService) loadMetrics(playerID string) (*difficulty.Metrics, error) {
	rec, err := s.metricsRepo.GetMetrics(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	metrics := difficulty.NewMetrics()
	if err := json.Unmarshal(rec.Data, metrics); err != nil {
		log.Printf("Warning: discarding unreadable metrics for player %s: %v", playerID, err)
		return nil, nil
	}
	return metrics, nil
}

// Report applies one observation and saves the metrics
func (s *DifficultyService) Report(playerID string, r Report) (difficulty.Snapshot, error) {
	if err := r.Validate(); err != nil {
		return difficulty.Snapshot{}, err
	}
	c, err := s.Controller(playerID)
	if err != nil {
		return difficulty.Snapshot{}, err
	}

	switch r.Kind {
	case ReportDeath:
		c.ReportDeath()
	case ReportVictory:
		c.ReportVictory(r.HealthFraction, r.CombatDuration.Std())
	case ReportParry:
		c.ReportParry(r.Success, r.Perfect)
	case ReportDodge:
		c.ReportDodge(r.Success, r.Perfect)
	case ReportAttack:
		c.ReportAttack(r.Hit)
	case ReportDamage:
		c.ReportDamage(r.Dealt, r.Taken)
	case ReportBossStart:
		c.ReportBossEncounterStarted(r.BossID)
	case ReportBossDefeated:
		c.ReportBossDefeated(r.BossID)
	}

	if err := s.save(playerID, c); err != nil {
		return difficulty.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Snapshot returns the player's current difficulty view
func (s *DifficultyService) Snapshot(playerID string) (difficulty.Snapshot, error) {
	c, err := s.Controller(playerID)
	if err != nil {
		return difficulty.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Recalculate forces a recalculation regardless of the cooldown
func (s *DifficultyService) Recalculate(playerID string) (difficulty.Snapshot, error) {
	c, err := s.Controller(playerID)
	if err != nil {
		return difficulty.Snapshot{}, err
	}
	c.ForceRecalculate()
	if err := s.save(playerID, c); err != nil {
		return difficulty.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// NewGame clears the player's metrics
func (s *DifficultyService) NewGame(playerID string) (difficulty.Snapshot, error) {
	c, err := s.Controller(playerID)
	if err != nil {
		return difficulty.Snapshot{}, err
	}
	c.ResetMetrics()
	if err := s.save(playerID, c); err != nil {
		return difficulty.Snapshot{}, err
	}
	log.Printf("Difficulty metrics reset for player %s", playerID)
	return c.Snapshot(), nil
}

// Update runs the cooldown-gated recalculation of every loaded controller and
// saves those whose metrics changed. It returns the number of changed outputs.
func (s *DifficultyService) Update(now time.Time) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.controllers))
	for id := range s.controllers {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)

	changed := 0
	for _, id := range ids {
		s.mu.Lock()
		c := s.controllers[id]
		s.mu.Unlock()
		if c == nil {
			continue
		}
		if c.Update() {
			changed++
		}
		if c.Dirty() {
			if err := s.save(id, c); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
	}
	return changed
}

// Forget drops the in-memory controller so the next access reloads it
func (s *DifficultyService) Forget(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.controllers, playerID)
}

func (s *DifficultyService) save(playerID string, c *difficulty.Controller) error {
	c.MarkClean()
	metrics := c.Metrics()
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	err = s.metricsRepo.SaveMetrics(models.MetricsRecord{
		PlayerID:    playerID,
		Data:        data,
		SkillRating: metrics.OverallSkillRating,
		UpdatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save metrics for player %s: %w", playerID, err)
	}
	return nil
}
