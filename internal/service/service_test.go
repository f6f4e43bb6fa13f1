package service

import (
	"path/filepath"
	"testing"
	"time"

	"harmonia/internal/clock"
	"harmonia/internal/currency"
	"harmonia/internal/database"
	"harmonia/internal/deathpenalty"
	"harmonia/internal/difficulty"
	"harmonia/internal/events"
	"harmonia/internal/models"
	"harmonia/internal/repository"
	"harmonia/internal/scheduler"
	"harmonia/internal/security"
	"harmonia/internal/world"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createPlayer(t *testing.T, db *database.DB, name string) string {
	t.Helper()
	id := security.NewID()
	err := repository.NewPlayerRepository(db).CreatePlayer(&models.Player{ID: id, Name: name, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	return id
}

// game wires the services the way the server does, on a mock clock
type game struct {
	db         *database.DB
	clock      *clock.Mock
	bus        *events.Bus
	world      *world.Registry
	currency   *CurrencyService
	difficulty *DifficultyService
	death      *DeathPenaltyService
	received   []events.Event
}

func newGame(t *testing.T, db *database.DB, cfg deathpenalty.Config) *game {
	t.Helper()
	g := &game{db: db, clock: clock.NewMock(t0), bus: events.NewBus(), world: world.NewRegistry()}
	g.currency = NewCurrencyService(currency.NewBank(), repository.NewWalletRepository(db))
	g.difficulty = NewDifficultyService(difficulty.DefaultConfig(), g.clock, repository.NewMetricsRepository(db), g.bus)
	engine := deathpenalty.NewEngine(cfg, deathpenalty.Options{
		Clock:     g.clock,
		Scheduler: scheduler.New(),
		Ledgers:   g.currency,
		Hostiles:  g.world,
		Buffs:     g.world,
		Events:    g.bus,
	})
	g.death = NewDeathPenaltyService(engine, g.currency,
		repository.NewDeathStateRepository(db), repository.NewEchoRepository(db))
	g.bus.Subscribe(g.death.HandleEvent)
	g.bus.Subscribe(func(ev events.Event) { g.received = append(g.received, ev) })
	return g
}

func (g *game) count(t events.Type) int {
	n := 0
	for _, ev := range g.received {
		if ev.Type == t {
			n++
		}
	}
	return n
}
