package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

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
	"harmonia/internal/service"
	"harmonia/internal/world"
)

type testAPI struct {
	server *httptest.Server
	deps   Dependencies
}

func newTestAPI(t *testing.T, limiter *security.RateLimiter) *testAPI {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	clk := clock.NewMock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	bus := events.NewBus()
	registry := world.NewRegistry()
	currencySvc := service.NewCurrencyService(currency.NewBank(), repository.NewWalletRepository(db))
	engine := deathpenalty.NewEngine(deathpenalty.DefaultConfig(), deathpenalty.Options{
		Clock:     clk,
		Scheduler: scheduler.New(),
		Ledgers:   currencySvc,
		Hostiles:  registry,
		Buffs:     registry,
		Events:    bus,
	})
	deathSvc := service.NewDeathPenaltyService(engine, currencySvc,
		repository.NewDeathStateRepository(db), repository.NewEchoRepository(db))
	bus.Subscribe(deathSvc.HandleEvent)

	deps := Dependencies{
		Auth: service.NewAuthService(repository.NewPlayerRepository(db),
			security.NewTokenManager("test-secret", time.Hour),
			func(name string) bool { return name == "overseer" }),
		Difficulty: service.NewDifficultyService(difficulty.DefaultConfig(), clk, repository.NewMetricsRepository(db), bus),
		Death:      deathSvc,
		Currency:   currencySvc,
		Backup:     service.NewBackupService(db),
		World:      registry,
		Bus:        bus,
		Limiter:    limiter,
	}
	api := &testAPI{server: httptest.NewServer(NewRouter(deps)), deps: deps}
	t.Cleanup(api.server.Close)
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// signup registers and logs in a player, returning the token and player id
func (a *testAPI) signup(t *testing.T, name string) (string, string) {
	t.Helper()
	creds := credentialsRequest{Name: name, Password: "password123"}
	if code := a.do(t, "POST", "/api/register", "", creds, nil); code != http.StatusCreated {
		t.Fatalf("register %s: status %d", name, code)
	}
	var login loginResponse
	if code := a.do(t, "POST", "/api/login", "", creds, &login); code != http.StatusOK {
		t.Fatalf("login %s: status %d", name, code)
	}
	return login.Token, login.Player.ID
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	creds := credentialsRequest{Name: "ash_walker", Password: "password123"}

	if code := api.do(t, "POST", "/api/register", "", creds, nil); code != http.StatusCreated {
		t.Fatalf("register status = %d", code)
	}
	if code := api.do(t, "POST", "/api/register", "", creds, nil); code != http.StatusConflict {
		t.Errorf("duplicate register status = %d", code)
	}
	if code := api.do(t, "POST", "/api/register", "", credentialsRequest{Name: "x", Password: "password123"}, nil); code != http.StatusBadRequest {
		t.Errorf("invalid name status = %d", code)
	}
	if code := api.do(t, "POST", "/api/login", "", credentialsRequest{Name: "ash_walker", Password: "nope-nope"}, nil); code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", code)
	}

	if code := api.do(t, "GET", "/api/difficulty", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d", code)
	}
	if code := api.do(t, "GET", "/api/difficulty", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", code)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	api := newTestAPI(t, limiter)

	creds := credentialsRequest{Name: "ash_walker", Password: "password123"}
	api.do(t, "POST", "/api/login", "", creds, nil)
	api.do(t, "POST", "/api/login", "", creds, nil)
	if code := api.do(t, "POST", "/api/login", "", creds, nil); code != http.StatusTooManyRequests {
		t.Errorf("third login status = %d, want 429", code)
	}
}

func TestDifficultyEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	token, _ := api.signup(t, "ash_walker")

	var snap difficulty.Snapshot
	if code := api.do(t, "GET", "/api/difficulty", token, nil, &snap); code != http.StatusOK {
		t.Fatalf("GET difficulty status = %d", code)
	}
	if snap.SkillRating != difficulty.NeutralSkillRating {
		t.Errorf("initial rating = %v", snap.SkillRating)
	}

	report := service.Report{HealthFraction: 0.9, CombatDuration: models.Duration(20 * time.Second)}
	if code := api.do(t, "POST", "/api/reports/victory", token, report, &snap); code != http.StatusOK {
		t.Errorf("victory report status = %d", code)
	}
	if code := api.do(t, "POST", "/api/reports/parry", token, map[string]bool{"success": true}, nil); code != http.StatusOK {
		t.Errorf("parry report status = %d", code)
	}
	if code := api.do(t, "POST", "/api/reports/victory", token, service.Report{HealthFraction: 3}, nil); code != http.StatusBadRequest {
		t.Errorf("invalid victory status = %d", code)
	}
	if code := api.do(t, "POST", "/api/reports/emote", token, nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown report status = %d", code)
	}
	if code := api.do(t, "POST", "/api/difficulty/recalculate", token, nil, &snap); code != http.StatusOK {
		t.Errorf("recalculate status = %d", code)
	}
}

func TestDeathAndRecoveryEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	adminToken, _ := api.signup(t, "overseer")
	token, playerID := api.signup(t, "ash_walker")

	grant := grantRequest{PlayerID: playerID, Currency: models.CurrencyGold, Amount: 1000}
	if code := api.do(t, "POST", "/api/wallet/grant", token, grant, nil); code != http.StatusForbidden {
		t.Errorf("non-admin grant status = %d", code)
	}
	if code := api.do(t, "POST", "/api/wallet/grant", adminToken, grant, nil); code != http.StatusOK {
		t.Fatalf("grant status = %d", code)
	}

	var death deathResponse
	if code := api.do(t, "POST", "/api/death", token, locationRequest{Location: models.Vector{X: 5}}, &death); code != http.StatusOK {
		t.Fatalf("death status = %d", code)
	}
	if death.EchoID == "" || death.State.State != models.PenaltyStateEthereal {
		t.Fatalf("death = %+v", death)
	}

	var state models.DeathState
	api.do(t, "GET", "/api/death-state", token, nil, &state)
	if state.EchoID != death.EchoID {
		t.Errorf("death state = %+v", state)
	}

	var echo models.EchoRecord
	if code := api.do(t, "GET", "/api/echoes/"+death.EchoID, token, nil, &echo); code != http.StatusOK {
		t.Fatalf("GET echo status = %d", code)
	}
	if models.SumAmounts(echo.Currencies) != 500 {
		t.Errorf("echo = %+v", echo)
	}

	if code := api.do(t, "POST", "/api/echoes/"+death.EchoID+"/recover", adminToken, locationRequest{}, nil); code != http.StatusForbidden {
		t.Errorf("other player recover status = %d", code)
	}
	if code := api.do(t, "POST", "/api/echoes/"+death.EchoID+"/recover", token, locationRequest{Location: models.Vector{X: 5000}}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("far recover status = %d", code)
	}

	var rec recoveryResponse
	if code := api.do(t, "POST", "/api/echoes/"+death.EchoID+"/recover", token, locationRequest{Location: models.Vector{X: 5}}, &rec); code != http.StatusOK {
		t.Fatalf("recover status = %d", code)
	}
	if !rec.EchoDestroyed || !rec.FastRecovery {
		t.Errorf("recovery = %+v", rec)
	}

	var wallet walletResponse
	api.do(t, "GET", "/api/wallet", token, nil, &wallet)
	for _, b := range wallet.Balances {
		if b.Type == models.CurrencyGold && b.Amount != 1050 {
			t.Errorf("gold = %d, want 1050", b.Amount)
		}
	}
	if code := api.do(t, "GET", "/api/echoes/"+death.EchoID, token, nil, nil); code != http.StatusNotFound {
		t.Errorf("recovered echo status = %d", code)
	}
}

func TestAdminResetEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	adminToken, _ := api.signup(t, "overseer")
	token, playerID := api.signup(t, "ash_walker")

	api.do(t, "POST", "/api/wallet/grant", adminToken, grantRequest{PlayerID: playerID, Currency: models.CurrencyGold, Amount: 10}, nil)
	api.do(t, "POST", "/api/death", token, locationRequest{}, nil)

	if code := api.do(t, "POST", "/api/admin/players/"+playerID+"/reset", token, nil, nil); code != http.StatusForbidden {
		t.Errorf("non-admin reset status = %d", code)
	}
	var reset resetResponse
	if code := api.do(t, "POST", "/api/admin/players/"+playerID+"/reset", adminToken, nil, &reset); code != http.StatusOK {
		t.Fatalf("reset status = %d", code)
	}
	if !reset.Reset || reset.DeathState.State != models.PenaltyStateNormal {
		t.Errorf("reset = %+v", reset)
	}
	if code := api.do(t, "POST", "/api/admin/players/nobody/reset", adminToken, nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown player reset status = %d", code)
	}

	var snap difficulty.Snapshot
	if code := api.do(t, "POST", "/api/admin/players/"+playerID+"/new-game", adminToken, nil, &snap); code != http.StatusOK {
		t.Errorf("new-game status = %d", code)
	}

	req, _ := http.NewRequest("GET", api.server.URL+"/api/admin/backup", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var backup service.BackupData
	if err := json.NewDecoder(resp.Body).Decode(&backup); err != nil {
		t.Fatalf("backup body: %v", err)
	}
	if len(backup.Players) != 2 {
		t.Errorf("backup players = %d, want 2", len(backup.Players))
	}
}

func TestWorldEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	token, _ := api.signup(t, "ash_walker")

	var h world.Hostile
	if code := api.do(t, "PUT", "/api/world/hostiles/wraith-1", token, hostileRequest{Position: models.Vector{X: 3}}, &h); code != http.StatusOK {
		t.Fatalf("PUT hostile status = %d", code)
	}
	if h.ID != "wraith-1" || h.Position.X != 3 {
		t.Errorf("hostile = %+v", h)
	}
	var all []world.Hostile
	api.do(t, "GET", "/api/world/hostiles", token, nil, &all)
	if len(all) != 1 {
		t.Errorf("hostiles = %+v", all)
	}
	if code := api.do(t, "DELETE", "/api/world/hostiles/wraith-1", token, nil, nil); code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", code)
	}
	if code := api.do(t, "DELETE", "/api/world/hostiles/wraith-1", token, nil, nil); code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d", code)
	}
}

func TestEventStream(t *testing.T) {
	api := newTestAPI(t, nil)
	adminToken, _ := api.signup(t, "overseer")
	token, playerID := api.signup(t, "ash_walker")
	api.do(t, "POST", "/api/wallet/grant", adminToken, grantRequest{PlayerID: playerID, Currency: models.CurrencyGold, Amount: 100}, nil)

	url := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/api/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	api.do(t, "POST", "/api/death", token, locationRequest{}, nil)

	var got []string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(got) < 2 {
		var ev struct {
			Type     string `json:"type"`
			PlayerID string `json:"player_id"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		if ev.PlayerID != playerID {
			t.Errorf("event for %s delivered to %s", ev.PlayerID, playerID)
		}
		got = append(got, ev.Type)
	}
	if len(got) < 2 {
		t.Fatalf("received %v, want echo and state events", got)
	}
	if got[0] != string(events.EchoCreated) {
		t.Errorf("first event = %s, want %s", got[0], events.EchoCreated)
	}
}
