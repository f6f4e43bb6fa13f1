package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"harmonia/internal/deathpenalty"
	"harmonia/internal/models"
	"harmonia/internal/repository"
)

func TestGroupWallets(t *testing.T) {
	entries := []models.WalletEntry{
		{PlayerID: "a", Currency: models.CurrencyGold, Amount: 1},
		{PlayerID: "a", Currency: models.CurrencySoulCrystals, Amount: 2},
		{PlayerID: "b", Currency: models.CurrencyGold, Amount: 3},
	}
	got := groupWallets(entries)
	if len(got) != 2 {
		t.Fatalf("groupWallets() = %+v", got)
	}
	if got[0].PlayerID != "a" || len(got[0].Balances) != 2 || got[1].Balances[0].Amount != 3 {
		t.Errorf("groupWallets() = %+v", got)
	}
	if groupWallets(nil) != nil {
		t.Error("groupWallets(nil) should be nil")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := openTestDB(t)
	playerID := createPlayer(t, src, "ash_walker")
	g := newGame(t, src, deathpenalty.DefaultConfig())
	if _, err := g.currency.Grant(playerID, models.CurrencyGold, 300); err != nil {
		t.Fatal(err)
	}
	if _, err := g.difficulty.Report(playerID, Report{Kind: ReportDeath}); err != nil {
		t.Fatal(err)
	}
	res, err := g.death.OnPlayerDeath(playerID, models.Vector{X: 1, Y: 2, Z: 3})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	backup, err := NewBackupService(src).ExportToWriter(&buf)
	if err != nil {
		t.Fatalf("ExportToWriter: %v", err)
	}
	if len(backup.Players) != 1 || len(backup.Metrics) != 1 || len(backup.Wallets) != 1 ||
		len(backup.DeathStates) != 1 || len(backup.Echoes) != 1 {
		t.Fatalf("backup = %+v", backup)
	}

	dst := openTestDB(t)
	createPlayer(t, dst, "stale_player")
	if err := NewBackupService(dst).ImportFromReader(bytes.NewReader(buf.Bytes()), true); err != nil {
		t.Fatalf("ImportFromReader: %v", err)
	}

	players, err := repository.NewPlayerRepository(dst).ListPlayers()
	if err != nil {
		t.Fatal(err)
	}
	if len(players) != 1 || players[0].ID != playerID {
		t.Errorf("players after import = %+v", players)
	}
	echo, err := repository.NewEchoRepository(dst).GetEcho(res.EchoID)
	if err != nil || echo == nil {
		t.Fatalf("GetEcho: %v, %v", echo, err)
	}
	if models.SumAmounts(echo.Currencies) != 150 || echo.Location.Z != 3 {
		t.Errorf("imported echo = %+v", echo)
	}
	balances, _ := repository.NewWalletRepository(dst).GetBalances(playerID)
	if models.SumAmounts(balances) != 150 {
		t.Errorf("imported balances = %+v", balances)
	}
	rec, _ := repository.NewMetricsRepository(dst).GetMetrics(playerID)
	if rec == nil || !json.Valid(rec.Data) {
		t.Errorf("imported metrics = %+v", rec)
	}
	st, _ := repository.NewDeathStateRepository(dst).GetState(playerID)
	if st == nil || st.EchoID != res.EchoID {
		t.Errorf("imported state = %+v", st)
	}

	// importing again without clearing skips the existing player
	if err := NewBackupService(dst).ImportFromReader(bytes.NewReader(buf.Bytes()), false); err != nil {
		t.Errorf("second import: %v", err)
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	db := openTestDB(t)
	err := NewBackupService(db).ImportFromReader(strings.NewReader(`{"version":"9"}`), false)
	if err == nil {
		t.Error("unknown version accepted")
	}
}
