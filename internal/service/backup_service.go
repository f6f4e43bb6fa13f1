package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"harmonia/internal/database"
	"harmonia/internal/models"
	"harmonia/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string              `json:"version"`
	ExportedAt   time.Time           `json:"exported_at"`
	DatabaseType string              `json:"database_type"`
	Players      []PlayerBackup      `json:"players"`
	Metrics      []MetricsBackup     `json:"metrics"`
	Wallets      []WalletBackup      `json:"wallets"`
	DeathStates  []models.DeathState `json:"death_states"`
	Echoes       []models.EchoRecord `json:"echoes"`
}

// PlayerBackup represents a player record for backup
type PlayerBackup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// MetricsBackup carries the stored metrics document unchanged
type MetricsBackup struct {
	PlayerID    string          `json:"player_id"`
	Data        json.RawMessage `json:"data"`
	SkillRating float64         `json:"skill_rating"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WalletBackup is one player's balances
type WalletBackup struct {
	PlayerID string                  `json:"player_id"`
	Balances []models.CurrencyAmount `json:"balances"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(file)
	if err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	log.Printf("Exported: %d players, %d metrics, %d wallets, %d death states, %d echoes",
		len(backup.Players), len(backup.Metrics), len(backup.Wallets),
		len(backup.DeathStates), len(backup.Echoes))
	return nil
}

// ExportToWriter writes the backup as indented JSON to w and returns what was written
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup, err := s.collect()
	if err != nil {
		return nil, err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) collect() (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
	}

	players, err := repository.NewPlayerRepository(s.db).ListPlayers()
	if err != nil {
		return nil, fmt.Errorf("failed to export players: %w", err)
	}
	for _, p := range players {
		backup.Players = append(backup.Players, PlayerBackup{
			ID:           p.ID,
			Name:         p.Name,
			PasswordHash: p.PasswordHash,
			IsAdmin:      p.IsAdmin,
			CreatedAt:    p.CreatedAt,
		})
	}

	metrics, err := repository.NewMetricsRepository(s.db).ListMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to export metrics: %w", err)
	}
	for _, m := range metrics {
		backup.Metrics = append(backup.Metrics, MetricsBackup{
			PlayerID:    m.PlayerID,
			Data:        json.RawMessage(m.Data),
			SkillRating: m.SkillRating,
			UpdatedAt:   m.UpdatedAt,
		})
	}

	entries, err := repository.NewWalletRepository(s.db).ListEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to export wallets: %w", err)
	}
	backup.Wallets = groupWallets(entries)

	if backup.DeathStates, err = repository.NewDeathStateRepository(s.db).ListStates(); err != nil {
		return nil, fmt.Errorf("failed to export death states: %w", err)
	}
	if backup.Echoes, err = repository.NewEchoRepository(s.db).ListEchoes(); err != nil {
		return nil, fmt.Errorf("failed to export echoes: %w", err)
	}
	return backup, nil
}

// groupWallets folds entries, ordered by player, into one record per player
func groupWallets(entries []models.WalletEntry) []WalletBackup {
	var out []WalletBackup
	for _, e := range entries {
		if len(out) == 0 || out[len(out)-1].PlayerID != e.PlayerID {
			out = append(out, WalletBackup{PlayerID: e.PlayerID})
		}
		last := &out[len(out)-1]
		last.Balances = append(last.Balances, models.CurrencyAmount{Type: e.Currency, Amount: e.Amount})
	}
	return out
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string, clear bool) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file, clear)
}

// ImportFromReader restores a database from a backup reader in one transaction.
// With clear set, all existing player data is removed first; otherwise players
// that already exist are skipped together with their state.
func (s *BackupService) ImportFromReader(reader io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		if clear {
			if err := clearPlayerData(tx); err != nil {
				return err
			}
		}
		imported, err := importPlayers(tx, backup.Players)
		if err != nil {
			return err
		}
		return importPlayerState(tx, &backup, imported)
	})
	if err != nil {
		return err
	}
	log.Println("Database import completed successfully")
	return nil
}

func clearPlayerData(tx *database.Tx) error {
	// children first so dialects without cascading deletes succeed
	for _, table := range []string{"memory_echoes", "death_states", "wallets", "performance_metrics", "players"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing player data")
	return nil
}

func importPlayers(tx *database.Tx, players []PlayerBackup) (map[string]bool, error) {
	log.Printf("Importing %d players...", len(players))
	repo := repository.NewPlayerRepository(tx)
	imported := make(map[string]bool, len(players))
	for _, p := range players {
		existing, err := repo.GetPlayerByID(p.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Printf("Warning: player %s (%s) already exists, skipping", p.ID, p.Name)
			continue
		}
		err = repo.CreatePlayer(&models.Player{
			ID:           p.ID,
			Name:         p.Name,
			PasswordHash: p.PasswordHash,
			IsAdmin:      p.IsAdmin,
			CreatedAt:    p.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to import player %s: %w", p.ID, err)
		}
		imported[p.ID] = true
	}
	return imported, nil
}

func importPlayerState(tx *database.Tx, backup *BackupData, imported map[string]bool) error {
	metricsRepo := repository.NewMetricsRepository(tx)
	for _, m := range backup.Metrics {
		if !imported[m.PlayerID] {
			continue
		}
		err := metricsRepo.SaveMetrics(models.MetricsRecord{
			PlayerID:    m.PlayerID,
			Data:        []byte(m.Data),
			SkillRating: m.SkillRating,
			UpdatedAt:   m.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to import metrics for %s: %w", m.PlayerID, err)
		}
	}

	walletRepo := repository.NewWalletRepository(tx)
	for _, w := range backup.Wallets {
		if !imported[w.PlayerID] {
			continue
		}
		if err := walletRepo.SaveBalances(w.PlayerID, w.Balances); err != nil {
			return fmt.Errorf("failed to import wallet for %s: %w", w.PlayerID, err)
		}
	}

	stateRepo := repository.NewDeathStateRepository(tx)
	for _, st := range backup.DeathStates {
		if !imported[st.PlayerID] {
			continue
		}
		if err := stateRepo.SaveState(st); err != nil {
			return fmt.Errorf("failed to import death state for %s: %w", st.PlayerID, err)
		}
	}

	echoRepo := repository.NewEchoRepository(tx)
	for _, e := range backup.Echoes {
		if !imported[e.OwnerID] {
			continue
		}
		if err := echoRepo.SaveEcho(e); err != nil {
			return fmt.Errorf("failed to import echo %s: %w", e.ID, err)
		}
	}

	log.Printf("Imported state for %d players", len(imported))
	return nil
}
