package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wnt/blinkwatch/internal/dashboard"
	"github.com/wnt/blinkwatch/internal/models"
)

// ErrMissingDSN is returned when no connection string is configured
var ErrMissingDSN = errors.New("database DSN is required")

// Connect opens a Postgres connection and migrates the schema
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	config := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// One writer per account at most
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.BalanceRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_balance_records_account_recorded_at ON balance_records(account, recorded_at DESC)").Error; err != nil {
		return fmt.Errorf("failed to create balance history index: %w", err)
	}

	return nil
}

// HistoryStore records one balance row per cycle with a successful balance fetch
type HistoryStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewHistoryStore creates a history store on db
func NewHistoryStore(db *gorm.DB, logger zerolog.Logger) *HistoryStore {
	return &HistoryStore{
		db:     db,
		logger: logger.With().Str("component", "balance_history").Logger(),
	}
}

func (s *HistoryStore) Name() string {
	return "postgres"
}

// Publish saves the snapshot's balances. Snapshots whose balance fetch failed
// are skipped; replaying a cycle ID is a no-op.
func (s *HistoryStore) Publish(ctx context.Context, snap *dashboard.Snapshot) error {
	if snap.BalanceErr != nil {
		s.logger.Debug().Str("account", snap.Account).Msg("Balance fetch failed, not recording history")
		return nil
	}
	return s.Save(ctx, RecordFromSnapshot(snap))
}

// RecordFromSnapshot maps a snapshot to its balance row
func RecordFromSnapshot(snap *dashboard.Snapshot) *models.BalanceRecord {
	return &models.BalanceRecord{
		Account:    snap.Account,
		BTCSats:    snap.Balances.BTC,
		USDCents:   snap.Balances.USD,
		CycleID:    snap.CycleID,
		RecordedAt: snap.TakenAt.UTC(),
	}
}

// Save inserts a record, ignoring duplicates of the same cycle
func (s *HistoryStore) Save(ctx context.Context, record *models.BalanceRecord) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "cycle_id"}}, DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to save balance record: %w", result.Error)
	}

	s.logger.Debug().
		Str("account", record.Account).
		Str("cycle_id", record.CycleID).
		Int64("rows", result.RowsAffected).
		Msg("Saved balance record")

	return nil
}

// Recent returns up to limit records of an account, newest first
func (s *HistoryStore) Recent(ctx context.Context, account string, limit int) ([]models.BalanceRecord, error) {
	var records []models.BalanceRecord
	err := s.db.WithContext(ctx).
		Where("account = ?", account).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	return records, nil
}

// Close closes the underlying connection pool
func (s *HistoryStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}
