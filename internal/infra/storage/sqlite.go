package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage defines the interface for data persistence
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance
func NewStorage() (*Storage, error) {
	dataDir, err := infra.DataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, "data", "terminal.db")

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.InstrumentInfo{}, &domain.AlertEventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Instrument Operations
// ======================================================================================

// UpsertInstrument creates or updates instrument metadata
func (s *Storage) UpsertInstrument(info *domain.InstrumentInfo) error {
	return s.db.Save(info).Error
}

// GetInstrument retrieves instrument metadata by symbol
func (s *Storage) GetInstrument(symbol string) (*domain.InstrumentInfo, error) {
	var info domain.InstrumentInfo
	err := s.db.First(&info, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &info, err
}

// GetAllInstruments retrieves all instrument metadata
func (s *Storage) GetAllInstruments() ([]domain.InstrumentInfo, error) {
	var infos []domain.InstrumentInfo
	err := s.db.Find(&infos).Error
	return infos, err
}

// ToggleFavorite toggles the favorite status of an instrument
func (s *Storage) ToggleFavorite(symbol string) (bool, error) {
	var info domain.InstrumentInfo
	if err := s.db.First(&info, "symbol = ?", symbol).Error; err != nil {
		return false, err
	}

	info.IsFavorite = !info.IsFavorite
	err := s.db.Save(&info).Error
	return info.IsFavorite, err
}

// ======================================================================================
// Alert Event Log (append-only)
// ======================================================================================

// AppendAlertEvent inserts one fired alert into the durable event log.
// The log is never updated or truncated by the engine.
func (s *Storage) AppendAlertEvent(ev *domain.AlertEvent) error {
	rec := domain.AlertEventRecord{
		ID:         ev.ID,
		RuleID:     ev.RuleID,
		Instrument: ev.Instrument.String(),
		Kind:       string(ev.Kind),
		Threshold:  ev.Threshold.String(),
		Value:      ev.Value.String(),
		FiredAt:    ev.FiredAt,
	}
	return s.db.Create(&rec).Error
}

// RecentAlertEvents returns the most recent fired alerts, newest first.
func (s *Storage) RecentAlertEvents(limit int) ([]domain.AlertEventRecord, error) {
	var recs []domain.AlertEventRecord
	err := s.db.Order("fired_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// AlertEventsSince returns fired alerts at or after the given time, oldest first.
func (s *Storage) AlertEventsSince(since time.Time) ([]domain.AlertEventRecord, error) {
	var recs []domain.AlertEventRecord
	err := s.db.Where("fired_at >= ?", since).Order("fired_at asc").Find(&recs).Error
	return recs, err
}
