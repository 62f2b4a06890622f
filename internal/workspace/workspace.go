package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"
)

const snapshotVersion = 1

// Snapshot holds the last-viewed navigation state. It is replaced
// whole on every save, never merged.
type Snapshot struct {
	Version         int                 `json:"version"`
	SavedAtUnix     int64               `json:"saved_at_unix"`
	LastView        string              `json:"last_view,omitempty"` // "watchlist", "stock", "portfolio"
	WatchlistGroup  string              `json:"watchlist_group,omitempty"`
	WatchlistSort   string              `json:"watchlist_sort,omitempty"` // "", "change", "volume", "name"
	SelectedSymbol  domain.Instrument   `json:"selected_symbol,omitempty"`
	DetailSymbol    domain.Instrument   `json:"detail_symbol,omitempty"`
	CandlePeriod    domain.CandlePeriod `json:"candle_period,omitempty"`
	CandleOffset    int                 `json:"candle_offset"`
	LogPanelVisible bool                `json:"log_panel_visible"`
}

// DefaultSnapshot returns the state used on first run or after a
// corrupt file reset.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Version:      snapshotVersion,
		LastView:     "watchlist",
		CandlePeriod: domain.PeriodDay,
	}
}

// Store persists the workspace snapshot to a single JSON file.
type Store struct {
	path string
}

// NewStore creates a workspace store at the given path, or at the
// default location under the user data dir when path is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		dataDir, err := infra.DataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data dir: %w", err)
		}
		path = filepath.Join(dataDir, "workspace.json")
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. Missing or corrupt files yield the default
// snapshot; a corrupt file is backed up first. Load never fails startup.
func (s *Store) Load() Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to read workspace file", slog.Any("error", err))
		}
		return DefaultSnapshot()
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		backup := fmt.Sprintf("%s.corrupt.%d.bak", s.path, time.Now().Unix())
		if werr := os.WriteFile(backup, data, 0644); werr != nil {
			backup = ""
		}
		slog.Warn("Workspace file unreadable, resetting to defaults",
			slog.String("path", s.path),
			slog.String("backup", backup),
			slog.Any("error", err))
		return DefaultSnapshot()
	}

	if !snap.CandlePeriod.Valid() {
		snap.CandlePeriod = domain.PeriodDay
	}
	return snap
}

// Save writes the snapshot atomically. Intended for shutdown: the
// context bounds how long the write may block process exit.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	snap.Version = snapshotVersion
	snap.SavedAtUnix = time.Now().Unix()

	done := make(chan error, 1)
	go func() {
		done <- s.write(snap)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("workspace save: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

func (s *Store) write(snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create workspace dir: %w", err)
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	return os.Rename(tmp, s.path)
}
