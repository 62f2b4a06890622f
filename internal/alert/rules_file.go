package alert

import (
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

// ruleSet is the on-disk document. Versioned, indented JSON so the
// rules file stays human-diffable.
type ruleSet struct {
	Version int                `json:"version"`
	Rules   []domain.AlertRule `json:"rules"`
}

const ruleSetVersion = 1

// RulesFile persists the alert rule set. A file that fails to parse is
// backed up and replaced with an empty set; loading never fails hard.
type RulesFile struct {
	path string
}

// NewRulesFile creates a rules file at the given path, or at the
// default location under the user data dir when path is empty.
func NewRulesFile(path string) (*RulesFile, error) {
	if path == "" {
		dataDir, err := infra.DataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data dir: %w", err)
		}
		path = filepath.Join(dataDir, "alerts.json")
	}
	return &RulesFile{path: path}, nil
}

// Path returns the backing file path.
func (f *RulesFile) Path() string {
	return f.path
}

// Load reads the rule set from disk. A missing file yields an empty
// set; a corrupt file is backed up, a warning is logged, and an empty
// set is returned.
func (f *RulesFile) Load() ([]domain.AlertRule, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var set ruleSet
	if err := json.Unmarshal(data, &set); err != nil {
		backup := backupCorrupt(f.path, data)
		slog.Warn("Alert rules file unreadable, starting with empty set",
			slog.String("path", f.path),
			slog.String("backup", backup),
			slog.Any("error", err))
		return nil, nil
	}

	kept := set.Rules[:0]
	for _, r := range set.Rules {
		if !r.Kind.Valid() {
			slog.Warn("Dropping rule with unknown kind",
				slog.String("id", r.ID),
				slog.String("kind", string(r.Kind)))
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// Save writes the rule set atomically (temp file + rename) so a crash
// mid-write never corrupts the previous good copy.
func (f *RulesFile) Save(rules []domain.AlertRule) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create rules dir: %w", err)
	}

	set := ruleSet{Version: ruleSetVersion, Rules: rules}
	data, err := json.MarshalIndent(&set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// backupCorrupt moves unreadable bytes aside and returns the backup path.
func backupCorrupt(path string, data []byte) string {
	backup := fmt.Sprintf("%s.corrupt.%d.bak", path, time.Now().Unix())
	if err := os.WriteFile(backup, data, 0644); err != nil {
		slog.Warn("Failed to back up corrupt file", slog.Any("error", err))
		return ""
	}
	return backup
}
