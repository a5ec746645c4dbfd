// ============================================================================
// readpulse History - Run history store
// ============================================================================
//
// Package: internal/history
// File: history.go
// Purpose: Persists each run's final statistics to a JSON file so past
// sessions can be inspected with the history command.
//
// The file holds an array of RunStats, oldest first, pruned to a
// retention count on every append. Writes go through a temp file and
// rename so a crash mid-write never corrupts existing records.
// Persistence is best-effort: the orchestrator logs append failures
// and moves on.
//
// ============================================================================

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/luyichen/readpulse/pkg/types"
)

// Store reads and appends run records at a fixed path.
type Store struct {
	path      string
	retention int
}

// NewStore creates a store. retention <= 0 keeps every record.
func NewStore(path string, retention int) *Store {
	return &Store{path: path, retention: retention}
}

// List returns all stored records, oldest first. A missing file is an
// empty history, not an error.
func (s *Store) List() ([]types.RunStats, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var records []types.RunStats
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	return records, nil
}

// Append adds one record, prunes to the retention count, and rewrites
// the file atomically.
func (s *Store) Append(stats types.RunStats) error {
	records, err := s.List()
	if err != nil {
		// A corrupt file should not block new runs from recording.
		records = nil
	}

	records = append(records, stats)
	if s.retention > 0 && len(records) > s.retention {
		records = records[len(records)-s.retention:]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing history file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}
