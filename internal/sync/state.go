package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sourcepulse/cloudsync/internal/catalog"
)

// State carries the per-source-database sync cursors plus bookkeeping
// about the last push attempt.
//
// Each cursor is a monotonic watermark: the highest local row id already
// confirmed uploaded from that database. Cursors never regress across
// successful pushes; a full sync re-reads history but still only moves
// cursors forward.
//
// The caller owns the State between Push calls: Push reads it once,
// mutates a copy in memory, and hands the copy back. Persistence is the
// caller's job (LoadState/SaveState cover the common file case).
type State struct {
	// DriftCursor is the watermark for drift.db (primary source).
	DriftCursor int64 `json:"drift_cursor"`

	// BridgeCursor is the watermark for bridge.db (causal source).
	BridgeCursor int64 `json:"bridge_cursor"`

	// CortexCursor is the watermark for cortex.db (semantic source).
	CortexCursor int64 `json:"cortex_cursor"`

	// LastSyncAt records when the last push attempt finished, successful
	// or not. Nil until the first push.
	LastSyncAt *time.Time `json:"last_sync_at"`

	// LastSyncRowCount is the row total of the last push attempt.
	LastSyncRowCount int `json:"last_sync_row_count"`
}

// DefaultState returns the state of a machine that has never synced:
// all-zero cursors, no last-sync timestamp, zero rows.
func DefaultState() State {
	return State{}
}

// Cursor returns the watermark for a source database.
func (s State) Cursor(source catalog.Source) int64 {
	switch source {
	case catalog.SourcePrimary:
		return s.DriftCursor
	case catalog.SourceCausal:
		return s.BridgeCursor
	case catalog.SourceSemantic:
		return s.CortexCursor
	default:
		return 0
	}
}

// setCursor stores the watermark for a source database.
func (s *State) setCursor(source catalog.Source, v int64) {
	switch source {
	case catalog.SourcePrimary:
		s.DriftCursor = v
	case catalog.SourceCausal:
		s.BridgeCursor = v
	case catalog.SourceSemantic:
		s.CortexCursor = v
	}
}

// LoadState reads a state file written by SaveState.
//
// A missing file is not an error: it returns DefaultState so a fresh
// machine starts from zero cursors.
func LoadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultState(), nil
		}
		return State{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if s.DriftCursor < 0 || s.BridgeCursor < 0 || s.CortexCursor < 0 {
		return State{}, fmt.Errorf("state file %s has a negative cursor", path)
	}
	return s, nil
}

// SaveState writes the state file atomically (temp file + rename), so a
// crash mid-write never leaves a torn state behind.
func SaveState(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	_ = os.Chmod(tmpPath, 0644)

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
