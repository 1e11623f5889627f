package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrWindowMismatch is returned when saved progress belongs to a different
// window size; resuming would mix windows of two sizes.
var ErrWindowMismatch = errors.New("saved progress uses a different window size")

// StateStore persists the last fully aggregated event timestamp.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps progress in a local JSON file. WindowSeconds, when
// set, is recorded and checked on load.
type FileStateStore struct {
	Path          string
	WindowSeconds uint64
}

type fileState struct {
	LastProcessed uint64    `json:"last_processed_ts"`
	WindowSeconds uint64    `json:"window_seconds,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read state: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, false, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	if s.WindowSeconds != 0 && st.WindowSeconds != 0 && s.WindowSeconds != st.WindowSeconds {
		return 0, false, fmt.Errorf("%w: file has %ds, want %ds", ErrWindowMismatch, st.WindowSeconds, s.WindowSeconds)
	}
	return st.LastProcessed, true, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// truncated state file.
func (s *FileStateStore) Save(_ context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.Marshal(fileState{
		LastProcessed: ts,
		WindowSeconds: s.WindowSeconds,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.Path)
}
