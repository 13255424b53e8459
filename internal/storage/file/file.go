// Package file stores the snapshot as a JSON document in a data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"subtrack/internal/log"
	"subtrack/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	dir    string
	path   string
	now    func() time.Time
	logger *log.Logger
}

// New creates the data directory if needed and returns a store writing to
// <dir>/subscription-store.json. A nil logger discards output.
func New(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{
		dir:    dir,
		path:   filepath.Join(dir, storage.StoreKey+".json"),
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot file. A file that fails to decode is renamed to
// <path>.corrupt-<unix> so the next save starts clean, and the decode error
// is returned.
func (s *Store) Load(ctx context.Context) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.Snapshot{}, storage.ErrNoSnapshot
		}
		return storage.Snapshot{}, fmt.Errorf("read snapshot %q: %w", s.path, err)
	}

	snap, err := storage.Decode(data)
	if err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			s.logger.WarnContext(ctx, "Failed to move corrupt snapshot aside",
				log.FieldPath, s.path, log.FieldError, renameErr)
		} else {
			s.logger.WarnContext(ctx, "Moved corrupt snapshot aside",
				log.FieldPath, s.path, "moved_to", aside)
		}
		return storage.Snapshot{}, err
	}
	return snap, nil
}

// Save writes the snapshot to a temp file and renames it over the old one.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		renameErr := fmt.Errorf("rename %q to %q: %w", tmpPath, s.path, err)
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			return errors.Join(renameErr, fmt.Errorf("remove temp file %q: %w", tmpPath, removeErr))
		}
		return renameErr
	}
	return nil
}

func (s *Store) Close() error { return nil }
