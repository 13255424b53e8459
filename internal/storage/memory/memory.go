package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"subtrack/internal/storage"
)

// Store keeps the encoded snapshot in process memory. It goes through the
// same codec as the durable backends so corrupt payloads behave alike.
type Store struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
}

func New() *Store {
	return &Store{}
}

// NewFromFile seeds the store with an encoded snapshot read from path.
// A missing or unreadable seed leaves the store empty.
func NewFromFile(path string) *Store {
	s := New()
	b, err := os.ReadFile(path)
	if err != nil || len(b) == 0 {
		return s
	}
	s.data = b
	return s
}

// Load implements storage.Persister.
func (s *Store) Load(ctx context.Context) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	s.mu.Lock()
	data := append([]byte(nil), s.data...)
	s.mu.Unlock()

	if len(data) == 0 {
		return storage.Snapshot{}, storage.ErrNoSnapshot
	}
	return storage.Decode(data)
}

// Save implements storage.Persister.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := storage.Encode(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return fmt.Errorf("memory save: %w", s.saveErr)
	}
	s.data = b
	s.saves++
	return nil
}

func (s *Store) Close() error { return nil }

// Put replaces the stored payload with raw bytes, bypassing the codec.
func (s *Store) Put(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), raw...)
}

// Raw returns a copy of the stored payload.
func (s *Store) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Saves returns the number of successful saves.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailSaves makes every following Save return err. A nil err restores
// normal behaviour.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// ErrUnavailable is a convenience error for simulating a broken backend.
var ErrUnavailable = errors.New("storage unavailable")
