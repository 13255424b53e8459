package storage

import (
	"context"
	"errors"

	"subtrack/internal/core"
)

// StoreKey identifies the subscription store snapshot in every backend.
const StoreKey = "subscription-store"

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrCorruptSnapshot wraps decode and schema failures of a stored snapshot.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Snapshot is the persisted part of the store: the whole collection in
// insertion order plus the filter and sort selection.
type Snapshot struct {
	Subscriptions []core.Subscription
	Filter        core.FilterState
}

// Persister is the outbound port for durable local storage.
type Persister interface {
	// Load returns ErrNoSnapshot on first run and an ErrCorruptSnapshot
	// wrapped error when stored data cannot be decoded.
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}
