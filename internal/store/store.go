// Package store holds the subscription collection and the list view's filter
// state, applies mutations and derives summaries from them.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/storage"
)

const maxIDAttempts = 8

// Recorder receives store metrics. *metrics.Metrics implements it.
type Recorder interface {
	ObserveMutation(op string, err error)
	ObserveCollection(total, active int, monthly float64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, error)       {}
func (nopRecorder) ObserveCollection(int, int, float64) {}

// Store is safe for concurrent use. Mutations are visible to queries as soon
// as they return, whatever the outcome of the save. Saves run in mutation
// order. Readers wait only while a commit holds the state lock, which
// includes waiting for an earlier save to finish.
type Store struct {
	mu      sync.RWMutex
	state   State
	version uint64

	persistMu sync.Mutex
	persister storage.Persister

	now     func() time.Time
	newID   func() string
	logger  *log.Logger
	events  *log.StructuredLogger
	metrics Recorder
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(r Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

// New returns a store holding the default collection. Call Load to replace
// it with the persisted snapshot.
func New(p storage.Persister, opts ...Option) *Store {
	s := &Store{
		state:     DefaultState(),
		persister: p,
		now:       time.Now,
		newID:     uuid.NewString,
		metrics:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentStore)
	s.events = log.NewStructuredLogger(s.logger)
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	return s
}

// Load replaces the state with the persisted snapshot. When nothing is
// stored the defaults stay in place. A corrupt snapshot also leaves the
// defaults in place and returns an error wrapping storage.ErrCorruptSnapshot.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.persister.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		s.logger.InfoContext(ctx, "No snapshot found, starting from defaults", log.FieldOperation, log.OpLoad)
		s.reset(DefaultState())
		return nil
	case errors.Is(err, storage.ErrCorruptSnapshot):
		s.logger.WarnContext(ctx, "Snapshot is corrupt, starting from defaults",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		s.reset(DefaultState())
		return fmt.Errorf("load snapshot: %w", err)
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.reset(stateFromSnapshot(snap))
	s.logger.InfoContext(ctx, "Snapshot loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldCount, len(snap.Subscriptions))
	return nil
}

func (s *Store) reset(st State) {
	s.mu.Lock()
	s.state = st
	s.version++
	s.mu.Unlock()
	s.metrics.ObserveCollection(len(st.Subscriptions), st.activeCount(), st.totalMonthly())
}

// Flush saves the current state again.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	snap := s.state.snapshot()
	s.persistMu.Lock()
	s.mu.RUnlock()
	defer s.persistMu.Unlock()

	if err := s.persister.Save(ctx, snap); err != nil {
		return &PersistError{Op: log.OpFlush, Err: err}
	}
	return nil
}

// Close waits for an in-flight save and closes the persister.
func (s *Store) Close() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.persister.Close()
}

// commit swaps in the state computed by fn and saves it. The state lock is
// released only after the persist lock is held, so saves keep mutation order.
func (s *Store) commit(ctx context.Context, op string, fn func(State) State) error {
	s.mu.Lock()
	next := fn(s.state)
	s.state = next
	s.version++
	snap := next.snapshot()
	s.persistMu.Lock()
	s.mu.Unlock()

	err := s.persister.Save(ctx, snap)
	s.persistMu.Unlock()

	s.metrics.ObserveMutation(op, err)
	s.metrics.ObserveCollection(len(next.Subscriptions), next.activeCount(), next.totalMonthly())
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to persist snapshot, change kept in memory",
			log.FieldOperation, op, log.FieldError, err)
		return &PersistError{Op: op, Err: err}
	}
	return nil
}

// AddSubscription appends a new record with a fresh id and createdAt =
// updatedAt = now. The input is not validated here.
func (s *Store) AddSubscription(ctx context.Context, in core.SubscriptionInput) (core.Subscription, error) {
	var sub core.Subscription
	err := s.commit(ctx, log.OpCreate, func(st State) State {
		sub = core.NewSubscription(s.uniqueID(st), in, s.now())
		return withAdded(st, sub)
	})
	s.events.LogSubscriptionChanged(ctx, log.OpCreate, sub.ID, sub.Name, sub.Category)
	return sub, err
}

func (s *Store) uniqueID(st State) string {
	for i := 0; i < maxIDAttempts; i++ {
		if id := s.newID(); id != "" && !st.has(id) {
			return id
		}
	}
	id := uuid.NewString()
	for st.has(id) {
		id = uuid.NewString()
	}
	return id
}

// UpdateSubscription merges patch into the record with id. An unknown id
// leaves the collection untouched; the snapshot is saved regardless.
func (s *Store) UpdateSubscription(ctx context.Context, id string, patch core.SubscriptionPatch) error {
	err := s.commit(ctx, log.OpUpdate, func(st State) State {
		return withUpdated(st, id, patch, s.now())
	})
	s.events.LogSubscriptionChanged(ctx, log.OpUpdate, id, "", "")
	return err
}

// DeleteSubscription removes the record with id, if present.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	err := s.commit(ctx, log.OpDelete, func(st State) State {
		return withDeleted(st, id)
	})
	s.events.LogSubscriptionChanged(ctx, log.OpDelete, id, "", "")
	return err
}

// ToggleSubscriptionStatus flips isActive on the record with id, if present.
func (s *Store) ToggleSubscriptionStatus(ctx context.Context, id string) error {
	err := s.commit(ctx, log.OpToggle, func(st State) State {
		return withToggled(st, id, s.now())
	})
	s.events.LogSubscriptionChanged(ctx, log.OpToggle, id, "", "")
	return err
}

func (s *Store) SetSearchTerm(ctx context.Context, term string) error {
	return s.setFilter(ctx, func(f *core.FilterState) { f.SearchTerm = term })
}

func (s *Store) SetFilterCategory(ctx context.Context, category string) error {
	return s.setFilter(ctx, func(f *core.FilterState) { f.FilterCategory = category })
}

func (s *Store) SetSortBy(ctx context.Context, by core.SortBy) error {
	return s.setFilter(ctx, func(f *core.FilterState) { f.SortBy = by })
}

func (s *Store) SetSortOrder(ctx context.Context, order core.SortOrder) error {
	return s.setFilter(ctx, func(f *core.FilterState) { f.SortOrder = order })
}

// SetFilter replaces the whole filter state in one save.
func (s *Store) SetFilter(ctx context.Context, f core.FilterState) error {
	return s.setFilter(ctx, func(cur *core.FilterState) { *cur = f })
}

func (s *Store) setFilter(ctx context.Context, edit func(*core.FilterState)) error {
	return s.commit(ctx, log.OpFilter, func(st State) State {
		f := st.Filter
		edit(&f)
		return withFilter(st, f)
	})
}

// FilteredSubscriptions returns the records matching the current search and
// category filter, sorted by the current sort key and order.
func (s *Store) FilteredSubscriptions() []core.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.filtered()
}

// TotalMonthlyExpense sums the monthly-normalised price of active records.
func (s *Store) TotalMonthlyExpense() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.totalMonthly()
}

// UpcomingRenewals returns active records renewing within days of today,
// both ends inclusive, earliest first.
func (s *Store) UpcomingRenewals(days int) []core.Subscription {
	return s.UpcomingRenewalsAt(s.Today(), days)
}

// UpcomingRenewalsAt is UpcomingRenewals counted from the given day instead
// of the store clock.
func (s *Store) UpcomingRenewalsAt(today core.Date, days int) []core.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.upcoming(today, days)
}

// CategorySummary groups active records by exact category.
func (s *Store) CategorySummary() core.CategorySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.categorySummary()
}

// Overview bundles totals and the sorted category breakdown.
func (s *Store) Overview() core.ExpenseOverview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.overview()
}

// Subscriptions returns a copy of the whole collection in insertion order.
func (s *Store) Subscriptions() []core.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot().Subscriptions
}

func (s *Store) Subscription(id string) (core.Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.index(id)
	if i < 0 {
		return core.Subscription{}, false
	}
	return s.state.Subscriptions[i], true
}

func (s *Store) Filter() core.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Filter
}

// Categories returns the distinct categories in first-seen order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.categories()
}

// Version changes whenever the state is replaced by a mutation or a load.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Today is the current calendar day according to the store clock.
func (s *Store) Today() core.Date {
	return core.DateOf(s.now())
}
