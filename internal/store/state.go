package store

import (
	"slices"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

// State is the whole store content. Transitions return a new State and
// never modify the receiver's slice.
type State struct {
	Subscriptions []core.Subscription
	Filter        core.FilterState
}

// DefaultState is what a first run starts from.
func DefaultState() State {
	return State{
		Subscriptions: core.DefaultSubscriptions(),
		Filter:        core.DefaultFilterState(),
	}
}

func stateFromSnapshot(snap storage.Snapshot) State {
	return State{
		Subscriptions: slices.Clone(snap.Subscriptions),
		Filter:        snap.Filter,
	}
}

func (st State) snapshot() storage.Snapshot {
	return storage.Snapshot{
		Subscriptions: slices.Clone(st.Subscriptions),
		Filter:        st.Filter,
	}
}

func (st State) index(id string) int {
	return slices.IndexFunc(st.Subscriptions, func(s core.Subscription) bool { return s.ID == id })
}

func (st State) has(id string) bool {
	return st.index(id) >= 0
}

func withAdded(st State, sub core.Subscription) State {
	subs := make([]core.Subscription, 0, len(st.Subscriptions)+1)
	subs = append(subs, st.Subscriptions...)
	st.Subscriptions = append(subs, sub)
	return st
}

// withUpdated merges patch over the record with id. updatedAt is refreshed
// even when the patch changes nothing. An absent id returns st unchanged.
func withUpdated(st State, id string, patch core.SubscriptionPatch, now time.Time) State {
	return replaceAt(st, id, func(sub core.Subscription) core.Subscription {
		sub = patch.ApplyTo(sub)
		sub.UpdatedAt = laterOf(sub.UpdatedAt, now)
		return sub
	})
}

func withToggled(st State, id string, now time.Time) State {
	return replaceAt(st, id, func(sub core.Subscription) core.Subscription {
		sub.IsActive = !sub.IsActive
		sub.UpdatedAt = laterOf(sub.UpdatedAt, now)
		return sub
	})
}

func withDeleted(st State, id string) State {
	i := st.index(id)
	if i < 0 {
		return st
	}
	st.Subscriptions = slices.Delete(slices.Clone(st.Subscriptions), i, i+1)
	return st
}

func withFilter(st State, f core.FilterState) State {
	st.Filter = f
	return st
}

func replaceAt(st State, id string, fn func(core.Subscription) core.Subscription) State {
	i := st.index(id)
	if i < 0 {
		return st
	}
	subs := slices.Clone(st.Subscriptions)
	subs[i] = fn(subs[i])
	st.Subscriptions = subs
	return st
}

// laterOf keeps updatedAt from moving backwards when the clock does.
func laterOf(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
