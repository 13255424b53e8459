package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/storage"
	"subtrack/internal/storage/memory"
	"subtrack/internal/store"
)

var scanNow = time.Date(2024, 2, 12, 9, 30, 0, 0, time.UTC)

func storeOf(t *testing.T, subs ...core.Subscription) *store.Store {
	t.Helper()
	mem := memory.New()
	require.NoError(t, mem.Save(context.Background(), storage.Snapshot{
		Subscriptions: subs,
		Filter:        core.DefaultFilterState(),
	}))
	st := store.New(mem,
		store.WithClock(func() time.Time { return scanNow }),
		store.WithLogger(log.Discard()))
	require.NoError(t, st.Load(context.Background()))
	return st
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.RenewalReminderMessage
	fail map[string]error
}

func (p *fakePublisher) PublishRenewalReminder(_ context.Context, msg *amqp.RenewalReminderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[msg.SubscriptionID]; err != nil {
		return err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakeRecorder struct {
	reminders map[string]int
	scans     []error
}

func (r *fakeRecorder) ObserveReminder(urgency string) {
	if r.reminders == nil {
		r.reminders = map[string]int{}
	}
	r.reminders[urgency]++
}

func (r *fakeRecorder) ObserveScan(err error) { r.scans = append(r.scans, err) }

func sub(id string, renewal core.Date, active bool) core.Subscription {
	return core.Subscription{
		ID:           id,
		Name:         "sub-" + id,
		Price:        10,
		Currency:     core.DefaultCurrency,
		BillingCycle: core.Monthly,
		RenewalDate:  renewal,
		Category:     "Video",
		IsActive:     active,
	}
}

func fixture(t *testing.T) *store.Store {
	t.Helper()
	today := core.DateOf(scanNow)
	return storeOf(t,
		sub("later", today.AddDays(20), true),
		sub("today", today, true),
		sub("inactive", today.AddDays(1), false),
		sub("overdue", today.AddDays(-1), true),
		sub("tomorrow", today.AddDays(1), true),
		sub("beyond", today.AddDays(31), true),
		sub("urgent", today.AddDays(3), true),
	)
}

func TestReminderService_ScanWindowIsInclusive(t *testing.T) {
	today := core.DateOf(scanNow)
	pub := &fakePublisher{}
	svc := NewReminderService(storeOf(t,
		sub("edge", today.AddDays(7), true),
		sub("past-edge", today.AddDays(8), true),
	), pub, 7, nil)

	n, err := svc.Scan(context.Background(), scanNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "edge", pub.msgs[0].SubscriptionID)
	assert.Equal(t, "upcoming", pub.msgs[0].Urgency)
}

func TestReminderService_Scan(t *testing.T) {
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	svc := NewReminderService(fixture(t), pub, 30, nil).WithRecorder(rec)

	n, err := svc.Scan(context.Background(), scanNow)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, pub.msgs, 4)
	assert.Equal(t, "today", pub.msgs[0].SubscriptionID)
	assert.Equal(t, "today", pub.msgs[0].Urgency)
	assert.Equal(t, 0, pub.msgs[0].DaysUntil)
	assert.Equal(t, 1, rec.reminders["tomorrow"])
	assert.Equal(t, 1, rec.reminders["upcoming"])
	require.Len(t, rec.scans, 1)
	assert.NoError(t, rec.scans[0])
}

func TestReminderService_ScanRemindsOncePerUrgency(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewReminderService(fixture(t), pub, 30, nil)
	ctx := context.Background()

	n, err := svc.Scan(ctx, scanNow)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = svc.Scan(ctx, scanNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "same day rescan should not repeat reminders")

	// A day later "tomorrow" becomes "today" and "urgent" moves to two days.
	n, err = svc.Scan(ctx, scanNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	last := pub.msgs[len(pub.msgs)-1]
	assert.Equal(t, "tomorrow", last.SubscriptionID)
	assert.Equal(t, "today", last.Urgency)
}

func TestReminderService_ScanCollectsPublishErrors(t *testing.T) {
	boom := errors.New("broker down")
	pub := &fakePublisher{fail: map[string]error{"tomorrow": boom}}
	rec := &fakeRecorder{}
	svc := NewReminderService(fixture(t), pub, 30, nil).WithRecorder(rec)

	n, err := svc.Scan(context.Background(), scanNow)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, rec.scans[0], boom)

	// The failed reminder is retried on the next scan.
	pub.fail = nil
	n, err = svc.Scan(context.Background(), scanNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReminderService_NilPublisherLogsOnly(t *testing.T) {
	svc := NewReminderService(fixture(t), nil, 0, nil)
	assert.Equal(t, DefaultReminderWindowDays, svc.windowDays)

	n, err := svc.Scan(context.Background(), scanNow)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestReminderService_ScanStopsOnCancelledContext(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewReminderService(fixture(t), pub, 30, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := svc.Scan(ctx, scanNow)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, pub.msgs)
}

func TestReminderService_ForgetsPassedRenewals(t *testing.T) {
	svc := NewReminderService(fixture(t), &fakePublisher{}, 30, nil)
	_, err := svc.Scan(context.Background(), scanNow)
	require.NoError(t, err)
	require.Len(t, svc.sent, 4)

	_, err = svc.Scan(context.Background(), scanNow.Add(2*24*time.Hour))
	require.NoError(t, err)
	for key, renewal := range svc.sent {
		assert.GreaterOrEqual(t, renewal.Compare(core.DateOf(scanNow).AddDays(2)), 0, key)
	}
}

func TestAnnotate(t *testing.T) {
	today := core.DateOf(scanNow)
	got := Annotate([]core.Subscription{
		sub("b", today.AddDays(10), true),
		sub("old", today.AddDays(-3), true),
		sub("a", today.AddDays(1), false),
	}, today)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Subscription.ID)
	assert.Equal(t, UrgencyUpcoming, got[0].Urgency)
	assert.Equal(t, "a", got[1].Subscription.ID, "Annotate keeps order and does not filter inactive")
	assert.Equal(t, UrgencyTomorrow, got[1].Urgency)
}
