package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/log"
)

// DefaultReminderWindowDays is how far ahead Scan looks when no window is set.
const DefaultReminderWindowDays = 30

// SubscriptionSource is the read side of the store the reminder scan needs.
// *store.Store implements it.
type SubscriptionSource interface {
	UpcomingRenewalsAt(today core.Date, days int) []core.Subscription
}

// ReminderPublisher delivers renewal reminders. *amqp.Client satisfies it.
type ReminderPublisher interface {
	PublishRenewalReminder(ctx context.Context, msg *amqp.RenewalReminderMessage) error
}

// ReminderRecorder receives scan metrics. *metrics.Metrics satisfies it.
type ReminderRecorder interface {
	ObserveReminder(urgency string)
	ObserveScan(err error)
}

type nopReminderRecorder struct{}

func (nopReminderRecorder) ObserveReminder(string) {}
func (nopReminderRecorder) ObserveScan(error)      {}

// Reminder is one upcoming renewal with its classification.
type Reminder struct {
	Subscription core.Subscription `json:"subscription"`
	DaysUntil    int               `json:"daysUntil"`
	Urgency      Urgency           `json:"urgency"`
}

// ReminderService scans the collection for upcoming renewals and publishes
// one reminder per subscription and urgency level.
type ReminderService struct {
	source     SubscriptionSource
	publisher  ReminderPublisher
	recorder   ReminderRecorder
	logger     *log.Logger
	windowDays int

	mu   sync.Mutex
	sent map[string]core.Date
}

// NewReminderService creates a reminder service. A nil publisher only logs
// the reminders it would have sent.
func NewReminderService(source SubscriptionSource, publisher ReminderPublisher, windowDays int, logger *log.Logger) *ReminderService {
	if windowDays <= 0 {
		windowDays = DefaultReminderWindowDays
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderService{
		source:     source,
		publisher:  publisher,
		recorder:   nopReminderRecorder{},
		logger:     logger.WithComponent(log.ComponentReminder),
		windowDays: windowDays,
		sent:       make(map[string]core.Date),
	}
}

// WithRecorder sets the metrics sink and returns the service.
func (s *ReminderService) WithRecorder(r ReminderRecorder) *ReminderService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Annotate attaches days-until and urgency to subs, keeping their order.
// Overdue records are dropped.
func Annotate(subs []core.Subscription, today core.Date) []Reminder {
	out := make([]Reminder, 0, len(subs))
	for _, sub := range subs {
		n := DaysUntil(today, sub.RenewalDate)
		urgency, err := ClassifyUrgency(n)
		if err != nil {
			continue
		}
		out = append(out, Reminder{Subscription: sub, DaysUntil: n, Urgency: urgency})
	}
	return out
}

// Scan publishes reminders for renewals inside the window and returns how
// many were published. A subscription is reminded once per renewal date and
// urgency level for the life of the service. Publish failures are collected;
// the remaining reminders are still attempted.
func (s *ReminderService) Scan(ctx context.Context, now time.Time) (int, error) {
	today := core.DateOf(now)
	due := Annotate(s.source.UpcomingRenewalsAt(today, s.windowDays), today)
	s.forgetBefore(today)

	s.logger.DebugContext(ctx, "Scanning renewals",
		log.FieldOperation, log.OpScan,
		log.FieldCount, len(due),
		"window_days", s.windowDays,
		"today", today.String())

	published := 0
	var errs []error
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		key := reminderKey(r)
		if s.wasSent(key) {
			continue
		}

		if err := s.publish(ctx, r); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish renewal reminder",
				log.FieldSubscriptionID, r.Subscription.ID,
				log.FieldUrgency, r.Urgency.String(),
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("remind %s: %w", r.Subscription.ID, err))
			continue
		}

		s.markSent(key, r.Subscription.RenewalDate)
		s.recorder.ObserveReminder(r.Urgency.String())
		published++
	}

	err := errors.Join(errs...)
	s.recorder.ObserveScan(err)
	if published > 0 {
		s.logger.InfoContext(ctx, "Renewal reminders published",
			log.FieldOperation, log.OpScan,
			log.FieldCount, published)
	}
	return published, err
}

func (s *ReminderService) publish(ctx context.Context, r Reminder) error {
	msg := amqp.NewRenewalReminderMessage(r.Subscription, r.DaysUntil, r.Urgency.String())
	if s.publisher == nil {
		s.logger.InfoContext(ctx, "Renewal reminder (no publisher configured)",
			log.FieldSubscriptionID, msg.SubscriptionID,
			log.FieldName, msg.Name,
			log.FieldRenewalDate, msg.RenewalDate,
			log.FieldDaysUntil, msg.DaysUntil,
			log.FieldUrgency, msg.Urgency)
		return nil
	}
	return s.publisher.PublishRenewalReminder(ctx, msg)
}

func reminderKey(r Reminder) string {
	return r.Subscription.ID + "|" + r.Subscription.RenewalDate.String() + "|" + r.Urgency.String()
}

func (s *ReminderService) wasSent(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[key]
	return ok
}

func (s *ReminderService) markSent(key string, renewal core.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[key] = renewal
}

// forgetBefore drops bookkeeping for renewals that have already passed.
func (s *ReminderService) forgetBefore(today core.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, renewal := range s.sent {
		if renewal.Compare(today) < 0 {
			delete(s.sent, key)
		}
	}
}
