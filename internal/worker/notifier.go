package worker

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"subtrack/internal/amqp"
	"subtrack/internal/log"
)

// ReminderNotifier turns renewal reminder messages into notifications.
// Redelivered messages for a reminder already notified are acknowledged
// without notifying again.
type ReminderNotifier struct {
	out     io.Writer
	printer *message.Printer
	logger  *log.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewReminderNotifier writes one line per reminder to out. A nil out only logs.
func NewReminderNotifier(out io.Writer, logger *log.Logger) *ReminderNotifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderNotifier{
		out:     out,
		printer: message.NewPrinter(language.English),
		logger:  logger.WithComponent(log.ComponentWorker),
		seen:    make(map[string]struct{}),
	}
}

// HandleRenewalReminder processes a single reminder consumed from AMQP.
func (n *ReminderNotifier) HandleRenewalReminder(ctx context.Context, msg *amqp.RenewalReminderMessage) error {
	key := msg.SubscriptionID + "|" + msg.RenewalDate + "|" + msg.Urgency
	if n.alreadySeen(key) {
		n.logger.DebugContext(ctx, "Duplicate reminder skipped",
			log.FieldSubscriptionID, msg.SubscriptionID,
			log.FieldUrgency, msg.Urgency)
		return nil
	}

	line := n.Format(msg)
	if n.out != nil {
		if _, err := io.WriteString(n.out, line+"\n"); err != nil {
			return fmt.Errorf("write notification: %w", err)
		}
	}
	n.markSeen(key)

	n.logger.InfoContext(ctx, "Renewal reminder delivered",
		log.FieldSubscriptionID, msg.SubscriptionID,
		log.FieldName, msg.Name,
		log.FieldRenewalDate, msg.RenewalDate,
		log.FieldDaysUntil, msg.DaysUntil,
		log.FieldUrgency, msg.Urgency)
	return nil
}

// Format renders msg as a single human readable line.
func (n *ReminderNotifier) Format(msg *amqp.RenewalReminderMessage) string {
	var when string
	switch msg.DaysUntil {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	default:
		when = n.printer.Sprintf("in %d days", msg.DaysUntil)
	}
	return n.printer.Sprintf("[%s] %s renews %s (%s): %.2f %s %s via %s",
		msg.Urgency, msg.Name, when, msg.RenewalDate,
		msg.Price, msg.Currency, msg.BillingCycle, msg.PaymentMethod)
}

func (n *ReminderNotifier) alreadySeen(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.seen[key]
	return ok
}

func (n *ReminderNotifier) markSeen(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen[key] = struct{}{}
}
