package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"subtrack/internal/core"
)

// RenewalReminderMessage announces that an active subscription renews soon.
// It carries everything a notifier needs, so consumers never read the store.
type RenewalReminderMessage struct {
	SubscriptionID string    `json:"subscriptionId"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Currency       string    `json:"currency"`
	BillingCycle   string    `json:"billingCycle"`
	PaymentMethod  string    `json:"paymentMethod"`
	RenewalDate    string    `json:"renewalDate"`
	DaysUntil      int       `json:"daysUntil"`
	Urgency        string    `json:"urgency"`
	Timestamp      time.Time `json:"timestamp"`
}

var errMissingSubscriptionID = errors.New("reminder message without subscription id")

// NewRenewalReminderMessage builds a reminder for sub.
func NewRenewalReminderMessage(sub core.Subscription, daysUntil int, urgency string) *RenewalReminderMessage {
	return &RenewalReminderMessage{
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		Price:          sub.Price,
		Currency:       sub.Currency,
		BillingCycle:   sub.BillingCycle.String(),
		PaymentMethod:  sub.PaymentMethod,
		RenewalDate:    sub.RenewalDate.String(),
		DaysUntil:      daysUntil,
		Urgency:        urgency,
		Timestamp:      time.Now(),
	}
}

func (m *RenewalReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RenewalReminderMessageFromJSON decodes a message and rejects one without
// a subscription id.
func RenewalReminderMessageFromJSON(data []byte) (*RenewalReminderMessage, error) {
	var msg RenewalReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SubscriptionID == "" {
		return nil, errMissingSubscriptionID
	}
	return &msg, nil
}
