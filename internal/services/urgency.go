// Package services provides business logic built on top of the subscription store.
//
// This file implements the Strategy Pattern for renewal urgency. Each urgency
// level has a rule that decides whether a renewal, a given number of calendar
// days away, belongs to it. Rules are checked in registration order.

package services

import (
	"errors"
	"fmt"

	"subtrack/internal/core"
)

type Urgency string

const (
	UrgencyToday    Urgency = "today"
	UrgencyTomorrow Urgency = "tomorrow"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyUpcoming Urgency = "upcoming"
)

func (u Urgency) String() string { return string(u) }

// ErrOverdue is returned when classifying a renewal date already in the past.
var ErrOverdue = errors.New("renewal date is in the past")

// UrgencyRule is the strategy interface for one urgency level.
type UrgencyRule interface {
	// Applies reports whether a renewal daysUntil days away has this urgency.
	Applies(daysUntil int) bool
}

// TodayRule matches renewals due on the current day.
type TodayRule struct{}

func (TodayRule) Applies(daysUntil int) bool { return daysUntil == 0 }

// TomorrowRule matches renewals due on the next day.
type TomorrowRule struct{}

func (TomorrowRule) Applies(daysUntil int) bool { return daysUntil == 1 }

// WithinRule matches renewals due in at most Days days.
type WithinRule struct {
	Days int
}

func (r WithinRule) Applies(daysUntil int) bool { return daysUntil <= r.Days }

// AnyRule matches everything and closes the chain.
type AnyRule struct{}

func (AnyRule) Applies(int) bool { return true }

type urgencyStrategy struct {
	urgency Urgency
	rule    UrgencyRule
}

var urgencyStrategies = []urgencyStrategy{
	{UrgencyToday, TodayRule{}},
	{UrgencyTomorrow, TomorrowRule{}},
	{UrgencyUrgent, WithinRule{Days: 3}},
	{UrgencyUpcoming, AnyRule{}},
}

// ClassifyUrgency returns the first urgency whose rule applies.
func ClassifyUrgency(daysUntil int) (Urgency, error) {
	if daysUntil < 0 {
		return "", fmt.Errorf("%w: %d days ago", ErrOverdue, -daysUntil)
	}
	for _, s := range urgencyStrategies {
		if s.rule.Applies(daysUntil) {
			return s.urgency, nil
		}
	}
	return "", fmt.Errorf("no urgency rule for %d days", daysUntil)
}

// RegisterUrgencyRule inserts a rule ahead of the existing ones, or replaces
// the rule of an urgency already registered in place.
// It is not safe to call concurrently with ClassifyUrgency.
func RegisterUrgencyRule(u Urgency, rule UrgencyRule) {
	for i := range urgencyStrategies {
		if urgencyStrategies[i].urgency == u {
			urgencyStrategies[i].rule = rule
			return
		}
	}
	urgencyStrategies = append([]urgencyStrategy{{u, rule}}, urgencyStrategies...)
}

// DaysUntil counts whole calendar days from today to renewal. Negative
// values mean the renewal date has passed.
func DaysUntil(today, renewal core.Date) int {
	return today.DaysUntil(renewal)
}
