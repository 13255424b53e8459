package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

func sample() []core.Subscription {
	return []core.Subscription{
		{Name: "Netflix", Category: "Video", Price: 49.99, Currency: "SAR", BillingCycle: core.Monthly,
			RenewalDate: core.NewDate(2024, 2, 15), IsActive: true},
		{Name: "IDE", Category: "Tools", Price: 1200, Currency: "SAR", BillingCycle: core.Yearly,
			RenewalDate: core.NewDate(2024, 9, 1), IsActive: true},
		{Name: "Gym", Category: "Sport", Price: 300, Currency: "SAR", BillingCycle: core.Monthly,
			RenewalDate: core.NewDate(2024, 3, 1)},
	}
}

func TestSubscriptions(t *testing.T) {
	var buf bytes.Buffer
	Subscriptions(&buf, sample(), Options{})
	out := buf.String()

	for _, want := range []string{"Netflix", "IDE", "PAUSED", "1,200.00 SAR", "Total (active)", "149.99", "1,799.88"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colour codes written with Color disabled")
	}
	if strings.Index(out, "Netflix") > strings.Index(out, "Gym") {
		t.Errorf("rows reordered")
	}
}

func TestSubscriptions_Color(t *testing.T) {
	text.EnableColors()
	var buf bytes.Buffer
	Subscriptions(&buf, sample(), Options{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI colours")
	}
}

func TestCategories(t *testing.T) {
	overview := core.ExpenseOverview{
		TotalMonthly: 200,
		ActiveCount:  3,
		ByCategory: []core.CategoryAmount{
			{Name: "Video", Count: 2, Total: 150},
			{Name: "Music", Count: 1, Total: 50},
		},
	}
	var buf bytes.Buffer
	Categories(&buf, overview, Options{})
	out := buf.String()

	for _, want := range []string{"Video", "150.00", "75.0%", "25.0%", "200.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenewals(t *testing.T) {
	rems := []services.Reminder{
		{Subscription: sample()[0], DaysUntil: 0, Urgency: services.UrgencyToday},
		{Subscription: sample()[1], DaysUntil: 12, Urgency: services.UrgencyUpcoming},
	}
	var buf bytes.Buffer
	Renewals(&buf, rems, Options{})
	out := buf.String()

	for _, want := range []string{"today", "upcoming", "2024-02-15", "49.99 SAR"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
