// Package report renders subscriptions, category totals and upcoming
// renewals as terminal tables.
package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

// Options controls table rendering.
type Options struct {
	// Color enables ANSI colours for status and urgency cells.
	Color bool
	// Language selects number grouping. Zero value means English.
	Language language.Tag
}

type renderer struct {
	w       io.Writer
	opts    Options
	printer *message.Printer
}

func newRenderer(w io.Writer, opts Options) *renderer {
	tag := opts.Language
	if tag == language.Und {
		tag = language.English
	}
	return &renderer{w: w, opts: opts, printer: message.NewPrinter(tag)}
}

func (r *renderer) amount(v float64) string {
	return r.printer.Sprintf("%.2f", core.RoundCents(v))
}

func (r *renderer) paint(c text.Colors, s string) string {
	if !r.opts.Color {
		return s
	}
	return c.Sprint(s)
}

func (r *renderer) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// Subscriptions renders subs in the given order with a footer holding the
// monthly and yearly totals of the active ones.
func Subscriptions(w io.Writer, subs []core.Subscription, opts Options) {
	r := newRenderer(w, opts)
	t := r.table()
	t.AppendHeader(table.Row{"Name", "Category", "Status", "Cycle", "Price", "Renewal", "Monthly", "Yearly"})

	var monthly, yearly float64
	for _, s := range subs {
		status := r.paint(text.Colors{text.FgGreen}, "ACTIVE")
		yearlyCell := r.amount(s.YearlyPrice())
		if !s.IsActive {
			status = r.paint(text.Colors{text.FgRed}, "PAUSED")
			yearlyCell = r.paint(text.Colors{text.FgHiBlack}, "-")
		} else {
			monthly += s.MonthlyPrice()
			yearly += s.YearlyPrice()
		}
		t.AppendRow(table.Row{
			s.Name,
			s.Category,
			status,
			s.BillingCycle.String(),
			r.amount(s.Price) + " " + s.Currency,
			s.RenewalDate.String(),
			r.amount(s.MonthlyPrice()),
			yearlyCell,
		})
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", "", "", "Total (active)", r.amount(monthly), r.amount(yearly)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
}

// Categories renders the per-category breakdown, largest total first.
func Categories(w io.Writer, overview core.ExpenseOverview, opts Options) {
	r := newRenderer(w, opts)
	t := r.table()
	t.AppendHeader(table.Row{"Category", "Count", "Monthly", "Share"})

	for _, c := range overview.ByCategory {
		share := 0.0
		if overview.TotalMonthly > 0 {
			share = c.Total / overview.TotalMonthly * 100
		}
		t.AppendRow(table.Row{c.Name, c.Count, r.amount(c.Total), r.printer.Sprintf("%.1f%%", share)})
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"Total", overview.ActiveCount, r.amount(overview.TotalMonthly), ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

// Renewals renders upcoming renewals with their urgency.
func Renewals(w io.Writer, reminders []services.Reminder, opts Options) {
	r := newRenderer(w, opts)
	t := r.table()
	t.AppendHeader(table.Row{"Name", "Renewal", "Days", "Urgency", "Price"})

	for _, rem := range reminders {
		s := rem.Subscription
		t.AppendRow(table.Row{
			s.Name,
			s.RenewalDate.String(),
			rem.DaysUntil,
			r.paint(urgencyColor(rem.Urgency), rem.Urgency.String()),
			r.amount(s.Price) + " " + s.Currency,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}

func urgencyColor(u services.Urgency) text.Colors {
	switch u {
	case services.UrgencyToday:
		return text.Colors{text.FgRed, text.Bold}
	case services.UrgencyTomorrow, services.UrgencyUrgent:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{}
	}
}
