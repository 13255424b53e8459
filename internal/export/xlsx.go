// Package export renders the subscription collection as an XLSX workbook.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	"subtrack/internal/log"
)

const (
	SubscriptionsSheet = "Subscriptions"
	SummarySheet       = "Summary"
)

var subscriptionHeaders = []string{
	"Name",
	"Category",
	"Price",
	"Currency",
	"Billing Cycle",
	"Monthly Price",
	"Renewal Date",
	"Payment Method",
	"Active",
	"Notes",
}

// Source is the read side of the store an export needs.
type Source interface {
	Subscriptions() []core.Subscription
	Overview() core.ExpenseOverview
}

// versioned sources let the exporter reuse a workbook until the data changes.
type versioned interface {
	Version() uint64
}

type Exporter struct {
	source Source
	logger *log.Logger
	cache  cache.Cache[[]byte]
}

func NewExporter(source Source, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{source: source, logger: logger.WithComponent(log.ComponentExport)}
}

// WithCache keeps built workbooks in c, keyed by the source version. It has
// no effect when the source does not report a version.
func (e *Exporter) WithCache(c cache.Cache[[]byte]) *Exporter {
	e.cache = c
	return e
}

// XLSX returns a workbook with every subscription in insertion order and a
// summary sheet of totals and per-category amounts.
func (e *Exporter) XLSX(ctx context.Context) ([]byte, error) {
	v, ok := e.source.(versioned)
	if e.cache == nil || !ok {
		return e.build(ctx)
	}

	key := strconv.FormatUint(v.Version(), 10)
	if data, hit := e.cache.Get(key); hit {
		e.logger.DebugContext(ctx, "Serving cached export", log.FieldOperation, log.OpExport, "version", key)
		return data, nil
	}
	data, err := e.build(ctx)
	if err != nil {
		return nil, err
	}
	// A mutation during the build means data may not match key.
	if strconv.FormatUint(v.Version(), 10) == key {
		e.cache.Set(key, data)
	}
	return data, nil
}

func (e *Exporter) build(ctx context.Context) ([]byte, error) {
	start := time.Now()
	subs := e.source.Subscriptions()
	overview := e.source.Overview()

	f := excelize.NewFile()
	defer f.Close()

	// The default workbook has one sheet named Sheet1.
	if err := f.SetSheetName(f.GetSheetName(0), SubscriptionsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSubscriptions(f, subs); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, overview); err != nil {
		return nil, err
	}

	idx, _ := f.GetSheetIndex(SubscriptionsSheet)
	f.SetActiveSheet(idx)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.InfoContext(ctx, "Subscriptions exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(subs),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func writeSubscriptions(f *excelize.File, subs []core.Subscription) error {
	const sheet = SubscriptionsSheet
	if err := f.SetSheetRow(sheet, "A1", &subscriptionHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	for i, s := range subs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			s.Name,
			s.Category,
			s.Price,
			s.Currency,
			s.BillingCycle.String(),
			core.RoundCents(s.MonthlyPrice()),
			s.RenewalDate.String(),
			s.PaymentMethod,
			s.IsActive,
			s.Notes,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "C", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 14)
	_ = f.SetColWidth(sheet, "H", "H", 18)
	_ = f.SetColWidth(sheet, "J", "J", 40)
	return nil
}

func writeSummary(f *excelize.File, o core.ExpenseOverview) error {
	const sheet = SummarySheet
	rows := [][]any{
		{"Total Monthly", core.RoundCents(o.TotalMonthly)},
		{"Total Yearly", core.RoundCents(o.TotalYearly)},
		{"Active Subscriptions", o.ActiveCount},
		{"All Subscriptions", o.TotalCount},
		{},
		{"Category", "Count", "Monthly Total"},
	}
	for _, c := range o.ByCategory {
		rows = append(rows, []any{c.Name, c.Count, core.RoundCents(c.Total)})
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	return nil
}
