package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/GiGurra/boa/pkg/boa"

	"subtrack/internal/cli"
	"subtrack/internal/config"
	"subtrack/internal/export"
	"subtrack/internal/log"
	"subtrack/internal/report"
	"subtrack/internal/services"
)

type Params struct {
	View     string `descr:"Report to print" alts:"all,subscriptions,categories,renewals" strict:"true" default:"all"`
	Days     int    `descr:"Renewal window in days" default:"7"`
	Filtered bool   `descr:"Apply the saved search, category and sort to the subscription list" default:"false"`
	Color    bool   `descr:"Colour status and urgency cells" default:"false"`
	Xlsx     string `descr:"Also write an XLSX export to this path" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("subtrack-report").
		WithShort("Print subscription spending reports").
		WithLong("Reads the configured subscription store (DATA_BACKEND and friends) and prints the subscription list, the monthly spend per category and the upcoming renewals. Optionally writes the same data as an XLSX workbook.").
		WithRunFunc(func(params *Params) {
			if err := run(context.Background(), params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(ctx context.Context, params *Params) error {
	if params.Days < 0 {
		return fmt.Errorf("days must not be negative, got %d", params.Days)
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Tables go to stdout, so keep logs on stderr and quiet.
	logger := log.New(log.Config{Level: slog.LevelWarn, Output: os.Stderr, Component: log.ComponentApp})

	st, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	opts := report.Options{Color: params.Color}
	out := os.Stdout
	all := params.View == "all"

	if all || params.View == "subscriptions" {
		subs := st.Subscriptions()
		if params.Filtered {
			subs = st.FilteredSubscriptions()
		}
		fmt.Fprintf(out, "Subscriptions (%d)\n", len(subs))
		report.Subscriptions(out, subs, opts)
		fmt.Fprintln(out)
	}
	if all || params.View == "categories" {
		fmt.Fprintln(out, "Monthly spend by category")
		report.Categories(out, st.Overview(), opts)
		fmt.Fprintln(out)
	}
	if all || params.View == "renewals" {
		today := st.Today()
		reminders := services.Annotate(st.UpcomingRenewals(params.Days), today)
		fmt.Fprintf(out, "Renewals from %s within %d days\n", today, params.Days)
		if len(reminders) == 0 {
			fmt.Fprintln(out, "No upcoming renewals.")
		} else {
			report.Renewals(out, reminders, opts)
		}
	}

	if params.Xlsx != "" {
		data, err := export.NewExporter(st, logger).XLSX(ctx)
		if err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		if err := os.WriteFile(params.Xlsx, data, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", params.Xlsx)
	}
	return nil
}
