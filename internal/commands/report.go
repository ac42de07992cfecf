package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chitieu/internal/aggregate"
	"chitieu/internal/cli"
	"chitieu/internal/core"
	"chitieu/internal/export"
	"chitieu/internal/log"
)

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	var window string
	var top int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and the top categories for a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("--top must not be negative")
			}
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) error {
				w, err := aggregate.ParseWindow(window, app.Now())
				if err != nil {
					return err
				}
				sum := aggregate.Summarize(app.Store.Snapshot(), w, top, app.Budgets)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(sum)
				}
				printSummary(cmd.OutOrStdout(), sum, w, app)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "month", "today, yesterday, week, month or <N>d")
	cmd.Flags().IntVar(&top, "top", 3, "number of top categories to show, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(out io.Writer, sum core.PeriodSummary, w aggregate.Window, app *cli.App) {
	tag := app.Config.Language()
	loc := app.Config.Location()

	fmt.Fprintf(out, "%s (%s - %s)\n", sum.Window,
		sum.From.In(loc).Format("02/01/2006"), sum.To.In(loc).Format("02/01/2006"))
	fmt.Fprintf(out, "Total: %s in %d expenses\n", core.FormatMoney(sum.Total, tag), sum.Count)
	if w.Kind == aggregate.KindMonth {
		fmt.Fprintf(out, "Daily average: %s, projected: %s\n",
			core.FormatMoney(sum.DailyAverage, tag), core.FormatMoney(sum.Projected, tag))
	}
	for _, sh := range sum.Top {
		line := fmt.Sprintf("  %s %-18s %14s %6s%%", sh.Category.Icon(), sh.Category.Label(),
			core.FormatMoney(sh.Sum, tag), sh.Percent.StringFixed(1))
		if sh.Budget.IsPositive() {
			line += fmt.Sprintf("  (%s%% of %s budget)", sh.BudgetPercent.StringFixed(0), core.FormatMoney(sh.Budget, tag))
		}
		fmt.Fprintln(out, line)
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expenses to CSV or Google Sheets",
	}
	cmd.AddCommand(newExportCSVCommand(opts), newExportSheetsCommand(opts))
	return cmd
}

// selectRecords returns every record for "all", otherwise the window's records.
func selectRecords(app *cli.App, window string) ([]core.Record, error) {
	records := app.Store.Snapshot()
	if window == "all" {
		return records, nil
	}
	w, err := aggregate.ParseWindow(window, app.Now())
	if err != nil {
		return nil, err
	}
	return aggregate.Filter(records, w), nil
}

func exportOptions(app *cli.App, bom bool) export.Options {
	return export.Options{Locale: app.Config.Language(), Location: app.Config.Location(), BOM: bom}
}

func newExportCSVCommand(opts *rootOptions) *cobra.Command {
	var window, output string
	var bom bool

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write expenses as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) (err error) {
				records, err := selectRecords(app, window)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer func() {
						if cerr := f.Close(); cerr != nil && err == nil {
							err = cerr
						}
					}()
					out = f
				}

				if err := export.WriteCSV(out, records, exportOptions(app, bom)); err != nil {
					return fmt.Errorf("write csv: %w", err)
				}
				if out != cmd.OutOrStdout() {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d expenses to %s\n", len(records), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "all", "all, today, yesterday, week, month or <N>d")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix a UTF-8 byte order mark for spreadsheet apps")
	return cmd
}

func newExportSheetsCommand(opts *rootOptions) *cobra.Command {
	var window string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Replace a Google Sheet with the exported expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) error {
				records, err := selectRecords(app, window)
				if err != nil {
					return err
				}
				cfg := app.Config
				exporter, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
					SpreadsheetID:   cfg.GoogleSpreadsheetID,
					SheetName:       cfg.GoogleSheetName,
					CredentialsJSON: cfg.GoogleServiceAccountJSON,
					CredentialsFile: cfg.GoogleServiceAccountFile,
				}, app.Logger.WithComponent(log.ComponentExport))
				if err != nil {
					return fmt.Errorf("sheets exporter: %w", err)
				}
				updated, err := exporter.Export(ctx, records, exportOptions(app, false))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses to %s\n", len(records), updated)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "all", "all, today, yesterday, week, month or <N>d")
	return cmd
}
