package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"chitieu/internal/aggregate"
	"chitieu/internal/cli"
	"chitieu/internal/core"
	"chitieu/internal/intake"
)

func newAddCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add AMOUNT CATEGORY [NOTE...]",
		Short: "Record an expense",
		Example: `  chitieu add 50000 food phở bò
  chitieu add 12,5 hoc-phi`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := intake.Input{
				Amount:   args[0],
				Category: args[1],
				Note:     strings.Join(args[2:], " "),
			}
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) error {
				rec, err := app.Intake.Submit(ctx, in)
				var verr *intake.ValidationError
				if errors.As(err, &verr) {
					for _, f := range verr.Fields {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f.Field, f.Message)
					}
					return fmt.Errorf("expense not recorded")
				}
				if err != nil {
					return err
				}
				if herr := app.Store.Health(); herr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", herr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s  %s %s  %s\n",
					rec.ID, rec.Category.Icon(), rec.Category.Label(), core.FormatMoney(rec.Amount, app.Config.Language()))
				return nil
			})
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var window string
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded expenses, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) error {
				records := app.Store.Snapshot()
				if !all {
					w, err := aggregate.ParseWindow(window, app.Now())
					if err != nil {
						return err
					}
					records = aggregate.Filter(records, w)
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No expenses recorded")
					return nil
				}
				tag := app.Config.Language()
				total := decimal.Zero
				for _, r := range aggregate.Newest(records) {
					line := fmt.Sprintf("%-14s %s %-18s %14s  %s",
						humanize.Time(r.Timestamp), r.Category.Icon(), r.Category.Label(),
						core.FormatMoney(r.Amount, tag), r.ID)
					if r.Note != "" {
						line += "  " + r.Note
					}
					fmt.Fprintln(out, line)
					total = total.Add(r.Amount)
				}
				fmt.Fprintf(out, "%d expenses, total %s\n", len(records), core.FormatMoney(total, tag))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "today", "today, yesterday, week, month or <N>d")
	cmd.Flags().BoolVar(&all, "all", false, "list every record regardless of date")
	return cmd
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"remove"},
		Short:   "Delete expenses by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) error {
				for _, id := range args {
					if app.Store.Remove(ctx, id) {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "No expense with id %s\n", id)
					}
				}
				return app.Store.Health()
			})
		},
	}
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete every expense without --yes")
			}
			return withApp(cmd, opts, false, func(ctx context.Context, app *cli.App) error {
				n := app.Store.Len()
				app.Store.Clear(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d expenses\n", n)
				return app.Store.Health()
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the known expense categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range core.Categories() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s %s\n", c, c.Icon(), c.Label())
			}
			return nil
		},
	}
}
