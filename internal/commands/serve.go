package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chitieu/internal/amqp"
	"chitieu/internal/cli"
	apphttp "chitieu/internal/http"
	"chitieu/internal/log"
	"chitieu/internal/store"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, app *cli.App) error {
				cfg := app.Config
				if port != "" {
					cfg.Port = port
				}
				loc := cfg.Location()

				srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
					Store:          app.Store,
					Intake:         app.Intake,
					Logger:         app.Logger,
					Metrics:        app.Metrics,
					Budgets:        app.Budgets,
					Locale:         cfg.Language(),
					Location:       loc,
					AllowedOrigins: cfg.CORSOrigins,
					WriteLimit:     cfg.WriteRateLimit,
					Now:            func() time.Time { return time.Now().In(loc) },
				})
				if err != nil {
					return err
				}

				ctx, cancel := cli.SignalContext(ctx, app.Logger)
				defer cancel()

				app.Logger.Info("Starting chitieu server",
					"port", cfg.Port,
					log.FieldBackend, cfg.DataBackend,
					log.FieldCount, app.Store.Len())
				return srv.Run(ctx, cfg.ShutdownTimeout)
			})
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print record events from the message broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, app *cli.App) error {
				if app.Events == nil {
					return errors.New("watch requires AMQP_URL")
				}
				ctx, cancel := cli.SignalContext(ctx, app.Logger)
				defer cancel()

				out := cmd.OutOrStdout()
				err := app.Events.ConsumeEvents(ctx, func(ev *amqp.RecordEvent) error {
					_, err := fmt.Fprintln(out, formatEvent(ev))
					return err
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func formatEvent(ev *amqp.RecordEvent) string {
	at := ev.EmittedAt.Format(time.RFC3339)
	if ev.Type == string(store.EventCleared) {
		return fmt.Sprintf("%s %-8s %d records", at, ev.Type, ev.Count)
	}
	s := fmt.Sprintf("%s %-8s %s %s %s", at, ev.Type, ev.RecordID, ev.Category, ev.Amount)
	if ev.Note != "" {
		s += " " + ev.Note
	}
	return s
}
