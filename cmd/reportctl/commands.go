package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"bookreport-backend/internal/bootstrap"
	"bookreport-backend/internal/orders"
	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/storage/db"
	"bookreport-backend/internal/shared/telemetry"
)

// openFunc builds the order service and returns a release func.
type openFunc func(ctx context.Context) (*orders.Service, func() error, error)

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openService, runMigrations)
}

func newRootCmdWith(open openFunc, migrate func(ctx context.Context) error) *cobra.Command {
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Operate the book report order pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get <order-id>",
		Short: "Print an order as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withService(open, func(cmd *cobra.Command, svc *orders.Service, args []string) error {
			order, err := svc.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "process <order-id>",
		Short: "Generate the report for a pending or failed order",
		Args:  cobra.ExactArgs(1),
		RunE: withService(open, func(cmd *cobra.Command, svc *orders.Service, args []string) error {
			if err := svc.Process(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s completed\n", args[0])
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "set-status <order-id> <status>",
		Short: "Correct an order's status",
		Long: `Move an order along the status table. Only pending -> failed,
processing -> failed and failed -> processing can be set by hand; orders are
completed only by report generation.`,
		Args: cobra.ExactArgs(2),
		RunE: withService(open, func(cmd *cobra.Command, svc *orders.Service, args []string) error {
			order, err := svc.UpdateStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		}),
	})

	var staleAfter time.Duration
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Fail orders stuck in processing",
		Args:  cobra.NoArgs,
		RunE: withService(open, func(cmd *cobra.Command, svc *orders.Service, args []string) error {
			n, err := svc.SweepStale(cmd.Context(), staleAfter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swept %d orders\n", n)
			return nil
		}),
	}
	sweep.Flags().DurationVar(&staleAfter, "stale-after", 15*time.Minute, "fail orders processing longer than this")
	root.AddCommand(sweep)

	return root
}

func withService(open openFunc, run func(cmd *cobra.Command, svc *orders.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
			cmd.SetContext(ctx)
		}
		svc, release, err := open(ctx)
		if err != nil {
			return err
		}
		defer release()
		return run(cmd, svc, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openService(ctx context.Context) (*orders.Service, func() error, error) {
	cfg := config.Load()
	telemetry.Init(cfg.Env)
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return app.OrdersService, app.Close, nil
}

func runMigrations(ctx context.Context) error {
	cfg := config.Load()
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()
	return db.RunMigrations(ctx, sqlDB)
}
