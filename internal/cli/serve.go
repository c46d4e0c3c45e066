package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/datamod/internal/server"
	"github.com/roach88/datamod/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
	IDField  string
	Timeout  time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve collections over REST from a SQLite database",
		Long: `Serve every collection in a SQLite record store over REST.

The database is created if it doesn't exist. Routes:
  GET    /healthz
  GET    /api/{collection}
  POST   /api/{collection}
  GET    /api/{collection}/{id}
  PUT    /api/{collection}/{id}
  DELETE /api/{collection}/{id}

Example:
  datamod serve --db ./data.db --addr :8080
  datamod serve --db /tmp/test.db --id-field slug --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.IDField, "id-field", "id", "record id field")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", server.DefaultRequestTimeout, "per-request timeout")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(st,
		server.WithIDField(opts.IDField),
		server.WithRequestTimeout(opts.Timeout),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", opts.Database, opts.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.ListenAndServe(ctx, opts.Addr); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
