// Package commands implements reconctl, the operator CLI that runs reconciliation work
// in-process against the same databases the services use.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/statement-reconciliation/internal/config"
	"github.com/statement-reconciliation/internal/logger"
	"github.com/statement-reconciliation/internal/platform/persistence"
	"github.com/statement-reconciliation/internal/reconciliation"
)

const defaultOperator = "reconctl@localhost"

// options are the persistent flags shared by every subcommand
type options struct {
	configName string
	operator   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "reconctl",
		Short: "Import bank statements and run reconciliation jobs",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configName, "config", "reconctl", "config file base name, read from ./configs/<name>.env")
	rootCmd.PersistentFlags().StringVar(&opts.operator, "operator", defaultOperator, "operator email recorded in the audit trail")

	rootCmd.AddCommand(
		newImportCommand(opts),
		newRulesCommand(opts),
		newBackparseCommand(opts),
		newReparseCommand(opts),
		newMigrateCommand(opts),
	)

	return rootCmd
}

// app holds what a database-backed command needs
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *persistence.PostgresDB
	services *reconciliation.Services
}

func openApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.LoadConfig(opts.configName)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.NewLogger(cfg)

	db, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		services: reconciliation.NewServices(log, db, &cfg.Reconciliation),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
