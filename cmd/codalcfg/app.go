package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/config"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/database"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/logging"
	"github.com/microbit-carlos/codalcfg/internal/ledger"
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logging.Logger

	stdout io.Writer
	stderr io.Writer

	db *database.DB
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codalcfg",
		Short: "Resolve CODAL target configuration layers",
		Long: `codalcfg merges a framework base layer with a target override layer,
checks the invariants the CODAL runtime relies on and emits the resolved
configuration.

Layers are either built-in profiles (framework, codal-wasm, none) or files:
YAML (.yaml, .yml), TOML (.toml) or C headers (.h).`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.init() },
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("CODALCFG_CONFIG"),
		"config file (built-in defaults when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		a.resolveCmd(),
		a.headerCmd(),
		a.keysCmd(),
		a.historyCmd(),
		a.watchCmd(),
		a.migrateCmd(),
		a.statusCmd(),
	)
	return root
}

// init loads configuration and builds the logger.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logging, version)
	a.log.Debug("configuration loaded", "path", a.configPath, "commit", commit)
	return nil
}

// openLedger opens and migrates the ledger database. The connection is
// shared by later calls and closed by close.
func (a *app) openLedger(ctx context.Context) (*ledger.SQLiteRepository, error) {
	if a.db == nil {
		db, err := database.Open(ctx, database.Config{
			Path:        a.cfg.Database.Path,
			WALMode:     a.cfg.Database.WALMode,
			BusyTimeout: a.cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("migrating ledger: %w", err)
		}
		a.db = db
		a.log.Debug("ledger opened", "path", db.Path())
	}
	return ledger.NewSQLiteRepository(a.db.DB), nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil && a.log != nil {
			a.log.Error("error closing ledger", "error", err)
		}
	}
	if a.log != nil {
		a.log.Close() //nolint:errcheck // Nothing left to report to
	}
}
