package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nhle/goal-tracker/internal/logging"
	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string // overrides database.path from config
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the goals CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Track whether you hit your daily goal",
		Long: `goals keeps a per-day ledger of whether a daily goal was completed.

Toggle days from the command line, the terminal calendar or the web
calendar served by "goals serve", and export the ledger as JSON or CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", model.DefaultConfigPath(), "config file")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "ledger database path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewToggleCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCalendarCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// env is what a command needs to run: configuration, a logger and an open
// ledger. close releases all of it.
type env struct {
	cfg    *model.AppConfig
	logger *slog.Logger
	store  *store.SQLiteStore
	closer io.Closer
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("closing ledger", "error", err)
		}
	}
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

// loadEnv reads config, builds the logger and opens the ledger. Logs go to
// errOut so they never mix with command output.
func loadEnv(opts *RootOptions, errOut io.Writer) (*env, error) {
	cfg, err := model.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "loading config", err)
	}
	if opts.DBPath != "" {
		cfg.Database.Path = opts.DBPath
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, closer, err := logging.New(cfg.Log, errOut)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "configuring logging", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		_ = closer.Close()
		return nil, WrapExitError(ExitFailure, "opening ledger", err)
	}
	logger.Debug("ledger opened", "path", s.Path())

	return &env{cfg: cfg, logger: logger, store: s, closer: closer}, nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
