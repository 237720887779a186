package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/ui/configform"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force, interactive bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file populated with defaults",
		Long: `Write a config file populated with defaults.

With --interactive, each value is prompted for first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if _, err := os.Stat(path); err == nil && !force {
				return NewExitError(ExitUsage, fmt.Sprintf("%s already exists (use --force to overwrite)", path))
			}

			cfg := model.DefaultAppConfig()
			if rootOpts.DBPath != "" {
				cfg.Database.Path = rootOpts.DBPath
			}

			if interactive {
				values := configform.FromConfig(cfg)
				form := configform.New(values).
					WithInput(cmd.InOrStdin()).
					WithOutput(cmd.ErrOrStderr())
				if err := form.Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return NewExitError(ExitUsage, "config init aborted")
					}
					return WrapExitError(ExitFailure, "running config form", err)
				}
				if err := values.Apply(cfg); err != nil {
					return WrapExitError(ExitUsage, "invalid config", err)
				}
			}

			if err := model.SaveConfig(path, cfg); err != nil {
				return WrapExitError(ExitFailure, "saving config", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"path": path}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "wrote %s\n", path)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each value")
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(rootOpts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitUsage, "loading config", err)
			}
			if rootOpts.DBPath != "" {
				cfg.Database.Path = rootOpts.DBPath
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(cfg, func(w io.Writer) error {
				_, err := fmt.Fprintf(w,
					"database.path: %s\nserver: %s\nlog.level: %s\nlog.file: %s\n",
					cfg.Database.Path, cfg.Server.Addr(), cfg.Log.Level, cfg.Log.File,
				)
				return err
			})
		},
	}
}
