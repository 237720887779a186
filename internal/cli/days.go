package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/theme"
)

// ToggleResult is the payload of the toggle command.
type ToggleResult struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <YYYY-MM-DD|today>",
		Short: "Flip a day between completed and not completed",
		Long: `Flip a day's completion status.

A day that was never toggled becomes completed; after that every toggle
flips it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			if date == "today" {
				date = time.Now().Format(model.DateLayout)
			}

			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			completed, err := e.store.Toggle(cmd.Context(), date)
			if err != nil {
				return err
			}
			e.logger.Debug("day toggled", "date", date, "completed", completed)

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(ToggleResult{Date: date, Completed: completed}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s\n", date, theme.StatusStyle(completed).Render(statusLabel(completed)))
				return err
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			if all {
				days, err := e.store.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				return out.Success(days, func(w io.Writer) error {
					for _, d := range days {
						if _, err := fmt.Fprintf(w, "%s %s\n", d.Date, theme.StatusStyle(d.Completed).Render(statusLabel(d.Completed))); err != nil {
							return err
						}
					}
					return nil
				})
			}

			days, err := e.store.ListCompleted(cmd.Context())
			if err != nil {
				return err
			}
			return out.Success(days, func(w io.Writer) error {
				for _, d := range days {
					if _, err := fmt.Fprintln(w, d); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include days toggled back to not completed")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count completed days this month and overall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = time.Now().Format("2006-01")
			}

			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			stats, err := e.store.Stats(cmd.Context(), month)
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(stats, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %d completed\ntotal: %d completed\n", stats.Month, stats.InMonth, stats.Total)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to count, YYYY-MM (default: current month)")
	return cmd
}

func statusLabel(completed bool) string {
	if completed {
		return "completed"
	}
	return "not completed"
}
