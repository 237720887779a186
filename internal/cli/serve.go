package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/goal-tracker/internal/server"
	"github.com/nhle/goal-tracker/internal/sync"
	"github.com/nhle/goal-tracker/internal/ui/calendar"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web calendar and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			if cmd.Flags().Changed("host") {
				e.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}

			srv := server.New(server.Config{
				Addr:   e.cfg.Server.Addr(),
				Ledger: e.store,
				Logger: e.logger,
			})
			if err := srv.Start(); err != nil {
				return WrapExitError(ExitFailure, "starting server", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// NewCalendarCommand creates the calendar command.
func NewCalendarCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "Browse and toggle days in a terminal calendar",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			poller := sync.New(e.store, time.Duration(e.cfg.Calendar.PollIntervalSec)*time.Second)
			defer poller.Stop()

			p := tea.NewProgram(
				calendar.New(e.store, time.Now).WithPoller(poller),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return WrapExitError(ExitFailure, "running calendar", err)
			}
			return nil
		},
	}
}
