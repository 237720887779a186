package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/goal-tracker/internal/export"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <json|csv>",
		Short: "Export the whole ledger as JSON or CSV",
		Long: `Export every recorded day, completed or not, ordered by date.

By default the export is written to goals_export_<YYYYMMDD>.<ext> in the
current directory. Use -o - to write to stdout.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"json", "csv"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(args[0])
			if err != nil {
				return err
			}

			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			res, err := export.New(e.store).Export(cmd.Context(), format)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(res.Data)
				return err
			}

			path := output
			if path == "" {
				path = res.Filename
			}
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return WrapExitError(ExitFailure, "writing export", err)
			}
			e.logger.Info("ledger exported", "path", path, "format", format, "bytes", len(res.Data))

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"path": path, "media_type": res.MediaType}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "wrote %s\n", path)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout")
	return cmd
}
