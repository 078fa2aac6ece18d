package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/internal/cli/config"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(reg *dialect.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Execute the statements of the journal",
		Long: `Execute the statements recorded by compile --record, in order, against the
configured database. The journal's dialect takes precedence over the
configured one. Replay stops at the first failing statement.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			j, err := readJournal(cfg.Journal)
			if err != nil {
				return err
			}
			drv, err := openDriver(ctx, reg, j.Dialect)
			if err != nil {
				return err
			}
			defer func() { _ = drv.Close() }()

			err = j.Replay(ctx, drv)
			stats := drv.QueryStats().Stats()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "replayed %d of %d statements (%s)\n",
				stats.Succeeded(), len(j.Entries), stats)
			return err
		},
	}
}
