package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/polystore/dialect"
	sqlschema "github.com/syssam/polystore/dialect/sql/schema"
	"github.com/syssam/polystore/internal/cli/config"
)

// NewEnsureCommand creates the ensure command.
func NewEnsureCommand(reg *dialect.Registry) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "ensure [entity...]",
		Short: "Create the missing schema objects of entities",
		Long: `Probe the database for every table, index and full-text object of the
entities and create those that are missing. Objects created concurrently by
another process are reported as existing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			s, err := loadSchema(cfg)
			if err != nil {
				return err
			}
			entities, err := selectEntities(s, args)
			if err != nil {
				return err
			}
			drv, err := openDriver(ctx, reg, cfg.Dialect)
			if err != nil {
				return err
			}
			defer func() { _ = drv.Close() }()

			m, err := sqlschema.NewMigrate(reg, drv,
				sqlschema.WithLogger(config.Logger(ctx)),
				sqlschema.WithDryRun(dryRun),
				sqlschema.WithLayout(s.Pool.Layout()),
			)
			if err != nil {
				return err
			}
			reports, err := m.EnsureAll(ctx, entities...)
			out := cmd.OutOrStdout()
			for _, r := range reports {
				_, _ = fmt.Fprintln(out, r)
				if r.DryRun {
					for _, stmt := range r.Statements {
						_, _ = fmt.Fprintf(out, "%s;\n", stmt)
					}
				}
			}
			config.Logger(ctx).Info("statement stats", "stats", drv.QueryStats().Stats().String())
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements instead of executing them")
	return cmd
}
