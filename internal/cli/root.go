// Package cli provides the command-line interface of polystore.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/internal/cli/commands"
	"github.com/syssam/polystore/internal/cli/config"
)

// Version information (set at build time).
var Version = "0.1.0"

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	reg := dialect.NewRegistry(dialect.Builtin()...)
	rootCmd := &cobra.Command{
		Use:   "polystore",
		Short: "polystore - multi-dialect statement compiler",
		Long: `polystore compiles entity operations into parameterized SQL for
SQL Server, MySQL, PostgreSQL and Oracle, generates the DDL of entities and
provisions it against a live database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, used, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(reg); err != nil {
				return err
			}
			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if used != "" {
				logger.Debug("using config file", "path", used)
			}
			cmd.SetContext(config.NewContext(cmd.Context(), cfg, logger))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./polystore.yaml)")
	rootCmd.PersistentFlags().StringP("dialect", "d", "", "Target dialect (sqlserver|mysql|postgres|oracle)")
	rootCmd.PersistentFlags().String("driver", "", "database/sql driver name (default: the dialect's)")
	rootCmd.PersistentFlags().String("dsn", "", "Data source name")
	rootCmd.PersistentFlags().StringP("schema", "s", "", "Schema description file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("journal", "", "Statement journal file")
	rootCmd.PersistentFlags().Duration("slow-threshold", 0, "Report statements slower than this")

	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return reg.Names(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewDialectsCommand(reg))
	rootCmd.AddCommand(commands.NewDDLCommand(reg))
	rootCmd.AddCommand(commands.NewEnsureCommand(reg))
	rootCmd.AddCommand(commands.NewCompileCommand(reg))
	rootCmd.AddCommand(commands.NewReplayCommand(reg))
	return rootCmd
}

// Execute runs the root command until ctx is done.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
