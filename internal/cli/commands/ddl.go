package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/polystore/dialect"
	sqlschema "github.com/syssam/polystore/dialect/sql/schema"
	"github.com/syssam/polystore/internal/cli/config"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// NewDDLCommand creates the ddl command.
func NewDDLCommand(reg *dialect.Registry) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "ddl [entity...]",
		Short: "Print the DDL of entities",
		Long: `Print the CREATE statements of the origin, extension and association
tables and their indexes for the configured dialect.

With --watch, the schema file is reloaded on every change and the difference
with the previous version is reported before the new DDL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if watch {
				return watchSchema(ctx, cmd.OutOrStdout(), reg, args)
			}
			plans, err := planDDL(ctx, reg, config.FromContext(ctx), args)
			if err != nil {
				return err
			}
			writePlans(cmd.OutOrStdout(), plans)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reprint the DDL when the schema file changes")
	return cmd
}

func planDDL(ctx context.Context, reg *dialect.Registry, cfg *config.Config, names []string) ([]*sqlschema.Plan, error) {
	s, err := loadSchema(cfg)
	if err != nil {
		return nil, err
	}
	entities, err := selectEntities(s, names)
	if err != nil {
		return nil, err
	}
	gen, err := sqlschema.NewGenerator(reg, cfg.Dialect, sqlschema.WithLayout(s.Pool.Layout()))
	if err != nil {
		return nil, err
	}
	return gen.PlanAll(ctx, entities...)
}

func writePlans(w io.Writer, plans []*sqlschema.Plan) {
	for _, p := range plans {
		_, _ = fmt.Fprintf(w, "-- %s (%s)\n", p.Entity, p.Dialect)
		for _, stmt := range p.Statements() {
			_, _ = fmt.Fprintf(w, "%s;\n", stmt)
		}
		_, _ = fmt.Fprintln(w)
	}
}

// planTables returns the tables of the plans. The shared extension table
// appears once.
func planTables(plans []*sqlschema.Plan) []*atlas.Table {
	var (
		tables []*atlas.Table
		seen   = make(map[string]bool)
	)
	for _, p := range plans {
		for _, t := range p.Tables {
			if !seen[t.Name] {
				seen[t.Name] = true
				tables = append(tables, t)
			}
		}
	}
	return tables
}

// watchSchema prints the DDL of the entities, then replans them whenever
// the schema file changes, until ctx is done. The watch is in place before
// the first print, so no change made after it is missed.
func watchSchema(ctx context.Context, w io.Writer, reg *dialect.Registry, names []string) error {
	cfg := config.FromContext(ctx)
	logger := config.Logger(ctx)
	path, err := filepath.Abs(cfg.Schema)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	// Editors replace files on save, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	logger.Info("watching schema", "path", path)

	prev, err := planDDL(ctx, reg, cfg, names)
	if err != nil {
		return err
	}
	writePlans(w, prev)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(watchDebounce)
		case <-pending:
			pending = nil
			next, err := planDDL(ctx, reg, cfg, names)
			if err != nil {
				logger.Error("replan failed", "error", err)
				_, _ = fmt.Fprintf(w, "-- error: %v\n\n", err)
				continue
			}
			_, _ = fmt.Fprintln(w, "-- changes")
			for _, line := range strings.Split(sqlschema.ValidateDiff(planTables(prev), planTables(next)).String(), "\n") {
				_, _ = fmt.Fprintf(w, "-- %s\n", line)
			}
			_, _ = fmt.Fprintln(w)
			writePlans(w, next)
			prev = next
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
