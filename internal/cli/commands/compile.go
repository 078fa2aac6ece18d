package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/internal/cli/config"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/load"
)

// Operations accepted by the compile command.
var operations = []string{"select", "count", "search", "search-count", "by-id", "exists", "insert", "update", "delete"}

type compileOptions struct {
	op       string
	set      []string
	where    []string
	order    []string
	fields   []string
	id       string
	variant  string
	search   string
	columns  []string
	page     int
	pageSize int
	join     bool
	record   bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(reg *dialect.Registry) *cobra.Command {
	opts := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <entity>",
		Short: "Compile an entity operation into SQL",
		Long: `Compile one operation of an entity for the configured dialect and print
the statement text with its parameters.

Operations: ` + strings.Join(operations, ", ") + `.

With --record, the statements are appended to the journal file for a later
replay.`,
		Example: `  polystore compile Documents --op select --where Status=open --order -Created --page 2 --page-size 20
  polystore compile Documents --op insert --variant Invoice --set Id=D1 --set Title=x --set Amount=12.5
  polystore compile Notes --op search --search '+vendor "net 30"' --record`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			s, err := loadSchema(cfg)
			if err != nil {
				return err
			}
			c, err := sql.NewCompiler(reg, cfg.Dialect)
			if err != nil {
				return err
			}
			stmts, err := opts.compile(c, s, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stmts) == 0 {
				_, _ = fmt.Fprintln(out, "-- nothing to execute")
				return nil
			}
			for _, st := range stmts {
				writeStatement(out, st.label, st.Statement)
			}
			if !opts.record {
				return nil
			}
			if err := record(cfg.Journal, cfg.Dialect, stmts); err != nil {
				return err
			}
			config.Logger(ctx).Info("statements recorded", "journal", cfg.Journal, "count", len(stmts))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.op, "op", "o", "select", "Operation ("+strings.Join(operations, "|")+")")
	f.StringArrayVar(&opts.set, "set", nil, "Assign NAME=VALUE (insert, update)")
	f.StringArrayVarP(&opts.where, "where", "w", nil, "Filter on NAME=VALUE, null matches missing values")
	f.StringSliceVar(&opts.order, "order", nil, "Sort keys, prefix with - to sort descending")
	f.StringSliceVar(&opts.fields, "fields", nil, "Projected attributes and properties")
	f.StringVar(&opts.id, "id", "", "Primary key value (by-id, exists, update, delete)")
	f.StringVar(&opts.variant, "variant", "", "Variant name or id of an extendable entity")
	f.StringVar(&opts.search, "search", "", "Search text (search, search-count)")
	f.StringSliceVar(&opts.columns, "columns", nil, "Searched attributes, default every searchable one")
	f.IntVar(&opts.page, "page", 0, "Page number, 1-based")
	f.IntVar(&opts.pageSize, "page-size", 0, "Page size, 0 disables pagination")
	f.BoolVar(&opts.join, "parent-join", false, "Join the parent association table for filters on it")
	f.BoolVar(&opts.record, "record", false, "Append the statements to the journal")
	_ = cmd.RegisterFlagCompletionFunc("op", cobra.FixedCompletions(operations, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// labeled is a compiled statement with its journal label.
type labeled struct {
	label string
	*sql.Statement
}

func (o *compileOptions) compile(c *sql.Compiler, s *load.Schema, name string) ([]labeled, error) {
	e, ok := s.Entity(name)
	if !ok {
		return nil, polystore.NewConfigurationError(name, "", "unknown entity")
	}
	var v *extension.Variant
	if o.variant != "" {
		if v, ok = s.Variant(name, o.variant); !ok {
			return nil, polystore.NewConfigurationError(name, o.variant, "unknown variant")
		}
	}
	label := func(op string) string { return e.Name() + " " + op }
	one := func(op string, st *sql.Statement, err error) ([]labeled, error) {
		if err != nil || st == nil {
			return nil, err
		}
		return []labeled{{label: label(op), Statement: st}}, nil
	}
	switch o.op {
	case "select", "count", "search", "search-count":
		q, err := o.query(e, v)
		if err != nil {
			return nil, err
		}
		switch o.op {
		case "select":
			st, err := c.CompileSelect(e, q)
			return one(o.op, st, err)
		case "count":
			st, err := c.CompileCount(e, q)
			return one(o.op, st, err)
		case "search":
			st, err := c.CompileSearch(e, sql.SearchQuery{Query: q, Text: o.search, Columns: o.columns})
			return one(o.op, st, err)
		default:
			st, err := c.CompileSearchCount(e, sql.SearchQuery{Query: q, Text: o.search, Columns: o.columns})
			return one(o.op, st, err)
		}
	case "by-id", "exists", "delete":
		id, err := o.key(e)
		if err != nil {
			return nil, err
		}
		switch o.op {
		case "by-id":
			st, err := c.CompileSelectByID(e, v, id)
			return one(o.op, st, err)
		case "exists":
			st, err := c.CompileExists(e, id)
			return one(o.op, st, err)
		}
		var stmts []labeled
		if e.Extendable() {
			st, err := c.CompileDeleteExtension(e, id)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, labeled{label: label("delete extension"), Statement: st})
		}
		st, err := c.CompileDelete(e, id)
		if err != nil {
			return nil, err
		}
		return append(stmts, labeled{label: label("delete"), Statement: st}), nil
	case "insert", "update":
		return o.mutate(c, e, v)
	default:
		return nil, fmt.Errorf("unknown operation %q, expect one of %s", o.op, strings.Join(operations, ", "))
	}
}

func (o *compileOptions) query(e *schema.Entity, v *extension.Variant) (sql.Query, error) {
	where, err := parseFilter(e, v, o.where)
	if err != nil {
		return sql.Query{}, err
	}
	return sql.Query{
		Variant:    v,
		Fields:     o.fields,
		Where:      where,
		Order:      parseOrder(o.order),
		PageSize:   o.pageSize,
		Page:       o.page,
		ParentJoin: o.join,
	}, nil
}

func (o *compileOptions) key(e *schema.Entity) (any, error) {
	pk := e.PrimaryKey()
	if o.id == "" {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	return parseValue(pk, o.id)
}

// mutate compiles the origin and extension statements of an insert or an
// update. Properties of the variant only reach the extension statement.
func (o *compileOptions) mutate(c *sql.Compiler, e *schema.Entity, v *extension.Variant) ([]labeled, error) {
	values, err := parseAssignments(e, v, o.set)
	if err != nil {
		return nil, err
	}
	pk := e.PrimaryKey()
	if o.id != "" {
		id, err := parseValue(pk, o.id)
		if err != nil {
			return nil, err
		}
		values[pk.Name] = id
	}
	origin := make(sql.Values, len(values))
	var changed, all []string
	for _, pair := range o.set {
		name, _, _ := strings.Cut(pair, "=")
		all = append(all, name)
		if _, ok := e.Attribute(name); ok {
			origin[name] = values[name]
			changed = append(changed, name)
		}
	}
	if id, ok := values[pk.Name]; ok {
		origin[pk.Name] = id
	}

	var stmts []labeled
	add := func(op string, st *sql.Statement, err error) error {
		if err != nil {
			return err
		}
		if st != nil {
			stmts = append(stmts, labeled{label: e.Name() + " " + op, Statement: st})
		}
		return nil
	}
	if o.op == "insert" {
		st, err := c.CompileInsert(e, origin)
		if err := add("insert", st, err); err != nil {
			return nil, err
		}
		if v != nil {
			st, err := c.CompileInsertExtension(e, v, values)
			if err := add("insert extension", st, err); err != nil {
				return nil, err
			}
		}
		return stmts, nil
	}
	st, err := c.CompileUpdate(e, changed, origin)
	if err := add("update", st, err); err != nil {
		return nil, err
	}
	if v != nil {
		st, err := c.CompileUpdateExtension(e, v, all, values)
		if err := add("update extension", st, err); err != nil {
			return nil, err
		}
	}
	return stmts, nil
}

// writeStatement prints the statement text followed by its parameters.
func writeStatement(w io.Writer, label string, st *sql.Statement) {
	_, _ = fmt.Fprintf(w, "-- %s\n%s;\n", label, st.Text)
	if len(st.Params) == 0 {
		_, _ = fmt.Fprintln(w)
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Parameter", "Kind", "Size", "Value"})
	for i, p := range st.Params {
		size := ""
		if p.Size > 0 {
			size = fmt.Sprint(p.Size)
		}
		t.AppendRow(table.Row{i + 1, p.Name, p.Kind.String(), size, formatParam(p.Value)})
	}
	t.Render()
	_, _ = fmt.Fprintln(w)
}

func formatParam(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// record appends the statements to the journal at path. A missing journal
// is created; an existing journal must be of the same dialect.
func record(path, name string, stmts []labeled) error {
	j, err := readJournal(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		j = sql.NewJournal(name)
	case err != nil:
		return err
	case j.Dialect != name:
		return fmt.Errorf("journal %s records %s statements, not %s", path, j.Dialect, name)
	}
	for _, st := range stmts {
		if err := j.Add(st.label, st.Statement); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sql.WriteJournal(f, j); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readJournal(path string) (*sql.Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return sql.ReadJournal(f)
}
