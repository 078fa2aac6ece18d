package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/dialect/sql/sqlerr"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
)

// Option configures a Generator or a Migrate.
type Option func(*config)

type config struct {
	logger *slog.Logger
	dryRun bool
	layout extension.Layout
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger: slog.New(slog.DiscardHandler),
		layout: extension.DefaultLayout(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger of state transitions and created objects.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDryRun probes existence but sends no DDL. The report lists the
// statements that would run.
func WithDryRun(dryRun bool) Option {
	return func(c *config) {
		c.dryRun = dryRun
	}
}

// WithLayout sets the slot layout of the extension table. It must match
// the layout of the extension.Pool the variants are registered in.
func WithLayout(layout extension.Layout) Option {
	return func(c *config) {
		if len(layout) > 0 {
			c.layout = layout
		}
	}
}

// State is the provisioning state of one schema object.
type State uint8

// Provisioning states. An object moves NotChecked → Exists, or
// NotChecked → Missing → Creating → Created.
const (
	NotChecked State = iota
	Exists
	Missing
	Creating
	Created
)

var stateNames = [...]string{
	NotChecked: "not-checked",
	Exists:     "exists",
	Missing:    "missing",
	Creating:   "creating",
	Created:    "created",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Step is the provisioning record of one object.
type Step struct {
	Object *Object
	State  State
}

// Report is the outcome of provisioning one entity.
type Report struct {
	Entity  string
	Dialect string
	DryRun  bool
	Steps   []*Step
	// Statements are the DDL statements executed, or that would be
	// executed in a dry run.
	Statements []string
	// Trace holds one line per object created.
	Trace []string
}

// Created returns the objects created by the run.
func (r *Report) Created() []*Object {
	var objs []*Object
	for _, s := range r.Steps {
		if s.State == Created {
			objs = append(objs, s.Object)
		}
	}
	return objs
}

// String returns the trace lines of the report.
func (r *Report) String() string {
	if len(r.Trace) == 0 {
		return fmt.Sprintf("%s: schema up to date (%s)", r.Entity, r.Dialect)
	}
	return strings.Join(r.Trace, "\n")
}

// Migrate provisions the schema objects of entities through a driver.
// Provisioning is not transactional: a failure leaves the objects created
// so far in place, and a retry probes every object again.
type Migrate struct {
	drv    dialect.ExecQuerier
	gen    *Generator
	logger *slog.Logger
	dryRun bool
}

// NewMigrate returns a Migrate for the dialect of the driver.
func NewMigrate(reg *dialect.Registry, drv dialect.Driver, opts ...Option) (*Migrate, error) {
	cfg := newConfig(opts)
	gen, err := newGenerator(reg, drv.Dialect(), cfg)
	if err != nil {
		return nil, err
	}
	return &Migrate{drv: drv, gen: gen, logger: cfg.logger, dryRun: cfg.dryRun}, nil
}

// Generator returns the DDL generator of the migration.
func (m *Migrate) Generator() *Generator {
	return m.gen
}

// EnsureSchema creates the missing schema objects of an entity: the origin
// table and its indexes, the full-text catalog and index, the extension
// table and its indexes, and the association tables. Objects that exist
// are left untouched. A duplicate-object failure, raised when another
// provisioner created the object between probe and creation, counts as
// Exists. Any other failure stops the run with a
// *polystore.SchemaProvisioningError; the partial report is returned with
// it.
func (m *Migrate) EnsureSchema(ctx context.Context, e *schema.Entity) (*Report, error) {
	plan, err := m.gen.Plan(e)
	if err != nil {
		return nil, err
	}
	report := &Report{Entity: plan.Entity, Dialect: plan.Dialect, DryRun: m.dryRun}
	for _, obj := range plan.Objects {
		step := &Step{Object: obj}
		report.Steps = append(report.Steps, step)
		if err := m.ensure(ctx, report, step); err != nil {
			return report, err
		}
	}
	return report, nil
}

// EnsureAll runs EnsureSchema for each entity in order and stops at the
// first failure.
func (m *Migrate) EnsureAll(ctx context.Context, entities ...*schema.Entity) ([]*Report, error) {
	reports := make([]*Report, 0, len(entities))
	for _, e := range entities {
		r, err := m.EnsureSchema(ctx, e)
		if r != nil {
			reports = append(reports, r)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (m *Migrate) ensure(ctx context.Context, report *Report, step *Step) error {
	obj := step.Object
	exists, err := m.exists(ctx, obj)
	if err != nil {
		return &polystore.SchemaProvisioningError{Object: obj.Name, Statement: obj.Probe.Text, Err: err}
	}
	if exists {
		m.transition(ctx, step, Exists)
		return nil
	}
	m.transition(ctx, step, Missing)
	if m.dryRun {
		report.Statements = append(report.Statements, obj.Statement)
		report.Trace = append(report.Trace, "would create "+obj.Describe())
		return nil
	}
	m.transition(ctx, step, Creating)
	if err := m.drv.Exec(ctx, obj.Statement, []any{}, nil); err != nil {
		if sqlerr.IsDuplicateObjectError(err) {
			m.logger.DebugContext(ctx, "schema object created concurrently", "object", obj.Name, "error", err)
			m.transition(ctx, step, Exists)
			return nil
		}
		return &polystore.SchemaProvisioningError{Object: obj.Name, Statement: obj.Statement, Err: err}
	}
	m.transition(ctx, step, Created)
	report.Statements = append(report.Statements, obj.Statement)
	report.Trace = append(report.Trace, "created "+obj.Describe())
	m.logger.InfoContext(ctx, "schema object created", "kind", obj.Kind.String(), "object", obj.Name, "table", obj.Table)
	return nil
}

func (m *Migrate) transition(ctx context.Context, step *Step, to State) {
	m.logger.DebugContext(ctx, "schema object state", "object", step.Object.Name, "from", step.State.String(), "to", to.String())
	step.State = to
}

// exists runs the probe of an object.
func (m *Migrate) exists(ctx context.Context, obj *Object) (_ bool, rerr error) {
	rows, err := sql.QueryStatement(ctx, m.drv, obj.Probe)
	if err != nil {
		return false, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	if !rows.Next() {
		return false, rows.Err()
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, rows.Err()
}
