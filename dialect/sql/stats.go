package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/polystore/dialect"
)

// DefaultSlowThreshold is the slow statement threshold of a StatsDriver
// created without WithSlowThreshold.
const DefaultSlowThreshold = 100 * time.Millisecond

// Verb classifies a statement by its leading keyword.
type Verb uint8

// Statement verbs.
const (
	VerbOther Verb = iota
	VerbSelect
	VerbInsert
	VerbUpdate
	VerbDelete
	VerbDDL
	verbCount
)

var verbNames = [...]string{
	VerbOther:  "other",
	VerbSelect: "select",
	VerbInsert: "insert",
	VerbUpdate: "update",
	VerbDelete: "delete",
	VerbDDL:    "ddl",
}

func (v Verb) String() string {
	if v < verbCount {
		return verbNames[v]
	}
	return fmt.Sprintf("Verb(%d)", v)
}

// VerbOf returns the verb of a statement text.
func VerbOf(text string) Verb {
	word, _, _ := strings.Cut(strings.TrimLeft(text, " \t\r\n("), " ")
	switch strings.ToUpper(word) {
	case "SELECT", "WITH":
		return VerbSelect
	case "INSERT":
		return VerbInsert
	case "UPDATE":
		return VerbUpdate
	case "DELETE":
		return VerbDelete
	case "CREATE", "ALTER", "DROP", "BEGIN":
		return VerbDDL
	default:
		return VerbOther
	}
}

// QueryStats counts the statements run through a StatsDriver. It is safe
// for concurrent use.
type QueryStats struct {
	dialect  string
	verbs    [verbCount]atomic.Int64
	duration atomic.Int64 // nanoseconds
	slow     atomic.Int64
	errors   atomic.Int64
}

func (s *QueryStats) record(v Verb, d time.Duration, slow bool, err error) {
	s.verbs[v].Add(1)
	s.duration.Add(int64(d))
	if slow {
		s.slow.Add(1)
	}
	if err != nil {
		s.errors.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		Dialect:  s.dialect,
		Counts:   make(map[Verb]int64, verbCount),
		Duration: time.Duration(s.duration.Load()),
		Slow:     s.slow.Load(),
		Errors:   s.errors.Load(),
	}
	for v := range verbCount {
		if n := s.verbs[v].Load(); n > 0 {
			snap.Counts[v] = n
		}
	}
	return snap
}

// Reset zeroes the counters.
func (s *QueryStats) Reset() {
	for v := range verbCount {
		s.verbs[v].Store(0)
	}
	s.duration.Store(0)
	s.slow.Store(0)
	s.errors.Store(0)
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	Dialect  string
	Counts   map[Verb]int64
	Duration time.Duration
	Slow     int64
	Errors   int64
}

// Total returns the number of statements run.
func (s StatsSnapshot) Total() int64 {
	var n int64
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Succeeded returns the number of statements that did not fail.
func (s StatsSnapshot) Succeeded() int64 {
	return s.Total() - s.Errors
}

// Avg returns the mean statement duration.
func (s StatsSnapshot) Avg() time.Duration {
	if n := s.Total(); n > 0 {
		return s.Duration / time.Duration(n)
	}
	return 0
}

// String formats the snapshot as
// "mysql: 3 statements (insert=2 select=1), 1.2ms total, 400µs avg, 0 slow, 0 failed".
func (s StatsSnapshot) String() string {
	var counts []string
	for v := range verbCount {
		if n := s.Counts[v]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s=%d", v, n))
		}
	}
	detail := ""
	if len(counts) > 0 {
		detail = " (" + strings.Join(counts, " ") + ")"
	}
	return fmt.Sprintf("%s: %d statements%s, %s total, %s avg, %d slow, %d failed",
		s.Dialect, s.Total(), detail, s.Duration, s.Avg(), s.Slow, s.Errors)
}

// SlowStatement describes a statement that ran longer than the slow
// threshold.
type SlowStatement struct {
	Dialect  string
	Verb     Verb
	Text     string
	Args     int
	Duration time.Duration
	Err      error
}

// SlowHook is called for each slow statement.
type SlowHook func(context.Context, SlowStatement)

// StatsDriver is a Driver that counts statements and reports slow ones.
type StatsDriver struct {
	*Driver
	stats *QueryStats

	mu        sync.RWMutex
	threshold time.Duration
	hook      SlowHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowHook sets the function called for slow statements.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowLog logs slow statements to logger at warn level, or to the
// default logger when logger is nil.
func WithSlowLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowHook(func(ctx context.Context, s SlowStatement) {
		attrs := []any{"dialect", s.Dialect, "verb", s.Verb.String(), "duration", s.Duration, "args", s.Args, "statement", s.Text}
		if s.Err != nil {
			attrs = append(attrs, "error", s.Err)
		}
		logger.WarnContext(ctx, "slow statement", attrs...)
	})
}

// NewStatsDriver wraps drv with statement statistics.
//
//	drv, _ := sql.Open(reg, dialect.Postgres, "", dsn)
//	stats := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowLog(logger))
//	_, err := sql.Exec(ctx, stats, st)
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{dialect: drv.Dialect()},
		threshold: DefaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// Query runs a query and records it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

// Exec runs a statement and records it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

func (d *StatsDriver) observe(ctx context.Context, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)

	d.mu.RLock()
	threshold, hook := d.threshold, d.hook
	d.mu.RUnlock()

	verb := VerbOf(query)
	slow := elapsed > threshold
	d.stats.record(verb, elapsed, slow, err)
	if slow && hook != nil {
		argv, _ := args.([]any)
		hook(ctx, SlowStatement{Dialect: d.Dialect(), Verb: verb, Text: query, Args: len(argv), Duration: elapsed, Err: err})
	}
	return err
}

// Tx starts a transaction whose statements are recorded too.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query runs a query in the transaction and records it.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

// Exec runs a statement in the transaction and records it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

// DebugDriver is a Driver that logs every statement at debug level.
type DebugDriver struct {
	*Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv with statement logging to logger, or to the
// default logger when logger is nil.
func NewDebugDriver(drv *Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger.With("dialect", drv.Dialect())}
}

func logStatement(ctx context.Context, logger *slog.Logger, inTx bool, query string, args any) {
	argv, _ := args.([]any)
	logger.DebugContext(ctx, "statement", "verb", VerbOf(query).String(), "tx", inTx, "args", len(argv), "text", query)
}

// Query logs and runs a query.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.logger, false, query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec logs and runs a statement.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.logger, false, query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements are logged too.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "begin")
	return &DebugTx{Tx: tx, logger: d.logger}, nil
}

// DebugTx is a transaction of a DebugDriver.
type DebugTx struct {
	dialect.Tx
	logger *slog.Logger
}

// Query logs and runs a query in the transaction.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.logger, true, query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec logs and runs a statement in the transaction.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.logger, true, query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit logs and commits the transaction.
func (tx *DebugTx) Commit() error {
	tx.logger.Debug("commit")
	return tx.Tx.Commit()
}

// Rollback logs and rolls back the transaction.
func (tx *DebugTx) Rollback() error {
	tx.logger.Debug("rollback")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)

// OpenWithStats opens a database of the named dialect through a
// StatsDriver and returns the driver with its counters.
//
//	drv, stats, err := sql.OpenWithStats(reg, dialect.MySQL, "", dsn, sql.WithSlowLog(logger))
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//	logger.Info("done", "stats", stats.Stats())
func OpenWithStats(reg *dialect.Registry, name, driverName, source string, opts ...StatsOption) (*StatsDriver, *QueryStats, error) {
	drv, err := Open(reg, name, driverName, source)
	if err != nil {
		return nil, nil, err
	}
	s := NewStatsDriver(drv, opts...)
	return s, s.QueryStats(), nil
}
