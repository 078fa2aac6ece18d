// Package schema generates and provisions the DDL of entities.
//
// A Generator models the tables of an entity with atlas schema types and
// renders one Object per table, index and full-text catalog. Each object
// carries a parameterized probe that checks the dialect catalog for its
// existence and the statement that creates it.
//
// # Tables
//
//   - the origin table, one column per persisted attribute, with primary
//     key PK_<table>;
//   - one index per Sortable group (IX_) and one unique index per Unique
//     group (UX_);
//   - the full-text index over the Searchable columns (FT_), preceded by
//     the default full-text catalog where the dialect needs one;
//   - the shared extension table, keyed by object and variant, with a
//     composite linkage index and one index per indexable slot;
//   - one association table per Mappings attribute, keyed by (LinkId,
//     MappedId).
//
// # Provisioning
//
// Migrate.EnsureSchema probes every object and creates the missing ones:
//
//	m, err := schema.NewMigrate(reg, drv, schema.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	report, err := m.EnsureSchema(ctx, documents)
//	for _, line := range report.Trace {
//	    log.Println(line)
//	}
//
// Provisioning is not transactional. Retrying a failed run is safe, since
// every object is probed again.
package schema
