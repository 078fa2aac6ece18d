// Package polystore compiles operations on declaratively described entities
// into parameterized SQL for SQL Server, MySQL, PostgreSQL and Oracle, and
// generates and provisions the tables, indexes and full-text objects those
// entities need.
//
// The packages are layered:
//
//   - schema and its subpackages describe entities, their extended
//     properties and their associations.
//   - dialect holds the capability table that drives every
//     dialect-specific decision.
//   - dialect/sql compiles and executes statements.
//   - dialect/sql/schema generates DDL and ensures it exists in a live
//     database.
//
// This package holds the error types shared by all layers. Callers classify
// failures with the Is* predicates rather than by message:
//
//	if polystore.IsConfigurationError(err) {
//	    // the request does not match the entity metadata
//	}
package polystore
