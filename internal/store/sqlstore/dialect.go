// Package sqlstore implements index collections on top of database/sql.
// Each collection is a table of n-gram records; filter values are stored as
// a JSON document and matched through dialect-specific predicates.
package sqlstore

// Dialect captures the SQL differences between backends.
type Dialect interface {
	// Name identifies the backend in logs.
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	QuoteIdentifier(name string) string
	QuoteLiteral(value string) string
	// CreateTable returns DDL creating the record table if it is missing.
	CreateTable(table string) string
	// Contains returns a predicate that is true when the filter value under
	// keyArg equals, or is an array containing, the operand bound at
	// valueArg.
	Contains(keyArg, valueArg string) string
	// ContainsArgs converts a filter key and operand into bind arguments
	// matching Contains.
	ContainsArgs(key string, operand any) (keyValue any, operandValue any, err error)
	// FilterValuesArg wraps the insert placeholder for the JSON column.
	FilterValuesArg(placeholder string) string
	// FilterIndexExpr returns an index expression over one filter value.
	FilterIndexExpr(key string) string
}
