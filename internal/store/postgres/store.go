// Package postgres stores index collections in PostgreSQL. Filter values
// live in a JSONB column and are matched with the containment operator,
// which treats a scalar operand as contained in an array holding it.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/sqlstore"
)

// New wraps an open PostgreSQL pool as an index store.
func New(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect{})
}

type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (Dialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (Dialect) QuoteLiteral(value string) string {
	return pq.QuoteLiteral(value)
}

func (Dialect) CreateTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	class TEXT NOT NULL,
	document_id TEXT NOT NULL,
	ngram TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	filter_values JSONB
)`, table)
}

func (Dialect) Contains(keyArg, valueArg string) string {
	return fmt.Sprintf("(filter_values -> %s::text) @> %s::jsonb", keyArg, valueArg)
}

func (Dialect) ContainsArgs(key string, operand any) (any, any, error) {
	data, err := json.Marshal(operand)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding filter operand for %q: %w", key, err)
	}
	return key, string(data), nil
}

func (Dialect) FilterValuesArg(placeholder string) string {
	return placeholder + "::jsonb"
}

func (d Dialect) FilterIndexExpr(key string) string {
	return "(filter_values -> " + d.QuoteLiteral(key) + ")"
}
