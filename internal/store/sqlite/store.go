// Package sqlite stores index collections in an embedded SQLite database.
// Filter values are kept as JSON text and matched with json_each, so a
// stored array matches any of its elements and a stored scalar matches
// itself.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/sqlstore"
)

// New wraps an open SQLite database as an index store.
func New(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect{})
}

type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (Dialect) CreateTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	class TEXT NOT NULL,
	document_id TEXT NOT NULL,
	ngram TEXT NOT NULL,
	score REAL NOT NULL,
	filter_values TEXT
)`, table)
}

func (Dialect) Contains(keyArg, valueArg string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(filter_values, %s) AS je WHERE je.value = %s)", keyArg, valueArg)
}

// ContainsArgs binds the key as a JSON path. Booleans are bound as 0/1
// because json_each reports JSON true/false as integers.
func (Dialect) ContainsArgs(key string, operand any) (any, any, error) {
	path := `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
	switch v := operand.(type) {
	case bool:
		if v {
			return path, 1, nil
		}
		return path, 0, nil
	case string, float64, int64, nil:
		return path, v, nil
	default:
		return nil, nil, fmt.Errorf("unsupported filter operand %T for %q", operand, key)
	}
}

func (Dialect) FilterValuesArg(placeholder string) string {
	return placeholder
}

func (d Dialect) FilterIndexExpr(key string) string {
	return "json_extract(filter_values, " + d.QuoteLiteral(`$."`+key+`"`) + ")"
}
