package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// Store hands out table-backed collections sharing one connection pool.
type Store struct {
	db          *sql.DB
	dialect     Dialect
	mu          sync.Mutex
	collections map[string]*Collection
	logger      *slog.Logger
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:          db,
		dialect:     dialect,
		collections: make(map[string]*Collection),
		logger:      slog.Default().With("component", "sql-store", "dialect", dialect.Name()),
	}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Collection(name string) index.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{
			store: s,
			name:  name,
			table: s.dialect.QuoteIdentifier(name),
		}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Collection is one record table. The table is created on first use.
type Collection struct {
	store   *Store
	name    string
	table   string
	mu      sync.Mutex
	ensured bool
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ensured {
		return nil
	}
	if _, err := c.store.db.ExecContext(ctx, c.store.dialect.CreateTable(c.table)); err != nil {
		return apperrors.Store("creating table "+c.name, err)
	}
	c.ensured = true
	c.store.logger.Debug("collection table ready", "collection", c.name)
	return nil
}

func (c *Collection) Count(ctx context.Context, q index.Query) (int, error) {
	if err := c.ensure(ctx); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(c.store.dialect, q)
	if err != nil {
		return 0, err
	}
	var n int
	query := "SELECT COUNT(*) FROM " + c.table + where
	if err := c.store.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.Store("counting "+c.name, err)
	}
	return n, nil
}

func (c *Collection) Find(ctx context.Context, q index.Query, opts index.FindOptions) ([]index.Record, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	where, args, err := buildWhere(c.store.dialect, q)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT class, document_id, ngram, score, filter_values FROM ")
	sb.WriteString(c.table)
	sb.WriteString(where)
	if len(opts.Sort) > 0 {
		order := make([]string, 0, len(opts.Sort))
		for _, f := range opts.Sort {
			col, err := column(f.Field)
			if err != nil {
				return nil, err
			}
			order = append(order, col+" "+direction(f.Direction))
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(order, ", "))
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(" LIMIT ")
		sb.WriteString(c.store.dialect.Placeholder(len(args)))
	}

	rows, err := c.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, apperrors.Store("finding in "+c.name, err)
	}
	defer rows.Close()

	result := make([]index.Record, 0)
	for rows.Next() {
		var rec index.Record
		var raw []byte
		if err := rows.Scan(&rec.Class, &rec.DocumentID, &rec.Ngram, &rec.Score, &raw); err != nil {
			return nil, apperrors.Store("scanning "+c.name, err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.FilterValues); err != nil {
				return nil, fmt.Errorf("decoding filter values in %s: %w", c.name, err)
			}
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("iterating "+c.name, err)
	}
	return result, nil
}

func (c *Collection) InsertOne(ctx context.Context, rec index.Record) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	query, args, err := c.insertStatement(rec)
	if err != nil {
		return err
	}
	if _, err := c.store.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Store("inserting into "+c.name, err)
	}
	return nil
}

// InsertMany writes records in one transaction.
func (c *Collection) InsertMany(ctx context.Context, recs []index.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if err := c.ensure(ctx); err != nil {
		return err
	}
	return c.store.InTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			query, args, err := c.insertStatement(rec)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return apperrors.Store("inserting into "+c.name, err)
			}
		}
		return nil
	})
}

func (c *Collection) insertStatement(rec index.Record) (string, []any, error) {
	var values any
	if len(rec.FilterValues) > 0 {
		data, err := json.Marshal(rec.FilterValues)
		if err != nil {
			return "", nil, fmt.Errorf("encoding filter values: %w", err)
		}
		values = string(data)
	}
	d := c.store.dialect
	query := fmt.Sprintf(
		"INSERT INTO %s (class, document_id, ngram, score, filter_values) VALUES (%s, %s, %s, %s, %s)",
		c.table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4),
		d.FilterValuesArg(d.Placeholder(5)),
	)
	return query, []any{rec.Class, rec.DocumentID, rec.Ngram, rec.Score, values}, nil
}

func (c *Collection) DeleteMany(ctx context.Context, q index.Query) (int64, error) {
	if q.IsZero() {
		return 0, apperrors.Config(apperrors.ErrInvalidInput, "refusing unrestricted delete on %s", c.name)
	}
	if err := c.ensure(ctx); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(c.store.dialect, q)
	if err != nil {
		return 0, err
	}
	res, err := c.store.db.ExecContext(ctx, "DELETE FROM "+c.table+where, args...)
	if err != nil {
		return 0, apperrors.Store("deleting from "+c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Store("deleting from "+c.name, err)
	}
	return n, nil
}

func (c *Collection) CreateIndex(ctx context.Context, spec index.IndexSpec) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	d := c.store.dialect
	parts := make([]string, 0, len(spec.Keys))
	for _, k := range spec.Keys {
		var expr string
		if key, ok := strings.CutPrefix(k.Field, index.FieldFilterValues+"."); ok {
			expr = d.FilterIndexExpr(key)
		} else {
			col, err := column(k.Field)
			if err != nil {
				return err
			}
			expr = col
		}
		parts = append(parts, expr+" "+direction(k.Direction))
	}
	name := d.QuoteIdentifier(c.name + "_" + spec.Name)
	ddl := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, c.table, strings.Join(parts, ", "))
	if _, err := c.store.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.Store("creating index "+spec.Name+" on "+c.name, err)
	}
	return nil
}

// InTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Store("beginning transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Store("committing transaction", err)
	}
	return nil
}

func column(field string) (string, error) {
	switch field {
	case index.FieldClass, index.FieldDocumentID, index.FieldNgram, index.FieldScore:
		return field, nil
	default:
		return "", apperrors.Config(apperrors.ErrInvalidInput, "unsupported record field %q", field)
	}
}

func direction(d index.Direction) string {
	if d == index.Descending {
		return "DESC"
	}
	return "ASC"
}
