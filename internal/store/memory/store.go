// Package memory is an in-process index store. It implements the same
// matching semantics as the SQL backends and backs tests and single-node
// deployments that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// Store holds named collections.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func New() *Store {
	return &Store{
		collections: make(map[string]*Collection),
	}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) index.Collection {
	return s.collection(name)
}

func (s *Store) collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{name: name, indexes: make(map[string]index.IndexSpec)}
		s.collections[name] = c
	}
	return c
}

// Names lists the collections created so far.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// Collection is a slice of records guarded by a RWMutex. Records keep
// insertion order.
type Collection struct {
	name    string
	mu      sync.RWMutex
	records []index.Record
	indexes map[string]index.IndexSpec
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Count(ctx context.Context, q index.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, rec := range c.records {
		if q.Matches(rec) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) Find(ctx context.Context, q index.Query, opts index.FindOptions) ([]index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	result := make([]index.Record, 0)
	for _, rec := range c.records {
		if q.Matches(rec) {
			result = append(result, copyRecord(rec))
		}
	}
	c.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(result, func(i, j int) bool {
			return less(result[i], result[j], opts.Sort)
		})
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (c *Collection) InsertOne(ctx context.Context, rec index.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, copyRecord(rec))
	return nil
}

func (c *Collection) DeleteMany(ctx context.Context, q index.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if q.IsZero() {
		return 0, apperrors.Config(apperrors.ErrInvalidInput, "refusing unrestricted delete on %s", c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.records[:0]
	var deleted int64
	for _, rec := range c.records {
		if q.Matches(rec) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	clear(c.records[len(kept):])
	c.records = kept
	return deleted, nil
}

func (c *Collection) CreateIndex(ctx context.Context, spec index.IndexSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[spec.Name] = spec
	return nil
}

// Indexes returns the index specs created on the collection by name.
func (c *Collection) Indexes() map[string]index.IndexSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]index.IndexSpec, len(c.indexes))
	for k, v := range c.indexes {
		out[k] = v
	}
	return out
}

// Len returns the number of stored records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func less(a, b index.Record, fields []index.SortField) bool {
	for _, f := range fields {
		cmp := compareField(a, b, f.Field)
		if cmp == 0 {
			continue
		}
		if f.Direction == index.Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func compareField(a, b index.Record, field string) int {
	switch field {
	case index.FieldScore:
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	case index.FieldNgram:
		return compareStrings(a.Ngram, b.Ngram)
	case index.FieldDocumentID:
		return compareStrings(a.DocumentID, b.DocumentID)
	case index.FieldClass:
		return compareStrings(a.Class, b.Class)
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func copyRecord(rec index.Record) index.Record {
	if rec.FilterValues == nil {
		return rec
	}
	values := make(map[string]any, len(rec.FilterValues))
	for k, v := range rec.FilterValues {
		values[k] = v
	}
	rec.FilterValues = values
	return rec
}
