// Package index defines the persisted n-gram record, the store-neutral query
// model and the collection contract every storage backend implements.
package index

import (
	"context"
	"fmt"
	"strings"
)

// Record field names as they appear in queries, sort specs and index specs.
const (
	FieldClass        = "class"
	FieldDocumentID   = "document_id"
	FieldNgram        = "ngram"
	FieldScore        = "score"
	FieldFilterValues = "filter_values"
)

// Record is one (document, n-gram) pair.
type Record struct {
	Class        string         `json:"class"`
	DocumentID   string         `json:"document_id"`
	Ngram        string         `json:"ngram"`
	Score        float64        `json:"score"`
	FilterValues map[string]any `json:"filter_values,omitempty"`
}

// Collection is the document-store contract consumed by the search and
// index paths. Every call is a store round trip and honours ctx.
type Collection interface {
	Name() string
	Count(ctx context.Context, q Query) (int, error)
	Find(ctx context.Context, q Query, opts FindOptions) ([]Record, error)
	InsertOne(ctx context.Context, rec Record) error
	DeleteMany(ctx context.Context, q Query) (int64, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
}

// BatchInserter is implemented by collections that can write a document's
// records in a single round trip.
type BatchInserter interface {
	InsertMany(ctx context.Context, recs []Record) error
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}

// Direction is a sort or index key direction.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortField orders Find results.
type SortField struct {
	Field     string
	Direction Direction
}

// FindOptions limits and orders a Find. A zero Limit fetches everything.
type FindOptions struct {
	Sort  []SortField
	Limit int
}

// ByScoreDesc ranks records by their stored score, highest first, keeping
// at most limit of them. Equal scores are ordered by document id.
func ByScoreDesc(limit int) FindOptions {
	return FindOptions{
		Sort: []SortField{
			{Field: FieldScore, Direction: Descending},
			{Field: FieldDocumentID, Direction: Ascending},
		},
		Limit: limit,
	}
}

// IndexKey is one key of a store index.
type IndexKey struct {
	Field     string
	Direction Direction
}

// IndexSpec describes a store index.
type IndexSpec struct {
	Name string
	Keys []IndexKey
}

func (s IndexSpec) String() string {
	parts := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k.Field, k.Direction))
	}
	return fmt.Sprintf("%s{%s}", s.Name, strings.Join(parts, ","))
}

// FTSIndexName is the name of the compound lookup index.
const FTSIndexName = "fts_index"

// FTSIndexSpec is the compound index on ngram plus every filter field used
// by the definition.
func FTSIndexSpec(filters []string) IndexSpec {
	keys := []IndexKey{{Field: FieldNgram, Direction: Ascending}}
	for _, f := range filters {
		keys = append(keys, IndexKey{Field: FilterField(f), Direction: Ascending})
	}
	return IndexSpec{Name: FTSIndexName, Keys: keys}
}

// DocumentIDIndexSpec speeds up deletes on reindex.
func DocumentIDIndexSpec() IndexSpec {
	return IndexSpec{
		Name: "document_id_index",
		Keys: []IndexKey{{Field: FieldDocumentID, Direction: Ascending}},
	}
}

// FilterField returns the dotted path of a filter value.
func FilterField(name string) string {
	return FieldFilterValues + "." + name
}

// CollectionName returns the collection holding an index for one locale.
// Unlocalized indexes share a single collection across locales.
func CollectionName(indexName, locale string, localized bool) string {
	if !localized || locale == "" {
		return indexName
	}
	return indexName + "_" + locale
}
