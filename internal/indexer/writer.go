// Package indexer maintains the n-gram index collections: it extracts
// n-grams from documents, writes one record per (document, n-gram) and
// removes records when documents or whole classes go away. Reindexing is
// delete-then-insert and is not transactional.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
)

const defaultReindexConcurrency = 4

// Invalidator is told which collections a write touched.
type Invalidator interface {
	Invalidate(ctx context.Context, collection string) error
}

type Writer struct {
	catalog     *catalog.Catalog
	store       index.Store
	invalidator Invalidator
	metrics     *metrics.Metrics
	concurrency int
	logger      *slog.Logger
}

func NewWriter(cat *catalog.Catalog, store index.Store) *Writer {
	return &Writer{
		catalog:     cat,
		store:       store,
		concurrency: defaultReindexConcurrency,
		logger:      slog.Default().With("component", "index-writer"),
	}
}

// WithInvalidator registers inv to be notified after successful writes.
func (w *Writer) WithInvalidator(inv Invalidator) *Writer {
	w.invalidator = inv
	return w
}

func (w *Writer) WithMetrics(m *metrics.Metrics) *Writer {
	w.metrics = m
	return w
}

// WithConcurrency bounds the documents ReindexAll processes at once.
func (w *Writer) WithConcurrency(n int) *Writer {
	if n > 0 {
		w.concurrency = n
	}
	return w
}

// IndexDocument (re)indexes doc under every definition of its class.
func (w *Writer) IndexDocument(ctx context.Context, doc document.Document) error {
	return w.indexDocument(ctx, doc, false)
}

// OnSave is the save hook of the host: it reindexes doc only under the
// definitions that reindex immediately.
func (w *Writer) OnSave(ctx context.Context, doc document.Document) error {
	return w.indexDocument(ctx, doc, true)
}

// OnDestroy is the destroy hook of the host.
func (w *Writer) OnDestroy(ctx context.Context, doc document.Document) error {
	return w.RemoveDocument(ctx, doc.Class, doc.ID)
}

func (w *Writer) indexDocument(ctx context.Context, doc document.Document, immediateOnly bool) error {
	if doc.ID == "" {
		return apperrors.Config(apperrors.ErrInvalidInput, "document has no id")
	}
	defs := w.catalog.Definitions(doc.Class)
	if len(defs) == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownClass, doc.Class)
	}

	var touched []string
	defer func() { w.invalidate(ctx, touched) }()

	for _, def := range defs {
		if immediateOnly && !def.ReindexImmediately {
			continue
		}
		if def.UpdateIf != nil && !def.UpdateIf.Allow(doc) {
			w.logger.Debug("update condition rejected document",
				"index", def.Name, "document_id", doc.ID)
			continue
		}
		for _, locale := range w.locales(def) {
			name := index.CollectionName(def.Name, locale, w.catalog.IsLocalized(def))
			coll := w.store.Collection(name)

			if _, err := coll.DeleteMany(ctx, index.ForDocument(doc.ID)); err != nil {
				return fmt.Errorf("removing ngrams of %s from %s: %w", doc.ID, name, err)
			}
			touched = append(touched, name)

			ngrams := Ngrams(def, doc, locale)
			if len(ngrams) == 0 {
				continue
			}
			if err := w.InsertNgrams(ctx, coll, doc.ID, doc.Class, ngrams, FilterValues(def, doc)); err != nil {
				return err
			}
		}
	}
	if w.metrics != nil && len(touched) > 0 {
		w.metrics.DocsIndexedTotal.Inc()
	}
	return nil
}

// locales lists the locales def is written for: every configured locale
// when it is localized, otherwise just the default.
func (w *Writer) locales(def *catalog.Definition) []string {
	if w.catalog.IsLocalized(def) {
		return w.catalog.Locales()
	}
	return []string{w.catalog.DefaultLocale()}
}

// Ngrams extracts the unbounded n-gram set of doc for one locale. Each
// configured field is tokenized on its own and the sets are merged by
// summing scores.
func Ngrams(def *catalog.Definition, doc document.Document, locale string) ngram.Set {
	tok := def.Tokenizer()
	if len(def.Fields) == 0 {
		return tok.Extract(doc.Text, false)
	}
	set := make(ngram.Set)
	for _, field := range def.Fields {
		text, ok := doc.FieldText(field, locale)
		if !ok {
			continue
		}
		set.Add(tok.Extract(text, false))
	}
	return set
}

// FilterValues evaluates the filters of def against doc. Filters that
// produce no value are left out; nil means no filter produced one.
func FilterValues(def *catalog.Definition, doc document.Document) map[string]any {
	if len(def.Filters) == 0 {
		return nil
	}
	values := make(map[string]any, len(def.Filters))
	for _, f := range def.Filters {
		v, ok := f.Evaluator.Evaluate(doc)
		if !ok {
			slog.Default().With("component", "index-writer").Debug("filter dropped",
				"index", def.Name, "filter", f.Name, "document_id", doc.ID)
			continue
		}
		values[f.Name] = v
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// InsertNgrams writes one record per n-gram of a document into coll.
func (w *Writer) InsertNgrams(ctx context.Context, coll index.Collection, documentID, class string, ngrams ngram.Set, filterValues map[string]any) error {
	if documentID == "" {
		return apperrors.Config(apperrors.ErrInvalidInput, "ngrams for %s have no document id", coll.Name())
	}
	entries := ngrams.Entries()
	recs := make([]index.Record, len(entries))
	for i, e := range entries {
		recs[i] = index.Record{
			Class:        class,
			DocumentID:   documentID,
			Ngram:        e.Text,
			Score:        e.Score,
			FilterValues: filterValues,
		}
	}

	if batch, ok := coll.(index.BatchInserter); ok {
		if err := batch.InsertMany(ctx, recs); err != nil {
			return fmt.Errorf("inserting ngrams of %s into %s: %w", documentID, coll.Name(), err)
		}
	} else {
		for _, rec := range recs {
			if err := coll.InsertOne(ctx, rec); err != nil {
				return fmt.Errorf("inserting ngram %q of %s into %s: %w", rec.Ngram, documentID, coll.Name(), err)
			}
		}
	}

	if w.metrics != nil {
		w.metrics.NgramsWrittenTotal.Add(float64(len(recs)))
	}
	w.logger.Debug("ngrams inserted",
		"collection", coll.Name(),
		"document_id", documentID,
		"ngrams", len(recs),
	)
	return nil
}

// RemoveDocument deletes the records of one document from every collection
// of its class.
func (w *Writer) RemoveDocument(ctx context.Context, class, documentID string) error {
	if documentID == "" {
		return apperrors.Config(apperrors.ErrInvalidInput, "document of class %s has no id", class)
	}
	defs := w.catalog.Definitions(class)
	if len(defs) == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownClass, class)
	}
	var touched []string
	defer func() { w.invalidate(ctx, touched) }()

	for _, def := range defs {
		for _, name := range w.catalog.CollectionNames(def) {
			if _, err := w.store.Collection(name).DeleteMany(ctx, index.ForDocument(documentID)); err != nil {
				return fmt.Errorf("removing ngrams of %s from %s: %w", documentID, name, err)
			}
			touched = append(touched, name)
		}
	}
	if w.metrics != nil {
		w.metrics.DocsRemovedTotal.Inc()
	}
	w.logger.Debug("document removed", "class", class, "document_id", documentID)
	return nil
}

// RemoveClass deletes every record of class and returns how many went.
func (w *Writer) RemoveClass(ctx context.Context, class string) (int64, error) {
	defs := w.catalog.Definitions(class)
	if len(defs) == 0 {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrUnknownClass, class)
	}
	var (
		total   int64
		touched []string
	)
	defer func() { w.invalidate(ctx, touched) }()

	for _, def := range defs {
		for _, name := range w.catalog.CollectionNames(def) {
			n, err := w.store.Collection(name).DeleteMany(ctx, index.ForClass(class))
			if err != nil {
				return total, fmt.Errorf("removing class %s from %s: %w", class, name, err)
			}
			total += n
			touched = append(touched, name)
		}
	}
	w.logger.Info("class removed from index", "class", class, "records", total)
	return total, nil
}

// EnsureIndexes creates the n-gram/filter index and the document id index
// on every collection of every definition.
func (w *Writer) EnsureIndexes(ctx context.Context) error {
	for _, def := range w.catalog.All() {
		fts := index.FTSIndexSpec(def.FilterNames())
		for _, name := range w.catalog.CollectionNames(def) {
			coll := w.store.Collection(name)
			w.logger.Info("ensuring index", "collection", name, "index", fts.String())
			if err := coll.CreateIndex(ctx, fts); err != nil {
				return fmt.Errorf("ensuring %s on %s: %w", fts.Name, name, err)
			}
			if err := coll.CreateIndex(ctx, index.DocumentIDIndexSpec()); err != nil {
				return fmt.Errorf("ensuring document id index on %s: %w", name, err)
			}
		}
	}
	return nil
}

// ReindexAll indexes docs with bounded parallelism and returns how many
// succeeded. The first failure cancels the rest.
func (w *Writer) ReindexAll(ctx context.Context, docs []document.Document) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	done := make([]bool, len(docs))
	for i, doc := range docs {
		g.Go(func() error {
			if err := w.IndexDocument(gctx, doc); err != nil {
				return fmt.Errorf("reindexing %s %s: %w", doc.Class, doc.ID, err)
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	n := 0
	for _, ok := range done {
		if ok {
			n++
		}
	}
	w.logger.Info("reindex finished", "documents", len(docs), "indexed", n)
	return n, err
}

func (w *Writer) invalidate(ctx context.Context, collections []string) {
	if w.invalidator == nil || len(collections) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(collections))
	for _, name := range collections {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if err := w.invalidator.Invalidate(context.WithoutCancel(ctx), name); err != nil {
			w.logger.Warn("cache invalidation failed", "collection", name, "error", err)
		}
	}
}
