// Package catalog holds the full-text index definitions of every indexed
// class and resolves which index, collection and filters a search or write
// should use.
package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// DefaultIndexPrefix starts generated index names.
const DefaultIndexPrefix = "fts_index_"

// Filter is a named per-document filter value stored with every record.
type Filter struct {
	Name      string
	Evaluator document.FilterEvaluator
}

// Definition is one full-text index over a class. It is immutable once
// registered.
type Definition struct {
	Name  string
	Class string
	// Descendants are subclasses stored under their own class names whose
	// documents a search on Class should also return.
	Descendants []string
	// Fields are indexed in order; no fields means Document.Text.
	Fields    []string
	Localized bool
	Filters   []Filter
	// UpdateIf skips (re)indexing documents it rejects. Nil allows all.
	UpdateIf           document.Condition
	ReindexImmediately bool
	Config             ngram.Config

	tokenizer *ngram.Tokenizer
}

func (d *Definition) Tokenizer() *ngram.Tokenizer {
	return d.tokenizer
}

func (d *Definition) FilterNames() []string {
	names := make([]string, len(d.Filters))
	for i, f := range d.Filters {
		names[i] = f.Name
	}
	return names
}

// Classes returns the class and its descendants.
func (d *Definition) Classes() []string {
	return append([]string{d.Class}, d.Descendants...)
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	byClass map[string][]*Definition
	order   []*Definition
	locales []string
	logger  *slog.Logger
}

// New creates an empty catalog. locales lists the configured locales; the
// first is the default.
func New(locales []string) *Catalog {
	return &Catalog{
		byClass: make(map[string][]*Definition),
		locales: slices.Clone(locales),
		logger:  slog.Default().With("component", "catalog"),
	}
}

// Register validates def, compiles its tokenizer and adds it. A blank name
// becomes fts_index_<class>_<n>, n counting the class's earlier definitions.
func (c *Catalog) Register(def Definition) (*Definition, error) {
	if def.Class == "" {
		return nil, apperrors.Config(apperrors.ErrInvalidInput, "index definition has no class")
	}
	tok, err := ngram.New(def.Config)
	if err != nil {
		return nil, fmt.Errorf("index definition for %s: %w", def.Class, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.byClass[def.Class]
	if def.Name == "" {
		def.Name = fmt.Sprintf("%s%s_%d", DefaultIndexPrefix, strings.ToLower(def.Class), len(existing))
	}
	for _, other := range existing {
		if other.Name == def.Name {
			return nil, apperrors.Config(apperrors.ErrInvalidInput, "%s already has an index named %q", def.Class, def.Name)
		}
	}
	seen := make(map[string]struct{}, len(def.Filters))
	for _, f := range def.Filters {
		if f.Name == "" || f.Evaluator == nil {
			return nil, apperrors.Config(apperrors.ErrInvalidInput, "index %q has an incomplete filter", def.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, apperrors.Config(apperrors.ErrInvalidInput, "index %q declares filter %q twice", def.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	d := def
	d.Descendants = slices.Clone(def.Descendants)
	d.Fields = slices.Clone(def.Fields)
	d.Filters = slices.Clone(def.Filters)
	d.Config.StopWords = slices.Clone(def.Config.StopWords)
	d.tokenizer = tok

	c.byClass[d.Class] = append(existing, &d)
	c.order = append(c.order, &d)
	c.logger.Info("index registered",
		"class", d.Class,
		"index", d.Name,
		"fields", d.Fields,
		"localized", d.Localized,
		"ngram", d.Config.String(),
	)
	return &d, nil
}

// Definitions returns the definitions a document of class is written to, in
// registration order: the class's own and those declaring it a descendant.
func (c *Catalog) Definitions(class string) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var defs []*Definition
	for _, d := range c.order {
		if d.Class == class || slices.Contains(d.Descendants, class) {
			defs = append(defs, d)
		}
	}
	return defs
}

// All returns every definition in registration order.
func (c *Catalog) All() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Classes returns the indexed class names, sorted.
func (c *Catalog) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	classes := make([]string, 0, len(c.byClass))
	for class := range c.byClass {
		classes = append(classes, class)
	}
	slices.Sort(classes)
	return classes
}

// Select picks the index a search on class should use. indexName may be
// blank only when the class has a single index.
func (c *Catalog) Select(class, indexName string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := c.byClass[class]
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownClass, class)
	}
	if indexName == "" {
		if len(defs) > 1 {
			return nil, apperrors.Config(apperrors.ErrUnspecifiedIndex,
				"%s is indexed by multiple full-text indexes; specify one of %v", class, names(defs))
		}
		return defs[0], nil
	}
	for _, d := range defs {
		if d.Name == indexName {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no index %q", apperrors.ErrIndexNotFound, class, indexName)
}

// Locales returns the configured locales. Without configured locales there
// is a single unnamed locale.
func (c *Catalog) Locales() []string {
	if len(c.locales) == 0 {
		return []string{""}
	}
	return slices.Clone(c.locales)
}

// DefaultLocale is the first configured locale, or "".
func (c *Catalog) DefaultLocale() string {
	if len(c.locales) == 0 {
		return ""
	}
	return c.locales[0]
}

// IsLocalized reports whether def keeps a collection per locale: it must be
// declared localized and more than one locale must be configured.
func (c *Catalog) IsLocalized(def *Definition) bool {
	return def.Localized && len(c.locales) > 1
}

// CollectionName resolves the collection of def for locale. A blank locale
// means the default one.
func (c *Catalog) CollectionName(def *Definition, locale string) (string, error) {
	if locale == "" {
		locale = c.DefaultLocale()
	} else if len(c.locales) > 0 && !slices.Contains(c.locales, locale) {
		return "", apperrors.Config(apperrors.ErrInvalidInput, "unknown locale %q", locale)
	}
	return index.CollectionName(def.Name, locale, c.IsLocalized(def)), nil
}

// CollectionNames returns every distinct collection of def.
func (c *Catalog) CollectionNames(def *Definition) []string {
	if !c.IsLocalized(def) {
		return []string{def.Name}
	}
	out := make([]string, 0, len(c.locales))
	for _, locale := range c.locales {
		out = append(out, index.CollectionName(def.Name, locale, true))
	}
	return out
}

func names(defs []*Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}
