// Package document describes the host documents the index is built from and
// the per-document hooks (filters, update conditions) an index definition
// attaches to them.
package document

import (
	"fmt"
	"log/slog"
)

// Document is a host record as seen by the indexer.
type Document struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	// Text is indexed when a definition names no fields.
	Text   string            `json:"text,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	// Translations holds localized field values keyed by field, then locale.
	Translations map[string]map[string]string `json:"translations,omitempty"`
	Attributes   map[string]any               `json:"attributes,omitempty"`
}

// FieldText returns the value of field for locale. Localized values win
// over plain ones; ok is false when the document has neither.
func (d Document) FieldText(field, locale string) (string, bool) {
	if tr, ok := d.Translations[field]; ok {
		v, ok := tr[locale]
		return v, ok
	}
	v, ok := d.Fields[field]
	return v, ok
}

// FilterEvaluator computes one filter value for a document. ok is false when
// no value could be produced; the filter is then left out of the record.
type FilterEvaluator interface {
	Evaluate(doc Document) (value any, ok bool)
}

// FilterFunc adapts a function to FilterEvaluator. A returned error or a
// panic drops the value.
type FilterFunc func(doc Document) (any, error)

func (f FilterFunc) Evaluate(doc Document) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().With("component", "filter-evaluator").Warn("filter panicked",
				"document_id", doc.ID, "panic", fmt.Sprint(r))
			value, ok = nil, false
		}
	}()
	v, err := f(doc)
	if err != nil {
		return nil, false
	}
	return v, true
}

// AttributeFilter reads the named attribute. Missing attributes produce no
// value.
func AttributeFilter(name string) FilterEvaluator {
	return FilterFunc(func(doc Document) (any, error) {
		v, ok := doc.Attributes[name]
		if !ok {
			return nil, fmt.Errorf("attribute %q not set", name)
		}
		return v, nil
	})
}

// Condition decides whether a document should be (re)indexed.
type Condition interface {
	Allow(doc Document) bool
}

// ConditionFunc adapts a predicate to Condition.
type ConditionFunc func(doc Document) bool

func (f ConditionFunc) Allow(doc Document) bool {
	return f(doc)
}

// AttributeCondition allows documents whose named attribute is set to
// anything other than nil or false.
func AttributeCondition(name string) Condition {
	return ConditionFunc(func(doc Document) bool {
		v, ok := doc.Attributes[name]
		if !ok || v == nil {
			return false
		}
		if b, isBool := v.(bool); isBool {
			return b
		}
		return true
	})
}
