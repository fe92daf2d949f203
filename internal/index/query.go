package index

import (
	"fmt"
	"math"
	"reflect"
)

// Operator is a filter comparison.
type Operator string

const (
	// OpIn matches when the stored value, or any element of a stored array,
	// equals one of the operands.
	OpIn Operator = "in"
	// OpAll matches when the stored value contains every operand. A scalar
	// stored value contains only itself.
	OpAll Operator = "all"
)

// Condition restricts a filter value.
type Condition struct {
	Field  string   `json:"field"`
	Op     Operator `json:"op"`
	Values []any    `json:"values"`
}

// Filter is the caller-supplied restriction merged into every cursor query.
type Filter struct {
	ClassIn    []string    `json:"class_in,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// IsZero reports whether f restricts nothing.
func (f Filter) IsZero() bool {
	return len(f.ClassIn) == 0 && len(f.Conditions) == 0
}

// Query selects records. Zero-valued fields do not restrict.
type Query struct {
	Ngram      string
	DocumentID string
	Class      string
	Filter
}

// ForNgram combines the n-gram lookup with f.
func ForNgram(ngram string, f Filter) Query {
	return Query{Ngram: ngram, Filter: f}
}

// ForDocument selects every record of one document.
func ForDocument(documentID string) Query {
	return Query{DocumentID: documentID}
}

// ForClass selects every record of one class.
func ForClass(class string) Query {
	return Query{Class: class}
}

// IsZero reports whether q would select the whole collection.
func (q Query) IsZero() bool {
	return q.Ngram == "" && q.DocumentID == "" && q.Class == "" && q.Filter.IsZero()
}

func (q Query) String() string {
	return fmt.Sprintf("query{ngram=%q document_id=%q class=%q class_in=%v conditions=%v}",
		q.Ngram, q.DocumentID, q.Class, q.ClassIn, q.Conditions)
}

// Matches evaluates q against rec in memory.
func (q Query) Matches(rec Record) bool {
	if q.Ngram != "" && rec.Ngram != q.Ngram {
		return false
	}
	if q.DocumentID != "" && rec.DocumentID != q.DocumentID {
		return false
	}
	if q.Class != "" && rec.Class != q.Class {
		return false
	}
	if len(q.ClassIn) > 0 && !containsString(q.ClassIn, rec.Class) {
		return false
	}
	for _, c := range q.Conditions {
		if !c.Matches(rec.FilterValues) {
			return false
		}
	}
	return true
}

// Matches evaluates c against a record's filter values.
func (c Condition) Matches(values map[string]any) bool {
	stored, ok := values[c.Field]
	if !ok {
		return false
	}
	elems := Elements(stored)
	switch c.Op {
	case OpIn:
		for _, want := range c.Values {
			if containsValue(elems, want) {
				return true
			}
		}
		return false
	case OpAll:
		if len(c.Values) == 0 {
			return false
		}
		for _, want := range c.Values {
			if !containsValue(elems, want) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Elements flattens a stored filter value: arrays yield their elements,
// scalars yield themselves.
func Elements(v any) []any {
	if v == nil {
		return []any{nil}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Normalize folds numeric types onto float64 so that values survive a JSON
// round trip unchanged for comparison purposes.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		if math.IsNaN(n) {
			return nil
		}
		return n
	default:
		return v
	}
}

func containsValue(elems []any, want any) bool {
	w := Normalize(want)
	for _, e := range elems {
		if reflect.DeepEqual(Normalize(e), w) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
