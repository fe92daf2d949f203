package catalog

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// Filter query operators.
const (
	OperatorAny = "any"
	OperatorAll = "all"
)

// QueryFilters turns caller filter options into store conditions. A plain
// value or list requires the record to hold all of it; a map selects the
// operator with a single "any" or "all" key.
func QueryFilters(options map[string]any) (index.Filter, error) {
	var f index.Filter
	fields := make([]string, 0, len(options))
	for field := range options {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		cond, err := condition(field, options[field])
		if err != nil {
			return index.Filter{}, err
		}
		f.Conditions = append(f.Conditions, cond)
	}
	return f, nil
}

func condition(field string, value any) (index.Condition, error) {
	spec, ok := value.(map[string]any)
	if !ok {
		return index.Condition{Field: field, Op: index.OpAll, Values: index.Elements(value)}, nil
	}
	if v, ok := spec[OperatorAny]; ok {
		return index.Condition{Field: field, Op: index.OpIn, Values: index.Elements(v)}, nil
	}
	if v, ok := spec[OperatorAll]; ok {
		return index.Condition{Field: field, Op: index.OpAll, Values: index.Elements(v)}, nil
	}
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return index.Condition{}, apperrors.Config(apperrors.ErrUnknownFilterOperator, "%v on filter %q", keys, field)
}

// TypeFilter restricts a search to def's class and its descendants. A class
// without descendants needs no restriction.
func TypeFilter(def *Definition) index.Filter {
	if len(def.Descendants) == 0 {
		return index.Filter{}
	}
	return index.Filter{ClassIn: def.Classes()}
}

// SearchFilter combines caller options with the type filter of def.
func SearchFilter(def *Definition, options map[string]any) (index.Filter, error) {
	f, err := QueryFilters(options)
	if err != nil {
		return index.Filter{}, err
	}
	f.ClassIn = TypeFilter(def).ClassIn
	return f, nil
}
