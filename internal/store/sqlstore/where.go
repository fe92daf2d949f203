package sqlstore

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// buildWhere renders q as a WHERE clause (with a leading space) and its
// bind arguments. An empty query renders as "".
func buildWhere(d Dialect, q index.Query) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}

	if q.Ngram != "" {
		clauses = append(clauses, "ngram = "+bind(q.Ngram))
	}
	if q.DocumentID != "" {
		clauses = append(clauses, "document_id = "+bind(q.DocumentID))
	}
	if q.Class != "" {
		clauses = append(clauses, "class = "+bind(q.Class))
	}
	if len(q.ClassIn) > 0 {
		marks := make([]string, len(q.ClassIn))
		for i, class := range q.ClassIn {
			marks[i] = bind(class)
		}
		clauses = append(clauses, "class IN ("+strings.Join(marks, ", ")+")")
	}
	for _, cond := range q.Conditions {
		if len(cond.Values) == 0 {
			clauses = append(clauses, "1 = 0")
			continue
		}
		var joiner string
		switch cond.Op {
		case index.OpIn:
			joiner = " OR "
		case index.OpAll:
			joiner = " AND "
		default:
			return "", nil, apperrors.Config(apperrors.ErrUnknownFilterOperator, "%q on field %q", cond.Op, cond.Field)
		}
		preds := make([]string, 0, len(cond.Values))
		for _, operand := range cond.Values {
			key, value, err := d.ContainsArgs(cond.Field, index.Normalize(operand))
			if err != nil {
				return "", nil, err
			}
			keyMark := bind(key)
			valueMark := bind(value)
			preds = append(preds, d.Contains(keyMark, valueMark))
		}
		clauses = append(clauses, "("+strings.Join(preds, joiner)+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
