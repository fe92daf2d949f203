package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondition_Matches(t *testing.T) {
	values := map[string]any{
		"genres": []any{"rock", "jazz"},
		"year":   1999,
		"label":  "blue note",
	}
	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"in hits array element", Condition{Field: "genres", Op: OpIn, Values: []any{"pop", "jazz"}}, true},
		{"in misses array", Condition{Field: "genres", Op: OpIn, Values: []any{"pop"}}, false},
		{"all hits array", Condition{Field: "genres", Op: OpAll, Values: []any{"jazz", "rock"}}, true},
		{"all partially misses array", Condition{Field: "genres", Op: OpAll, Values: []any{"jazz", "pop"}}, false},
		{"all on scalar", Condition{Field: "label", Op: OpAll, Values: []any{"blue note"}}, true},
		{"in on scalar", Condition{Field: "label", Op: OpIn, Values: []any{"x", "blue note"}}, true},
		{"numbers compare across types", Condition{Field: "year", Op: OpIn, Values: []any{float64(1999)}}, true},
		{"missing field", Condition{Field: "country", Op: OpIn, Values: []any{"us"}}, false},
		{"all with no operands", Condition{Field: "label", Op: OpAll}, false},
		{"unknown operator", Condition{Field: "label", Op: "gt", Values: []any{"a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Matches(values))
		})
	}
}

func TestQuery_Matches(t *testing.T) {
	rec := Record{Class: "Artist", DocumentID: "1", Ngram: "cat", Score: 1, FilterValues: map[string]any{"genre": "rock"}}

	assert.True(t, ForNgram("cat", Filter{}).Matches(rec))
	assert.False(t, ForNgram("dog", Filter{}).Matches(rec))
	assert.True(t, ForDocument("1").Matches(rec))
	assert.False(t, ForDocument("2").Matches(rec))
	assert.True(t, ForClass("Artist").Matches(rec))
	assert.True(t, ForNgram("cat", Filter{ClassIn: []string{"Band", "Artist"}}).Matches(rec))
	assert.False(t, ForNgram("cat", Filter{ClassIn: []string{"Band"}}).Matches(rec))
	assert.True(t, ForNgram("cat", Filter{Conditions: []Condition{{Field: "genre", Op: OpAll, Values: []any{"rock"}}}}).Matches(rec))
	assert.False(t, ForNgram("cat", Filter{Conditions: []Condition{{Field: "genre", Op: OpAll, Values: []any{"pop"}}}}).Matches(rec))
}

func TestQuery_IsZero(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty", Query{}, true},
		{"blank document id", ForDocument(""), true},
		{"blank class", ForClass(""), true},
		{"document", ForDocument("1"), false},
		{"class", ForClass("Artist"), false},
		{"ngram", ForNgram("cat", Filter{}), false},
		{"class filter only", Query{Filter: Filter{ClassIn: []string{"Artist"}}}, false},
		{"condition only", Query{Filter: Filter{Conditions: []Condition{{Field: "genre", Op: OpIn, Values: []any{"rock"}}}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.IsZero())
		})
	}
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "artists", CollectionName("artists", "en", false))
	assert.Equal(t, "artists_en", CollectionName("artists", "en", true))
	assert.Equal(t, "artists", CollectionName("artists", "", true))
}

func TestFTSIndexSpec(t *testing.T) {
	spec := FTSIndexSpec([]string{"genre"})
	assert.Equal(t, FTSIndexName, spec.Name)
	assert.Equal(t, []IndexKey{
		{Field: FieldNgram, Direction: Ascending},
		{Field: "filter_values.genre", Direction: Ascending},
	}, spec.Keys)
	assert.Equal(t, "fts_index{ngram:1,filter_values.genre:1}", spec.String())
}
