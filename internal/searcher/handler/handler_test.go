package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/fulltext"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/memory"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cat := catalog.New(nil)
	_, err := cat.Register(catalog.Definition{
		Class:   "Artist",
		Filters: []catalog.Filter{{Name: "country", Evaluator: document.AttributeFilter("country")}},
		Config:  ngram.DefaultConfig(),
	})
	require.NoError(t, err)
	for _, name := range []string{"a", "b"} {
		_, err := cat.Register(catalog.Definition{Name: name, Class: "Album", Config: ngram.DefaultConfig()})
		require.NoError(t, err)
	}
	svc := fulltext.New(cat, memory.New(), fulltext.Options{})
	mux := http.NewServeMux()
	New(svc, nil, 10, 2).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func indexArtists(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/documents", `[
		{"id":"1","class":"Artist","text":"Pablo Picasso","attributes":{"country":"es"}},
		{"id":"2","class":"Artist","text":"Paul Klee","attributes":{"country":"ch"}},
		{"id":"3","class":"Artist","text":"Paula Rego","attributes":{"country":"pt"}}
	]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"indexed","documents":3}`, rec.Body.String())
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) executor.SearchResult {
	t.Helper()
	var res executor.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestSearch_Get(t *testing.T) {
	h := newServer(t)
	indexArtists(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/search?class=Artist&q=picaso", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "1", res.Results[0].DocumentID)
}

func TestSearch_LimitIsCapped(t *testing.T) {
	h := newServer(t)
	indexArtists(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/search?class=Artist&q=pablo+paul+paula&limit=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResult(t, rec).Results, 2)
}

func TestSearch_PostWithFilters(t *testing.T) {
	h := newServer(t)
	indexArtists(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/search",
		`{"class":"Artist","query":"paul","filters":{"country":{"any":["pt","ch"]}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeResult(t, rec)
	require.NotEmpty(t, res.Results)
	for _, r := range res.Results {
		assert.Contains(t, []string{"2", "3"}, r.DocumentID)
	}
}

func TestSearch_Errors(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"missing class", http.MethodGet, "/api/v1/search?q=x", "", http.StatusBadRequest},
		{"missing query", http.MethodGet, "/api/v1/search?class=Artist", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/search?class=Artist&q=x&limit=0", "", http.StatusBadRequest},
		{"unknown class", http.MethodGet, "/api/v1/search?class=Nope&q=x", "", http.StatusNotFound},
		{"ambiguous index", http.MethodGet, "/api/v1/search?class=Album&q=x", "", http.StatusBadRequest},
		{"unknown index", http.MethodGet, "/api/v1/search?class=Album&q=x&index=c", "", http.StatusNotFound},
		{"bad json", http.MethodPost, "/api/v1/search", "{", http.StatusBadRequest},
		{"unknown operator", http.MethodPost, "/api/v1/search", `{"class":"Artist","query":"x","filters":{"country":{"none":["es"]}}}`, http.StatusBadRequest},
		{"document without id", http.MethodPost, "/api/v1/documents", `{"class":"Artist","text":"x"}`, http.StatusBadRequest},
		{"remove unknown class", http.MethodDelete, "/api/v1/classes/Nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRemoveDocumentAndClass(t *testing.T) {
	h := newServer(t)
	indexArtists(t, h)

	rec := do(t, h, http.MethodDelete, "/api/v1/classes/Artist/documents/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	res := decodeResult(t, do(t, h, http.MethodGet, "/api/v1/search?class=Artist&q=picasso", ""))
	for _, r := range res.Results {
		assert.NotEqual(t, "1", r.DocumentID)
	}

	rec = do(t, h, http.MethodDelete, "/api/v1/classes/Artist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"removed"`)

	res = decodeResult(t, do(t, h, http.MethodGet, "/api/v1/search?class=Artist&q=paul", ""))
	assert.Empty(t, res.Results)
}

func TestNgrams(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/ngrams?class=Artist&text=cat&bounded=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Ngrams []ngram.Entry `json:"ngrams"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Ngrams, 1)
	assert.Equal(t, "cat", body.Ngrams[0].Text)

	rec = do(t, h, http.MethodGet, "/api/v1/ngrams?class=Artist&text=cat&bounded=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheDisabled(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/cache/stats", "")
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/cache/invalidate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}
