// Package handler exposes the full-text service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/fulltext"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/logger"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service      *fulltext.Service
	checker      *health.Checker
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(svc *fulltext.Service, checker *health.Checker, defaultLimit, maxResults int) *Handler {
	if checker == nil {
		checker = health.NewChecker()
		checker.Require("store", health.PingFunc(svc.Ping))
	}
	return &Handler{
		service:      svc,
		checker:      checker,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search", h.SearchJSON)
	mux.HandleFunc("GET /api/v1/ngrams", h.Ngrams)
	mux.HandleFunc("POST /api/v1/documents", h.IndexDocuments)
	mux.HandleFunc("DELETE /api/v1/classes/{class}/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("DELETE /api/v1/classes/{class}", h.RemoveClass)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.checker.Handler())
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Class   string         `json:"class"`
	Query   string         `json:"query"`
	Index   string         `json:"index,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Locale  string         `json:"locale,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := SearchRequest{
		Class:  q.Get("class"),
		Query:  q.Get("q"),
		Index:  q.Get("index"),
		Locale: q.Get("locale"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		req.Limit = parsed
	}
	h.search(w, r, req)
}

func (h *Handler) SearchJSON(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	h.search(w, r, req)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	if req.Class == "" {
		h.writeError(w, http.StatusBadRequest, "parameter 'class' is required")
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = h.defaultLimit
	}
	if h.maxResults > 0 && limit > h.maxResults {
		limit = h.maxResults
	}

	result, err := h.service.Search(r.Context(), req.Class, req.Query, fulltext.SearchOptions{
		Index:      req.Index,
		MaxResults: limit,
		Locale:     req.Locale,
		Filters:    req.Filters,
	})
	if err != nil {
		log.Error("search failed", "class", req.Class, "query", req.Query, "error", err)
		h.writeAppError(w, err)
		return
	}

	log.Info("search completed",
		"class", req.Class,
		"query", req.Query,
		"returned", len(result.Results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Ngrams shows how the index of a class tokenizes text.
func (h *Handler) Ngrams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bounded := true
	if b := q.Get("bounded"); b != "" {
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "bounded must be a boolean")
			return
		}
		bounded = parsed
	}
	set, err := h.service.ExtractNgrams(q.Get("class"), q.Get("index"), q.Get("text"), bounded)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ngrams": set.Entries()})
}

// IndexDocuments reindexes the posted document, or array of documents,
// synchronously.
func (h *Handler) IndexDocuments(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := h.decode(w, r, &raw); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var docs []document.Document
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &docs); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		var doc document.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		docs = []document.Document{doc}
	}

	n, err := h.service.ReindexAll(r.Context(), docs)
	if err != nil {
		logger.FromContext(r.Context()).Error("indexing failed", "indexed", n, "error", err)
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "indexed", "documents": n})
}

func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	class, id := r.PathValue("class"), r.PathValue("id")
	if err := h.service.RemoveDocument(r.Context(), class, id); err != nil {
		h.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveClass(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.RemoveClass(r.Context(), r.PathValue("class"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "removed", "records": n})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.service.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops the cached results of ?collection=, or all of them.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.service.Cache()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if coll := r.URL.Query().Get("collection"); coll != "" {
		if err := c.Invalidate(r.Context(), coll); err != nil {
			h.logger.Error("cache invalidation failed", "collection", coll, "error", err)
			h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "collection": coll})
		return
	}
	n, err := c.InvalidateAll(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": n})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
