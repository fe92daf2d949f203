// Package ranker folds scored candidates into per-document results.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/candidate"
)

// Result is one ranked document with its summed score.
type Result struct {
	DocumentID string  `json:"document_id"`
	Class      string  `json:"class"`
	Score      float64 `json:"score"`
}

// Rank sums candidate scores per document and returns the top limit
// documents by score. Equal scores are ordered by document id so results
// do not depend on fetch order. A non-positive limit keeps everything.
func Rank(candidates []candidate.Candidate, limit int) []Result {
	scores := make(map[string]*Result)
	for _, c := range candidates {
		r, ok := scores[c.DocumentID]
		if !ok {
			r = &Result{DocumentID: c.DocumentID, Class: c.Class}
			scores[c.DocumentID] = r
		}
		r.Score += c.Score
	}

	result := make([]Result, 0, len(scores))
	for _, r := range scores {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocumentID < result[j].DocumentID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
