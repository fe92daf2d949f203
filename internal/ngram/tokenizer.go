// Package ngram turns free text into a weighted set of n-grams. The same
// extraction runs at index time (every n-gram) and at query time (an evenly
// spaced sample bounded by MaxNgramsToSearch).
//
// Scores are chosen so that multiplying the scores of matching n-grams
// favours strings that share a prefix or word start with the query: the
// first n-gram of the string (and of every word when prefix scoring applies
// to all words) scores sqrt(1 + 1/len), all others sqrt(2/len).
package ngram

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Entry is a single n-gram and its score.
type Entry struct {
	Text  string  `json:"ngram"`
	Score float64 `json:"score"`
}

// Set maps n-gram text to score. Texts are unique by construction.
type Set map[string]float64

// Entries returns the set ordered by text.
func (s Set) Entries() []Entry {
	entries := make([]Entry, 0, len(s))
	for text, score := range s {
		entries = append(entries, Entry{Text: text, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Text < entries[j].Text
	})
	return entries
}

// Add merges other into s by summing scores.
func (s Set) Add(other Set) {
	for text, score := range other {
		s[text] += score
	}
}

// Tokenizer is a compiled Config.
type Tokenizer struct {
	cfg        Config
	alphabet   map[rune]struct{}
	separators map[rune]struct{}
	stopWords  map[string]struct{}
}

// New compiles cfg into a Tokenizer.
func New(cfg Config) (*Tokenizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Tokenizer{
		cfg:        cfg,
		alphabet:   runeSet(cfg.Alphabet),
		separators: runeSet(cfg.WordSeparators),
		stopWords:  make(map[string]struct{}, len(cfg.StopWords)),
	}
	for _, w := range cfg.StopWords {
		t.stopWords[strings.ToLower(w)] = struct{}{}
	}
	return t, nil
}

// MustNew is New for configs known to be valid.
func MustNew(cfg Config) *Tokenizer {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Config returns the configuration the tokenizer was built from.
func (t *Tokenizer) Config() Config {
	return t.cfg
}

// Extract computes the n-gram set of text. bounded caps the number of
// sliding-window n-grams at roughly MaxNgramsToSearch and is used for
// queries; documents are indexed unbounded. An empty input yields an empty
// set.
func (t *Tokenizer) Extract(text string, bounded bool) Set {
	if text == "" {
		return Set{}
	}
	filtered := t.filter(text)
	if len(filtered) == 0 {
		return Set{}
	}

	length := float64(len(filtered))
	width := t.cfg.NgramWidth

	// If an n-gram appears more than once in the window pass, keep its
	// highest score.
	window := make(Set)
	step := t.stepSize(len(filtered), bounded)
	for i := 0; i <= len(filtered)-width; i += step {
		var score float64
		if i == 0 || (t.cfg.ApplyPrefixScoringToAllWords && t.isSeparator(filtered[i-1])) {
			score = math.Sqrt(1 + 1/length)
		} else {
			score = math.Sqrt(2 / length)
		}
		gram := string(filtered[i : i+width])
		if prev, ok := window[gram]; !ok || score > prev {
			window[gram] = score
		}
	}

	result := make(Set, len(window))
	result.Add(window)

	if !t.cfg.IndexShortPrefixes && !t.cfg.IndexFullWords {
		return result
	}

	whole := string(filtered)
	words := strings.FieldsFunc(whole, t.isSeparator)
	wordScore := 1 + 1/length

	if t.cfg.IndexShortPrefixes && width > 1 {
		seen := make(map[string]struct{})
		for _, word := range words {
			runes := []rune(word)
			if len(runes) < width-1 || !t.eligible(word, whole) {
				continue
			}
			prefix := string(runes[:width-1])
			if _, ok := seen[prefix]; ok {
				continue
			}
			seen[prefix] = struct{}{}
			result[prefix] += wordScore
		}
	}

	if t.cfg.IndexFullWords {
		seen := make(map[string]struct{})
		for _, word := range words {
			if len([]rune(word)) <= 1 || !t.eligible(word, whole) {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			result[word] += wordScore
		}
	}

	return result
}

// filter lower-cases text and drops every rune that is neither in the
// alphabet nor a word separator.
func (t *Tokenizer) filter(text string) []rune {
	if t.cfg.RemoveAccents {
		text = norm.NFKD.String(text)
	}
	text = strings.ToLower(text)
	filtered := make([]rune, 0, len(text))
	for _, r := range text {
		if _, ok := t.alphabet[r]; ok {
			filtered = append(filtered, r)
			continue
		}
		if t.isSeparator(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// stepSize spreads the window positions evenly over the string so that
// roughly MaxNgramsToSearch n-grams are taken. With width 3 and a budget of
// 2, "abcdefghijk" is stepped by 4: "abc", "efg", "ijk".
func (t *Tokenizer) stepSize(length int, bounded bool) int {
	if !bounded {
		return 1
	}
	step := int(math.Ceil(float64(length-t.cfg.NgramWidth) / float64(t.cfg.MaxNgramsToSearch)))
	return max(step, 1)
}

func (t *Tokenizer) isSeparator(r rune) bool {
	_, ok := t.separators[r]
	return ok
}

// eligible reports whether word may produce prefix and full-word entries.
// Stop words only qualify when they are the entire input.
func (t *Tokenizer) eligible(word, whole string) bool {
	if _, stop := t.stopWords[word]; !stop {
		return true
	}
	return word == whole
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// Extract is a convenience wrapper that compiles cfg and extracts text in
// one call. Invalid configs yield an empty set.
func Extract(text string, cfg Config, bounded bool) Set {
	t, err := New(cfg)
	if err != nil {
		return Set{}
	}
	return t.Extract(text, bounded)
}
