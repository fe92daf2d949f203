package ngram

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// Config controls how text is turned into scored n-grams. A Config is built
// once per index definition and treated as immutable afterwards.
type Config struct {
	Alphabet                     string   `yaml:"alphabet"`
	WordSeparators               string   `yaml:"wordSeparators"`
	NgramWidth                   int      `yaml:"ngramWidth"`
	MaxNgramsToSearch            int      `yaml:"maxNgramsToSearch"`
	IndexShortPrefixes           bool     `yaml:"indexShortPrefixes"`
	IndexFullWords               bool     `yaml:"indexFullWords"`
	ApplyPrefixScoringToAllWords bool     `yaml:"applyPrefixScoringToAllWords"`
	RemoveAccents                bool     `yaml:"removeAccents"`
	StopWords                    []string `yaml:"stopWords"`
}

// DefaultConfig returns the settings used when an index definition does not
// override them.
func DefaultConfig() Config {
	return Config{
		Alphabet:                     "abcdefghijklmnopqrstuvwxyz0123456789 ",
		WordSeparators:               "-_ \n\t",
		NgramWidth:                   3,
		MaxNgramsToSearch:            6,
		IndexShortPrefixes:           false,
		IndexFullWords:               true,
		ApplyPrefixScoringToAllWords: true,
		RemoveAccents:                true,
	}
}

// Validate reports whether the config can drive a Tokenizer.
func (c Config) Validate() error {
	if c.NgramWidth < 1 {
		return apperrors.Config(apperrors.ErrInvalidInput, "ngram width must be >= 1, got %d", c.NgramWidth)
	}
	if c.MaxNgramsToSearch <= 0 {
		return apperrors.Config(apperrors.ErrInvalidInput, "max ngrams to search must be > 0, got %d", c.MaxNgramsToSearch)
	}
	if c.Alphabet == "" && c.WordSeparators == "" {
		return apperrors.Config(apperrors.ErrInvalidInput, "alphabet and word separators are both empty")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("ngram{width=%d max=%d prefixes=%t words=%t prefix_scoring=%t accents=%t}",
		c.NgramWidth, c.MaxNgramsToSearch, c.IndexShortPrefixes, c.IndexFullWords,
		c.ApplyPrefixScoringToAllWords, c.RemoveAccents)
}

// EnglishStopWords is a small stop list suitable for English text.
func EnglishStopWords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at",
		"be", "by", "for", "from", "has", "he",
		"in", "is", "it", "its", "of", "on",
		"or", "that", "the", "to", "was", "were",
		"will", "with", "this", "but", "they",
		"have", "had", "what", "when", "where",
		"who", "which", "their", "if", "each",
		"do", "not", "no", "so", "can",
	}
}
