package ngram

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func catConfig() Config {
	return Config{
		Alphabet:          "abcdefghijklmnopqrstuvwxyz",
		WordSeparators:    " ",
		NgramWidth:        3,
		MaxNgramsToSearch: 6,
		IndexFullWords:    true,
	}
}

func TestExtract_CatScenario(t *testing.T) {
	tok := MustNew(catConfig())

	got := tok.Extract("cat", false)

	require.Len(t, got, 1)
	want := math.Sqrt(1+1.0/3) + (1 + 1.0/3)
	assert.InDelta(t, want, got["cat"], eps)
	assert.InDelta(t, 2.4880, got["cat"], 1e-4)
}

func TestExtract_Empty(t *testing.T) {
	tok := MustNew(DefaultConfig())

	assert.Empty(t, tok.Extract("", true))
	assert.Empty(t, tok.Extract("", false))
	assert.Empty(t, tok.Extract("!!!", true), "nothing survives the filter")
	assert.NotNil(t, tok.Extract("", true))
}

func TestExtract_Deterministic(t *testing.T) {
	tok := MustNew(DefaultConfig())
	text := "The Quick Brown Fox jumps over the lazy dog"

	first := tok.Extract(text, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, tok.Extract(text, true))
	}
}

func TestExtract_DuplicateWindowKeepsMax(t *testing.T) {
	cfg := catConfig()
	cfg.IndexFullWords = false
	tok := MustNew(cfg)

	got := tok.Extract("abcabc", false)

	// "abc" occurs at i=0 (prefix score) and i=3 (interior score).
	assert.InDelta(t, math.Sqrt(1+1.0/6), got["abc"], eps)
	assert.InDelta(t, math.Sqrt(2.0/6), got["bca"], eps)
	assert.InDelta(t, math.Sqrt(2.0/6), got["cab"], eps)
	assert.Len(t, got, 3)
}

func TestExtract_CrossCategorySum(t *testing.T) {
	cfg := catConfig()
	cfg.NgramWidth = 3
	cfg.IndexShortPrefixes = true
	tok := MustNew(cfg)

	got := tok.Extract("cat", false)

	window := math.Sqrt(1 + 1.0/3)
	word := 1 + 1.0/3
	assert.InDelta(t, window+word, got["cat"], eps)
	assert.InDelta(t, word, got["ca"], eps)
}

func TestExtract_WordStartScoring(t *testing.T) {
	tests := []struct {
		name       string
		allWords   bool
		wantCatWin float64
	}{
		{"prefix scoring on every word", true, math.Sqrt(1 + 1.0/7)},
		{"prefix scoring on string start only", false, math.Sqrt(2.0 / 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := catConfig()
			cfg.IndexFullWords = false
			cfg.ApplyPrefixScoringToAllWords = tt.allWords
			tok := MustNew(cfg)

			got := tok.Extract("the cat", false)

			assert.InDelta(t, math.Sqrt(1+1.0/7), got["the"], eps)
			assert.InDelta(t, tt.wantCatWin, got["cat"], eps)
			assert.InDelta(t, math.Sqrt(2.0/7), got["he "], eps)
			assert.InDelta(t, math.Sqrt(2.0/7), got[" ca"], eps)
		})
	}
}

func TestExtract_BoundedSampling(t *testing.T) {
	cfg := catConfig()
	cfg.IndexFullWords = false
	cfg.MaxNgramsToSearch = 2
	tok := MustNew(cfg)

	bounded := tok.Extract("abcdefghijk", true)
	assert.ElementsMatch(t, []string{"abc", "efg", "ijk"}, keys(bounded))

	unbounded := tok.Extract("abcdefghijk", false)
	assert.Len(t, unbounded, 9)
}

func TestExtract_BoundedLongInputStaysSmall(t *testing.T) {
	tok := MustNew(DefaultConfig())
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 50)

	got := tok.Extract(text, true)
	windows := 0
	for text := range got {
		if len([]rune(text)) == 3 {
			windows++
		}
	}
	assert.LessOrEqual(t, windows, DefaultConfig().MaxNgramsToSearch+1)
}

func TestExtract_ShortPrefixes(t *testing.T) {
	cfg := catConfig()
	cfg.IndexFullWords = false
	cfg.IndexShortPrefixes = true
	tok := MustNew(cfg)

	got := tok.Extract("cat dog cab", false)

	wordScore := 1 + 1.0/11
	// "ca" is emitted once even though two words share it.
	assert.InDelta(t, wordScore, got["ca"], eps)
	assert.InDelta(t, wordScore, got["do"], eps)
}

func TestExtract_ShortInput(t *testing.T) {
	t.Run("full word qualifies", func(t *testing.T) {
		tok := MustNew(catConfig())
		got := tok.Extract("ab", true)
		assert.Equal(t, Set{"ab": 1.5}, got)
	})
	t.Run("nothing qualifies", func(t *testing.T) {
		cfg := catConfig()
		cfg.IndexFullWords = false
		tok := MustNew(cfg)
		assert.Empty(t, tok.Extract("ab", true))
	})
	t.Run("single letter word is not a full word", func(t *testing.T) {
		tok := MustNew(catConfig())
		assert.Empty(t, tok.Extract("a", true))
	})
}

func TestExtract_FilterAndCase(t *testing.T) {
	tok := MustNew(catConfig())

	assert.Equal(t, tok.Extract("cat", false), tok.Extract("C-A!T", false))
}

func TestExtract_RemoveAccents(t *testing.T) {
	cfg := catConfig()
	cfg.RemoveAccents = true
	withRemoval := MustNew(cfg)

	assert.Equal(t, withRemoval.Extract("cafe", false), withRemoval.Extract("Café", false))

	cfg.RemoveAccents = false
	without := MustNew(cfg)
	got := without.Extract("café", false)
	assert.Contains(t, got, "caf")
	assert.NotContains(t, got, "afe")
}

func TestExtract_StopWords(t *testing.T) {
	cfg := catConfig()
	cfg.StopWords = []string{"the"}
	cfg.ApplyPrefixScoringToAllWords = true
	tok := MustNew(cfg)

	got := tok.Extract("the cat", false)
	assert.InDelta(t, math.Sqrt(1+1.0/7)+(1+1.0/7), got["cat"], eps)
	assert.InDelta(t, math.Sqrt(1+1.0/7), got["the"], eps, "stop word keeps only its window score")

	alone := tok.Extract("the", false)
	assert.InDelta(t, math.Sqrt(1+1.0/3)+(1+1.0/3), alone["the"], eps)
}

func TestExtract_ScoresPositive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexShortPrefixes = true
	tok := MustNew(cfg)

	for _, e := range tok.Extract("Ünïcödé text, with   spaces_and-dashes 123", false).Entries() {
		assert.Greater(t, e.Score, 0.0, e.Text)
	}
}

func TestSet_EntriesSorted(t *testing.T) {
	s := Set{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []Entry{{"a", 2}, {"b", 1}, {"c", 3}}, s.Entries())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NgramWidth = 0
	_, err := New(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxNgramsToSearch = 0
	_, err = New(cfg)
	require.Error(t, err)

	assert.Empty(t, Extract("cat", cfg, true))
}

func keys(s Set) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
