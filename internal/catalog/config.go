package catalog

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

// stopWordPresets are the named lists an index may add with stopWordPreset.
var stopWordPresets = map[string]func() []string{
	"english": ngram.EnglishStopWords,
}

// FromConfig builds a catalog from the configured index definitions.
// Filters read the document attribute of the same name and updateIf names
// a boolean attribute. A stopWordPreset is appended to the index's own stop
// words.
func FromConfig(cfg *config.Config) (*Catalog, error) {
	c := New(cfg.Locales)
	for _, ic := range cfg.Indexes {
		if ic.StopWordPreset != "" {
			preset, ok := stopWordPresets[ic.StopWordPreset]
			if !ok {
				return nil, apperrors.Config(apperrors.ErrInvalidInput,
					"index %s: unknown stop word preset %q", ic.Class, ic.StopWordPreset)
			}
			ic.Ngram.StopWords = append(slices.Clone(ic.Ngram.StopWords), preset()...)
		}
		def := Definition{
			Name:               ic.Name,
			Class:              ic.Class,
			Descendants:        ic.Descendants,
			Fields:             ic.Fields,
			Localized:          ic.Localized,
			ReindexImmediately: ic.ReindexImmediately,
			Config:             ic.Ngram,
		}
		for _, name := range ic.Filters {
			def.Filters = append(def.Filters, Filter{Name: name, Evaluator: document.AttributeFilter(name)})
		}
		if ic.UpdateIf != "" {
			def.UpdateIf = document.AttributeCondition(ic.UpdateIf)
		}
		if _, err := c.Register(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}
