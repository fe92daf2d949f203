package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/fulltext"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		opts   fulltext.SearchOptions
		class  string
		all    []string
		anyOf  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Fuzzy-search an index",
		Long: `Searches the index of a class. --filter key=value requires every given
value for key; --any key=value matches documents with at least one of them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(all, anyOf)
			if err != nil {
				return err
			}
			opts.Filters = filters
			return root.withApp(cmd, func(app *bootstrap.App) error {
				res, err := app.Service.Search(cmd.Context(), class, args[0], opts)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				if asJSON {
					return printJSON(cmd, res)
				}
				if len(res.Results) == 0 {
					cmd.Println("No results found.")
					return nil
				}
				for i, r := range res.Results {
					cmd.Printf("  [%d] %s %s (%.4f)\n", i+1, r.Class, r.DocumentID, r.Score)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "indexed class")
	cmd.Flags().StringVar(&opts.Index, "index", "", "index name when the class has several")
	cmd.Flags().StringVar(&opts.Locale, "locale", "", "locale of a localized index")
	cmd.Flags().IntVarP(&opts.MaxResults, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringArrayVar(&all, "filter", nil, "key=value filter, all values must match (repeatable)")
	cmd.Flags().StringArrayVar(&anyOf, "any", nil, "key=value filter, any value may match (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

// parseFilters turns key=value flags into filter options. Values that parse
// as JSON (numbers, booleans) keep their type.
func parseFilters(all, anyOf []string) (map[string]any, error) {
	filters := make(map[string]any)
	allValues := make(map[string][]any)
	anyValues := make(map[string][]any)
	for _, group := range []struct {
		flags []string
		into  map[string][]any
	}{{all, allValues}, {anyOf, anyValues}} {
		for _, f := range group.flags {
			key, raw, ok := strings.Cut(f, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("filter %q is not key=value", f)
			}
			group.into[key] = append(group.into[key], parseValue(raw))
		}
	}
	for key, values := range allValues {
		if _, dup := anyValues[key]; dup {
			return nil, fmt.Errorf("filter %q given with both --filter and --any", key)
		}
		filters[key] = map[string]any{catalog.OperatorAll: values}
	}
	for key, values := range anyValues {
		filters[key] = map[string]any{catalog.OperatorAny: values}
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return filters, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return raw
}
