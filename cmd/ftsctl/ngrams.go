package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/bootstrap"
)

func newNgramsCmd(root *rootOptions) *cobra.Command {
	var (
		class     string
		indexName string
		bounded   bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "ngrams [text]",
		Short: "Show the n-grams an index extracts from text",
		Long: `Tokenizes text with the configuration of a class's index. Queries are
tokenized bounded (an evenly spaced sample), documents unbounded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd, func(app *bootstrap.App) error {
				set, err := app.Service.ExtractNgrams(class, indexName, args[0], bounded)
				if err != nil {
					return err
				}
				entries := set.Entries()
				if asJSON {
					return printJSON(cmd, entries)
				}
				if len(entries) == 0 {
					cmd.Println("No n-grams.")
					return nil
				}
				for _, e := range entries {
					cmd.Printf("%-16q %.6f\n", e.Text, e.Score)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "indexed class")
	cmd.Flags().StringVar(&indexName, "index", "", "index name when the class has several")
	cmd.Flags().BoolVar(&bounded, "bounded", false, "sample n-grams the way queries do")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}
