package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/bootstrap"
)

func newRemoveCmd(root *rootOptions) *cobra.Command {
	var class, id string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a document, or a whole class, from its indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(app *bootstrap.App) error {
				if id != "" {
					if err := app.Service.RemoveDocument(cmd.Context(), class, id); err != nil {
						return err
					}
					cmd.Printf("Removed %s %s.\n", class, id)
					return nil
				}
				n, err := app.Service.RemoveClass(cmd.Context(), class)
				if err != nil {
					return err
				}
				cmd.Printf("Removed %d records of %s.\n", n, class)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "indexed class")
	cmd.Flags().StringVar(&id, "id", "", "document id; omit to remove the whole class")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func newEnsureIndexesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the n-gram and document id indexes of every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(app *bootstrap.App) error {
				if err := app.Service.EnsureIndexes(cmd.Context()); err != nil {
					return err
				}
				for _, def := range app.Catalog.All() {
					for _, name := range app.Catalog.CollectionNames(def) {
						cmd.Printf("ensured %s\n", name)
					}
				}
				return nil
			})
		},
	}
}
