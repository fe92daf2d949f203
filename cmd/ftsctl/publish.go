package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/kafka"
)

func newPublishCmd(root *rootOptions) *cobra.Command {
	var (
		op    string
		class string
	)
	cmd := &cobra.Command{
		Use:   "publish [file]",
		Short: "Publish reindex events for the indexer service",
		Long: `Reads documents like "index" does and publishes one reindex event per
document to the reindex topic. With --op remove_class no input is read and a
single event for --class is sent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			var evs []events.Event
			switch events.Op(op) {
			case events.OpRemoveClass:
				evs = []events.Event{{Op: events.OpRemoveClass, Class: class}}
			case events.OpSave, events.OpIndex, events.OpRemove:
				docs, err := readDocuments(cmd, args)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					if doc.Class == "" {
						doc.Class = class
					}
					evs = append(evs, events.Event{Op: events.Op(op), Class: doc.Class, Document: doc})
				}
			default:
				return fmt.Errorf("unknown op %q", op)
			}

			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Reindex)
			defer producer.Close()
			if err := events.NewPublisher(producer).Publish(cmd.Context(), evs...); err != nil {
				return err
			}
			cmd.Printf("Published %d %s events to %s.\n", len(evs), op, cfg.Kafka.Topics.Reindex)
			return nil
		},
	}
	cmd.Flags().StringVar(&op, "op", string(events.OpSave), "event op (save, index, remove, remove_class)")
	cmd.Flags().StringVar(&class, "class", "", "class for documents without one")
	return cmd
}
