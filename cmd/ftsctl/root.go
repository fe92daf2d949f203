package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ftsctl",
		Short: "Inspect and maintain n-gram full-text indexes",
		Long: `ftsctl talks directly to the configured index store. It tokenizes text,
runs fuzzy searches, (re)indexes documents and publishes reindex events for
the indexer service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/development.yaml", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newNgramsCmd(opts),
		newSearchCmd(opts),
		newIndexCmd(opts),
		newRemoveCmd(opts),
		newEnsureIndexesCmd(opts),
		newPublishCmd(opts),
		newLoadTestCmd(),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// withApp builds the service for one command and closes it afterwards.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(app *bootstrap.App) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	app, err := bootstrap.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
