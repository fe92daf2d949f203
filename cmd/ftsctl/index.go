package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [file]",
		Short: "Reindex documents from a JSON file",
		Long: `Reads documents from file (or stdin when file is "-" or missing) and
reindexes each under every index of its class. The input is either a JSON
array of documents or one JSON document per line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(cmd, args)
			if err != nil {
				return err
			}
			return root.withApp(cmd, func(app *bootstrap.App) error {
				n, err := app.Service.ReindexAll(cmd.Context(), docs)
				cmd.Printf("Indexed %d of %d documents.\n", n, len(docs))
				return err
			})
		},
	}
	return cmd
}

func readDocuments(cmd *cobra.Command, args []string) ([]document.Document, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	return decodeDocuments(data)
}

func decodeDocuments(data []byte) ([]document.Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var docs []document.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decoding documents: %w", err)
		}
		return docs, nil
	}
	var docs []document.Document
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var doc document.Document
		if err := json.Unmarshal(text, &doc); err != nil {
			return nil, fmt.Errorf("decoding document on line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	return docs, sc.Err()
}
