// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/search"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [source] <id>",
	Short: "Fetch and grade a single record by its source identifier",
	Long: `Lookup fetches one record (a PMID, Cochrane review id, NCT number or
guideline id) from the named source and prints it as JSON with its evidence
quality. Relevance is not scored because there are no keywords.

The source may be omitted for PMIDs, NCT numbers and Cochrane review numbers
(CD004349 or the review DOI); guideline ids always need the source.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	name, id := "", args[0]
	if len(args) == 2 {
		name, id = args[0], args[1]
	} else {
		var err error
		if name, id, err = search.Classify(id); err != nil {
			return err
		}
	}

	cfg := searchConfig(viper.GetViper(), loadedSecrets)
	src, err := search.NewSource(name, cfg, search.Options{Logger: slog.Default()})
	if err != nil {
		return err
	}
	lk, ok := src.(search.Lookuper)
	if !ok {
		return fmt.Errorf("source %s does not support lookup", src.Name())
	}

	p, err := lk.Lookup(contextOrBackground(cmd), id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
