// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search evidence sources for publications, reviews, trials and guidelines",
	Long: `Search sends the keywords to every enabled source (or those named with
--sources) concurrently. Results are graded for evidence quality, filtered by
each source's relevance threshold, deduplicated across sources by title and
first author, and ranked by relevance.

A source that fails is reported on stderr and skipped; the search still
returns what the other sources found. Use --save to store the query and its
results as YAML and --load to print a saved search without querying again.`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("keywords", "", "search keywords (comma-separated)")
	f.String("sources", "", "sources to query (comma-separated; default: all enabled)")
	f.String("from", "", "publication date range start (YYYY-MM-DD)")
	f.String("to", "", "publication date range end (YYYY-MM-DD)")
	f.String("type", "", "publication type filter (e.g. \"Randomized Controlled Trial\", \"treatment\")")
	f.String("phase", "", "trial phase filter (e.g. PHASE3)")
	f.String("status", "", "trial status filter (e.g. COMPLETED)")
	f.String("study-type", "", "trial study type filter (e.g. INTERVENTIONAL)")
	f.Int("max-results", 0, "maximum number of results (default from config, 20)")
	f.Bool("json", false, "output results as JSON")
	f.Bool("csl", false, "output results as CSL-YAML")
	f.String("save", "", "write the query and results to this YAML file")
	f.String("load", "", "print results from a saved query file instead of searching")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return err
		}
		return writeOutput(cmd, qf.Output(), w)
	}

	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := searchConfig(viper.GetViper(), loadedSecrets)
	agg := newAggregator(cfg, slog.Default(), metrics.NewMetrics())

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sourcesFlag, _ := cmd.Flags().GetString("sources")
	names := splitList(sourcesFlag)
	out, err := agg.SearchAll(ctx, q, names)
	if err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "search interrupted; showing partial results")
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if len(names) == 0 {
			names = agg.Names()
		}
		if err := search.WriteQueryFile(path, search.NewQueryFile(q, names, out, time.Now())); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved query to", path)
	}
	return writeOutput(cmd, out, w)
}

// queryFromFlags builds a query from the search flags.
func queryFromFlags(cmd *cobra.Command) (search.Query, error) {
	f := cmd.Flags()
	keywords, _ := f.GetString("keywords")
	from, _ := f.GetString("from")
	to, _ := f.GetString("to")
	pubType, _ := f.GetString("type")
	phase, _ := f.GetString("phase")
	status, _ := f.GetString("status")
	studyType, _ := f.GetString("study-type")
	maxResults, _ := f.GetInt("max-results")

	p := search.QueryParams{
		Keywords:        splitList(keywords),
		DateFrom:        from,
		DateTo:          to,
		PublicationType: pubType,
		Phase:           phase,
		Status:          status,
		StudyType:       studyType,
		MaxResults:      maxResults,
	}
	q, err := p.ToQuery()
	if err != nil {
		return search.Query{}, err
	}
	return q, q.Validate()
}

func writeOutput(cmd *cobra.Command, out search.SearchOutput, w io.Writer) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(out, w)
	}
	if asCSL, _ := cmd.Flags().GetBool("csl"); asCSL {
		return search.FormatCSL(out, w)
	}
	search.FormatTable(out, w)
	return nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// contextOrBackground returns the command context, which is nil when a
// command is executed directly in tests.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
