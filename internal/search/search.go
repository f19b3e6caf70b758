// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries evidence sources and returns unified, graded,
// deduplicated and ranked publications.
//
// Each source adapter builds its own request, waits on its own cooldown,
// tolerates several response envelopes, and keeps only records that meet
// its relevance threshold. The aggregator runs the requested sources
// concurrently, merges their results in request order, removes cross-source
// duplicates (first occurrence wins), sorts by relevance and truncates.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// SearchOutput holds the ranked results and per-source statistics of one
// aggregated search.
type SearchOutput struct {
	RunID        string              `json:"run_id" yaml:"run_id"`
	Results      []types.Publication `json:"results" yaml:"results"`
	DupsRemoved  int                 `json:"duplicates_removed" yaml:"duplicates_removed"`
	SourceErrors []string            `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`
	PerSource    []Report            `json:"per_source" yaml:"per_source"`
}

// Aggregator resolves source names and runs aggregated searches.
type Aggregator struct {
	sources []Source
	cfg     types.SearchConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAggregator registers sources under their names. A nil logger uses
// slog.Default().
func NewAggregator(cfg types.SearchConfig, logger *slog.Logger, m *metrics.Metrics, sources ...Source) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{sources: sources, cfg: cfg, logger: logger, metrics: m}
}

// Names returns the registered source names in registration order.
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Source returns the registered source called name.
func (a *Aggregator) Source(name string) (Source, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range a.sources {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// SearchAll searches the named sources, or every registered source when
// names is empty. Unknown names are logged and skipped; if none resolve the
// query is invalid.
func (a *Aggregator) SearchAll(ctx context.Context, q Query, names []string) (SearchOutput, error) {
	selected := a.sources
	if len(names) > 0 {
		selected = nil
		seen := map[string]bool{}
		for _, n := range names {
			s, ok := a.Source(n)
			if !ok {
				a.logger.WarnContext(ctx, "unknown source, skipping", "source", n)
				continue
			}
			if !seen[s.Name()] {
				seen[s.Name()] = true
				selected = append(selected, s)
			}
		}
	}
	out, err := search(ctx, q, selected, a.cfg, a.logger)
	if err == nil || ctx.Err() != nil {
		a.metrics.AddSearch(out.DupsRemoved)
	}
	return out, err
}

// Search fans the query out to sources concurrently, merges their results
// in the order the sources were given, deduplicates, ranks by relevance and
// returns the top cfg.MaxResults (or query.MaxResults when set).
//
// A source that fails is logged and recorded in SourceErrors; it never fails
// the search. An empty keyword list or an empty source list returns
// ErrInvalidQuery before any request. If ctx is cancelled, the results
// collected from sources that finished are returned with ctx.Err().
func Search(ctx context.Context, q Query, sources []Source, cfg types.SearchConfig, logger *slog.Logger) (SearchOutput, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return search(ctx, q, sources, cfg, logger)
}

type sourceResult struct {
	pubs   []types.Publication
	report Report
	err    error
}

func search(ctx context.Context, q Query, sources []Source, cfg types.SearchConfig, logger *slog.Logger) (SearchOutput, error) {
	if err := q.Validate(); err != nil {
		return SearchOutput{}, err
	}
	if len(sources) == 0 {
		return SearchOutput{}, fmt.Errorf("%w: no sources selected", ErrInvalidQuery)
	}

	// The result limit is also each source's page size.
	limit := resultLimit(q, cfg)
	q.MaxResults = limit

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	results := make([]sourceResult, len(sources))
	var wg sync.WaitGroup
	for i, s := range sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			results[i] = runSource(ctx, s, q)
		}(i, s)
	}
	wg.Wait()

	out := SearchOutput{RunID: runID}
	var all []types.Publication
	for i, r := range results {
		if r.err != nil {
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", sources[i].Name(), r.err))
			logger.WarnContext(ctx, "source failed", "source", sources[i].Name(), "err", r.err)
		} else if r.report.Error != "" {
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %s", sources[i].Name(), r.report.Error))
		}
		out.PerSource = append(out.PerSource, r.report)
		all = append(all, r.pubs...)
	}

	deduped, removed := deduplicate(all)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].RelevanceScore > deduped[j].RelevanceScore
	})

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	out.Results = deduped
	out.DupsRemoved = removed

	logger.InfoContext(ctx, "search complete",
		"sources", len(sources), "results", len(out.Results), "duplicates", removed)
	return out, ctx.Err()
}

// resultLimit is Query.MaxResults, else SearchConfig.MaxResults, else the default.
func resultLimit(q Query, cfg types.SearchConfig) int {
	switch {
	case q.MaxResults > 0:
		return q.MaxResults
	case cfg.MaxResults > 0:
		return cfg.MaxResults
	}
	return types.DefaultMaxResults
}

// runSource calls one source, using its detailed report when it has one.
func runSource(ctx context.Context, s Source, q Query) sourceResult {
	if r, ok := s.(reporter); ok {
		pubs, rep, err := r.searchReport(ctx, q)
		return sourceResult{pubs: pubs, report: rep, err: err}
	}
	pubs, err := s.Search(ctx, q)
	rep := Report{Source: s.Name(), Results: len(pubs)}
	if err != nil {
		rep.Error = err.Error()
	}
	return sourceResult{pubs: pubs, report: rep, err: err}
}

// deduplicate drops publications whose key was already seen, keeping the
// first occurrence and the original order.
func deduplicate(pubs []types.Publication) ([]types.Publication, int) {
	seen := make(map[string]bool, len(pubs))
	deduped := make([]types.Publication, 0, len(pubs))
	removed := 0
	for _, p := range pubs {
		key := DedupKey(p)
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		deduped = append(deduped, p)
	}
	return deduped, removed
}

// DedupKey is the normalized title and first author (or organization),
// lowercased with whitespace collapsed.
func DedupKey(p types.Publication) string {
	return collapse(p.Title) + "|" + collapse(p.FirstAuthor())
}

func collapse(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out SearchOutput, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		writeSourceErrors(out, w)
		return
	}

	fmt.Fprintf(w, "%-4s  %-56s  %-20s  %-4s  %-5s  %-5s  %s\n",
		"Rank", "Title", "Author", "Year", "Grade", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 118))

	for i, p := range out.Results {
		year := ""
		if !p.PublishedAt.IsZero() {
			year = fmt.Sprintf("%d", p.PublishedAt.Year())
		}
		fmt.Fprintf(w, "%-4d  %-56s  %-20s  %-4s  %-5s  %-5.2f  %s\n",
			i+1, truncate(p.Title, 56), formatAuthors(p.Authors), year,
			fmt.Sprintf("%s/%d", p.EvidenceQuality.Grade, p.EvidenceQuality.Score),
			p.RelevanceScore, p.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
	writeSourceErrors(out, w)
}

func writeSourceErrors(out SearchOutput, w io.Writer) {
	for _, e := range out.SourceErrors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes the whole output as indented JSON to w.
func FormatJSON(out SearchOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 13) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
