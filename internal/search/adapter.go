// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/envelope"
	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/quality"
	"github.com/pdiddy/evidence-engine/internal/ratelimit"
	"github.com/pdiddy/evidence-engine/internal/record"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// maxBodyBytes bounds a single source response.
const maxBodyBytes = 32 << 20

// Options carries the collaborators shared by all adapters. Zero values
// select defaults: http.DefaultClient with the configured timeout, the wall
// clock, slog.Default() and no metrics.
type Options struct {
	Client    *http.Client
	Clock     ratelimit.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	UserAgent string
	Timeout   time.Duration
	// PageSize is the number of records requested when the query sets no
	// MaxResults. Zero means types.DefaultMaxResults.
	PageSize int
}

// Report summarizes one source's part in a search.
type Report struct {
	Source  string `json:"source" yaml:"source"`
	Results int    `json:"results" yaml:"results"`
	Dropped int    `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Skipped int    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// reporter is implemented by the built-in adapters so the aggregator can
// surface degraded sources without Search returning transport errors.
type reporter interface {
	searchReport(ctx context.Context, q Query) ([]types.Publication, Report, error)
}

// adapter is the request/response core embedded by every source.
type adapter struct {
	name      string
	endpoint  string
	entity    string
	apiKey    string
	keyHeader string

	client    *http.Client
	cooldown  *ratelimit.Cooldown
	userAgent string
	pageSize  int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func newAdapter(name, endpoint, entity string, sc types.SourceConfig, opts Options) adapter {
	if sc.BaseURL != "" {
		endpoint = strings.TrimRight(sc.BaseURL, "/")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = types.DefaultSearchConfig().UserAgent
	}
	return adapter{
		name:      name,
		endpoint:  endpoint,
		entity:    entity,
		apiKey:    sc.APIKey,
		client:    client,
		cooldown:  ratelimit.New(sc.Cooldown, opts.Clock),
		userAgent: ua,
		pageSize:  opts.PageSize,
		logger:    logger.With("source", name),
		metrics:   opts.Metrics,
	}
}

// Name returns the source identifier.
func (a *adapter) Name() string { return a.name }

// Cooldown returns the adapter's cooldown.
func (a *adapter) Cooldown() *ratelimit.Cooldown { return a.cooldown }

func (a *adapter) now() time.Time { return a.cooldown.Clock().Now() }

// paged fills the query's page size from the adapter default.
func (a *adapter) paged(q Query) Query {
	if q.MaxResults <= 0 {
		q.MaxResults = a.pageSize
	}
	return q
}

// get issues one GET, waiting for the cooldown before the first attempt and
// before every throttled retry. Statuses other than 200 are errors; 404
// wraps ErrNotFound.
func (a *adapter) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqURL := a.endpoint + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")
	if a.keyHeader != "" && a.apiKey != "" {
		req.Header.Set(a.keyHeader, a.apiKey)
	}

	resp, err := httputil.DoWithRetryPaced(ctx, a.client, req, 0, func(ctx context.Context) error {
		if err := a.cooldown.Wait(ctx); err != nil {
			return err
		}
		a.metrics.IncRequests(a.name)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, err
		}
		return nil, fmt.Errorf("%s request: %w", a.name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", a.name, ErrNotFound)
	default:
		return nil, fmt.Errorf("%s returned HTTP %d", a.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", a.name, err)
	}
	return body, nil
}

// degrade logs a failed source call and records it in the report. A
// cancelled context is not a source failure and is logged at debug level.
func (a *adapter) degrade(ctx context.Context, rep *Report, err error) {
	rep.Error = err.Error()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		a.logger.DebugContext(ctx, "source search cancelled", "err", err)
		return
	}
	a.metrics.IncFailures(a.name)
	a.logger.WarnContext(ctx, "source search failed, returning no results", "err", err)
}

// items extracts the raw records of a search response. An unrecognized
// envelope is a parse failure: it is logged and yields no records.
func (a *adapter) items(ctx context.Context, body []byte) []json.RawMessage {
	raw, shape, err := envelope.Items(body, a.entity)
	if err != nil {
		a.logger.WarnContext(ctx, "unrecognized response, returning no results", "err", err)
		return nil
	}
	a.logger.DebugContext(ctx, "decoded response", "shape", shape.String(), "records", len(raw))
	return raw
}

// finish logs and counts the outcome of one search.
func (a *adapter) finish(ctx context.Context, rep Report, start time.Time) {
	a.metrics.AddRecords(a.name, rep.Results, rep.Dropped, rep.Skipped)
	a.metrics.ObserveLatency(a.name, time.Since(start).Seconds())
	a.logger.DebugContext(ctx, "source search done",
		"kept", rep.Results, "dropped", rep.Dropped, "skipped", rep.Skipped)
}

// pipeline turns one kind of canonical record into scored publications.
type pipeline[R any] struct {
	normalize func(record.Fields) (R, error)
	model     quality.Model[R]
	relevance func(r R, keywords []string, now time.Time) float64
	publish   func(r R, now time.Time) types.Publication
	threshold float64
}

// decode normalizes raw records. Records that are not objects or that fail
// normalization are skipped with a warning and counted.
func decode[R any](ctx context.Context, a *adapter, raw []json.RawMessage, p pipeline[R]) ([]R, int) {
	out := make([]R, 0, len(raw))
	skipped := 0
	for i, item := range raw {
		f, err := record.Decode(item)
		if err == nil {
			var r R
			if r, err = p.normalize(f); err == nil {
				out = append(out, r)
				continue
			}
		}
		skipped++
		a.logger.WarnContext(ctx, "skipping record", "index", i, "err", err)
	}
	return out, skipped
}

// score grades and scores records, keeping those at or above the source's
// inclusion threshold in their original order.
func score[R any](recs []R, keywords []string, now time.Time, p pipeline[R]) ([]types.Publication, int) {
	var kept []types.Publication
	dropped := 0
	for _, r := range recs {
		rel := p.relevance(r, keywords, now)
		if rel < p.threshold {
			dropped++
			continue
		}
		pub := p.publish(r, now)
		pub.EvidenceQuality = p.model.Assess(r)
		pub.RelevanceScore = rel
		kept = append(kept, pub)
	}
	return kept, dropped
}

// run is the shared search flow for single-request JSON sources.
func run[R any](ctx context.Context, a *adapter, q Query, params url.Values, p pipeline[R]) ([]types.Publication, Report, error) {
	rep := Report{Source: a.name}
	if err := q.Validate(); err != nil {
		return nil, rep, err
	}
	start := time.Now()
	defer func() { a.finish(ctx, rep, start) }()

	body, err := a.get(ctx, "", params)
	if err != nil {
		a.degrade(ctx, &rep, err)
		return nil, rep, nil
	}
	recs, skipped := decode(ctx, a, a.items(ctx, body), p)
	pubs, dropped := score(recs, q.Terms(), a.now(), p)
	rep.Results, rep.Dropped, rep.Skipped = len(pubs), dropped, skipped
	return pubs, rep, nil
}

// lookup fetches one record by id from endpoint/<id>. The body may be the
// bare record or any search envelope holding it.
func lookup[R any](ctx context.Context, a *adapter, id string, p pipeline[R]) (types.Publication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Publication{}, fmt.Errorf("%w: empty identifier", ErrInvalidQuery)
	}
	body, err := a.get(ctx, "/"+url.PathEscape(id), nil)
	if err != nil {
		return types.Publication{}, err
	}

	raw := json.RawMessage(body)
	if items, _, err := envelope.Items(body, a.entity); err == nil {
		if len(items) == 0 {
			return types.Publication{}, fmt.Errorf("%s %s: %w", a.name, id, ErrNotFound)
		}
		raw = items[0]
	}
	f, err := record.Decode(raw)
	if err != nil {
		return types.Publication{}, fmt.Errorf("%s %s: %w", a.name, id, err)
	}
	r, err := p.normalize(f)
	if err != nil {
		return types.Publication{}, fmt.Errorf("%s %s: %w", a.name, id, err)
	}
	now := a.now()
	pub := p.publish(r, now)
	pub.EvidenceQuality = p.model.Assess(r)
	return pub, nil
}

// anyTerm joins keywords for sources that accept boolean OR.
func anyTerm(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		if strings.ContainsAny(t, " \t") {
			t = `"` + t + `"`
		}
		quoted[i] = t
	}
	return strings.Join(quoted, " OR ")
}
