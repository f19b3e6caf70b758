// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/quality"
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// cochraneEndpoint is the review repository's search endpoint.
var cochraneEndpoint = "https://www.cochranelibrary.com/api/search/reviews"

// Cochrane queries the systematic-review repository.
type Cochrane struct {
	adapter
	pipe pipeline[evidence.Review]
}

var (
	_ Source   = (*Cochrane)(nil)
	_ Lookuper = (*Cochrane)(nil)
)

// NewCochrane returns the review repository adapter. An API key, when
// configured, is sent in the X-API-Key header.
func NewCochrane(sc types.SourceConfig, opts Options) *Cochrane {
	s := &Cochrane{
		adapter: newAdapter(evidence.SourceCochrane, cochraneEndpoint, "reviews", sc, opts),
	}
	s.keyHeader = "X-API-Key"
	s.pipe = pipeline[evidence.Review]{
		normalize: evidence.NormalizeReview,
		model:     quality.ReviewModel{},
		relevance: func(r evidence.Review, kw []string, _ time.Time) float64 { return relevance.Review(r, kw) },
		publish:   evidence.Review.ToPublication,
		threshold: relevance.ReviewThreshold,
	}
	return s
}

// Search queries the repository. Only an invalid query returns an error.
func (s *Cochrane) Search(ctx context.Context, q Query) ([]types.Publication, error) {
	pubs, _, err := s.searchReport(ctx, q)
	return pubs, err
}

func (s *Cochrane) searchReport(ctx context.Context, q Query) ([]types.Publication, Report, error) {
	q = s.paged(q)
	return run(ctx, &s.adapter, q, cochraneParams(q), s.pipe)
}

// Lookup fetches one review by CD number or DOI.
func (s *Cochrane) Lookup(ctx context.Context, id string) (types.Publication, error) {
	return lookup(ctx, &s.adapter, id, s.pipe)
}

// cochraneParams filters by publication year; the repository has no
// day-level date filter.
func cochraneParams(q Query) url.Values {
	params := url.Values{
		"q":        {anyTerm(q.Terms())},
		"pageSize": {strconv.Itoa(q.limit())},
	}
	if q.PublicationType != "" {
		params.Set("type", q.PublicationType)
	}
	if !q.DateFrom.IsZero() {
		params.Set("from", strconv.Itoa(q.DateFrom.Year()))
	}
	if !q.DateTo.IsZero() {
		params.Set("to", strconv.Itoa(q.DateTo.Year()))
	}
	return params
}
