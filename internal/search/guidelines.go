// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/quality"
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// guidelinesEndpoint is the guideline publisher's search endpoint.
var guidelinesEndpoint = "https://api.guidelinecentral.com/v1/guidelines"

// Guidelines queries the clinical guideline publisher.
type Guidelines struct {
	adapter
	pipe pipeline[evidence.Guideline]
}

var (
	_ Source   = (*Guidelines)(nil)
	_ Lookuper = (*Guidelines)(nil)
)

// NewGuidelines returns the guideline publisher adapter. An API key, when
// configured, is sent in the X-API-Key header.
func NewGuidelines(sc types.SourceConfig, opts Options) *Guidelines {
	s := &Guidelines{
		adapter: newAdapter(evidence.SourceGuidelines, guidelinesEndpoint, "guidelines", sc, opts),
	}
	s.keyHeader = "X-API-Key"
	s.pipe = pipeline[evidence.Guideline]{
		normalize: evidence.NormalizeGuideline,
		model:     quality.GuidelineModel{Now: s.now},
		relevance: relevance.Guideline,
		publish:   evidence.Guideline.ToPublication,
		threshold: relevance.GuidelineThreshold,
	}
	return s
}

// Search queries the publisher. Only an invalid query returns an error.
func (s *Guidelines) Search(ctx context.Context, q Query) ([]types.Publication, error) {
	pubs, _, err := s.searchReport(ctx, q)
	return pubs, err
}

func (s *Guidelines) searchReport(ctx context.Context, q Query) ([]types.Publication, Report, error) {
	q = s.paged(q)
	return run(ctx, &s.adapter, q, guidelinesParams(q), s.pipe)
}

// Lookup fetches one guideline by the publisher's identifier.
func (s *Guidelines) Lookup(ctx context.Context, id string) (types.Publication, error) {
	return lookup(ctx, &s.adapter, id, s.pipe)
}

func guidelinesParams(q Query) url.Values {
	params := url.Values{
		"q":     {anyTerm(q.Terms())},
		"limit": {strconv.Itoa(q.limit())},
	}
	if q.PublicationType != "" {
		params.Set("category", q.PublicationType)
	}
	if !q.DateFrom.IsZero() {
		params.Set("publishedFrom", q.DateFrom.Format(dateFmt))
	}
	if !q.DateTo.IsZero() {
		params.Set("publishedTo", q.DateTo.Format(dateFmt))
	}
	return params
}
