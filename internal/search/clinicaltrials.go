// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/quality"
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// clinicalTrialsEndpoint is the registry's v2 studies endpoint. Declared as
// a var so tests can substitute an httptest server.
var clinicalTrialsEndpoint = "https://clinicaltrials.gov/api/v2/studies"

// ClinicalTrials queries the clinical-trial registry.
type ClinicalTrials struct {
	adapter
	pipe pipeline[evidence.Trial]
}

var (
	_ Source   = (*ClinicalTrials)(nil)
	_ Lookuper = (*ClinicalTrials)(nil)
)

// NewClinicalTrials returns the trial registry adapter.
func NewClinicalTrials(sc types.SourceConfig, opts Options) *ClinicalTrials {
	s := &ClinicalTrials{
		adapter: newAdapter(evidence.SourceClinicalTrials, clinicalTrialsEndpoint, "studies", sc, opts),
	}
	s.pipe = pipeline[evidence.Trial]{
		normalize: evidence.NormalizeTrial,
		model:     quality.TrialModel{Now: s.now},
		relevance: func(t evidence.Trial, kw []string, _ time.Time) float64 { return relevance.Trial(t, kw) },
		publish:   evidence.Trial.ToPublication,
		threshold: relevance.TrialThreshold,
	}
	return s
}

// Search queries the registry. Only an invalid query returns an error.
func (s *ClinicalTrials) Search(ctx context.Context, q Query) ([]types.Publication, error) {
	pubs, _, err := s.searchReport(ctx, q)
	return pubs, err
}

func (s *ClinicalTrials) searchReport(ctx context.Context, q Query) ([]types.Publication, Report, error) {
	q = s.paged(q)
	return run(ctx, &s.adapter, q, clinicalTrialsParams(q), s.pipe)
}

// Lookup fetches one study by NCT number.
func (s *ClinicalTrials) Lookup(ctx context.Context, id string) (types.Publication, error) {
	return lookup(ctx, &s.adapter, strings.ToUpper(id), s.pipe)
}

// clinicalTrialsParams maps the query onto the registry's v2 parameters.
// Phase, study type and the start-date range go into one advanced filter
// expression.
func clinicalTrialsParams(q Query) url.Values {
	params := url.Values{
		"query.term": {anyTerm(q.Terms())},
		"pageSize":   {strconv.Itoa(q.limit())},
		"format":     {"json"},
	}
	if q.Status != "" {
		params.Set("filter.overallStatus", registryToken(q.Status))
	}

	var adv []string
	if q.Phase != "" {
		adv = append(adv, "AREA[Phase]"+strings.ReplaceAll(registryToken(q.Phase), "_", ""))
	}
	if q.StudyType != "" {
		adv = append(adv, "AREA[StudyType]"+registryToken(q.StudyType))
	}
	if !q.DateFrom.IsZero() || !q.DateTo.IsZero() {
		from, to := "MIN", "MAX"
		if !q.DateFrom.IsZero() {
			from = q.DateFrom.Format(dateFmt)
		}
		if !q.DateTo.IsZero() {
			to = q.DateTo.Format(dateFmt)
		}
		adv = append(adv, "AREA[StartDate]RANGE["+from+","+to+"]")
	}
	if len(adv) > 0 {
		params.Set("filter.advanced", strings.Join(adv, " AND "))
	}
	return params
}

// registryToken upper-cases a value and joins words with underscores, the
// registry's enum spelling ("active not recruiting" → "ACTIVE_NOT_RECRUITING").
func registryToken(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.NewReplacer(",", " ", "-", " ").Replace(s))), "_")
}
