// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/quality"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// stub serves fixed bodies by path and records every request.
type stub struct {
	t      *testing.T
	srv    *httptest.Server
	bodies map[string]string
	status int
	// throttle answers the first throttle requests with 429 and Retry-After: 0.
	throttle int32
	hits     int32
	mu     sync.Mutex
	reqs   []*http.Request
	clock  *fakeClock
	times  []time.Time
}

func newStub(t *testing.T, clock *fakeClock, bodies map[string]string) *stub {
	t.Helper()
	s := &stub{t: t, bodies: bodies, status: http.StatusOK, clock: clock}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&s.hits, 1)
		s.mu.Lock()
		s.reqs = append(s.reqs, r.Clone(context.Background()))
		if s.clock != nil {
			s.times = append(s.times, s.clock.Now())
		}
		status := s.status
		s.mu.Unlock()

		if n <= s.throttle {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		body, ok := s.bodies[r.URL.Path]
		if !ok {
			body, ok = s.bodies["*"]
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *stub) source(cooldown time.Duration) types.SourceConfig {
	return types.SourceConfig{Enabled: true, BaseURL: s.srv.URL, Cooldown: cooldown}
}

func (s *stub) lastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.reqs)
	return s.reqs[len(s.reqs)-1].URL.Query()
}

func testOptions(clock *fakeClock) Options {
	return Options{Clock: clock, Logger: quietLogger(), UserAgent: "test/0.1", Timeout: 5 * time.Second}
}

// --- clinical trial registry ---

const trialRecord = `{
	"nctId": "NCT00000001",
	"briefTitle": "Hypertension Outcomes Trial",
	"conditions": ["Hypertension"],
	"phases": ["PHASE3"],
	"studyType": "INTERVENTIONAL",
	"overallStatus": "COMPLETED",
	"hasResults": true,
	"enrollmentCount": 1200
}`

const unrelatedTrial = `{"nctId": "NCT00000002", "briefTitle": "Asthma inhaler study", "conditions": ["Asthma"]}`

func TestClinicalTrials_EnvelopeShapes(t *testing.T) {
	bodies := map[string]string{
		"results": `{"results": [` + trialRecord + `]}`,
		"entity":  `{"studies": [` + trialRecord + `], "nextPageToken": "x"}`,
		"array":   `[` + trialRecord + `]`,
		"data":    `{"data": [` + trialRecord + `]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			st := newStub(t, nil, map[string]string{"*": body})
			src := NewClinicalTrials(st.source(0), testOptions(newFakeClock()))

			pubs, err := src.Search(context.Background(), hypertension)
			require.NoError(t, err)
			require.Len(t, pubs, 1)
			assert.Equal(t, "NCT00000001", pubs[0].ID)
		})
	}
}

func TestClinicalTrials_UnknownEnvelopeYieldsNothing(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"items": [` + trialRecord + `]}`})
	src := NewClinicalTrials(st.source(0), testOptions(newFakeClock()))

	pubs, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	assert.Empty(t, pubs)
}

func TestClinicalTrials_GradesScoresAndFilters(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"studies": [` + trialRecord + `,` + unrelatedTrial + `, 42]}`})
	clock := newFakeClock()
	src := NewClinicalTrials(st.source(0), testOptions(clock))

	pubs, rep, err := src.searchReport(context.Background(), hypertension)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	p := pubs[0]
	assert.Equal(t, types.GradeA, p.EvidenceQuality.Grade)
	assert.Equal(t, 100, p.EvidenceQuality.Score)
	assert.Equal(t, 1.0, p.RelevanceScore)
	assert.Equal(t, "clinicaltrials", p.Source)
	assert.Equal(t, clock.Now(), p.ProcessedAt)
	assert.Empty(t, p.MatchedPlanIDs)

	assert.Equal(t, Report{Source: "clinicaltrials", Results: 1, Dropped: 1, Skipped: 1}, rep)
}

func TestClinicalTrials_Params(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"studies": []}`})
	src := NewClinicalTrials(st.source(0), testOptions(newFakeClock()))

	q := Query{
		Keywords:   []string{"blood pressure", "stroke"},
		Phase:      "phase 3",
		Status:     "Active, not recruiting",
		StudyType:  "interventional",
		DateFrom:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxResults: 5,
	}
	_, err := src.Search(context.Background(), q)
	require.NoError(t, err)

	got := st.lastQuery()
	assert.Equal(t, `"blood pressure" OR stroke`, got.Get("query.term"))
	assert.Equal(t, "5", got.Get("pageSize"))
	assert.Equal(t, "ACTIVE_NOT_RECRUITING", got.Get("filter.overallStatus"))
	assert.Equal(t, "AREA[Phase]PHASE3 AND AREA[StudyType]INTERVENTIONAL AND AREA[StartDate]RANGE[2020-01-01,MAX]", got.Get("filter.advanced"))
}

func TestClinicalTrials_Lookup(t *testing.T) {
	st := newStub(t, nil, map[string]string{"/NCT00000001": trialRecord})
	src := NewClinicalTrials(st.source(0), testOptions(newFakeClock()))

	p, err := src.Lookup(context.Background(), "nct00000001")
	require.NoError(t, err)
	assert.Equal(t, "Hypertension Outcomes Trial", p.Title)
	assert.Equal(t, types.GradeA, p.EvidenceQuality.Grade)

	_, err = src.Lookup(context.Background(), "NCT99999999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Lookup(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

// --- failures ---

func TestAdapter_HTTPErrorDegradesToEmpty(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"reviews": []}`})
	st.status = http.StatusInternalServerError
	m := metrics.NewMetrics()
	opts := testOptions(newFakeClock())
	opts.Metrics = m
	src := NewCochrane(st.source(0), opts)

	pubs, rep, err := src.searchReport(context.Background(), hypertension)
	require.NoError(t, err)
	assert.Empty(t, pubs)
	assert.Contains(t, rep.Error, "HTTP 500")
	assert.Equal(t, 1, testutil.CollectAndCount(m.Collectors()[1]))
}

func TestAdapter_TransportErrorDegradesToEmpty(t *testing.T) {
	st := newStub(t, nil, nil)
	cfg := st.source(0)
	st.srv.Close()

	src := NewGuidelines(cfg, testOptions(newFakeClock()))
	pubs, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	assert.Empty(t, pubs)
}

func TestAdapter_EmptyKeywordsMakeNoRequest(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `[]`})
	clock := newFakeClock()
	sources := []Source{
		NewClinicalTrials(st.source(time.Second), testOptions(clock)),
		NewCochrane(st.source(time.Second), testOptions(clock)),
		NewGuidelines(st.source(time.Second), testOptions(clock)),
		NewPubMed(st.source(time.Second), testOptions(clock)),
	}
	for _, src := range sources {
		_, err := src.Search(context.Background(), Query{Keywords: []string{" "}})
		assert.ErrorIs(t, err, ErrInvalidQuery, src.Name())
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&st.hits))
}

// --- cooldown ---

func TestAdapter_CooldownSpacesConsecutiveCalls(t *testing.T) {
	clock := newFakeClock()
	st := newStub(t, clock, map[string]string{"*": `{"studies": [` + trialRecord + `]}`, "/NCT00000001": trialRecord})
	src := NewClinicalTrials(st.source(1000*time.Millisecond), testOptions(clock))

	_, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	_, err = src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	_, err = src.Lookup(context.Background(), "NCT00000001")
	require.NoError(t, err)

	require.Len(t, st.times, 3)
	for i := 1; i < len(st.times); i++ {
		assert.GreaterOrEqual(t, st.times[i].Sub(st.times[i-1]), time.Second)
	}
}

func TestAdapter_CooldownSpacesThrottledRetries(t *testing.T) {
	clock := newFakeClock()
	st := newStub(t, clock, map[string]string{"*": `{"studies": [` + trialRecord + `]}`})
	st.throttle = 1
	m := metrics.NewMetrics()
	opts := testOptions(clock)
	opts.Metrics = m
	src := NewClinicalTrials(st.source(time.Second), opts)

	pubs, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	require.Len(t, st.times, 2)
	assert.GreaterOrEqual(t, st.times[1].Sub(st.times[0]), time.Second,
		"a retry after Retry-After: 0 still waits for the cooldown")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Collectors()[0].(*prometheus.CounterVec).WithLabelValues("clinicaltrials")))
}

func TestAdapter_PageSize(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `[]`})
	cfg := types.DefaultSearchConfig()
	cfg.MaxResults = 50
	cfg.ClinicalTrials = st.source(0)
	cfg.Cochrane = st.source(0)
	cfg.Guidelines = st.source(0)
	cfg.PubMed = st.source(0)

	tests := []struct {
		source string
		param  string
	}{
		{"clinicaltrials", "pageSize"},
		{"cochrane", "pageSize"},
		{"guidelines", "limit"},
		{"pubmed", "retmax"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			src, err := NewSource(tt.source, cfg, testOptions(newFakeClock()))
			require.NoError(t, err)

			_, err = src.Search(context.Background(), hypertension)
			require.NoError(t, err)
			assert.Equal(t, "50", st.lastQuery().Get(tt.param), "configured max_results")

			_, err = src.Search(context.Background(), Query{Keywords: []string{"hypertension"}, MaxResults: 7})
			require.NoError(t, err)
			assert.Equal(t, "7", st.lastQuery().Get(tt.param), "query overrides config")
		})
	}
}

func TestSearchAll_ConfiguredMaxResultsReachesSource(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `[]`})
	cfg := types.DefaultSearchConfig()
	cfg.MaxResults = 50
	src := NewClinicalTrials(st.source(0), testOptions(newFakeClock()))
	agg := NewAggregator(cfg, quietLogger(), nil, src)

	_, err := agg.SearchAll(context.Background(), hypertension, nil)
	require.NoError(t, err)
	assert.Equal(t, "50", st.lastQuery().Get("pageSize"))
}

func TestAdapter_CooldownIsPerSource(t *testing.T) {
	clock := newFakeClock()
	st := newStub(t, clock, map[string]string{"*": `[]`})
	a := NewCochrane(st.source(2*time.Second), testOptions(clock))
	b := NewGuidelines(st.source(2*time.Second), testOptions(clock))

	_, _ = a.Search(context.Background(), hypertension)
	_, _ = b.Search(context.Background(), hypertension)

	require.Len(t, st.times, 2)
	assert.Equal(t, st.times[0], st.times[1], "different adapters do not wait on each other")
}

func TestAdapter_CancelledDuringCooldown(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `[]`})
	src := NewCochrane(st.source(time.Hour), Options{Logger: quietLogger()})

	_, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	pubs, rep, err := src.searchReport(ctx, hypertension)
	require.NoError(t, err)
	assert.Empty(t, pubs)
	assert.NotEmpty(t, rep.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&st.hits))
}

// --- review repository and guideline publisher ---

func TestCochrane_Search(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"reviews": [{
		"cdNumber": "CD000001",
		"title": "Blood pressure lowering for hypertension: a meta-analysis",
		"authors": ["A Author"],
		"includedStudies": 12,
		"certaintyOfEvidence": "high"
	}, {
		"cdNumber": "CD000002",
		"title": "Exercise for asthma",
		"abstract": "Mentions hypertension only in passing."
	}]}`})
	src := NewCochrane(st.source(0), testOptions(newFakeClock()))

	q := hypertension
	q.DateFrom = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	q.PublicationType = "Intervention"
	pubs, err := src.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, pubs, 1, "0.3 abstract match is below the 0.4 threshold")

	assert.Equal(t, "CD000001", pubs[0].ID)
	assert.InDelta(t, 0.6, pubs[0].RelevanceScore, 1e-9)
	assert.Equal(t, 100, pubs[0].EvidenceQuality.Score)

	got := st.lastQuery()
	assert.Equal(t, "hypertension", got.Get("q"))
	assert.Equal(t, "2015", got.Get("from"))
	assert.Equal(t, "Intervention", got.Get("type"))
}

func TestGuidelines_SearchSendsAPIKey(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"guidelines": [{
		"id": "NG136",
		"title": "Hypertension in adults",
		"organization": "NICE",
		"conditions": ["Hypertension"],
		"lastUpdated": "2026-01-15"
	}]}`})
	sc := st.source(0)
	sc.APIKey = "secret"
	src := NewGuidelines(sc, testOptions(newFakeClock()))

	pubs, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, 1.0, pubs[0].RelevanceScore)
	assert.Equal(t, types.GradeA, pubs[0].EvidenceQuality.Grade)
	assert.Equal(t, "NICE", pubs[0].FirstAuthor())

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Equal(t, "secret", st.reqs[0].Header.Get("X-API-Key"))
	assert.Equal(t, "test/0.1", st.reqs[0].Header.Get("User-Agent"))
}

// --- article database ---

const efetchBody = `<?xml version="1.0"?>
<PubmedArticleSet>
<PubmedArticle><MedlineCitation><PMID Version="1">111</PMID><Article>
<Journal><Title>The Lancet</Title></Journal>
<ArticleTitle>Intensive treatment of hypertension</ArticleTitle>
<Abstract><AbstractText>Hypertension trial.</AbstractText></Abstract>
<AuthorList><Author><LastName>Smith</LastName><ForeName>Jane</ForeName></Author></AuthorList>
<PublicationTypeList><PublicationType>Randomized Controlled Trial</PublicationType></PublicationTypeList>
</Article></MedlineCitation></PubmedArticle>
<PubmedArticle><MedlineCitation><PMID Version="1">222</PMID><Article>
<ArticleTitle>Asthma in children</ArticleTitle>
</Article></MedlineCitation></PubmedArticle>
</PubmedArticleSet>`

func TestPubMed_SearchThenFetch(t *testing.T) {
	clock := newFakeClock()
	st := newStub(t, clock, map[string]string{
		"/esearch.fcgi": `{"esearchresult": {"count": "2", "idlist": ["111", "222"]}}`,
		"/efetch.fcgi":  efetchBody,
	})
	sc := st.source(time.Second)
	sc.APIKey = "k"
	sc.Email = "me@example.org"
	src := NewPubMed(sc, testOptions(clock))

	pubs, rep, err := src.searchReport(context.Background(), hypertension)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	p := pubs[0]
	assert.Equal(t, "111", p.ID)
	assert.Equal(t, []string{"Jane Smith"}, p.Authors)
	assert.Equal(t, quality.ArticleScale.Grade(p.EvidenceQuality.Score), p.EvidenceQuality.Grade)
	assert.Equal(t, 80, p.EvidenceQuality.Score)
	assert.InDelta(t, 0.8, p.RelevanceScore, 1e-9)
	assert.Equal(t, 1, rep.Dropped)

	st.mu.Lock()
	defer st.mu.Unlock()
	require.Len(t, st.reqs, 2)
	search := st.reqs[0].URL.Query()
	assert.Equal(t, "(hypertension)", search.Get("term"))
	assert.Equal(t, "k", search.Get("api_key"))
	assert.Equal(t, "me@example.org", search.Get("email"))
	assert.Equal(t, "111,222", st.reqs[1].URL.Query().Get("id"))
	assert.GreaterOrEqual(t, st.times[1].Sub(st.times[0]), time.Second, "efetch waits on the cooldown")
}

func TestPubMed_EmbeddedArticles(t *testing.T) {
	st := newStub(t, nil, map[string]string{
		"/esearch.fcgi": `{"results": [{"uid": "333", "title": "Hypertension and salt", "pubType": ["Meta-Analysis"]}]}`,
	})
	src := NewPubMed(st.source(0), testOptions(newFakeClock()))

	pubs, err := src.Search(context.Background(), hypertension)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "333", pubs[0].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&st.hits), "no efetch without ids")
}

func TestPubMed_TermAndDates(t *testing.T) {
	q := Query{
		Keywords:        []string{"hypertension", "older adults"},
		PublicationType: "Randomized Controlled Trial",
	}
	assert.Equal(t, `(hypertension OR "older adults") AND Randomized Controlled Trial[pt]`, pubMedTerm(q))

	src := NewPubMed(types.SourceConfig{}, testOptions(newFakeClock()))
	q.DateFrom = time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	params := src.searchParams(q)
	assert.Equal(t, "2020/05/01", params.Get("mindate"))
	assert.Equal(t, "3000/12/31", params.Get("maxdate"))
	assert.Equal(t, "pdat", params.Get("datetype"))
}

func TestPubMed_Lookup(t *testing.T) {
	st := newStub(t, nil, map[string]string{"/efetch.fcgi": efetchBody})
	src := NewPubMed(st.source(0), testOptions(newFakeClock()))

	p, err := src.Lookup(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, "Intensive treatment of hypertension", p.Title)

	_, err = src.Lookup(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = src.Lookup(context.Background(), "PMID:111")
	require.NoError(t, err)
	assert.Equal(t, "111", p.ID)
	assert.Equal(t, "111", st.lastQuery().Get("id"))

	_, err = src.Lookup(context.Background(), "NCT01234567")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSplitIDs(t *testing.T) {
	ids, objects := splitIDs([]json.RawMessage{json.RawMessage(`"1"`), json.RawMessage(`2`), json.RawMessage(`{"uid":"3"}`), json.RawMessage(`""`)})
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Len(t, objects, 1)
}

// --- aggregation over real adapters ---

func TestSearchAll_OneSourceDownStillReturnsOthers(t *testing.T) {
	healthy := newStub(t, nil, map[string]string{"*": `{"studies": [` + trialRecord + `]}`})
	broken := newStub(t, nil, map[string]string{"*": `oops`})
	broken.status = http.StatusBadGateway

	cfg := testCfg()
	cfg.ClinicalTrials = healthy.source(0)
	cfg.Cochrane = broken.source(0)
	cfg.PubMed.Enabled = false
	cfg.Guidelines.Enabled = false

	sources := NewSources(cfg, testOptions(newFakeClock()))
	require.Len(t, sources, 2)
	agg := NewAggregator(cfg, quietLogger(), nil, sources...)

	out, err := agg.SearchAll(context.Background(), hypertension, []string{"clinicaltrials", "cochrane"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "NCT00000001", out.Results[0].ID)
	require.Len(t, out.SourceErrors, 1)
	assert.Contains(t, out.SourceErrors[0], "cochrane")
	for _, p := range out.Results {
		assert.GreaterOrEqual(t, p.EvidenceQuality.Score, 0)
		assert.LessOrEqual(t, p.EvidenceQuality.Score, 100)
		assert.GreaterOrEqual(t, p.RelevanceScore, 0.3)
		assert.LessOrEqual(t, p.RelevanceScore, 1.0)
	}
}

func TestSearchAll_IdempotentOverHTTP(t *testing.T) {
	st := newStub(t, nil, map[string]string{"*": `{"studies": [` + trialRecord + `,` + unrelatedTrial + `]}`})
	cfg := testCfg()
	cfg.ClinicalTrials = st.source(0)

	src := NewClinicalTrials(cfg.ClinicalTrials, testOptions(newFakeClock()))
	agg := NewAggregator(cfg, quietLogger(), nil, src)

	first, err := agg.SearchAll(context.Background(), hypertension, nil)
	require.NoError(t, err)
	second, err := agg.SearchAll(context.Background(), hypertension, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Results, second.Results)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestNewSource(t *testing.T) {
	cfg := testCfg()
	for _, name := range SourceNames {
		s, err := NewSource(name, cfg, Options{})
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := NewSource("scopus", cfg, Options{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
