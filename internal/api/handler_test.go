// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

type fakeSource struct {
	name string
	pubs []types.Publication
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(_ context.Context, q search.Query) ([]types.Publication, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return f.pubs, nil
}

func (f *fakeSource) Lookup(_ context.Context, id string) (types.Publication, error) {
	for _, p := range f.pubs {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Publication{}, search.ErrNotFound
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	agg := search.NewAggregator(types.DefaultSearchConfig(), logger, m,
		&fakeSource{name: "pubmed", pubs: []types.Publication{
			{ID: "111", Source: "pubmed", Title: "Hypertension trial", Authors: []string{"Smith"}, RelevanceScore: 0.8},
		}},
		&fakeSource{name: "cochrane", pubs: []types.Publication{
			{ID: "CD004349", Source: "cochrane", Title: "Blood pressure targets", Journal: "Cochrane Database of Systematic Reviews"},
		}},
	)
	ts := httptest.NewServer(NewHandler(agg, reg, logger))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestSearchEndpoint(t *testing.T) {
	ts := newServer(t)

	var out search.SearchOutput
	status := getJSON(t, ts.URL+"/search?keywords=hypertension&sources=pubmed", &out)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "111", out.Results[0].ID)
	assert.NotEmpty(t, out.RunID)
}

func TestSearchEndpoint_BadRequests(t *testing.T) {
	ts := newServer(t)
	for _, path := range []string{
		"/search",
		"/search?keywords=%20,%20",
		"/search?keywords=x&from=2020/01/01",
		"/search?keywords=x&max_results=-1",
		"/search?keywords=x&sources=scopus",
	} {
		var body map[string]string
		assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+path, &body), path)
		assert.NotEmpty(t, body["error"], path)
	}
}

func TestLookupEndpoint(t *testing.T) {
	ts := newServer(t)

	var p types.Publication
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/lookup/pubmed/111", &p))
	assert.Equal(t, "Hypertension trial", p.Title)

	p = types.Publication{}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/lookup/PMID:111", &p))
	assert.Equal(t, "111", p.ID)

	p = types.Publication{}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/lookup/10.1002/14651858.CD004349.pub3", &p))
	assert.Equal(t, "CD004349", p.ID)

	p = types.Publication{}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/lookup/cochrane/CD004349", &p))
	assert.Equal(t, "Blood pressure targets", p.Title)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/lookup/NG136", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/lookup/pubmed/999", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/lookup/scopus/1", nil))
}

func TestMetricsAndHealth(t *testing.T) {
	ts := newServer(t)
	getJSON(t, ts.URL+"/search?keywords=hypertension", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), metrics.MetricSearches+" 1")

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitList(" a, ,b c,"))
	assert.Nil(t, splitList(""))
}
