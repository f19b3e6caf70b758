// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestSearchConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := searchConfig(v, nil)
	assert.Equal(t, types.DefaultSearchConfig(), cfg)
}

func TestSearchConfig_OverridesAndSecrets(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("max_results", 5)
	v.Set("cochrane.enabled", false)
	v.Set("pubmed.cooldown", "3s")
	v.Set("guidelines.api_key", "from-config")

	cfg := searchConfig(v, map[string]string{
		secrets.KeyNCBIAPIKey:       "ncbi-secret",
		secrets.KeyGuidelinesAPIKey: "guidelines-secret",
	})
	assert.Equal(t, 5, cfg.MaxResults)
	assert.False(t, cfg.Cochrane.Enabled)
	assert.Equal(t, 3*time.Second, cfg.PubMed.Cooldown)
	assert.Equal(t, "ncbi-secret", cfg.PubMed.APIKey)
	assert.Equal(t, "from-config", cfg.Guidelines.APIKey)

	agg := newAggregator(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.Equal(t, []string{"pubmed", "clinicaltrials", "guidelines"}, agg.Names())
}

func TestSearchConfig_Env(t *testing.T) {
	t.Setenv("EVIDENCE_ENGINE_PUBMED_EMAIL", "lab@example.org")
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("EVIDENCE_ENGINE")
	v.SetEnvKeyReplacer(newKeyReplacer())
	v.AutomaticEnv()

	cfg := searchConfig(v, nil)
	assert.Equal(t, "lab@example.org", cfg.PubMed.Email)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"pubmed", "cochrane"}, splitList("pubmed, ,cochrane "))
	assert.Nil(t, splitList(""))
}

func TestQueryFromFlags(t *testing.T) {
	cmd := searchCmd
	t.Cleanup(func() {
		for _, name := range []string{"keywords", "from", "to", "phase", "max-results"} {
			_ = cmd.Flags().Set(name, cmd.Flags().Lookup(name).DefValue)
		}
	})

	require.NoError(t, cmd.Flags().Set("keywords", "hypertension, ace inhibitor"))
	require.NoError(t, cmd.Flags().Set("from", "2020-01-01"))
	require.NoError(t, cmd.Flags().Set("phase", "PHASE3"))
	require.NoError(t, cmd.Flags().Set("max-results", "7"))

	q, err := queryFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"hypertension", "ace inhibitor"}, q.Keywords)
	assert.Equal(t, 2020, q.DateFrom.Year())
	assert.Equal(t, "PHASE3", q.Phase)
	assert.Equal(t, 7, q.MaxResults)

	require.NoError(t, cmd.Flags().Set("to", "2019-01-01"))
	_, err = queryFromFlags(cmd)
	assert.ErrorIs(t, err, search.ErrInvalidQuery)

	require.NoError(t, cmd.Flags().Set("keywords", ""))
	require.NoError(t, cmd.Flags().Set("to", ""))
	_, err = queryFromFlags(cmd)
	assert.ErrorIs(t, err, search.ErrInvalidQuery)
}

func TestSearchLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	out := search.SearchOutput{
		RunID: "run-1",
		Results: []types.Publication{{
			ID: "NCT01", Source: "clinicaltrials", Title: "Saved trial", Journal: "ClinicalTrials.gov",
			EvidenceQuality: types.EvidenceQuality{Grade: types.GradeB, Score: 70},
		}},
	}
	q := search.Query{Keywords: []string{"asthma"}}
	require.NoError(t, search.WriteQueryFile(path, search.NewQueryFile(q, []string{"clinicaltrials"}, out, time.Now())))

	cmd := searchCmd
	t.Cleanup(func() {
		_ = cmd.Flags().Set("load", "")
		_ = cmd.Flags().Set("json", "false")
		cmd.SetOut(nil)
	})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, cmd.Flags().Set("load", path))
	require.NoError(t, cmd.Flags().Set("json", "true"))

	require.NoError(t, runSearch(cmd, nil))
	assert.Contains(t, buf.String(), `"Saved trial"`)
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, ln, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(os.Stdout) })
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "evidence-engine dev\n", buf.String())
}
