// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"
	"net/http"

	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// setDefaults registers every configuration key so that environment
// variables (EVIDENCE_ENGINE_PUBMED_API_KEY etc.) resolve through viper.
func setDefaults(v *viper.Viper) {
	d := types.DefaultSearchConfig()
	v.SetDefault("log_level", "info")
	v.SetDefault("secrets_dir", ".secrets/")
	v.SetDefault("max_results", d.MaxResults)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("listen", ":8080")

	for name, sc := range map[string]types.SourceConfig{
		evidence.SourcePubMed:         d.PubMed,
		evidence.SourceCochrane:       d.Cochrane,
		evidence.SourceClinicalTrials: d.ClinicalTrials,
		evidence.SourceGuidelines:     d.Guidelines,
	} {
		v.SetDefault(name+".enabled", sc.Enabled)
		v.SetDefault(name+".base_url", sc.BaseURL)
		v.SetDefault(name+".cooldown", sc.Cooldown)
		v.SetDefault(name+".api_key", sc.APIKey)
		v.SetDefault(name+".email", sc.Email)
	}
}

// searchConfig reads the search configuration from v and fills missing
// credentials from secret files.
func searchConfig(v *viper.Viper, secretValues map[string]string) types.SearchConfig {
	source := func(name string) types.SourceConfig {
		return types.SourceConfig{
			Enabled:  v.GetBool(name + ".enabled"),
			BaseURL:  v.GetString(name + ".base_url"),
			Cooldown: v.GetDuration(name + ".cooldown"),
			APIKey:   v.GetString(name + ".api_key"),
			Email:    v.GetString(name + ".email"),
		}
	}

	cfg := types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   v.GetDuration("timeout"),
			UserAgent: v.GetString("user_agent"),
		},
		MaxResults:     v.GetInt("max_results"),
		PubMed:         source(evidence.SourcePubMed),
		Cochrane:       source(evidence.SourceCochrane),
		ClinicalTrials: source(evidence.SourceClinicalTrials),
		Guidelines:     source(evidence.SourceGuidelines),
	}
	secrets.Apply(&cfg, secretValues)
	return cfg
}

// newAggregator builds the enabled sources sharing one HTTP client.
func newAggregator(cfg types.SearchConfig, logger *slog.Logger, m *metrics.Metrics) *search.Aggregator {
	opts := search.Options{
		Client:  &http.Client{Timeout: cfg.Timeout},
		Logger:  logger,
		Metrics: m,
	}
	return search.NewAggregator(cfg, logger, m, search.NewSources(cfg, opts)...)
}
