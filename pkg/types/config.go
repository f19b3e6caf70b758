// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every source adapter.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig holds the settings of one evidence source adapter.
type SourceConfig struct {
	// Enabled controls whether the source takes part in searches by default.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// BaseURL overrides the source's public endpoint (used by tests and mirrors).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Cooldown is the minimum delay between two outbound calls of the adapter.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	// APIKey is an optional key for higher rate limits or authenticated access.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email identifies the caller to services with a polite pool (NCBI).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of aggregated results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	PubMed         SourceConfig `json:"pubmed" yaml:"pubmed"`
	Cochrane       SourceConfig `json:"cochrane" yaml:"cochrane"`
	ClinicalTrials SourceConfig `json:"clinicaltrials" yaml:"clinicaltrials"`
	Guidelines     SourceConfig `json:"guidelines" yaml:"guidelines"`
}

// Default cooldowns per source, between 1 and 2 seconds.
const (
	DefaultPubMedCooldown         = 1000 * time.Millisecond
	DefaultClinicalTrialsCooldown = 1000 * time.Millisecond
	DefaultGuidelinesCooldown     = 1500 * time.Millisecond
	DefaultCochraneCooldown       = 2000 * time.Millisecond

	DefaultMaxResults = 20
)

// DefaultSearchConfig returns a configuration with every source enabled and
// the default cooldowns applied.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "evidence-engine/0.1",
		},
		MaxResults:     DefaultMaxResults,
		PubMed:         SourceConfig{Enabled: true, Cooldown: DefaultPubMedCooldown},
		Cochrane:       SourceConfig{Enabled: true, Cooldown: DefaultCochraneCooldown},
		ClinicalTrials: SourceConfig{Enabled: true, Cooldown: DefaultClinicalTrialsCooldown},
		Guidelines:     SourceConfig{Enabled: true, Cooldown: DefaultGuidelinesCooldown},
	}
}
