// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// SourceNames lists the built-in sources in their default search order.
var SourceNames = []string{
	evidence.SourcePubMed,
	evidence.SourceCochrane,
	evidence.SourceClinicalTrials,
	evidence.SourceGuidelines,
}

// NewSource builds the named built-in adapter from cfg.
func NewSource(name string, cfg types.SearchConfig, opts Options) (Source, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = cfg.UserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Timeout
	}
	if opts.PageSize == 0 {
		opts.PageSize = cfg.MaxResults
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case evidence.SourcePubMed:
		return NewPubMed(cfg.PubMed, opts), nil
	case evidence.SourceCochrane:
		return NewCochrane(cfg.Cochrane, opts), nil
	case evidence.SourceClinicalTrials:
		return NewClinicalTrials(cfg.ClinicalTrials, opts), nil
	case evidence.SourceGuidelines:
		return NewGuidelines(cfg.Guidelines, opts), nil
	}
	return nil, fmt.Errorf("%w: unknown source %q (known: %s)",
		ErrInvalidQuery, name, strings.Join(SourceNames, ", "))
}

// NewSources builds every enabled built-in adapter in SourceNames order.
func NewSources(cfg types.SearchConfig, opts Options) []Source {
	enabled := map[string]bool{
		evidence.SourcePubMed:         cfg.PubMed.Enabled,
		evidence.SourceCochrane:       cfg.Cochrane.Enabled,
		evidence.SourceClinicalTrials: cfg.ClinicalTrials.Enabled,
		evidence.SourceGuidelines:     cfg.Guidelines.Enabled,
	}
	var out []Source
	for _, name := range SourceNames {
		if !enabled[name] {
			continue
		}
		s, _ := NewSource(name, cfg, opts)
		out = append(out, s)
	}
	return out
}
