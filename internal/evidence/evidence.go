// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence maps source-specific raw records into canonical
// intermediate records (Trial, Review, Guideline, Article) and from there
// into the shared Publication shape. Every spelling variant of a raw field
// is resolved here, once, so grading and relevance code reads typed fields.
package evidence

import (
	"errors"
	"strings"
)

// Source names, also used as adapter names.
const (
	SourcePubMed         = "pubmed"
	SourceCochrane       = "cochrane"
	SourceClinicalTrials = "clinicaltrials"
	SourceGuidelines     = "guidelines"
)

// ErrIncomplete is returned when a raw record carries neither an identifier
// nor a title and cannot be turned into a publication.
var ErrIncomplete = errors.New("record has neither identifier nor title")

// enumToken folds an enumerated value to a comparable token:
// "Active, not recruiting", "ACTIVE_NOT_RECRUITING" and "active-not-recruiting"
// all become "ACTIVENOTRECRUITING".
func enumToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupe drops blanks and repeated values, keeping first occurrences.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// joinText joins non-empty paragraphs with blank lines.
func joinText(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
