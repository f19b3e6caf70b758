// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/evidence"
)

// pmidPattern matches PubMed identifiers: "31234567", "PMID:31234567", "PMID 31234567".
var pmidPattern = regexp.MustCompile(`^(?i)(?:PMID:?\s*)?(\d{1,9})$`)

// nctPattern matches ClinicalTrials.gov registry numbers: "NCT01234567".
var nctPattern = regexp.MustCompile(`^(?i)(NCT\d{8})$`)

// cochranePattern matches Cochrane review numbers, bare or inside the review
// DOI: "CD004349", "10.1002/14651858.CD004349.pub3".
var cochranePattern = regexp.MustCompile(`^(?i)(?:10\.1002/14651858\.)?(CD\d{6})(?:\.pub\d+)?$`)

// Classify determines which source an identifier belongs to and returns its
// normalized form. Guideline identifiers are free-form and never classified.
func Classify(identifier string) (source, normalized string, err error) {
	identifier = strings.TrimSpace(identifier)

	if m := nctPattern.FindStringSubmatch(identifier); m != nil {
		return evidence.SourceClinicalTrials, strings.ToUpper(m[1]), nil
	}
	if m := cochranePattern.FindStringSubmatch(identifier); m != nil {
		return evidence.SourceCochrane, strings.ToUpper(m[1]), nil
	}
	if m := pmidPattern.FindStringSubmatch(identifier); m != nil {
		return evidence.SourcePubMed, m[1], nil
	}
	return "", identifier, fmt.Errorf("%w: cannot tell the source of identifier %q; name the source explicitly",
		ErrInvalidQuery, identifier)
}
