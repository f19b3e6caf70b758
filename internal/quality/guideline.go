// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Guideline publisher model constants. The base score depends on the
// issuing body.
const (
	GuidelineBaseWHO    = 95
	GuidelineBaseNICE   = 90
	GuidelineBaseUSPSTF = 88
	GuidelineBaseOther  = 80

	GuidelineRecentUpdate = 5   // updated within 12 months
	GuidelineStaleUpdate  = -10 // not updated for more than 60 months

	GuidelineSystematic = 5
	GuidelineStrongA    = 3
)

// GuidelineScale grades guideline publisher scores.
var GuidelineScale = Scale{A: 90, B: 75, C: 60}

// issuers maps issuing bodies to their base score. Names match on any of
// the full-name phrases (case-insensitive) or on an acronym token written in
// capitals, so "Physicians Who Care" is not the WHO.
var issuers = []struct {
	name     string
	base     int
	phrases  []string
	acronyms []string
}{
	{"WHO", GuidelineBaseWHO, []string{"world health organization", "world health organisation"}, []string{"WHO"}},
	{"NICE", GuidelineBaseNICE, []string{"national institute for health and care excellence", "national institute for health and clinical excellence"}, []string{"NICE"}},
	{"USPSTF", GuidelineBaseUSPSTF, []string{"preventive services task force"}, []string{"USPSTF"}},
}

// GuidelineModel grades guideline publisher records.
type GuidelineModel struct {
	Now func() time.Time
}

var _ Model[evidence.Guideline] = GuidelineModel{}

// Assess scores a guideline from its issuer, currency, methodology and the
// strength of its recommendations.
func (m GuidelineModel) Assess(g evidence.Guideline) types.EvidenceQuality {
	now := clock(m.Now)
	issuer, base := IssuerBase(g.Organization)
	tally := NewTally(base)

	updated := g.LastUpdate()
	age := monthsSince(updated, now)
	if !updated.IsZero() {
		switch {
		case age <= 12:
			tally.Add(GuidelineRecentUpdate)
		case age > 60:
			tally.Add(GuidelineStaleUpdate)
		}
	}

	systematic := strings.Contains(strings.ToLower(g.Methodology), "systematic")
	if systematic {
		tally.Add(GuidelineSystematic)
	}

	strongA := 0
	for _, r := range g.Recommendations {
		if strings.Contains(r.Strength, "strong") && r.EvidenceLevel == "A" {
			strongA++
		}
	}
	if strongA > 0 {
		tally.Add(GuidelineStrongA)
	}

	design := "Clinical practice guideline"
	if issuer != "" {
		design += " (" + issuer + ")"
	}
	sample := fmt.Sprintf("%d recommendations", len(g.Recommendations))
	if strongA > 0 {
		sample += fmt.Sprintf(", %d strong with level A evidence", strongA)
	}
	method := "Methodology not stated"
	if g.Methodology != "" {
		method = g.Methodology
	}
	bias := "Last update not reported"
	if !updated.IsZero() {
		bias = fmt.Sprintf("Last updated %d months ago", age)
	}
	if g.Organization != "" {
		bias = "Issued by " + g.Organization + "; " + strings.ToLower(bias[:1]) + bias[1:]
	}

	return tally.Result(GuidelineScale, types.QualityFactors{
		StudyDesign: design,
		SampleSize:  sample,
		Methodology: method,
		Bias:        bias,
	})
}

// IssuerBase returns the short issuer name and base score for an
// organization. Unknown organizations get GuidelineBaseOther and "".
func IssuerBase(org string) (string, int) {
	lower := strings.ToLower(org)
	tokens := strings.FieldsFunc(org, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	for _, is := range issuers {
		for _, p := range is.phrases {
			if strings.Contains(lower, p) {
				return is.name, is.base
			}
		}
		for _, tok := range tokens {
			for _, a := range is.acronyms {
				if tok == a {
					return is.name, is.base
				}
			}
		}
	}
	return "", GuidelineBaseOther
}
