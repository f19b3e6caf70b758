// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"strings"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Article database model constants.
const (
	ArticleBase       = 50
	ArticleSystematic = 30 // systematic review or meta-analysis
	ArticleTrial      = 20 // randomized or clinical trial
	ArticleHighImpact = 10
)

// ArticleScale grades article database scores.
var ArticleScale = Scale{A: 80, B: 60, C: 40}

// HighImpactJournals is matched case-insensitively as a substring of the venue.
var HighImpactJournals = []string{
	"new england journal of medicine",
	"lancet",
	"jama",
	"journal of the american medical association",
	"bmj",
	"british medical journal",
	"nature medicine",
	"annals of internal medicine",
	"circulation",
	"plos medicine",
}

// ArticleModel grades article database records.
type ArticleModel struct{}

var _ Model[evidence.Article] = ArticleModel{}

// Assess scores an article from its publication types and venue.
func (ArticleModel) Assess(a evidence.Article) types.EvidenceQuality {
	tally := NewTally(ArticleBase)
	pubTypes := strings.ToLower(a.PublicationTypeText())

	design := "Journal article"
	method := "Study design not indexed"
	switch {
	case strings.Contains(pubTypes, "systematic") || strings.Contains(pubTypes, "meta-analysis"):
		tally.Add(ArticleSystematic)
		design = "Systematic review or meta-analysis"
		method = "Evidence synthesis across studies"
	case strings.Contains(pubTypes, "randomized") || strings.Contains(pubTypes, "clinical trial"):
		tally.Add(ArticleTrial)
		design = "Randomized or clinical trial"
		method = "Prospective trial design"
	}
	if a.PublicationTypeText() != "" {
		design += " (" + a.PublicationTypeText() + ")"
	}

	bias := "Venue not indexed"
	if a.Journal != "" {
		bias = "Published in " + a.Journal
	}
	if IsHighImpact(a.Journal) {
		tally.Add(ArticleHighImpact)
		bias += " (high-impact journal)"
	}

	return tally.Result(ArticleScale, types.QualityFactors{
		StudyDesign: design,
		SampleSize:  "Not reported in citation metadata",
		Methodology: method,
		Bias:        bias,
	})
}

// IsHighImpact reports whether journal is on the high-impact allowlist.
func IsHighImpact(journal string) bool {
	j := strings.ToLower(journal)
	if j == "" {
		return false
	}
	for _, name := range HighImpactJournals {
		if strings.Contains(j, name) {
			return true
		}
	}
	return false
}
