// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/record"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Recommendation is one graded statement of a clinical guideline.
type Recommendation struct {
	Text string
	// Strength is lowercased ("strong", "conditional", "weak").
	Strength string
	// EvidenceLevel is uppercased ("A", "B", "C").
	EvidenceLevel string
}

// Guideline is the canonical form of a guideline publisher record.
type Guideline struct {
	ID              string
	Title           string
	Summary         string
	Organization    string
	Authors         []string
	Methodology     string
	Category        string
	URL             string
	DOI             string
	Conditions      []string
	Keywords        []string
	Recommendations []Recommendation
	PublishedAt     time.Time
	UpdatedAt       time.Time
}

// NormalizeGuideline reads a guideline record from any of the known layouts.
func NormalizeGuideline(f record.Fields) (Guideline, error) {
	g := Guideline{
		ID:           f.String("id", "guidelineId", "reference", "identifier"),
		Title:        f.String("title", "name"),
		Summary:      f.String("summary", "abstract", "description", "overview"),
		Organization: f.String("organization", "organization.name", "issuingBody", "publisher", "developer", "source"),
		Authors:      dedupe(f.Strings("authors.name", "authors")),
		Methodology:  f.String("methodology", "developmentMethod", "methods"),
		Category:     f.String("category", "guidanceType", "type"),
		URL:          f.String("url", "link", "webUrl"),
		DOI:          f.String("doi"),
		Conditions:   dedupe(f.Strings("conditions", "condition", "topics", "topics.name", "diseases")),
		Keywords:     dedupe(f.Strings("keywords", "keyword", "tags")),
		PublishedAt:  f.Time("publishedDate", "publicationDate", "published", "issued", "date"),
		UpdatedAt:    f.Time("lastUpdated", "updatedDate", "lastModified", "revisionDate"),
	}

	for _, rec := range f.Objects("recommendations") {
		g.Recommendations = append(g.Recommendations, Recommendation{
			Text:          rec.String("text", "statement", "recommendation"),
			Strength:      strings.ToLower(rec.String("strength", "strengthOfRecommendation", "grade")),
			EvidenceLevel: strings.ToUpper(rec.String("evidenceLevel", "levelOfEvidence", "loe", "evidence")),
		})
	}

	if g.ID == "" && g.Title == "" {
		return Guideline{}, ErrIncomplete
	}
	return g, nil
}

// LastUpdate is the update date when known, else the publication date.
func (g Guideline) LastUpdate() time.Time {
	if !g.UpdatedAt.IsZero() {
		return g.UpdatedAt
	}
	return g.PublishedAt
}

// RecommendationText joins all recommendation statements.
func (g Guideline) RecommendationText() string {
	parts := make([]string, 0, len(g.Recommendations))
	for _, r := range g.Recommendations {
		parts = append(parts, r.Text)
	}
	return joinText(parts...)
}

// ToPublication builds the canonical publication. The issuing organization
// stands in for the author when the record lists none.
func (g Guideline) ToPublication(now time.Time) types.Publication {
	authors := g.Authors
	if len(authors) == 0 && g.Organization != "" {
		authors = []string{g.Organization}
	}
	pubType := "Practice Guideline"
	if g.Category != "" {
		pubType = g.Category
	}
	return types.Publication{
		ID:              g.ID,
		Source:          SourceGuidelines,
		Title:           g.Title,
		Abstract:        g.Summary,
		Authors:         authors,
		Journal:         g.Organization,
		PublishedAt:     g.PublishedAt,
		DOI:             g.DOI,
		URL:             g.URL,
		PublicationType: pubType,
		Keywords:        g.Keywords,
		MeSHTerms:       g.Conditions,
		ProcessedAt:     now,
	}
}
