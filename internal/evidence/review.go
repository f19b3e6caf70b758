// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/record"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ReviewDesign classifies a systematic-review repository record.
type ReviewDesign int

const (
	DesignUnspecified ReviewDesign = iota
	DesignSystematicReview
	DesignMetaAnalysis
	DesignProtocol
)

func (d ReviewDesign) String() string {
	switch d {
	case DesignSystematicReview:
		return "Systematic review"
	case DesignMetaAnalysis:
		return "Systematic review with meta-analysis"
	case DesignProtocol:
		return "Review protocol"
	default:
		return "Review"
	}
}

// Certainty of evidence as stated by the review authors (GRADE wording).
const (
	CertaintyHigh     = "high"
	CertaintyModerate = "moderate"
	CertaintyLow      = "low"
	CertaintyVeryLow  = "very low"
)

// Review is the canonical form of a systematic-review repository record.
type Review struct {
	ID          string
	DOI         string
	Title       string
	Abstract    string
	Conclusions string
	Authors     []string
	Keywords    []string
	Topics      []string
	ReviewGroup string
	Design      ReviewDesign

	// IncludedStudies and Participants are 0 when the record does not state them.
	IncludedStudies int
	Participants    int

	// Certainty is one of the Certainty constants, or "" when not stated.
	Certainty string

	PublishedAt time.Time
	UpdatedAt   time.Time
}

// NormalizeReview reads a review record from any of the known layouts.
func NormalizeReview(f record.Fields) (Review, error) {
	r := Review{
		ID:       f.String("id", "cdNumber", "reviewId", "cdsrId"),
		DOI:      f.String("doi"),
		Title:    f.String("title", "reviewTitle"),
		Abstract: f.String("abstract", "abstractText", "summary", "plainLanguageSummary"),
		Conclusions: joinText(
			f.String("authorsConclusions", "conclusions", "conclusion"),
			f.String("mainResults", "results"),
		),
		Authors:     dedupe(f.Strings("authors.name", "authors", "authorNames")),
		Keywords:    dedupe(f.Strings("keywords", "keyword")),
		Topics:      dedupe(append(f.Strings("topics", "topic", "topics.name"), f.Strings("meshTerms", "mesh")...)),
		ReviewGroup: f.String("reviewGroup", "group", "crg"),
		Design:      reviewDesign(f),
		Certainty:   certainty(f.String("certaintyOfEvidence", "qualityOfEvidence", "certainty", "gradeCertainty", "evidenceQuality")),
		PublishedAt: f.Time("publishedDate", "publicationDate", "firstPublished", "published", "date"),
		UpdatedAt:   f.Time("lastUpdated", "updatedDate", "lastModified", "assessedAsUpToDate"),
	}
	if n, ok := f.Int("includedStudies", "numberOfStudies", "studyCount", "includedStudiesCount"); ok {
		r.IncludedStudies = n
	}
	if n, ok := f.Int("totalParticipants", "participants", "numberOfParticipants"); ok {
		r.Participants = n
	}
	if r.ID == "" {
		r.ID = r.DOI
	}
	if r.ID == "" && r.Title == "" {
		return Review{}, ErrIncomplete
	}
	return r, nil
}

// reviewDesign inspects the type fields and the title. A protocol wins over
// any other wording because it has no results yet.
func reviewDesign(f record.Fields) ReviewDesign {
	text := strings.ToLower(strings.Join([]string{
		f.String("reviewType", "type", "studyType", "publicationType", "stage"),
		f.String("title", "reviewTitle"),
	}, " "))

	switch {
	case strings.Contains(text, "protocol"):
		return DesignProtocol
	case strings.Contains(text, "meta-analysis"), strings.Contains(text, "meta analysis"):
		return DesignMetaAnalysis
	}
	if meta, ok := f.Bool("hasMetaAnalysis", "metaAnalysis", "isMetaAnalysis"); ok && meta {
		return DesignMetaAnalysis
	}
	if strings.Contains(text, "systematic") || strings.Contains(text, "review") {
		return DesignSystematicReview
	}
	return DesignUnspecified
}

func certainty(s string) string {
	s = strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(s))
	s = strings.Join(strings.Fields(s), " ")
	switch {
	case strings.Contains(s, CertaintyVeryLow):
		return CertaintyVeryLow
	case strings.Contains(s, CertaintyHigh):
		return CertaintyHigh
	case strings.Contains(s, CertaintyModerate):
		return CertaintyModerate
	case strings.Contains(s, CertaintyLow):
		return CertaintyLow
	}
	return ""
}

// ToPublication builds the canonical publication.
func (r Review) ToPublication(now time.Time) types.Publication {
	published := r.PublishedAt
	if published.IsZero() {
		published = r.UpdatedAt
	}
	p := types.Publication{
		ID:              r.ID,
		Source:          SourceCochrane,
		Title:           r.Title,
		Abstract:        r.Abstract,
		Authors:         r.Authors,
		Journal:         "Cochrane Database of Systematic Reviews",
		PublishedAt:     published,
		DOI:             r.DOI,
		PublicationType: r.Design.String(),
		Keywords:        r.Keywords,
		MeSHTerms:       r.Topics,
		ProcessedAt:     now,
	}
	if r.DOI != "" {
		p.URL = "https://doi.org/" + r.DOI
	}
	return p
}
