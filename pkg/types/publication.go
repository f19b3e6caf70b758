// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine:
// the canonical Publication produced by every source adapter and the
// configuration consumed by the search stage.
package types

import "time"

// Grade is a letter summarizing a record's methodological trustworthiness.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// QualityFactors holds human-readable descriptions of the inputs that drove
// an evidence quality score.
type QualityFactors struct {
	// StudyDesign summarizes the design (e.g. "Phase 3 interventional trial").
	StudyDesign string `json:"study_design" yaml:"study_design"`

	// SampleSize describes enrollment, participants, or included studies.
	SampleSize string `json:"sample_size" yaml:"sample_size"`

	// Methodology describes blinding, status, or the stated review method.
	Methodology string `json:"methodology" yaml:"methodology"`

	// Bias describes funding or certainty concerns.
	Bias string `json:"bias" yaml:"bias"`
}

// EvidenceQuality is the graded trustworthiness of a single publication.
// Score is always within [0, 100] and Grade always matches the issuing
// source's score-to-grade scale.
type EvidenceQuality struct {
	Grade   Grade          `json:"grade" yaml:"grade"`
	Score   int            `json:"score" yaml:"score"`
	Factors QualityFactors `json:"factors" yaml:"factors"`
}

// Publication is the canonical normalized evidence record. Publications are
// built fresh for each search and are not mutated once returned.
type Publication struct {
	// ID is the source-native identifier (PMID, NCT number, review or guideline id).
	ID string `json:"id" yaml:"id"`

	// Source names the adapter that produced the record (e.g. "pubmed").
	Source string `json:"source" yaml:"source"`

	Title    string   `json:"title" yaml:"title"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Authors  []string `json:"authors" yaml:"authors"`

	// Journal is the venue, registry, or issuing organization.
	Journal string `json:"journal" yaml:"journal"`

	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
	DOI         string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`

	// PublicationType is the source's own classification (e.g. "Randomized Controlled Trial").
	PublicationType string `json:"publication_type,omitempty" yaml:"publication_type,omitempty"`

	Keywords  []string `json:"keywords" yaml:"keywords"`
	MeSHTerms []string `json:"mesh_terms" yaml:"mesh_terms"`

	EvidenceQuality EvidenceQuality `json:"evidence_quality" yaml:"evidence_quality"`

	// RelevanceScore is a value between 0.0 and 1.0 indicating keyword match strength.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// MatchedPlanIDs is filled by downstream care-plan linking, never by search.
	MatchedPlanIDs []string `json:"matched_plan_ids" yaml:"matched_plan_ids"`

	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// FirstAuthor returns the first listed author, falling back to the venue or
// issuing organization when the record has no authors.
func (p Publication) FirstAuthor() string {
	if len(p.Authors) > 0 {
		return p.Authors[0]
	}
	return p.Journal
}
