// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance scores how well a normalized record matches the query
// keywords. Every keyword is looked for, case-insensitively, in each weighted
// text field; the weights of all matching fields add up over all keywords.
// A source-specific bonus applies only when something matched, and the total
// is clamped to [0, 1].
package relevance

import (
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
)

// Field is one weighted piece of text searched for keywords.
type Field struct {
	Text   string
	Weight float64
}

// Field weights per source.
const (
	TrialTitle         = 0.6
	TrialConditions    = 0.5
	TrialInterventions = 0.4
	TrialSummary       = 0.3
	TrialResultsBonus  = 0.1 // completed with results posted
	TrialLatePhase     = 0.1 // phase 3 or later

	ReviewTitle       = 0.5
	ReviewConclusions = 0.4
	ReviewTopics      = 0.4
	ReviewAbstract    = 0.3
	ReviewMetaBonus   = 0.1

	GuidelineTitle           = 0.5
	GuidelineConditions      = 0.5
	GuidelineRecommendations = 0.4
	GuidelineSummary         = 0.2
	GuidelineCurrentBonus    = 0.05 // updated within 24 months

	ArticleTitle       = 0.5
	ArticleIndexTerms  = 0.4 // MeSH terms and author keywords
	ArticleAbstract    = 0.3
	ArticleRecentBonus = 0.05 // published within 2 years
)

// Inclusion thresholds. Records scoring below their source's threshold are
// dropped by the adapter.
const (
	TrialThreshold     = 0.3
	ReviewThreshold    = 0.4
	GuidelineThreshold = 0.4
	ArticleThreshold   = 0.3
)

// Threshold returns the inclusion threshold for a source name, or 0 for an
// unknown source.
func Threshold(source string) float64 {
	switch source {
	case evidence.SourceClinicalTrials:
		return TrialThreshold
	case evidence.SourceCochrane:
		return ReviewThreshold
	case evidence.SourceGuidelines:
		return GuidelineThreshold
	case evidence.SourcePubMed:
		return ArticleThreshold
	}
	return 0
}

// Score sums the weights of every field containing every keyword, adds bonus
// when at least one keyword matched, and clamps the result to [0, 1].
func Score(keywords []string, fields []Field, bonus float64) float64 {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f.Text)
	}

	total := 0.0
	matched := false
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		for i, f := range fields {
			if lowered[i] != "" && strings.Contains(lowered[i], kw) {
				total += f.Weight
				matched = true
			}
		}
	}
	if !matched {
		return 0
	}
	return clamp(total + bonus)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func join(values []string) string { return strings.Join(values, " ") }

// Trial scores a clinical-trial registry record.
func Trial(t evidence.Trial, keywords []string) float64 {
	bonus := 0.0
	if t.Status == evidence.StatusCompleted && t.HasResults {
		bonus += TrialResultsBonus
	}
	if t.HighestPhase() >= 3 {
		bonus += TrialLatePhase
	}
	return Score(keywords, []Field{
		{t.Title, TrialTitle},
		{join(t.Conditions), TrialConditions},
		{join(t.Interventions), TrialInterventions},
		{t.Summary, TrialSummary},
	}, bonus)
}

// Review scores a systematic-review repository record.
func Review(r evidence.Review, keywords []string) float64 {
	bonus := 0.0
	if r.Design == evidence.DesignMetaAnalysis {
		bonus = ReviewMetaBonus
	}
	return Score(keywords, []Field{
		{r.Title, ReviewTitle},
		{r.Conclusions, ReviewConclusions},
		{join(r.Topics), ReviewTopics},
		{r.Abstract, ReviewAbstract},
	}, bonus)
}

// Guideline scores a guideline publisher record. now anchors the currency
// bonus.
func Guideline(g evidence.Guideline, keywords []string, now time.Time) float64 {
	bonus := 0.0
	if u := g.LastUpdate(); !u.IsZero() && !u.AddDate(0, 24, 0).Before(now) {
		bonus = GuidelineCurrentBonus
	}
	return Score(keywords, []Field{
		{g.Title, GuidelineTitle},
		{join(g.Conditions), GuidelineConditions},
		{g.RecommendationText(), GuidelineRecommendations},
		{g.Summary, GuidelineSummary},
	}, bonus)
}

// Article scores an article database record. now anchors the recency bonus.
func Article(a evidence.Article, keywords []string, now time.Time) float64 {
	bonus := 0.0
	if !a.PublishedAt.IsZero() && !a.PublishedAt.AddDate(2, 0, 0).Before(now) {
		bonus = ArticleRecentBonus
	}
	return Score(keywords, []Field{
		{a.Title, ArticleTitle},
		{join(append(append([]string(nil), a.MeSHTerms...), a.Keywords...)), ArticleIndexTerms},
		{a.Abstract, ArticleAbstract},
	}, bonus)
}
