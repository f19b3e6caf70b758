// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Review repository model constants.
const (
	ReviewBase             = 85
	ReviewMetaAnalysis     = 95
	ReviewSystematicReview = 90
	ReviewProtocol         = 70

	ReviewManyStudies = 5   // >= 10 included studies
	ReviewFewStudies  = -10 // 1..2 included studies

	ReviewManyParticipants = 5  // >= 1000
	ReviewFewParticipants  = -5 // 1..99

	ReviewCertaintyHigh     = 5
	ReviewCertaintyModerate = 0
	ReviewCertaintyLow      = -10
	ReviewCertaintyVeryLow  = -20
)

// ReviewScale grades review repository scores.
var ReviewScale = Scale{A: 90, B: 75, C: 60}

// ReviewModel grades systematic-review repository records.
type ReviewModel struct{}

var _ Model[evidence.Review] = ReviewModel{}

// Assess scores a review from its design, size and stated certainty.
func (ReviewModel) Assess(r evidence.Review) types.EvidenceQuality {
	tally := NewTally(ReviewBase)

	switch r.Design {
	case evidence.DesignMetaAnalysis:
		tally.Set(ReviewMetaAnalysis)
	case evidence.DesignSystematicReview:
		tally.Set(ReviewSystematicReview)
	case evidence.DesignProtocol:
		tally.Set(ReviewProtocol)
	}

	switch {
	case r.IncludedStudies >= 10:
		tally.Add(ReviewManyStudies)
	case r.IncludedStudies > 0 && r.IncludedStudies < 3:
		tally.Add(ReviewFewStudies)
	}

	switch {
	case r.Participants >= 1000:
		tally.Add(ReviewManyParticipants)
	case r.Participants > 0 && r.Participants < 100:
		tally.Add(ReviewFewParticipants)
	}

	switch r.Certainty {
	case evidence.CertaintyHigh:
		tally.Add(ReviewCertaintyHigh)
	case evidence.CertaintyModerate:
		tally.Add(ReviewCertaintyModerate)
	case evidence.CertaintyLow:
		tally.Add(ReviewCertaintyLow)
	case evidence.CertaintyVeryLow:
		tally.Add(ReviewCertaintyVeryLow)
	}

	return tally.Result(ReviewScale, types.QualityFactors{
		StudyDesign: r.Design.String(),
		SampleSize:  reviewSampleSize(r),
		Methodology: reviewMethodology(r),
		Bias:        reviewBias(r),
	})
}

func reviewSampleSize(r evidence.Review) string {
	var parts []string
	if r.IncludedStudies > 0 {
		parts = append(parts, fmt.Sprintf("%d included studies", r.IncludedStudies))
	}
	if r.Participants > 0 {
		parts = append(parts, fmt.Sprintf("%d participants", r.Participants))
	}
	if len(parts) == 0 {
		return "Included studies not reported"
	}
	return strings.Join(parts, ", ")
}

func reviewMethodology(r evidence.Review) string {
	m := "Cochrane systematic review methods"
	if r.Design == evidence.DesignProtocol {
		m = "Protocol for a Cochrane review; no results yet"
	}
	if r.ReviewGroup != "" {
		m += " (" + r.ReviewGroup + ")"
	}
	return m
}

func reviewBias(r evidence.Review) string {
	if r.Certainty == "" {
		return "Certainty of evidence not stated"
	}
	return "Certainty of evidence: " + r.Certainty
}
