// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Trial registry model constants.
const (
	TrialBase = 60

	TrialPhaseLate  = 20 // phase 3 or 4
	TrialPhaseTwo   = 10
	TrialPhaseEarly = 5 // phase 1 or early phase 1

	TrialInterventional = 15
	TrialObservational  = 5

	TrialCompleted           = 15
	TrialResultsAvailable    = 10
	TrialActiveNotRecruiting = 5
	TrialStopped             = -15 // terminated, suspended, withdrawn

	TrialEnrollmentLarge  = 10  // >= 1000
	TrialEnrollmentMedium = 5   // >= 100
	TrialEnrollmentSmall  = -10 // 1..19

	TrialMaskingMulti  = 10 // double, triple, quadruple
	TrialMaskingSingle = 5

	TrialNIHFunded    = 5
	TrialIndustryOnly = -5

	TrialRecent = 5   // reference date within 2 years
	TrialStale  = -10 // reference date older than 10 years
)

// TrialScale grades trial registry scores.
var TrialScale = Scale{A: 85, B: 70, C: 50}

// TrialModel grades clinical-trial registry records.
type TrialModel struct {
	Now func() time.Time
}

var _ Model[evidence.Trial] = TrialModel{}

// Assess scores a trial from its phase, design, status, size, blinding,
// funding and age.
func (m TrialModel) Assess(t evidence.Trial) types.EvidenceQuality {
	now := clock(m.Now)
	tally := NewTally(TrialBase)

	switch t.HighestPhase() {
	case 3, 4:
		tally.Add(TrialPhaseLate)
	case 2:
		tally.Add(TrialPhaseTwo)
	case 1:
		tally.Add(TrialPhaseEarly)
	}

	switch t.StudyType {
	case evidence.StudyInterventional:
		tally.Add(TrialInterventional)
	case evidence.StudyObservational:
		tally.Add(TrialObservational)
	}

	switch t.Status {
	case evidence.StatusCompleted:
		tally.Add(TrialCompleted)
		if t.HasResults {
			tally.Add(TrialResultsAvailable)
		}
	case evidence.StatusActiveNotRecruiting:
		tally.Add(TrialActiveNotRecruiting)
	case evidence.StatusTerminated, evidence.StatusSuspended, evidence.StatusWithdrawn:
		tally.Add(TrialStopped)
	}

	switch {
	case t.Enrollment >= 1000:
		tally.Add(TrialEnrollmentLarge)
	case t.Enrollment >= 100:
		tally.Add(TrialEnrollmentMedium)
	case t.Enrollment > 0 && t.Enrollment < 20:
		tally.Add(TrialEnrollmentSmall)
	}

	switch t.Masking {
	case "DOUBLE", "TRIPLE", "QUADRUPLE":
		tally.Add(TrialMaskingMulti)
	case "SINGLE":
		tally.Add(TrialMaskingSingle)
	}

	nih, industryOnly := trialFunding(t)
	if nih {
		tally.Add(TrialNIHFunded)
	} else if industryOnly {
		tally.Add(TrialIndustryOnly)
	}

	if ref := t.ReferenceDate(); !ref.IsZero() {
		switch {
		case !ref.AddDate(2, 0, 0).Before(now):
			tally.Add(TrialRecent)
		case ref.AddDate(10, 0, 0).Before(now):
			tally.Add(TrialStale)
		}
	}

	return tally.Result(TrialScale, types.QualityFactors{
		StudyDesign: trialDesign(t),
		SampleSize:  trialSampleSize(t),
		Methodology: trialMethodology(t),
		Bias:        trialBias(t, nih, industryOnly),
	})
}

// trialFunding reports NIH involvement (lead or collaborator) and whether
// every known sponsor is industry.
func trialFunding(t evidence.Trial) (nih, industryOnly bool) {
	classes := append([]string{t.LeadSponsorClass}, t.CollaboratorClasses...)
	industryOnly = t.LeadSponsorClass == evidence.SponsorIndustry
	for _, c := range classes {
		if c == evidence.SponsorNIH {
			nih = true
		}
		if c != "" && c != evidence.SponsorIndustry {
			industryOnly = false
		}
	}
	return nih, industryOnly
}

func trialDesign(t evidence.Trial) string {
	kind := "Clinical study"
	switch t.StudyType {
	case evidence.StudyInterventional:
		kind = "Interventional trial"
	case evidence.StudyObservational:
		kind = "Observational study"
	}
	if phase := t.HighestPhase(); phase > 0 {
		return fmt.Sprintf("Phase %d %s", phase, strings.ToLower(kind))
	}
	return kind + " (phase not reported)"
}

func trialSampleSize(t evidence.Trial) string {
	if t.Enrollment <= 0 {
		return "Enrollment not reported"
	}
	return fmt.Sprintf("%d participants enrolled", t.Enrollment)
}

func trialMethodology(t evidence.Trial) string {
	var parts []string
	switch t.Masking {
	case "":
		parts = append(parts, "Masking not reported")
	case "NONE":
		parts = append(parts, "Open label")
	default:
		parts = append(parts, strings.ToLower(t.Masking)+"-blind")
	}
	status := "status not reported"
	if t.Status != "" {
		status = "status " + strings.ToLower(t.Status)
	}
	if t.Status == evidence.StatusCompleted && t.HasResults {
		status += ", results posted"
	}
	parts = append(parts, status)
	return strings.Join(parts, "; ")
}

func trialBias(t evidence.Trial, nih, industryOnly bool) string {
	switch {
	case nih:
		return "NIH funded"
	case industryOnly:
		return "Industry funded only"
	case t.LeadSponsorClass != "":
		return "Lead sponsor class " + strings.ToLower(t.LeadSponsorClass)
	default:
		return "Funding not reported"
	}
}
