// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/record"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Trial status tokens (see enumToken).
const (
	StatusCompleted           = "COMPLETED"
	StatusActiveNotRecruiting = "ACTIVENOTRECRUITING"
	StatusTerminated          = "TERMINATED"
	StatusSuspended           = "SUSPENDED"
	StatusWithdrawn           = "WITHDRAWN"
)

// Study type tokens.
const (
	StudyInterventional = "INTERVENTIONAL"
	StudyObservational  = "OBSERVATIONAL"
)

// Sponsor class tokens.
const (
	SponsorNIH      = "NIH"
	SponsorIndustry = "INDUSTRY"
)

// Trial is the canonical form of a clinical-trial registry record.
type Trial struct {
	NCTID         string
	Title         string
	Summary       string
	Conditions    []string
	Interventions []string
	Outcomes      []string
	Keywords      []string
	MeSHTerms     []string

	// Phases holds tokens such as "PHASE3" or "EARLYPHASE1".
	Phases     []string
	StudyType  string
	Status     string
	HasResults bool
	Enrollment int

	// Masking is the first word of the masking description ("DOUBLE", "SINGLE", "NONE").
	Masking string

	LeadSponsor         string
	LeadSponsorClass    string
	CollaboratorClasses []string
	Officials           []string

	StartDate      time.Time
	CompletionDate time.Time
	FirstPosted    time.Time
}

const (
	pIdent    = "protocolSection.identificationModule."
	pStatus   = "protocolSection.statusModule."
	pDesc     = "protocolSection.descriptionModule."
	pDesign   = "protocolSection.designModule."
	pSponsors = "protocolSection.sponsorCollaboratorsModule."
)

// NormalizeTrial reads a registry record in either the nested v2 layout or a
// flat layout with camelCase or PascalCase field names.
func NormalizeTrial(f record.Fields) (Trial, error) {
	t := Trial{
		NCTID: f.String("nctId", pIdent+"nctId"),
		Title: f.String("briefTitle", pIdent+"briefTitle", "officialTitle", pIdent+"officialTitle", "title"),
		Summary: joinText(
			f.String("briefSummary", pDesc+"briefSummary", "summary"),
			f.String("detailedDescription", pDesc+"detailedDescription"),
		),
		Conditions: dedupe(f.Strings("conditions", "condition", "protocolSection.conditionsModule.conditions")),
		Interventions: dedupe(f.Strings(
			"interventionNames", "interventions.name", "intervention.interventionName", "interventions",
			"protocolSection.armsInterventionsModule.interventions.name",
		)),
		Outcomes: dedupe(f.Strings(
			"primaryOutcomes.measure", "primaryOutcome",
			"protocolSection.outcomesModule.primaryOutcomes.measure",
		)),
		Keywords: dedupe(f.Strings("keywords", "keyword", "protocolSection.conditionsModule.keywords")),
		MeSHTerms: dedupe(append(
			f.Strings("conditionMeshTerms", "derivedSection.conditionBrowseModule.meshes.term"),
			f.Strings("interventionMeshTerms", "derivedSection.interventionBrowseModule.meshes.term")...,
		)),
		StudyType:        enumToken(f.String("studyType", pDesign+"studyType")),
		Status:           enumToken(f.String("overallStatus", pStatus+"overallStatus")),
		Masking:          firstWord(f.String("masking", "designInfo.maskingInfo.masking", pDesign+"designInfo.maskingInfo.masking")),
		LeadSponsor:      f.String("leadSponsorName", "leadSponsor.name", pSponsors+"leadSponsor.name"),
		LeadSponsorClass: enumToken(f.String("leadSponsorClass", "leadSponsor.class", pSponsors+"leadSponsor.class")),
		Officials:        dedupe(f.Strings("overallOfficials.name", "protocolSection.contactsLocationsModule.overallOfficials.name")),
		StartDate:        f.Time("startDate", "startDateStruct.date", pStatus+"startDateStruct.date"),
		CompletionDate: f.Time(
			"completionDate", "completionDateStruct.date", pStatus+"completionDateStruct.date",
			"primaryCompletionDate", pStatus+"primaryCompletionDateStruct.date",
		),
		FirstPosted: f.Time("studyFirstPostDate", "studyFirstPostDateStruct.date", pStatus+"studyFirstPostDateStruct.date"),
	}

	for _, p := range f.Strings("phases", "phase", pDesign+"phases") {
		for _, part := range strings.Split(p, "/") {
			if tok := enumToken(part); tok != "" && tok != "NA" {
				t.Phases = append(t.Phases, tok)
			}
		}
	}
	t.Phases = dedupe(t.Phases)

	for _, c := range f.Strings("collaboratorClasses", "collaborators.class", pSponsors+"collaborators.class") {
		t.CollaboratorClasses = append(t.CollaboratorClasses, enumToken(c))
	}

	if n, ok := f.Int("enrollment", "enrollmentCount", "enrollment.count", "enrollmentInfo.count", pDesign+"enrollmentInfo.count"); ok {
		t.Enrollment = n
	}
	if b, ok := f.Bool("hasResults", "resultsAvailable", "resultsFirstPosted"); ok {
		t.HasResults = b
	}

	if t.NCTID == "" && t.Title == "" {
		return Trial{}, ErrIncomplete
	}
	return t, nil
}

func firstWord(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '(' || r == ',' || r == '_'
	})
	if len(fields) == 0 {
		return ""
	}
	return enumToken(fields[0])
}

// HighestPhase returns 4, 3, 2 or 1 for the most advanced phase, or 0.
// Early phase 1 counts as 1.
func (t Trial) HighestPhase() int {
	best := 0
	for _, p := range t.Phases {
		var n int
		switch p {
		case "PHASE4":
			n = 4
		case "PHASE3":
			n = 3
		case "PHASE2":
			n = 2
		case "PHASE1", "EARLYPHASE1", "PHASE0":
			n = 1
		}
		if n > best {
			best = n
		}
	}
	return best
}

// ReferenceDate is the completion date when known, else the start date.
func (t Trial) ReferenceDate() time.Time {
	if !t.CompletionDate.IsZero() {
		return t.CompletionDate
	}
	return t.StartDate
}

// ToPublication builds the canonical publication. Quality and relevance are
// filled by the caller.
func (t Trial) ToPublication(now time.Time) types.Publication {
	authors := t.Officials
	if len(authors) == 0 && t.LeadSponsor != "" {
		authors = []string{t.LeadSponsor}
	}
	published := t.FirstPosted
	if published.IsZero() {
		published = t.StartDate
	}

	pubType := "Clinical Trial"
	if t.StudyType == StudyObservational {
		pubType = "Observational Study"
	}
	if phase := t.HighestPhase(); phase > 0 {
		pubType = fmt.Sprintf("%s, Phase %d", pubType, phase)
	}

	p := types.Publication{
		ID:              t.NCTID,
		Source:          SourceClinicalTrials,
		Title:           t.Title,
		Abstract:        t.Summary,
		Authors:         authors,
		Journal:         "ClinicalTrials.gov",
		PublishedAt:     published,
		PublicationType: pubType,
		Keywords:        dedupe(append(append([]string(nil), t.Conditions...), t.Keywords...)),
		MeSHTerms:       t.MeSHTerms,
		ProcessedAt:     now,
	}
	if t.NCTID != "" {
		p.URL = "https://clinicaltrials.gov/study/" + t.NCTID
	}
	return p
}
