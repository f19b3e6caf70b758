// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// QueryFile is the on-disk form of a search and its results, so a search
// can be reloaded later without querying the sources again.
type QueryFile struct {
	Query   QueryParams         `yaml:"query"`
	Sources []string            `yaml:"sources,omitempty"`
	Results []types.Publication `yaml:"results"`
	Summary QuerySummary        `yaml:"summary"`
}

// QueryParams stores the query in a serializable form.
type QueryParams struct {
	Keywords        []string `yaml:"keywords"`
	DateFrom        string   `yaml:"date_from,omitempty"`
	DateTo          string   `yaml:"date_to,omitempty"`
	PublicationType string   `yaml:"publication_type,omitempty"`
	Phase           string   `yaml:"phase,omitempty"`
	Status          string   `yaml:"status,omitempty"`
	StudyType       string   `yaml:"study_type,omitempty"`
	MaxResults      int      `yaml:"max_results,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	RunID             string    `yaml:"run_id"`
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	SourceErrors      []string  `yaml:"source_errors,omitempty"`
	PerSource         []Report  `yaml:"per_source,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

const dateFmt = "2006-01-02"

// NewQueryFile captures a finished search.
func NewQueryFile(q Query, sources []string, out SearchOutput, now time.Time) QueryFile {
	qf := QueryFile{
		Query: QueryParams{
			Keywords:        q.Terms(),
			PublicationType: q.PublicationType,
			Phase:           q.Phase,
			Status:          q.Status,
			StudyType:       q.StudyType,
			MaxResults:      q.MaxResults,
		},
		Sources: sources,
		Results: out.Results,
		Summary: QuerySummary{
			RunID:             out.RunID,
			Total:             len(out.Results),
			DuplicatesRemoved: out.DupsRemoved,
			SourceErrors:      out.SourceErrors,
			PerSource:         out.PerSource,
			Timestamp:         now,
		},
	}
	if !q.DateFrom.IsZero() {
		qf.Query.DateFrom = q.DateFrom.Format(dateFmt)
	}
	if !q.DateTo.IsZero() {
		qf.Query.DateTo = q.DateTo.Format(dateFmt)
	}
	return qf
}

// WriteQueryFile saves qf as YAML.
func WriteQueryFile(path string, qf QueryFile) error {
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Output rebuilds the search output stored in the file.
func (qf *QueryFile) Output() SearchOutput {
	return SearchOutput{
		RunID:        qf.Summary.RunID,
		Results:      qf.Results,
		DupsRemoved:  qf.Summary.DuplicatesRemoved,
		SourceErrors: qf.Summary.SourceErrors,
		PerSource:    qf.Summary.PerSource,
	}
}

// ToQuery converts stored parameters back into a Query.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{
		Keywords:        p.Keywords,
		PublicationType: p.PublicationType,
		Phase:           p.Phase,
		Status:          p.Status,
		StudyType:       p.StudyType,
		MaxResults:      p.MaxResults,
	}
	if p.DateFrom != "" {
		t, err := time.Parse(dateFmt, p.DateFrom)
		if err != nil {
			return q, fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
		}
		q.DateFrom = t
	}
	if p.DateTo != "" {
		t, err := time.Parse(dateFmt, p.DateTo)
		if err != nil {
			return q, fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
		}
		q.DateTo = t
	}
	return q, nil
}
