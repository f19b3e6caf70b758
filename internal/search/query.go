// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ErrInvalidQuery is returned before any outbound request when a search
// cannot be meaningful: no keywords, no sources, or an inverted date range.
var ErrInvalidQuery = errors.New("invalid query")

// ErrNotFound is returned by Lookup when the source has no record with the
// requested identifier.
var ErrNotFound = errors.New("record not found")

// Source searches one evidence provider. Search returns an error only when
// the query is invalid; transport and parse failures are logged and yield
// an empty list so that sibling sources are unaffected.
type Source interface {
	Name() string
	Search(ctx context.Context, query Query) ([]types.Publication, error)
}

// Lookuper fetches a single record by its source-native identifier.
type Lookuper interface {
	Lookup(ctx context.Context, id string) (types.Publication, error)
}

// Query holds the search parameters shared by all sources. Each adapter
// maps the optional filters onto its own parameter names.
type Query struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	DateFrom time.Time `json:"date_from,omitzero" yaml:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitzero" yaml:"date_to,omitempty"`

	// PublicationType filters by the source's type vocabulary (e.g.
	// "Randomized Controlled Trial", "Systematic Review", "Practice Guideline").
	PublicationType string `json:"publication_type,omitempty" yaml:"publication_type,omitempty"`

	// Phase, Status and StudyType apply to the trial registry only.
	Phase     string `json:"phase,omitempty" yaml:"phase,omitempty"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	StudyType string `json:"study_type,omitempty" yaml:"study_type,omitempty"`

	// MaxResults caps each source's page and the aggregate. 0 uses the
	// configured default.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// Terms returns the keywords with surrounding space removed and blanks dropped.
func (q Query) Terms() []string {
	var out []string
	for _, k := range q.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Validate reports whether the query can be sent to a source.
func (q Query) Validate() error {
	if len(q.Terms()) == 0 {
		return fmt.Errorf("%w: at least one keyword is required", ErrInvalidQuery)
	}
	if !q.DateFrom.IsZero() && !q.DateTo.IsZero() && q.DateFrom.After(q.DateTo) {
		return fmt.Errorf("%w: date range starts %s after it ends %s",
			ErrInvalidQuery, q.DateFrom.Format(dateFmt), q.DateTo.Format(dateFmt))
	}
	return nil
}

// limit returns the per-source page size.
func (q Query) limit() int {
	if q.MaxResults > 0 {
		return q.MaxResults
	}
	return types.DefaultMaxResults
}
