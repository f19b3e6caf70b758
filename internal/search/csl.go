// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form,
// consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Genre          string    `yaml:"genre,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name, or an organization in the literal field.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the results as a CSL-YAML list to w.
func FormatCSL(out SearchOutput, w io.Writer) error {
	items := make([]CSLItem, len(out.Results))
	for i, p := range out.Results {
		items[i] = toCSLItem(p)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem maps a publication onto CSL. Journal articles and reviews are
// article-journal, guidelines are reports issued by their organization,
// registry entries are datasets.
func toCSLItem(p types.Publication) CSLItem {
	item := CSLItem{
		ID:       p.Source + ":" + p.ID,
		Title:    p.Title,
		Abstract: p.Abstract,
		DOI:      p.DOI,
		URL:      p.URL,
		Genre:    p.PublicationType,
		Note:     "Evidence grade " + string(p.EvidenceQuality.Grade),
	}

	switch p.Source {
	case evidence.SourceGuidelines:
		item.Type = "report"
		item.Publisher = p.Journal
	case evidence.SourceClinicalTrials:
		item.Type = "dataset"
		item.Publisher = p.Journal
	default:
		item.Type = "article-journal"
		item.ContainerTitle = p.Journal
	}

	for _, a := range p.Authors {
		if a == p.Journal {
			item.Author = append(item.Author, CSLName{Literal: a})
			continue
		}
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if !p.PublishedAt.IsZero() {
		item.Issued = &CSLDate{
			DateParts: [][]int{{p.PublishedAt.Year(), int(p.PublishedAt.Month()), p.PublishedAt.Day()}},
		}
	}
	return item
}

// parseAuthorName splits a full name on the last space: everything before
// is given, the last token is family. Single-token names use literal.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
