// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/record"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Article is the canonical form of an article-database (PubMed) record.
type Article struct {
	PMID             string
	Title            string
	Abstract         string
	Journal          string
	DOI              string
	Authors          []string
	PublicationTypes []string
	MeSHTerms        []string
	Keywords         []string
	PublishedAt      time.Time
}

// NormalizeArticle reads an article delivered as JSON (summary endpoints and
// mirrors) rather than as article-set text.
func NormalizeArticle(f record.Fields) (Article, error) {
	a := Article{
		PMID:             f.String("pmid", "uid", "id", "articleIds.pubmed"),
		Title:            f.String("title", "articleTitle"),
		Abstract:         f.String("abstract", "abstractText"),
		Journal:          f.String("fullJournalName", "journal", "journalTitle", "source"),
		DOI:              f.String("doi", "elocationId"),
		Authors:          dedupe(f.Strings("authors.name", "authors")),
		PublicationTypes: dedupe(f.Strings("pubType", "publicationTypes", "publicationType")),
		MeSHTerms:        dedupe(f.Strings("meshTerms", "meshHeadings", "mesh")),
		Keywords:         dedupe(f.Strings("keywords", "keyword")),
		PublishedAt:      f.Time("sortPubDate", "pubDate", "publicationDate", "epubDate"),
	}
	a.DOI = strings.TrimPrefix(strings.TrimPrefix(a.DOI, "doi: "), "https://doi.org/")
	if a.PublishedAt.IsZero() {
		// Summary endpoints report dates such as "2023 Mar 15" or "2023/03/15 00:00".
		a.PublishedAt = parseLooseDate(f.String("pubDate", "sortPubDate"))
	}
	if a.PMID == "" && a.Title == "" {
		return Article{}, ErrIncomplete
	}
	return a, nil
}

var looseLayouts = []string{"2006 Jan 2", "2006 Jan", "2006/01/02 15:04"}

func parseLooseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if len(s) >= 4 {
		return record.ParseDate(s[:4])
	}
	return time.Time{}
}

// PublicationTypeText joins the publication types for display and matching.
func (a Article) PublicationTypeText() string {
	return strings.Join(a.PublicationTypes, "; ")
}

// ToPublication builds the canonical publication.
func (a Article) ToPublication(now time.Time) types.Publication {
	p := types.Publication{
		ID:              a.PMID,
		Source:          SourcePubMed,
		Title:           a.Title,
		Abstract:        a.Abstract,
		Authors:         a.Authors,
		Journal:         a.Journal,
		PublishedAt:     a.PublishedAt,
		DOI:             a.DOI,
		PublicationType: a.PublicationTypeText(),
		Keywords:        a.Keywords,
		MeSHTerms:       a.MeSHTerms,
		ProcessedAt:     now,
	}
	if a.PMID != "" {
		p.URL = "https://pubmed.ncbi.nlm.nih.gov/" + a.PMID + "/"
	}
	return p
}
