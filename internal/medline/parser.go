// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package medline extracts article fields from PubMed article-set text
// (efetch output) with regular expressions. It does not build a document
// tree: each field is located by its element pattern inside one
// <PubmedArticle> fragment, which tolerates truncated or slightly malformed
// responses at the cost of ignoring structure the patterns do not name.
package medline

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
)

var (
	reArticle      = regexp.MustCompile(`(?s)<PubmedArticle\b[^>]*>(.*?)</PubmedArticle>`)
	rePMID         = regexp.MustCompile(`(?s)<PMID\b[^>]*>(.*?)</PMID>`)
	reTitle        = regexp.MustCompile(`(?s)<ArticleTitle\b[^>]*>(.*?)</ArticleTitle>`)
	reAbstractText = regexp.MustCompile(`(?s)<AbstractText\b([^>]*)>(.*?)</AbstractText>`)
	reLabelAttr    = regexp.MustCompile(`\bLabel="([^"]*)"`)
	reJournal      = regexp.MustCompile(`(?s)<Journal\b[^>]*>.*?<Title>(.*?)</Title>`)
	reAuthor       = regexp.MustCompile(`(?s)<Author\b[^>]*>(.*?)</Author>`)
	reLastName     = regexp.MustCompile(`(?s)<LastName>(.*?)</LastName>`)
	reForeName     = regexp.MustCompile(`(?s)<ForeName>(.*?)</ForeName>`)
	reCollective   = regexp.MustCompile(`(?s)<CollectiveName>(.*?)</CollectiveName>`)
	rePubType      = regexp.MustCompile(`(?s)<PublicationType\b[^>]*>(.*?)</PublicationType>`)
	reDescriptor   = regexp.MustCompile(`(?s)<DescriptorName\b[^>]*>(.*?)</DescriptorName>`)
	reKeyword      = regexp.MustCompile(`(?s)<Keyword\b[^>]*>(.*?)</Keyword>`)
	reELocDOI      = regexp.MustCompile(`(?s)<ELocationID\b[^>]*EIdType="doi"[^>]*>(.*?)</ELocationID>`)
	reArticleIDDOI = regexp.MustCompile(`(?s)<ArticleId\b[^>]*IdType="doi"[^>]*>(.*?)</ArticleId>`)
	rePubDate      = regexp.MustCompile(`(?s)<PubDate>(.*?)</PubDate>`)
	reYear         = regexp.MustCompile(`(?s)<Year>(\d{4})</Year>`)
	reMonth        = regexp.MustCompile(`(?s)<Month>(.*?)</Month>`)
	reDay          = regexp.MustCompile(`(?s)<Day>(\d{1,2})</Day>`)
	reMedlineDate  = regexp.MustCompile(`(?s)<MedlineDate>(\d{4})`)
	reTag          = regexp.MustCompile(`<[^>]+>`)
)

// ParseArticleSet returns every article found in text. Fragments without a
// PMID or title are skipped.
func ParseArticleSet(text string) []evidence.Article {
	var out []evidence.Article
	for _, m := range reArticle.FindAllStringSubmatch(text, -1) {
		a, err := ParseArticle(m[1])
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ParseArticle extracts one article from the inside of a <PubmedArticle> element.
func ParseArticle(fragment string) (evidence.Article, error) {
	a := evidence.Article{
		PMID:             first(rePMID, fragment),
		Title:            first(reTitle, fragment),
		Abstract:         abstract(fragment),
		Journal:          first(reJournal, fragment),
		DOI:              doi(fragment),
		Authors:          authors(fragment),
		PublicationTypes: all(rePubType, fragment),
		MeSHTerms:        all(reDescriptor, fragment),
		Keywords:         all(reKeyword, fragment),
		PublishedAt:      pubDate(fragment),
	}
	if a.PMID == "" && a.Title == "" {
		return evidence.Article{}, fmt.Errorf("article fragment: %w", evidence.ErrIncomplete)
	}
	return a, nil
}

// clean strips nested markup (<i>, <sup>), unescapes entities and collapses
// whitespace.
func clean(s string) string {
	s = reTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func first(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return clean(m[1])
}

func all(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if v := clean(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// abstract joins structured abstract sections, prefixing each with its label.
func abstract(s string) string {
	var parts []string
	for _, m := range reAbstractText.FindAllStringSubmatch(s, -1) {
		text := clean(m[2])
		if text == "" {
			continue
		}
		if lm := reLabelAttr.FindStringSubmatch(m[1]); lm != nil && lm[1] != "" {
			text = lm[1] + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

func authors(s string) []string {
	var out []string
	for _, m := range reAuthor.FindAllStringSubmatch(s, -1) {
		body := m[1]
		if name := first(reCollective, body); name != "" {
			out = append(out, name)
			continue
		}
		last := first(reLastName, body)
		fore := first(reForeName, body)
		switch {
		case last != "" && fore != "":
			out = append(out, fore+" "+last)
		case last != "":
			out = append(out, last)
		}
	}
	return out
}

func doi(s string) string {
	if v := first(reELocDOI, s); v != "" {
		return v
	}
	return first(reArticleIDDOI, s)
}

// pubDate reads Year/Month/Day from <PubDate>, falling back to the year of a
// <MedlineDate> such as "2019 Nov-Dec".
func pubDate(s string) time.Time {
	raw := rePubDate.FindStringSubmatch(s)
	if raw == nil {
		return time.Time{}
	}
	inner := raw[1]

	year := 0
	if m := reYear.FindStringSubmatch(inner); m != nil {
		year, _ = strconv.Atoi(m[1])
	} else if m := reMedlineDate.FindStringSubmatch(inner); m != nil {
		year, _ = strconv.Atoi(m[1])
	}
	if year == 0 {
		return time.Time{}
	}

	month := time.January
	if m := reMonth.FindStringSubmatch(inner); m != nil {
		month = parseMonth(m[1])
	}
	day := 1
	if m := reDay.FindStringSubmatch(inner); m != nil {
		if d, err := strconv.Atoi(m[1]); err == nil && d >= 1 && d <= 31 {
			day = d
		}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func parseMonth(s string) time.Month {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n)
	}
	if len(s) >= 3 {
		if t, err := time.Parse("Jan", s[:1]+strings.ToLower(s[1:3])); err == nil {
			return t.Month()
		}
	}
	return time.January
}
