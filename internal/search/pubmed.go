// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/medline"
	"github.com/pdiddy/evidence-engine/internal/quality"
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// pubMedEndpoint is the E-utilities base; esearch.fcgi and efetch.fcgi are
// appended per request.
var pubMedEndpoint = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// pubMedTool identifies the client to NCBI alongside the contact email.
const pubMedTool = "evidence-engine"

// PubMed queries the article database. A search is an esearch request for
// matching PMIDs followed by an efetch request for their article text, each
// gated by the cooldown.
type PubMed struct {
	adapter
	email string
	pipe  pipeline[evidence.Article]
}

var (
	_ Source   = (*PubMed)(nil)
	_ Lookuper = (*PubMed)(nil)
)

// NewPubMed returns the article database adapter.
func NewPubMed(sc types.SourceConfig, opts Options) *PubMed {
	s := &PubMed{
		adapter: newAdapter(evidence.SourcePubMed, pubMedEndpoint, "esearchresult.idlist", sc, opts),
		email:   sc.Email,
	}
	s.pipe = pipeline[evidence.Article]{
		normalize: evidence.NormalizeArticle,
		model:     quality.ArticleModel{},
		relevance: relevance.Article,
		publish:   evidence.Article.ToPublication,
		threshold: relevance.ArticleThreshold,
	}
	return s
}

// Search queries the database. Only an invalid query returns an error.
func (s *PubMed) Search(ctx context.Context, q Query) ([]types.Publication, error) {
	pubs, _, err := s.searchReport(ctx, q)
	return pubs, err
}

func (s *PubMed) searchReport(ctx context.Context, q Query) ([]types.Publication, Report, error) {
	rep := Report{Source: s.name}
	if err := q.Validate(); err != nil {
		return nil, rep, err
	}
	start := time.Now()
	defer func() { s.finish(ctx, rep, start) }()

	body, err := s.get(ctx, "/esearch.fcgi", s.searchParams(s.paged(q)))
	if err != nil {
		s.degrade(ctx, &rep, err)
		return nil, rep, nil
	}

	// Mirrors and summary endpoints return article objects instead of ids.
	ids, objects := splitIDs(s.items(ctx, body))
	articles, skipped := decode(ctx, &s.adapter, objects, s.pipe)

	if len(ids) > 0 {
		fetched, err := s.fetch(ctx, ids)
		if err != nil {
			s.degrade(ctx, &rep, err)
		}
		articles = append(articles, fetched...)
	}

	pubs, dropped := score(articles, q.Terms(), s.now(), s.pipe)
	rep.Results, rep.Dropped, rep.Skipped = len(pubs), dropped, skipped
	return pubs, rep, nil
}

// Lookup fetches one article by PMID, bare or prefixed ("PMID:31234567").
func (s *PubMed) Lookup(ctx context.Context, id string) (types.Publication, error) {
	m := pmidPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return types.Publication{}, fmt.Errorf("%w: %q is not a PMID", ErrInvalidQuery, id)
	}
	id = m[1]
	articles, err := s.fetch(ctx, []string{id})
	if err != nil {
		return types.Publication{}, err
	}
	for _, a := range articles {
		if a.PMID == id {
			pub := a.ToPublication(s.now())
			pub.EvidenceQuality = s.pipe.model.Assess(a)
			return pub, nil
		}
	}
	return types.Publication{}, fmt.Errorf("pubmed %s: %w", id, ErrNotFound)
}

// fetch retrieves article text for ids and parses it.
func (s *PubMed) fetch(ctx context.Context, ids []string) ([]evidence.Article, error) {
	params := s.common()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := s.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	return medline.ParseArticleSet(string(body)), nil
}

func (s *PubMed) common() url.Values {
	params := url.Values{
		"db":   {"pubmed"},
		"tool": {pubMedTool},
	}
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	if s.email != "" {
		params.Set("email", s.email)
	}
	return params
}

func (s *PubMed) searchParams(q Query) url.Values {
	params := s.common()
	params.Set("term", pubMedTerm(q))
	params.Set("retmax", strconv.Itoa(q.limit()))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")
	if !q.DateFrom.IsZero() || !q.DateTo.IsZero() {
		params.Set("datetype", "pdat")
		params.Set("mindate", pubMedDate(q.DateFrom, "1800/01/01"))
		params.Set("maxdate", pubMedDate(q.DateTo, "3000/12/31"))
	}
	return params
}

// pubMedTerm ORs the keywords across all fields and ANDs an optional
// publication type tag.
func pubMedTerm(q Query) string {
	term := "(" + anyTerm(q.Terms()) + ")"
	if q.PublicationType != "" {
		term += " AND " + q.PublicationType + "[pt]"
	}
	return term
}

func pubMedDate(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return t.Format("2006/01/02")
}

// splitIDs separates PMIDs (JSON strings or numbers) from embedded objects.
func splitIDs(raw []json.RawMessage) ([]string, []json.RawMessage) {
	var ids []string
	var objects []json.RawMessage
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, s)
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			ids = append(ids, n.String())
			continue
		}
		objects = append(objects, item)
	}
	return ids, objects
}
