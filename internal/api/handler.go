// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes aggregated evidence searches over HTTP.
//
//	GET /search?keywords=a,b&sources=pubmed,cochrane&from=2020-01-01&to=&type=&phase=&status=&study_type=&max_results=
//	GET /lookup/{source}/{id}
//	GET /lookup/{id...}   (source inferred; the id may contain slashes)
//	GET /metrics
//	GET /healthz
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/evidence-engine/internal/search"
)

const dateFmt = "2006-01-02"

type handler struct {
	agg    *search.Aggregator
	logger *slog.Logger
}

// NewHandler routes the API endpoints. reg backs /metrics; a nil reg omits it.
func NewHandler(agg *search.Aggregator, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{agg: agg, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", h.search)
	mux.HandleFunc("GET /lookup/{source}/{id}", h.lookup)
	mux.HandleFunc("GET /lookup/{id...}", h.lookup)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sources": agg.Names()})
	})
	if reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := h.agg.SearchAll(r.Context(), q, splitList(r.URL.Query().Get("sources")))
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		h.logger.WarnContext(r.Context(), "search aborted", "err", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	name, id := r.PathValue("source"), r.PathValue("id")
	if name != "" {
		if _, ok := h.agg.Source(name); !ok {
			// A review DOI such as 10.1002/14651858.CD004349.pub3 spans two segments.
			if _, _, err := search.Classify(name + "/" + id); err != nil {
				writeError(w, http.StatusNotFound, errors.New("unknown source"))
				return
			}
			name, id = "", name+"/"+id
		}
	}
	if name == "" {
		var err error
		if name, id, err = search.Classify(id); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	src, ok := h.agg.Source(name)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown source"))
		return
	}
	lk, ok := src.(search.Lookuper)
	if !ok {
		writeError(w, http.StatusNotImplemented, errors.New("source does not support lookup"))
		return
	}
	p, err := lk.Lookup(r.Context(), id)
	switch {
	case errors.Is(err, search.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, search.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

// ParseQuery reads search parameters from the request's query string.
func ParseQuery(r *http.Request) (search.Query, error) {
	v := r.URL.Query()
	q := search.Query{
		Keywords:        splitList(v.Get("keywords")),
		PublicationType: v.Get("type"),
		Phase:           v.Get("phase"),
		Status:          v.Get("status"),
		StudyType:       v.Get("study_type"),
	}
	var err error
	if q.DateFrom, err = parseDate("from", v.Get("from")); err != nil {
		return q, err
	}
	if q.DateTo, err = parseDate("to", v.Get("to")); err != nil {
		return q, err
	}
	if s := v.Get("max_results"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("max_results must be a non-negative integer")
		}
		q.MaxResults = n
	}
	return q, nil
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFmt, s)
	if err != nil {
		return time.Time{}, errors.New(name + " must be YYYY-MM-DD")
	}
	return t, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
