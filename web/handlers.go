package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gosom/maps-contact-scraper/locations"
	"github.com/gosom/maps-contact-scraper/scraper"
)

// stringOrList accepts either a JSON string or a JSON array of strings;
// clients send both shapes.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}

		*s = list

		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}

	if single == "" {
		*s = nil

		return nil
	}

	*s = stringOrList{single}

	return nil
}

// startRequest uses pointers where an absent field and an explicit zero
// value mean different things: max_scrolls 0 disables scrolling and
// headless defaults to true.
type startRequest struct {
	SearchTerm       string       `json:"search_term"`
	Categories       stringOrList `json:"categories"`
	Locations        stringOrList `json:"locations"`
	MaxScrolls       *int         `json:"max_scrolls"`
	ScrollWait       int          `json:"scroll_wait"`
	Concurrency      int          `json:"concurrency"`
	Timeout          int          `json:"timeout"`
	PerLocationLimit int          `json:"per_location_limit"`
	IndexRanges      stringOrList `json:"index_ranges"`
	DedupLinks       bool         `json:"dedup_links"`
	Headless         *bool        `json:"headless"`
}

type apiError struct {
	Error string `json:"error"`
}

func renderJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) startScraping(w http.ResponseWriter, r *http.Request) {
	var req startRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body: " + err.Error()})

		return
	}

	headless := true
	if req.Headless != nil {
		headless = *req.Headless
	}

	cfg := &scraper.Config{
		SearchTerm:       req.SearchTerm,
		Categories:       []string(req.Categories),
		Locations:        locations.ExpandList(req.Locations),
		MaxScrolls:       req.MaxScrolls,
		ScrollWaitSec:    req.ScrollWait,
		Concurrency:      req.Concurrency,
		PerLinkTimeout:   req.Timeout,
		PerLocationLimit: req.PerLocationLimit,
		IndexRanges:      scraper.ParseRangeList(req.IndexRanges),
		DedupLinks:       req.DedupLinks,
		Headless:         headless,
	}

	runID, err := s.pipeline.Start(s.baseCtx, cfg)
	if err != nil {
		if errors.Is(err, scraper.ErrRunActive) {
			renderJSON(w, http.StatusBadRequest, apiError{Error: "Scraping already in progress"})

			return
		}

		s.log.Warn("rejected start request", zap.Error(err))
		renderJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})

		return
	}

	renderJSON(w, http.StatusOK, map[string]string{
		"status": "started",
		"run_id": runID,
	})
}

func (s *Server) stopScraping(w http.ResponseWriter, _ *http.Request) {
	if !s.pipeline.Stop() {
		renderJSON(w, http.StatusBadRequest, apiError{Error: "No scraping run is active"})

		return
	}

	renderJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) getResults(w http.ResponseWriter, _ *http.Request) {
	results := s.state.Results()
	if results == nil {
		results = []scraper.BusinessRecord{}
	}

	renderJSON(w, http.StatusOK, results)
}

func (s *Server) downloadCSV(w http.ResponseWriter, _ *http.Request) {
	results := s.state.Results()
	if len(results) == 0 {
		renderJSON(w, http.StatusNotFound, apiError{Error: "No results available"})

		return
	}

	filename := fmt.Sprintf("scrape_results_%s.csv", time.Now().UTC().Format("20060102_150405"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)

	if err := cw.Write(results[0].CsvHeaders()); err != nil {
		s.log.Warn("csv write failed", zap.Error(err))

		return
	}

	for i := range results {
		if err := cw.Write(results[i].CsvRow()); err != nil {
			s.log.Warn("csv write failed", zap.Error(err))

			return
		}
	}

	cw.Flush()
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		renderJSON(w, http.StatusOK, []scraper.RunSummary{})

		return
	}

	runs, err := s.runs.ListRuns(r.Context())
	if err != nil {
		s.log.Error("failed to list runs", zap.Error(err))
		renderJSON(w, http.StatusInternalServerError, apiError{Error: "failed to read run history"})

		return
	}

	if runs == nil {
		runs = []scraper.RunSummary{}
	}

	renderJSON(w, http.StatusOK, runs)
}

func (s *Server) runResults(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		renderJSON(w, http.StatusOK, []scraper.BusinessRecord{})

		return
	}

	records, err := s.runs.RunRecords(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.log.Error("failed to read run records", zap.Error(err))
		renderJSON(w, http.StatusInternalServerError, apiError{Error: "failed to read run history"})

		return
	}

	if records == nil {
		records = []scraper.BusinessRecord{}
	}

	renderJSON(w, http.StatusOK, records)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
