// Package web exposes the HTTP control surface of the scraper: starting and
// stopping runs, polling progress, and downloading results.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gosom/maps-contact-scraper/scraper"
)

// Pipeline is the run coordinator as the handlers see it.
type Pipeline interface {
	Start(ctx context.Context, cfg *scraper.Config) (string, error)
	Stop() bool
}

// RunLister reads the persisted run history.
type RunLister interface {
	ListRuns(ctx context.Context) ([]scraper.RunSummary, error)
	RunRecords(ctx context.Context, runID string) ([]scraper.BusinessRecord, error)
}

type Server struct {
	pipeline Pipeline
	state    *scraper.State
	runs     RunLister
	log      *zap.Logger

	// baseCtx outlives any single request; background runs inherit it.
	baseCtx context.Context
}

func NewServer(baseCtx context.Context, pipeline Pipeline, state *scraper.State, runs RunLister, log *zap.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		state:    state,
		runs:     runs,
		log:      log.Named("web"),
		baseCtx:  baseCtx,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/start-scraping", s.startScraping).Methods(http.MethodPost)
	router.HandleFunc("/stop-scraping", s.stopScraping).Methods(http.MethodPost)
	router.HandleFunc("/status", s.status).Methods(http.MethodGet)
	router.HandleFunc("/get-results", s.getResults).Methods(http.MethodGet)
	router.HandleFunc("/download-csv", s.downloadCSV).Methods(http.MethodGet)
	router.HandleFunc("/runs", s.listRuns).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}/results", s.runResults).Methods(http.MethodGet)
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	router.Use(s.logRequests)

	return router
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.log.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		next.ServeHTTP(w, r)

		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(started)))
	})
}
