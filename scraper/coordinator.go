package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gosom/maps-contact-scraper/tlmt"
)

// ErrRunActive is returned by Start while a previous run still owns the
// state.
var ErrRunActive = errors.New("a scraping run is already in progress")

// RunSummary is the per-run record persisted to the run history store.
type RunSummary struct {
	ID           string    `json:"id"`
	SearchTerm   string    `json:"search_term"`
	Categories   []string  `json:"categories"`
	Locations    []string  `json:"locations"`
	LinkCount    int       `json:"link_count"`
	ScrapedCount int       `json:"scraped_count"`
	ErrorCount   int       `json:"error_count"`
	EmailCount   int       `json:"email_count"`
	Stopped      bool      `json:"stopped"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// RunRecorder persists finished run summaries along with the records the
// run produced.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *RunSummary, records []BusinessRecord) error
}

// Coordinator owns the two-stage pipeline: sequential link collection,
// index-range filtering, then concurrent detail extraction. Exactly one run
// may be active at a time; Start claims the shared state atomically and the
// run releases it on every exit path.
type Coordinator struct {
	driver    PageDriver
	fetcher   Fetcher
	addresses AddressParser
	state     *State
	recorder  RunRecorder
	events    tlmt.Telemetry
	log       *zap.Logger
}

func NewCoordinator(
	driver PageDriver,
	fetcher Fetcher,
	addresses AddressParser,
	state *State,
	recorder RunRecorder,
	events tlmt.Telemetry,
	log *zap.Logger,
) *Coordinator {
	return &Coordinator{
		driver:    driver,
		fetcher:   fetcher,
		addresses: addresses,
		state:     state,
		recorder:  recorder,
		events:    events,
		log:       log.Named("coordinator"),
	}
}

// Start validates the configuration, claims the state and launches the run
// in the background. The passed context must outlive the run; HTTP callers
// hand in the server's base context, not the request's.
func (c *Coordinator) Start(ctx context.Context, cfg *Config) (string, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid scrape config: %w", err)
	}

	if !c.state.TryActivate() {
		return "", ErrRunActive
	}

	runID := uuid.New().String()

	go c.run(ctx, runID, cfg)

	return runID, nil
}

// Stop requests a cooperative stop of the active run. It reports whether a
// run was active to receive it.
func (c *Coordinator) Stop() bool {
	return c.state.RequestStop()
}

func (c *Coordinator) run(ctx context.Context, runID string, cfg *Config) {
	defer c.state.Deactivate()

	started := time.Now().UTC()
	log := c.log.With(zap.String("run_id", runID))

	log.Info("run starting",
		zap.String("search_term", cfg.SearchTerm),
		zap.Int("queries", cfg.QueryCount()),
		zap.Int("concurrency", cfg.Concurrency))

	c.state.SetStatus("Starting link collection...")

	collector := NewCollector(c.driver, c.state, cfg, c.log)
	if err := collector.Run(ctx); err != nil {
		log.Error("link collection failed", zap.Error(err))

		msg := err.Error()
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}

		c.state.SetStatus("Scraping failed: " + msg)
		c.finish(ctx, runID, cfg, started, log)

		return
	}

	links := c.state.Links()

	switch {
	case c.state.StopRequested():
		c.state.SetStatus(fmt.Sprintf("Scraping stopped. %d links collected.", len(links)))
	case len(links) == 0:
		c.state.SetStatus("Scraping complete. No listings found.")
	default:
		filtered := FilterByOccurrence(links, cfg.IndexRanges)
		if len(filtered) != len(links) {
			log.Info("index ranges applied",
				zap.Int("collected", len(links)), zap.Int("kept", len(filtered)))
		}

		NewDetailer(c.driver, c.fetcher, c.addresses, c.state, cfg, c.log).Run(ctx, filtered)

		scraped := c.state.Snapshot().ScrapedCount

		if c.state.StopRequested() {
			c.state.SetStatus(fmt.Sprintf("Scraping stopped by user. %d of %d businesses scraped.",
				scraped, len(filtered)))
		} else {
			c.state.SetStatus(fmt.Sprintf("Scraping complete. %d businesses scraped.", scraped))
		}
	}

	c.finish(ctx, runID, cfg, started, log)
}

// finish records the run summary and emits the telemetry event. It must run
// before Deactivate clears the stop flag.
func (c *Coordinator) finish(ctx context.Context, runID string, cfg *Config, started time.Time, log *zap.Logger) {
	snap := c.state.Snapshot()
	results := c.state.Results()

	var emails, failures int

	for _, rec := range results {
		emails += rec.EmailCount

		if rec.Status != StatusScraped {
			failures++
		}
	}

	summary := RunSummary{
		ID:           runID,
		SearchTerm:   cfg.SearchTerm,
		Categories:   cfg.Categories,
		Locations:    cfg.Locations,
		LinkCount:    snap.LinkCount,
		ScrapedCount: snap.ScrapedCount,
		ErrorCount:   failures,
		EmailCount:   emails,
		Stopped:      snap.StopRequested,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}

	if c.recorder != nil {
		if err := c.recorder.SaveRun(ctx, &summary, results); err != nil {
			log.Warn("failed to persist run", zap.Error(err))
		}
	}

	if c.events != nil {
		event := tlmt.NewEvent("scrape_run", map[string]any{
			"queries": cfg.QueryCount(),
			"links":   snap.LinkCount,
			"scraped": snap.ScrapedCount,
			"emails":  emails,
			"stopped": snap.StopRequested,
		})

		if err := c.events.Send(ctx, event); err != nil {
			log.Debug("telemetry send failed", zap.Error(err))
		}
	}

	log.Info("run finished",
		zap.Int("links", snap.LinkCount),
		zap.Int("scraped", snap.ScrapedCount),
		zap.Int("errors", failures),
		zap.Int("emails", emails),
		zap.Bool("stopped", snap.StopRequested),
		zap.Duration("elapsed", summary.FinishedAt.Sub(started)))
}
