package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gosom/maps-contact-scraper/deduper"
)

const (
	searchURLBase = "https://www.google.com/maps/search/"
	feedSelector  = `div[role='feed']`
	linkSelector  = `a.hfpxzc`
	endOfResults  = "You've reached the end of the list"

	feedWaitTimeout = 15 * time.Second
	feedPollEvery   = 250 * time.Millisecond
)

const scrollScript = `(() => {
	const el = document.querySelector("div[role='feed']");
	if (el) { el.scrollBy(0, 5000); } else { window.scrollBy(0, 4000); }
})()`

// Collector drives one browser session across the category × location
// cross-product and harvests listing links into the shared state. The
// collection stage is strictly single-threaded; the session is owned here
// and torn down on every exit path.
type Collector struct {
	driver PageDriver
	state  *State
	cfg    *Config
	dedup  deduper.Deduper
	log    *zap.Logger

	// duplicates counts links skipped in dedup mode; only the collection
	// goroutine touches it.
	duplicates int
}

func NewCollector(driver PageDriver, state *State, cfg *Config, log *zap.Logger) *Collector {
	c := Collector{
		driver: driver,
		state:  state,
		cfg:    cfg,
		log:    log.Named("collector"),
	}

	if cfg.DedupLinks {
		c.dedup = deduper.New()
	}

	return &c
}

// Run walks every query in cross-product order. Per-query failures (page
// load, missing feed) are logged and skipped; only a failure to obtain the
// session is stage-fatal.
func (c *Collector) Run(ctx context.Context) error {
	session, err := c.driver.NewSession(ctx, c.cfg.Headless)
	if err != nil {
		return fmt.Errorf("open collection session: %w", err)
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			c.log.Warn("closing collection session", zap.Error(cerr))
		}
	}()

	total := c.cfg.QueryCount()
	done := 0

	for _, category := range c.cfg.Categories {
		for _, location := range c.cfg.Locations {
			if c.state.StopRequested() {
				c.state.SetStatus("Link collection stopped by user.")
				return nil
			}

			query := buildQuery(c.cfg.SearchTerm, category, location)

			c.collectQuery(ctx, session, query, location, done, total)

			done++
			c.state.SetCollectProgress(float64(done) / float64(total))
		}
	}

	return nil
}

func buildQuery(term, category, location string) string {
	parts := make([]string, 0, 3)

	for _, p := range []string{term, category, location} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, " ")
}

func (c *Collector) collectQuery(ctx context.Context, session PageSession, query, location string, index, total int) {
	searchURL := searchURLBase + url.QueryEscape(query)

	c.log.Info("collecting", zap.String("query", query), zap.String("url", searchURL))

	if err := session.Open(ctx, searchURL); err != nil {
		c.log.Warn("failed to load search page, skipping query",
			zap.String("query", query), zap.Error(err))
		return
	}

	if err := session.WaitVisible(ctx, feedSelector, feedWaitTimeout); err != nil {
		c.log.Warn("no results feed, skipping query",
			zap.String("query", query), zap.Error(err))
		return
	}

	var (
		perLocation int
		harvested   int
	)

	totalLinks := c.state.Snapshot().LinkCount

	for scroll := 0; scroll < c.cfg.maxScrolls(); scroll++ {
		before := c.countLinks(ctx, session)

		if _, err := session.Eval(ctx, scrollScript); err != nil {
			c.log.Warn("scroll failed", zap.String("query", query), zap.Error(err))
		}

		grew, ended := c.waitForFeed(ctx, session, before)
		if !grew && !ended {
			c.log.Info("scroll wait timed out, ending scroll",
				zap.String("query", query))
			break
		}

		hrefs, err := session.AttrAll(ctx, linkSelector, "href")
		if err != nil {
			c.log.Warn("harvest failed", zap.String("query", query), zap.Error(err))
			break
		}

		capped := false

		for _, href := range hrefs[min(harvested, len(hrefs)):] {
			if !strings.Contains(href, "/maps/place/") {
				continue
			}

			link := CollectedLink{URL: href, Query: query, Location: location}

			if c.dedup != nil && !c.dedup.AddIfNotExists(ctx, link.Key()) {
				c.duplicates++
				continue
			}

			totalLinks = c.state.AppendLink(link)

			perLocation++

			if c.cfg.PerLocationLimit > 0 && perLocation >= c.cfg.PerLocationLimit {
				c.log.Info("per-location limit reached",
					zap.String("location", location),
					zap.Int("limit", c.cfg.PerLocationLimit))
				capped = true

				break
			}
		}

		harvested = len(hrefs)

		if c.dedup != nil {
			c.state.SetStatus(fmt.Sprintf("Query %d/%d: %q. Found %d unique links, skipped %d duplicates.",
				index+1, total, query, c.dedup.Len(), c.duplicates))
		} else {
			c.state.SetStatus(fmt.Sprintf("Query %d/%d: %q. Found %d links.",
				index+1, total, query, totalLinks))
		}

		if capped {
			break
		}

		if ended {
			c.log.Info("end of results", zap.String("query", query))
			break
		}
	}
}

// countLinks returns the number of currently rendered listing links.
func (c *Collector) countLinks(ctx context.Context, session PageSession) int {
	hrefs, err := session.AttrAll(ctx, linkSelector, "href")
	if err != nil {
		return 0
	}

	return len(hrefs)
}

// waitForFeed blocks until new listing links render, the end-of-results
// marker shows up, or the configured scroll wait elapses.
func (c *Collector) waitForFeed(ctx context.Context, session PageSession, before int) (grew, ended bool) {
	deadline := time.Now().Add(c.cfg.scrollWait())

	for {
		if c.countLinks(ctx, session) > before {
			return true, false
		}

		if body, err := session.Content(ctx); err == nil && strings.Contains(body, endOfResults) {
			return false, true
		}

		if time.Now().After(deadline) {
			return false, false
		}

		select {
		case <-ctx.Done():
			return false, false
		case <-time.After(feedPollEvery):
		}
	}
}
