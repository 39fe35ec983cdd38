package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	listingMarker    = "h1.DUwDvf, h1.lfPIob"
	addressSelector  = `button[data-item-id="address"]`
	categorySelector = `button[jsaction*="category"]`
	websiteSelector  = `a[data-item-id="authority"]`
	ratingSelector   = `div.F7nice`
	plusCodeSelector = `button[data-item-id="plus_code"]`

	maxContactPages = 3
	renderWait      = 10 * time.Second
)

// phoneSelectors are tried in order before falling back to a regex over the
// page source.
var phoneSelectors = []string{
	`button[data-item-id^="phone:tel:"]`,
	`button[data-item-id*="phone:"]`,
	`a[href^="tel:"]`,
	`div[aria-label^="Phone:"]`,
	`div[jsaction*="phone"]`,
}

// Detailer extracts one BusinessRecord per collected link using a bounded
// worker pool. Each task owns a fresh page session for its lifetime.
//
// Stop policy: after a stop request no new task is submitted; tasks already
// dispatched are awaited so every emitted record is complete and every
// session is torn down before the stage returns. Result order is completion
// order.
type Detailer struct {
	driver    PageDriver
	fetcher   Fetcher
	addresses AddressParser
	state     *State
	cfg       *Config
	log       *zap.Logger

	outerRetry  RetryPolicy
	fetchRetry  RetryPolicy
	renderRetry RetryPolicy
}

func NewDetailer(driver PageDriver, fetcher Fetcher, addresses AddressParser, state *State, cfg *Config, log *zap.Logger) *Detailer {
	return &Detailer{
		driver:      driver,
		fetcher:     fetcher,
		addresses:   addresses,
		state:       state,
		cfg:         cfg,
		log:         log.Named("detailer"),
		outerRetry:  RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second},
		fetchRetry:  RetryPolicy{MaxAttempts: 2, Delay: 2 * time.Second},
		renderRetry: RetryPolicy{MaxAttempts: 2, Delay: 3 * time.Second},
	}
}

// Run processes the filtered link list and publishes results and progress
// into the shared state as tasks complete.
func (d *Detailer) Run(ctx context.Context, links []CollectedLink) {
	total := len(links)
	if total == 0 {
		d.state.SetStatus("No links to scrape after filtering. Stage complete.")
		return
	}

	d.state.SetTotalToScrape(total)
	d.state.SetStatus(fmt.Sprintf("Scraping details for %d businesses...", total))

	jobs := make(chan CollectedLink)
	results := make(chan BusinessRecord)

	var wg sync.WaitGroup

	for i := 0; i < d.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for link := range jobs {
				results <- d.scrapeOne(ctx, link)
			}
		}()
	}

	go func() {
		defer close(jobs)

		for _, link := range links {
			if d.state.StopRequested() {
				return
			}

			select {
			case <-ctx.Done():
				return
			case jobs <- link:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0

	for record := range results {
		d.state.AddResult(record)

		completed++
		d.state.SetDetailProgress(float64(completed) / float64(total))
		d.state.SetStatus(fmt.Sprintf("Scraped %d/%d businesses...", completed, total))
	}

	if d.state.StopRequested() {
		d.state.SetStatus("Detail scraping stopped by user.")
	}
}

// scrapeOne never lets a failure escape the pool: exhausted retries and
// panics both become error records.
func (d *Detailer) scrapeOne(ctx context.Context, link CollectedLink) BusinessRecord {
	var record BusinessRecord

	err := d.outerRetry.Do(ctx, d.log, "extract listing", func() (opErr error) {
		defer func() {
			if r := recover(); r != nil {
				opErr = fmt.Errorf("extraction panic: %v", r)
			}
		}()

		rec, extractErr := d.extract(ctx, link)
		if extractErr != nil {
			return extractErr
		}

		record = rec

		return nil
	})
	if err != nil {
		d.log.Warn("listing extraction failed",
			zap.String("url", link.URL), zap.Error(err))

		return NewErrorRecord(link, err)
	}

	return record
}

func (d *Detailer) extract(ctx context.Context, link CollectedLink) (BusinessRecord, error) {
	record := BusinessRecord{
		SourceURL: link.URL,
		Location:  link.Location,
		Query:     link.Query,
		Status:    StatusScraped,
	}

	session, err := d.driver.NewSession(ctx, d.cfg.Headless)
	if err != nil {
		return record, err
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			d.log.Warn("closing detail session", zap.Error(cerr))
		}
	}()

	if err := session.Open(ctx, link.URL); err != nil {
		return record, err
	}

	if err := session.WaitVisible(ctx, listingMarker, d.cfg.perLinkTimeout()); err != nil {
		if errors.Is(err, ErrElementNotFound) {
			// the listing never rendered; that is a page/driver condition
			// worth another attempt, not an absent optional field
			return record, &DriverError{Op: "wait for listing", Err: err}
		}

		return record, err
	}

	record.Name = d.text(ctx, session, listingMarker)
	record.Address = d.text(ctx, session, addressSelector)
	record.Category = d.text(ctx, session, categorySelector)
	record.Phone = d.phone(ctx, session)
	record.City, record.State = d.addresses.Parse(record.Address)
	record.Website = d.website(ctx, session)

	content, err := session.Content(ctx)
	if err == nil {
		record.MapsEmails = FindEmails(content)
	}

	record.Rating, record.ReviewCount = ParseRating(d.text(ctx, session, ratingSelector))
	record.PlusCode = d.text(ctx, session, plusCodeSelector)

	var socials SocialLinks

	if record.Website != "" {
		fetchEmails, fetchSocials := d.websiteViaFetch(ctx, record.Website)
		renderEmails, renderSocials := d.websiteViaRender(ctx, record.Website)

		record.WebsiteEmails = MergeEmails(fetchEmails, renderEmails)

		socials = fetchSocials
		socials.Merge(renderSocials)
	}

	record.Facebook = socials.Facebook
	record.Instagram = socials.Instagram
	record.Twitter = socials.Twitter
	record.LinkedIn = socials.LinkedIn

	if socials.Facebook != "" {
		record.FacebookEmails = d.socialEmails(ctx, socials.Facebook)
	}

	if socials.Instagram != "" {
		record.InstagramEmails = d.socialEmails(ctx, socials.Instagram)
	}

	final := MergeEmails(record.MapsEmails, record.WebsiteEmails,
		record.FacebookEmails, record.InstagramEmails)
	sort.Strings(final)

	record.FinalEmails = final
	record.EmailCount = len(final)

	if len(final) > 0 {
		record.Source = "Website/Maps/Social"
	}

	return record, nil
}

// text treats any miss as an absent optional field.
func (d *Detailer) text(ctx context.Context, session PageSession, selector string) string {
	value, err := session.Text(ctx, selector)
	if err != nil {
		if !errors.Is(err, ErrElementNotFound) {
			d.log.Debug("text lookup failed",
				zap.String("selector", selector), zap.Error(err))
		}

		return ""
	}

	return strings.TrimSpace(value)
}

func (d *Detailer) phone(ctx context.Context, session PageSession) string {
	for _, selector := range phoneSelectors {
		value := d.text(ctx, session, selector)
		if value != "" && strings.ContainsAny(value, "0123456789") {
			return value
		}
	}

	content, err := session.Content(ctx)
	if err != nil {
		return ""
	}

	return FindPhone(content)
}

// website prefers the authority link; otherwise the first absolute
// non-google link on the page.
func (d *Detailer) website(ctx context.Context, session PageSession) string {
	href, err := session.Attr(ctx, websiteSelector, "href")
	if err == nil && href != "" {
		return NormalizeWebsite(href)
	}

	hrefs, err := session.AttrAll(ctx, "a", "href")
	if err != nil {
		return ""
	}

	for _, candidate := range hrefs {
		if strings.Contains(candidate, "http") && !strings.Contains(candidate, "google.com") {
			return NormalizeWebsite(candidate)
		}
	}

	return ""
}

// websiteViaFetch mines a website with the lightweight fetcher, following
// up to maxContactPages same-host contact links when the landing page
// yields no emails.
func (d *Detailer) websiteViaFetch(ctx context.Context, website string) ([]string, SocialLinks) {
	var (
		emails  []string
		socials SocialLinks
	)

	err := d.fetchRetry.Do(ctx, d.log, "fetch website", func() error {
		body, err := d.fetchBody(ctx, website)
		if err != nil {
			return err
		}

		emails = FindEmails(body)
		socials = ExtractSocialLinks(body)

		if len(emails) > 0 {
			return nil
		}

		for _, page := range ContactPageLinks(website, body, maxContactPages) {
			pageBody, err := d.fetchBody(ctx, page)
			if err != nil {
				continue
			}

			emails = MergeEmails(emails, FindEmails(pageBody))
			socials.Merge(ExtractSocialLinks(pageBody))

			if len(emails) > 0 {
				break
			}
		}

		return nil
	})
	if err != nil {
		d.log.Debug("website fetch pass failed",
			zap.String("website", website), zap.Error(err))

		return nil, SocialLinks{}
	}

	return emails, socials
}

func (d *Detailer) fetchBody(ctx context.Context, url string) (string, error) {
	status, body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: %d for %s", ErrBadStatus, status, url)
	}

	return body, nil
}

// websiteViaRender re-mines the website with a full browser render to catch
// script-rendered contact data.
func (d *Detailer) websiteViaRender(ctx context.Context, website string) ([]string, SocialLinks) {
	var (
		emails  []string
		socials SocialLinks
	)

	err := d.renderRetry.Do(ctx, d.log, "render website", func() error {
		session, err := d.driver.NewSession(ctx, d.cfg.Headless)
		if err != nil {
			return err
		}

		defer func() {
			_ = session.Close()
		}()

		if err := session.Open(ctx, website); err != nil {
			return err
		}

		_ = session.WaitVisible(ctx, "body", renderWait)

		content, err := session.Content(ctx)
		if err != nil {
			return err
		}

		emails = FindEmails(content)
		socials = ExtractSocialLinks(content)

		if len(emails) > 0 {
			return nil
		}

		for _, page := range ContactPageLinks(website, content, maxContactPages) {
			if err := session.Open(ctx, page); err != nil {
				continue
			}

			pageContent, err := session.Content(ctx)
			if err != nil {
				continue
			}

			emails = MergeEmails(emails, FindEmails(pageContent))
			socials.Merge(ExtractSocialLinks(pageContent))

			if len(emails) > 0 {
				break
			}
		}

		return nil
	})
	if err != nil {
		d.log.Debug("website render pass failed",
			zap.String("website", website), zap.Error(err))

		return nil, SocialLinks{}
	}

	return emails, socials
}

// socialEmails tries the lightweight fetch first; the browser is only
// spun up when that pass yields nothing.
func (d *Detailer) socialEmails(ctx context.Context, profileURL string) []string {
	var emails []string

	err := d.fetchRetry.Do(ctx, d.log, "fetch social profile", func() error {
		body, err := d.fetchBody(ctx, profileURL)
		if err != nil {
			return err
		}

		emails = FindEmails(body)

		return nil
	})
	if err == nil && len(emails) > 0 {
		return emails
	}

	err = d.renderRetry.Do(ctx, d.log, "render social profile", func() error {
		session, err := d.driver.NewSession(ctx, d.cfg.Headless)
		if err != nil {
			return err
		}

		defer func() {
			_ = session.Close()
		}()

		if err := session.Open(ctx, profileURL); err != nil {
			return err
		}

		content, err := session.Content(ctx)
		if err != nil {
			return err
		}

		emails = FindEmails(content)

		return nil
	})
	if err != nil {
		return nil
	}

	return emails
}
