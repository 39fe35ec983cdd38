package fetchers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gosom/maps-contact-scraper/scraper"
)

var _ scraper.Fetcher = (*HTTPFetcher)(nil)

const (
	fetchTimeout  = 15 * time.Second
	maxFetchBytes = 4 << 20
)

// HTTPFetcher is the lightweight first-pass page fetcher. It never runs
// scripts; it just pulls the raw markup.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(proxies ...string) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxy := roundRobinProxy(proxies); proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   fetchTimeout,
			Transport: transport,
		},
	}
}

// Fetch GETs the url and returns the status and the body, capped at
// maxFetchBytes. Transport faults come back as *scraper.DriverError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return 0, "", &scraper.DriverError{Op: "build request " + pageURL, Err: err}
	}

	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", &scraper.DriverError{Op: "fetch " + pageURL, Err: err}
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return 0, "", &scraper.DriverError{Op: "read body " + pageURL, Err: err}
	}

	return resp.StatusCode, string(body), nil
}
