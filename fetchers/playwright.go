package fetchers

import (
	"context"
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"

	"github.com/gosom/maps-contact-scraper/scraper"
)

var _ scraper.PageDriver = (*PlaywrightDriver)(nil)

const (
	browserPoolSize = 10

	// locatorTimeout bounds locator reads on optional selectors so a miss
	// reports quickly instead of auto-waiting.
	locatorTimeout = 2000.0

	navigationTimeout = 60000.0
)

// PlaywrightDriver creates browser page sessions backed by a pool of
// Chromium instances. Browsers are reused across sessions; overflow
// browsers and pooled browsers in the wrong visibility mode are closed
// instead of reused.
type PlaywrightDriver struct {
	forceHeadful bool
	proxies      []string
	pool         chan *browser
}

// NewPlaywrightDriver builds the driver. With forceHeadful set (debug mode)
// every session runs with a visible browser regardless of the requested
// mode.
func NewPlaywrightDriver(forceHeadful bool, proxies ...string) (*PlaywrightDriver, error) {
	if err := playwright.Install(); err != nil {
		return nil, err
	}

	ans := PlaywrightDriver{
		forceHeadful: forceHeadful,
		proxies:      proxies,
		pool:         make(chan *browser, browserPoolSize),
	}

	return &ans, nil
}

func (d *PlaywrightDriver) NewSession(ctx context.Context, headless bool) (scraper.PageSession, error) {
	if d.forceHeadful {
		headless = false
	}

	b, err := d.getBrowser(ctx, headless)
	if err != nil {
		return nil, &scraper.DriverError{Op: "launch browser", Err: err}
	}

	page, err := b.ctx.NewPage()
	if err != nil {
		b.Close()

		return nil, &scraper.DriverError{Op: "open page", Err: err}
	}

	ans := session{
		driver:  d,
		browser: b,
		page:    page,
	}

	return &ans, nil
}

func (d *PlaywrightDriver) getBrowser(ctx context.Context, headless bool) (*browser, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ans := <-d.pool:
			if ans.headless == headless {
				return ans, nil
			}

			ans.Close()
		default:
			return newBrowser(headless, d.proxies...)
		}
	}
}

func (d *PlaywrightDriver) putBrowser(b *browser) {
	select {
	case d.pool <- b:
	default:
		b.Close()
	}
}

// Close drains and closes every pooled browser.
func (d *PlaywrightDriver) Close() error {
	for {
		select {
		case b := <-d.pool:
			b.Close()
		default:
			return nil
		}
	}
}

type browser struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	ctx      playwright.BrowserContext
	headless bool
}

func (o *browser) Close() {
	_ = o.ctx.Close()
	_ = o.browser.Close()
	_ = o.pw.Stop()
}

func newBrowser(headless bool, proxyURLS ...string) (*browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			`--start-maximized`,
			`--no-default-browser-check`,
		},
	}

	br, err := pw.Chromium.Launch(opts)
	if err != nil {
		return nil, err
	}

	const defaultWidth, defaultHeight = 1920, 1080

	bctx, err := br.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(randomUserAgent()),
		Viewport: &playwright.Size{
			Width:  defaultWidth,
			Height: defaultHeight,
		},
		Proxy: toPWProxy(roundRobinProxy(proxyURLS)),
	})
	if err != nil {
		return nil, err
	}

	ans := browser{
		pw:       pw,
		browser:  br,
		ctx:      bctx,
		headless: headless,
	}

	return &ans, nil
}

type session struct {
	driver  *PlaywrightDriver
	browser *browser
	page    playwright.Page
}

func (s *session) Open(_ context.Context, pageURL string) error {
	_, err := s.page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navigationTimeout),
	})
	if err != nil {
		return &scraper.DriverError{Op: "goto " + pageURL, Err: err}
	}

	return nil
}

func (s *session) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return scraper.ErrElementNotFound
		}

		return &scraper.DriverError{Op: "wait for " + selector, Err: err}
	}

	return nil
}

func (s *session) Text(_ context.Context, selector string) (string, error) {
	loc := s.page.Locator(selector).First()

	count, err := loc.Count()
	if err != nil {
		return "", &scraper.DriverError{Op: "query " + selector, Err: err}
	}

	if count == 0 {
		return "", scraper.ErrElementNotFound
	}

	text, err := loc.TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(locatorTimeout),
	})
	if err != nil {
		return "", &scraper.DriverError{Op: "read " + selector, Err: err}
	}

	return text, nil
}

func (s *session) Attr(_ context.Context, selector, name string) (string, error) {
	loc := s.page.Locator(selector).First()

	count, err := loc.Count()
	if err != nil {
		return "", &scraper.DriverError{Op: "query " + selector, Err: err}
	}

	if count == 0 {
		return "", scraper.ErrElementNotFound
	}

	value, err := loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(locatorTimeout),
	})
	if err != nil {
		return "", &scraper.DriverError{Op: "read attr " + selector, Err: err}
	}

	return value, nil
}

func (s *session) AttrAll(_ context.Context, selector, name string) ([]string, error) {
	locs, err := s.page.Locator(selector).All()
	if err != nil {
		return nil, &scraper.DriverError{Op: "query all " + selector, Err: err}
	}

	out := make([]string, 0, len(locs))

	for _, loc := range locs {
		value, err := loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
			Timeout: playwright.Float(locatorTimeout),
		})
		if err != nil {
			continue
		}

		out = append(out, value)
	}

	return out, nil
}

func (s *session) Eval(_ context.Context, script string) (any, error) {
	result, err := s.page.Evaluate(script)
	if err != nil {
		return nil, &scraper.DriverError{Op: "evaluate script", Err: err}
	}

	return result, nil
}

func (s *session) Content(_ context.Context) (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", &scraper.DriverError{Op: "read page content", Err: err}
	}

	return content, nil
}

// Close closes the page and returns the browser to the pool.
func (s *session) Close() error {
	var err error

	if s.page != nil {
		err = multierr.Append(err, s.page.Close())
	}

	s.driver.putBrowser(s.browser)

	return err
}
