package scraper

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// fakePage is one scripted page the fake browser can land on. For search
// result pages, steps holds the cumulative listing hrefs visible after each
// scroll; for listing and website pages the selector maps drive field
// extraction.
type fakePage struct {
	steps     [][]string
	endOfFeed bool
	hasFeed   bool

	marker  bool
	texts   map[string]string
	attrs   map[string]string
	attrAll map[string][]string
	content string

	openErr   error
	failOpens int

	step int
}

type fakeDriver struct {
	mu         sync.Mutex
	pages      map[string]*fakePage
	sessions   int
	opens      int
	inFlight   int
	maxSeen    int
	visibility []bool

	sessionErr error
	onOpen     func(url string)
}

func newFakeDriver(pages map[string]*fakePage) *fakeDriver {
	return &fakeDriver{pages: pages}
}

func (d *fakeDriver) NewSession(_ context.Context, headless bool) (PageSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sessionErr != nil {
		return nil, d.sessionErr
	}

	d.sessions++
	d.visibility = append(d.visibility, headless)

	return &fakeSession{driver: d}, nil
}

// visibilitySeen returns the headless flag of every session created.
func (d *fakeDriver) visibilitySeen() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]bool, len(d.visibility))
	copy(out, d.visibility)

	return out
}

type fakeSession struct {
	driver *fakeDriver
	cur    *fakePage
}

func (s *fakeSession) Open(_ context.Context, url string) error {
	d := s.driver

	d.mu.Lock()
	d.opens++
	d.inFlight++

	if d.inFlight > d.maxSeen {
		d.maxSeen = d.inFlight
	}

	page := d.pages[url]
	hook := d.onOpen
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}

	if page == nil {
		s.cur = &fakePage{}
		return nil
	}

	d.mu.Lock()
	if page.failOpens > 0 {
		page.failOpens--
		d.mu.Unlock()

		return &DriverError{Op: "open " + url}
	}
	d.mu.Unlock()

	if page.openErr != nil {
		return page.openErr
	}

	s.cur = page

	return nil
}

func (s *fakeSession) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	if s.cur == nil {
		return ErrElementNotFound
	}

	switch {
	case selector == "body":
		return nil
	case selector == feedSelector && s.cur.hasFeed:
		return nil
	case selector == listingMarker && s.cur.marker:
		return nil
	}

	return ErrElementNotFound
}

func (s *fakeSession) Text(_ context.Context, selector string) (string, error) {
	if s.cur == nil {
		return "", ErrElementNotFound
	}

	if value, ok := s.cur.texts[selector]; ok {
		return value, nil
	}

	return "", ErrElementNotFound
}

func (s *fakeSession) Attr(_ context.Context, selector, name string) (string, error) {
	if s.cur == nil {
		return "", ErrElementNotFound
	}

	if value, ok := s.cur.attrs[selector+" "+name]; ok {
		return value, nil
	}

	return "", ErrElementNotFound
}

func (s *fakeSession) AttrAll(_ context.Context, selector, name string) ([]string, error) {
	if s.cur == nil {
		return nil, nil
	}

	if selector == linkSelector && len(s.cur.steps) > 0 {
		return s.cur.steps[s.cur.step], nil
	}

	return s.cur.attrAll[selector+" "+name], nil
}

// Eval advances the scroll step, revealing the next batch of listing links.
func (s *fakeSession) Eval(_ context.Context, _ string) (any, error) {
	if s.cur != nil && s.cur.step < len(s.cur.steps)-1 {
		s.cur.step++
	}

	return nil, nil
}

func (s *fakeSession) Content(_ context.Context) (string, error) {
	if s.cur == nil {
		return "", nil
	}

	if s.cur.endOfFeed && s.cur.step == len(s.cur.steps)-1 {
		return s.cur.content + endOfResults, nil
	}

	return s.cur.content, nil
}

func (s *fakeSession) Close() error { return nil }

type fetchResponse struct {
	status int
	body   string
	err    error
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fetchResponse
	calls     []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (int, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	resp, ok := f.responses[url]
	f.mu.Unlock()

	if !ok {
		return 0, "", &DriverError{Op: "fetch " + url}
	}

	if resp.err != nil {
		return 0, "", resp.err
	}

	return resp.status, resp.body, nil
}

// splitParser parses "street, City, ST" style addresses well enough for
// tests.
type splitParser struct{}

func (splitParser) Parse(address string) (string, string) {
	parts := strings.Split(address, ", ")
	if len(parts) < 3 {
		return "", ""
	}

	return parts[len(parts)-2], parts[len(parts)-1]
}

func activeState() *State {
	state := NewState()
	state.TryActivate()

	return state
}

func searchPageURL(query string) string {
	return searchURLBase + url.QueryEscape(query)
}

func intPtr(n int) *int {
	return &n
}
