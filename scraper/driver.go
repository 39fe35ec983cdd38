package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrElementNotFound indicates an expected page element is absent. It is a
// valid outcome for optional fields, never retried.
var ErrElementNotFound = errors.New("element not found")

// ErrBadStatus wraps a non-2xx response from the lightweight fetcher.
var ErrBadStatus = errors.New("unexpected http status")

// DriverError marks a browser or network fault. These are the only errors
// the retry policy considers transient.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("driver: %s", e.Op)
	}

	return fmt.Sprintf("driver: %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var de *DriverError

	return errors.As(err, &de)
}

// PageSession is one live browser page. A session is owned by exactly one
// stage task and must be closed by its owner on every exit path.
type PageSession interface {
	Open(ctx context.Context, url string) error
	// WaitVisible blocks until the selector matches a visible element or the
	// timeout elapses. A timeout yields ErrElementNotFound.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Text returns the text content of the first match, ErrElementNotFound
	// when the selector matches nothing.
	Text(ctx context.Context, selector string) (string, error)
	// Attr returns the named attribute of the first match.
	Attr(ctx context.Context, selector, name string) (string, error)
	// AttrAll returns the named attribute of every match, in DOM order.
	AttrAll(ctx context.Context, selector, name string) ([]string, error)
	// Eval runs a script in the page and returns its result.
	Eval(ctx context.Context, script string) (any, error)
	// Content returns the full page markup.
	Content(ctx context.Context) (string, error)
	Close() error
}

// PageDriver creates page sessions. Implementations live outside this
// package (see fetchers). The headless flag is per session so each run's
// configured browser visibility takes effect.
type PageDriver interface {
	NewSession(ctx context.Context, headless bool) (PageSession, error)
}

// Fetcher is the lightweight, non-rendering HTTP GET used as a fast first
// pass before full page rendering. Transport faults surface as *DriverError;
// a completed exchange reports its status code and the caller decides what a
// non-2xx means.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (status int, body string, err error)
}

// AddressParser extracts best-effort city/state components from a free-text
// postal address. It fails silently with empty components.
type AddressParser interface {
	Parse(address string) (city, state string)
}
