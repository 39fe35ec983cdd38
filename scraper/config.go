package scraper

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults mirror the knobs of the control surface.
const (
	DefaultMaxScrolls     = 8
	DefaultScrollWaitSec  = 2
	DefaultConcurrency    = 3
	DefaultPerLinkTimeout = 15
)

var validate = validator.New()

// Config is one run's scrape configuration. Locations must already be
// expanded (see the locations package).
type Config struct {
	SearchTerm string   `json:"search_term" validate:"required"`
	Categories []string `json:"categories"`
	Locations  []string `json:"locations" validate:"required,min=1"`

	// MaxScrolls is a pointer so an explicit zero survives defaulting;
	// nil means "not set".
	MaxScrolls     *int `json:"max_scrolls" validate:"omitempty,min=0"`
	ScrollWaitSec  int  `json:"scroll_wait" validate:"min=1"`
	Concurrency    int  `json:"concurrency" validate:"min=1"`
	PerLinkTimeout int  `json:"timeout" validate:"min=1"`

	// Headless selects the browser visibility of every session the run
	// opens.
	Headless bool `json:"headless"`

	// PerLocationLimit caps collected links per location; 0 means no cap.
	PerLocationLimit int `json:"per_location_limit" validate:"min=0"`

	IndexRanges []IndexRange `json:"index_ranges"`
	DedupLinks  bool         `json:"dedup_links"`
}

// ApplyDefaults fills zero values. The category list defaults to a single
// empty string so the cross-product degenerates to one query per location.
func (c *Config) ApplyDefaults() {
	if len(c.Categories) == 0 {
		c.Categories = []string{""}
	}

	if c.MaxScrolls == nil {
		scrolls := DefaultMaxScrolls
		c.MaxScrolls = &scrolls
	}

	if c.ScrollWaitSec == 0 {
		c.ScrollWaitSec = DefaultScrollWaitSec
	}

	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	if c.PerLinkTimeout == 0 {
		c.PerLinkTimeout = DefaultPerLinkTimeout
	}
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}

func (c *Config) maxScrolls() int {
	if c.MaxScrolls == nil {
		return DefaultMaxScrolls
	}

	return *c.MaxScrolls
}

func (c *Config) scrollWait() time.Duration {
	return time.Duration(c.ScrollWaitSec) * time.Second
}

func (c *Config) perLinkTimeout() time.Duration {
	return time.Duration(c.PerLinkTimeout) * time.Second
}

// QueryCount returns the size of the category × location cross-product.
func (c *Config) QueryCount() int {
	return len(c.Categories) * len(c.Locations)
}
