package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosom/maps-contact-scraper/scraper"
)

type run struct {
	ID           string     `gorm:"column:id;primaryKey"`
	SearchTerm   string     `gorm:"column:search_term;not null"`
	Categories   stringList `gorm:"column:categories;type:blob"`
	Locations    stringList `gorm:"column:locations;type:blob;not null"`
	LinkCount    int        `gorm:"column:link_count;not null"`
	ScrapedCount int        `gorm:"column:scraped_count;not null"`
	ErrorCount   int        `gorm:"column:error_count;not null"`
	EmailCount   int        `gorm:"column:email_count;not null"`
	Stopped      bool       `gorm:"column:stopped;not null"`
	StartedAt    time.Time  `gorm:"column:started_at;not null"`
	FinishedAt   time.Time  `gorm:"column:finished_at;not null"`
}

func (r *run) toSummary() scraper.RunSummary {
	return scraper.RunSummary{
		ID:           r.ID,
		SearchTerm:   r.SearchTerm,
		Categories:   r.Categories,
		Locations:    r.Locations,
		LinkCount:    r.LinkCount,
		ScrapedCount: r.ScrapedCount,
		ErrorCount:   r.ErrorCount,
		EmailCount:   r.EmailCount,
		Stopped:      r.Stopped,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}

func runFromSummary(s *scraper.RunSummary) run {
	return run{
		ID:           s.ID,
		SearchTerm:   s.SearchTerm,
		Categories:   stringList(s.Categories),
		Locations:    stringList(s.Locations),
		LinkCount:    s.LinkCount,
		ScrapedCount: s.ScrapedCount,
		ErrorCount:   s.ErrorCount,
		EmailCount:   s.EmailCount,
		Stopped:      s.Stopped,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
	}
}

// result is one business record of a finished run. The record itself is
// stored as a json blob; seq preserves completion order.
type result struct {
	ID     uint       `gorm:"column:id;primaryKey;autoIncrement"`
	RunID  string     `gorm:"column:run_id;index;not null"`
	Seq    int        `gorm:"column:seq;not null"`
	Record recordBlob `gorm:"column:record;type:blob;not null"`
}

func resultsFromRecords(runID string, records []scraper.BusinessRecord) []result {
	out := make([]result, len(records))
	for i := range records {
		out[i] = result{
			RunID:  runID,
			Seq:    i,
			Record: recordBlob(records[i]),
		}
	}

	return out
}

type recordBlob scraper.BusinessRecord

func (r *recordBlob) Scan(value interface{}) error {
	if value == nil {
		*r = recordBlob{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSON value: %v", value)
	}

	var rec scraper.BusinessRecord
	err := json.Unmarshal(bytes, &rec)
	*r = recordBlob(rec)

	return err
}

// Value returns the json encoding, implements driver.Valuer.
func (r recordBlob) Value() (driver.Value, error) {
	return json.Marshal(scraper.BusinessRecord(r))
}

type stringList []string

func (l *stringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSON value: %v", value)
	}

	result := []string{}
	err := json.Unmarshal(bytes, &result)
	*l = stringList(result)

	return err
}

// Value returns the json encoding, implements driver.Valuer.
func (l stringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}

	return json.Marshal(l)
}
