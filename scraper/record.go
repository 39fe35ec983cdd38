package scraper

import (
	"strconv"
	"strings"
)

// CollectedLink is one harvested listing link. Insertion order encodes scan
// order and gives index-range filtering its meaning.
type CollectedLink struct {
	URL      string `json:"url"`
	Query    string `json:"query"`
	Location string `json:"location"`
}

// Key returns the identity used in dedup mode.
func (l CollectedLink) Key() string {
	return l.URL + "|" + l.Query + "|" + l.Location
}

const (
	// StatusScraped marks a successfully extracted record.
	StatusScraped = "SCRAPED"
	// scrapeErrorPrefix tags records whose extraction exhausted retries.
	scrapeErrorPrefix = "SCRAPE ERROR: "
	// maxErrorLen bounds the failure description stored on error records.
	maxErrorLen = 200
)

// BusinessRecord is one extracted listing. On extraction failure only
// SourceURL, Location, Query and Status are set.
type BusinessRecord struct {
	Category        string   `json:"category"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	Phone           string   `json:"phone"`
	Website         string   `json:"website"`
	Facebook        string   `json:"facebook"`
	Instagram       string   `json:"instagram"`
	Twitter         string   `json:"twitter"`
	LinkedIn        string   `json:"linkedin"`
	MapsEmails      []string `json:"maps_emails"`
	WebsiteEmails   []string `json:"website_emails"`
	FacebookEmails  []string `json:"facebook_emails"`
	InstagramEmails []string `json:"instagram_emails"`
	FinalEmails     []string `json:"final_emails"`
	EmailCount      int      `json:"email_count"`
	Source          string   `json:"source"`
	SourceURL       string   `json:"source_url"`
	Rating          string   `json:"rating"`
	ReviewCount     string   `json:"review_count"`
	PlusCode        string   `json:"plus_code"`
	Status          string   `json:"status"`
	Location        string   `json:"location"`
	Query           string   `json:"query"`
}

// NewErrorRecord builds the record emitted when a detail task exhausts its
// retries. The failure description is truncated.
func NewErrorRecord(link CollectedLink, err error) BusinessRecord {
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}

	return BusinessRecord{
		SourceURL: link.URL,
		Location:  link.Location,
		Query:     link.Query,
		Status:    scrapeErrorPrefix + msg,
	}
}

// CsvHeaders returns the fixed column order of the result table.
func (r *BusinessRecord) CsvHeaders() []string {
	return []string{
		"category",
		"city",
		"state",
		"name",
		"address",
		"phone",
		"website",
		"facebook",
		"instagram",
		"twitter",
		"linkedin",
		"maps_emails",
		"website_emails",
		"facebook_emails",
		"instagram_emails",
		"final_emails",
		"email_count",
		"source",
		"source_url",
		"rating",
		"review_count",
		"plus_code",
		"status",
		"location",
		"query",
	}
}

func (r *BusinessRecord) CsvRow() []string {
	return []string{
		r.Category,
		r.City,
		r.State,
		r.Name,
		r.Address,
		r.Phone,
		r.Website,
		r.Facebook,
		r.Instagram,
		r.Twitter,
		r.LinkedIn,
		strings.Join(r.MapsEmails, ", "),
		strings.Join(r.WebsiteEmails, ", "),
		strings.Join(r.FacebookEmails, ", "),
		strings.Join(r.InstagramEmails, ", "),
		strings.Join(r.FinalEmails, ", "),
		strconv.Itoa(r.EmailCount),
		r.Source,
		r.SourceURL,
		r.Rating,
		r.ReviewCount,
		r.PlusCode,
		r.Status,
		r.Location,
		r.Query,
	}
}
