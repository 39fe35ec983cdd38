package scraper

import "sync"

// State is the single shared-mutable structure of the pipeline. Every
// mutation goes through its mutex; readers get value snapshots, never
// references into live state. It is reset only at the start of a run; a
// stop request halts progress but leaves the data readable.
type State struct {
	mu sync.Mutex

	active        bool
	stopRequested bool
	statusMessage string

	collectProgress float64
	detailProgress  float64
	linkCount       int
	scrapedCount    int
	totalToScrape   int

	links   []CollectedLink
	results []BusinessRecord
}

// Snapshot is a read-only copy of the state exposed to the status endpoint.
// It excludes the bulk result table.
type Snapshot struct {
	ScrapingActive     bool            `json:"scraping_active"`
	StopRequested      bool            `json:"stop_requested"`
	StatusMessage      string          `json:"status_message"`
	LinkProgress       float64         `json:"link_collection_progress"`
	DetailProgress     float64         `json:"detail_scraping_progress"`
	LinkCount          int             `json:"link_count"`
	ScrapedCount       int             `json:"scraped_count"`
	TotalToScrape      int             `json:"total_to_scrape"`
	CollectedLinks     []CollectedLink `json:"collected_links"`
}

func NewState() *State {
	return &State{
		statusMessage: "Ready to begin. Configure settings and start scraping.",
	}
}

// TryActivate atomically claims the state for a new run and resets it.
// It returns false when a run is already active.
func (s *State) TryActivate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return false
	}

	s.active = true
	s.stopRequested = false
	s.statusMessage = ""
	s.collectProgress = 0
	s.detailProgress = 0
	s.linkCount = 0
	s.scrapedCount = 0
	s.totalToScrape = 0
	s.links = nil
	s.results = nil

	return true
}

// Deactivate clears the active flag and the stop request at the end of a
// run. The rest of the state stays readable until the next run starts.
func (s *State) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.stopRequested = false
}

func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// RequestStop sets the cooperative stop flag. It returns false when no run
// is active.
func (s *State) RequestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}

	s.stopRequested = true

	return true
}

func (s *State) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopRequested
}

func (s *State) SetStatus(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusMessage = message
}

func (s *State) SetCollectProgress(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collectProgress = clamp01(fraction)
}

func (s *State) SetDetailProgress(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detailProgress = clamp01(fraction)
}

func (s *State) SetTotalToScrape(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalToScrape = total
}

// AppendLink records a collected link and returns the new total link count.
func (s *State) AppendLink(link CollectedLink) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links = append(s.links, link)
	s.linkCount = len(s.links)

	return s.linkCount
}

// Links returns a copy of the collected links in insertion order.
func (s *State) Links() []CollectedLink {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CollectedLink, len(s.links))
	copy(out, s.links)

	return out
}

// AddResult appends a finished record and returns the new scraped count.
func (s *State) AddResult(record BusinessRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, record)
	s.scrapedCount = len(s.results)

	return s.scrapedCount
}

// Results returns a copy of the result table in completion order.
func (s *State) Results() []BusinessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]BusinessRecord, len(s.results))
	copy(out, s.results)

	return out
}

// Snapshot copies the scalar state and the collected links. The copy is
// O(state size) so status readers never block the pipeline for long.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	links := make([]CollectedLink, len(s.links))
	copy(links, s.links)

	return Snapshot{
		ScrapingActive: s.active,
		StopRequested:  s.stopRequested,
		StatusMessage:  s.statusMessage,
		LinkProgress:   s.collectProgress,
		DetailProgress: s.detailProgress,
		LinkCount:      s.linkCount,
		ScrapedCount:   s.scrapedCount,
		TotalToScrape:  s.totalToScrape,
		CollectedLinks: links,
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}

	if f > 1 {
		return 1
	}

	return f
}
