package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gosom/maps-contact-scraper/tlmt/gonoop"
)

type fakeRecorder struct {
	mu      sync.Mutex
	runs    []*RunSummary
	records [][]BusinessRecord
}

func (r *fakeRecorder) SaveRun(_ context.Context, run *RunSummary, records []BusinessRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, run)
	r.records = append(r.records, records)

	return nil
}

func (r *fakeRecorder) saved() []*RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*RunSummary, len(r.runs))
	copy(out, r.runs)

	return out
}

func (r *fakeRecorder) savedRecords() [][]BusinessRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]BusinessRecord, len(r.records))
	copy(out, r.records)

	return out
}

func waitForRunEnd(t *testing.T, state *State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return !state.Active()
	}, 5*time.Second, 5*time.Millisecond, "run did not finish")
}

func TestCoordinatorFullPipeline(t *testing.T) {
	listing := placeURL("acme")

	pages := map[string]*fakePage{
		searchPageURL("dentists austin"): {
			hasFeed:   true,
			endOfFeed: true,
			steps:     [][]string{{listing}},
		},
		listing: {
			marker: true,
			texts: map[string]string{
				listingMarker: "Acme Dental",
			},
			content: "mail: desk@acme-dental.com",
		},
	}

	state := NewState()
	recorder := &fakeRecorder{}
	coord := NewCoordinator(newFakeDriver(pages), &fakeFetcher{}, splitParser{},
		state, recorder, gonoop.New(), zap.NewNop())

	cfg := &Config{SearchTerm: "dentists", Locations: []string{"austin"}}

	runID, err := coord.Start(context.Background(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	waitForRunEnd(t, state)

	results := state.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "Acme Dental", results[0].Name)
	assert.Equal(t, []string{"desk@acme-dental.com"}, results[0].FinalEmails)

	snap := state.Snapshot()
	assert.False(t, snap.ScrapingActive)
	assert.Equal(t, "Scraping complete. 1 businesses scraped.", snap.StatusMessage)

	runs := recorder.saved()
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "dentists", runs[0].SearchTerm)
	assert.Equal(t, 1, runs[0].LinkCount)
	assert.Equal(t, 1, runs[0].ScrapedCount)
	assert.Equal(t, 1, runs[0].EmailCount)
	assert.Zero(t, runs[0].ErrorCount)
	assert.False(t, runs[0].Stopped)
	assert.False(t, runs[0].FinishedAt.Before(runs[0].StartedAt))

	recorded := recorder.savedRecords()
	require.Len(t, recorded, 1)
	require.Len(t, recorded[0], 1, "the run's records are handed to the recorder")
	assert.Equal(t, "Acme Dental", recorded[0][0].Name)
}

func TestCoordinatorReportsCollectionFailure(t *testing.T) {
	driver := newFakeDriver(nil)
	driver.sessionErr = &DriverError{Op: "launch browser"}

	state := NewState()
	coord := NewCoordinator(driver, &fakeFetcher{}, splitParser{},
		state, nil, nil, zap.NewNop())

	_, err := coord.Start(context.Background(), &Config{
		SearchTerm: "dentists",
		Locations:  []string{"austin"},
	})
	require.NoError(t, err)

	waitForRunEnd(t, state)

	msg := state.Snapshot().StatusMessage
	assert.Contains(t, msg, "Scraping failed: ")
	assert.Contains(t, msg, "launch browser", "the failure detail reaches the status message")
}

func TestCoordinatorRejectsConcurrentRuns(t *testing.T) {
	state := NewState()
	coord := NewCoordinator(newFakeDriver(nil), &fakeFetcher{}, splitParser{},
		state, nil, nil, zap.NewNop())

	require.True(t, state.TryActivate())

	_, err := coord.Start(context.Background(), &Config{
		SearchTerm: "dentists",
		Locations:  []string{"austin"},
	})
	assert.ErrorIs(t, err, ErrRunActive)

	state.Deactivate()
}

func TestCoordinatorRejectsInvalidConfig(t *testing.T) {
	state := NewState()
	coord := NewCoordinator(newFakeDriver(nil), &fakeFetcher{}, splitParser{},
		state, nil, nil, zap.NewNop())

	_, err := coord.Start(context.Background(), &Config{Locations: []string{"austin"}})
	require.Error(t, err)
	assert.False(t, state.Active(), "invalid config must not claim the state")

	_, err = coord.Start(context.Background(), &Config{SearchTerm: "dentists"})
	require.Error(t, err)
	assert.False(t, state.Active())
}

func TestCoordinatorNoListingsFound(t *testing.T) {
	pages := map[string]*fakePage{
		searchPageURL("dentists nowhere"): {
			hasFeed:   true,
			endOfFeed: true,
			steps:     [][]string{{}},
		},
	}

	state := NewState()
	recorder := &fakeRecorder{}
	coord := NewCoordinator(newFakeDriver(pages), &fakeFetcher{}, splitParser{},
		state, recorder, nil, zap.NewNop())

	_, err := coord.Start(context.Background(), &Config{
		SearchTerm: "dentists",
		Locations:  []string{"nowhere"},
	})
	require.NoError(t, err)

	waitForRunEnd(t, state)

	assert.Empty(t, state.Results())
	assert.Equal(t, "Scraping complete. No listings found.", state.Snapshot().StatusMessage)

	runs := recorder.saved()
	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].LinkCount)
	assert.Zero(t, runs[0].ScrapedCount)
}

func TestCoordinatorAppliesIndexRanges(t *testing.T) {
	links := []string{placeURL("a1"), placeURL("a2"), placeURL("a3")}

	pages := map[string]*fakePage{
		searchPageURL("dentists austin"): {
			hasFeed:   true,
			endOfFeed: true,
			steps:     [][]string{links},
		},
	}

	for _, link := range links {
		pages[link] = &fakePage{
			marker: true,
			texts:  map[string]string{listingMarker: "n"},
		}
	}

	state := NewState()
	coord := NewCoordinator(newFakeDriver(pages), &fakeFetcher{}, splitParser{},
		state, nil, nil, zap.NewNop())

	_, err := coord.Start(context.Background(), &Config{
		SearchTerm:  "dentists",
		Locations:   []string{"austin"},
		IndexRanges: []IndexRange{{Start: 1, End: 2}},
	})
	require.NoError(t, err)

	waitForRunEnd(t, state)

	assert.Equal(t, 3, state.Snapshot().LinkCount, "all collected links are kept")
	require.Len(t, state.Results(), 2, "only the filtered links are scraped")
	assert.Equal(t, "Scraping complete. 2 businesses scraped.", state.Snapshot().StatusMessage)
}

func TestCoordinatorStopWithoutActiveRun(t *testing.T) {
	coord := NewCoordinator(newFakeDriver(nil), &fakeFetcher{}, splitParser{},
		NewState(), nil, nil, zap.NewNop())

	assert.False(t, coord.Stop())
}
