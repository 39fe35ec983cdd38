package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosom/maps-contact-scraper/scraper"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(context.Background()))

	return store
}

func TestStoreSaveAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := scraper.RunSummary{
		ID:           "run-1",
		SearchTerm:   "dentists",
		Categories:   []string{"clinic"},
		Locations:    []string{"austin", "dallas"},
		LinkCount:    10,
		ScrapedCount: 9,
		ErrorCount:   1,
		EmailCount:   14,
		StartedAt:    base,
		FinishedAt:   base.Add(5 * time.Minute),
	}
	second := scraper.RunSummary{
		ID:         "run-2",
		SearchTerm: "plumbers",
		Locations:  []string{"houston"},
		Stopped:    true,
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Minute),
	}

	require.NoError(t, store.SaveRun(ctx, &first, nil))
	require.NoError(t, store.SaveRun(ctx, &second, nil))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID, "most recent first")
	assert.True(t, runs[0].Stopped)
	assert.Equal(t, []string{"houston"}, runs[0].Locations)

	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, "dentists", runs[1].SearchTerm)
	assert.Equal(t, []string{"clinic"}, runs[1].Categories)
	assert.Equal(t, []string{"austin", "dallas"}, runs[1].Locations)
	assert.Equal(t, 10, runs[1].LinkCount)
	assert.Equal(t, 9, runs[1].ScrapedCount)
	assert.Equal(t, 1, runs[1].ErrorCount)
	assert.Equal(t, 14, runs[1].EmailCount)
	assert.False(t, runs[1].Stopped)
}

func TestStoreSaveRunPersistsRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary := scraper.RunSummary{
		ID:         "run-1",
		SearchTerm: "dentists",
		Locations:  []string{"austin"},
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	records := []scraper.BusinessRecord{
		{
			Name:        "Acme Dental",
			City:        "Austin",
			State:       "TX",
			FinalEmails: []string{"front@acme-dental.com"},
			EmailCount:  1,
			Status:      scraper.StatusScraped,
		},
		{
			SourceURL: "https://www.google.com/maps/place/dead",
			Status:    "SCRAPE ERROR: driver: open",
		},
	}

	require.NoError(t, store.SaveRun(ctx, &summary, records))

	got, err := store.RunRecords(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Acme Dental", got[0].Name)
	assert.Equal(t, "Austin", got[0].City)
	assert.Equal(t, []string{"front@acme-dental.com"}, got[0].FinalEmails)
	assert.Equal(t, scraper.StatusScraped, got[0].Status)
	assert.Equal(t, "https://www.google.com/maps/place/dead", got[1].SourceURL)

	unknown, err := store.RunRecords(ctx, "run-404")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestStoreListRunsEmpty(t *testing.T) {
	store := newTestStore(t)

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
