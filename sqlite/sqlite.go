package sqlite

import (
	"context"

	driver "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/gosom/maps-contact-scraper/scraper"
)

var _ scraper.RunRecorder = (*Store)(nil)

// Store keeps the run history in a local sqlite database.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	db, err := gorm.Open(driver.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	ans := Store{
		db: db,
	}

	return &ans, nil
}

func (s *Store) AutoMigrate(_ context.Context) error {
	return s.db.AutoMigrate(&run{}, &result{})
}

// SaveRun persists one finished run summary and the records it produced in
// a single transaction.
func (s *Store) SaveRun(ctx context.Context, summary *scraper.RunSummary, records []scraper.BusinessRecord) error {
	dbo := runFromSummary(summary)
	dbos := resultsFromRecords(summary.ID, records)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dbo).Error; err != nil {
			return err
		}

		if len(dbos) == 0 {
			return nil
		}

		return tx.Create(&dbos).Error
	})
}

// RunRecords returns the records of one run in completion order.
func (s *Store) RunRecords(ctx context.Context, runID string) ([]scraper.BusinessRecord, error) {
	var dbos []result

	db := s.db.WithContext(ctx)
	db = db.Where("run_id = ?", runID).Order("seq ASC")

	if err := db.Find(&dbos).Error; err != nil {
		return nil, err
	}

	ans := make([]scraper.BusinessRecord, len(dbos))
	for i := range dbos {
		ans[i] = scraper.BusinessRecord(dbos[i].Record)
	}

	return ans, nil
}

// ListRuns returns all recorded runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]scraper.RunSummary, error) {
	var dbos []run

	db := s.db.WithContext(ctx)
	db = db.Order("finished_at DESC")

	if err := db.Find(&dbos).Error; err != nil {
		return nil, err
	}

	ans := make([]scraper.RunSummary, len(dbos))
	for i := range dbos {
		ans[i] = dbos[i].toSummary()
	}

	return ans, nil
}
