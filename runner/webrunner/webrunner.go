// Package webrunner wires the scraping pipeline behind the HTTP control
// surface.
package webrunner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gosom/maps-contact-scraper/addrparse"
	"github.com/gosom/maps-contact-scraper/fetchers"
	"github.com/gosom/maps-contact-scraper/runner"
	"github.com/gosom/maps-contact-scraper/scraper"
	"github.com/gosom/maps-contact-scraper/sqlite"
	"github.com/gosom/maps-contact-scraper/web"
)

type webrunner struct {
	cfg    *runner.Config
	log    *zap.Logger
	driver *fetchers.PlaywrightDriver
	state  *scraper.State
	store  *sqlite.Store
	coord  *scraper.Coordinator
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.DataFolder == "" {
		return nil, fmt.Errorf("data folder is required")
	}

	if err := os.MkdirAll(cfg.DataFolder, os.ModePerm); err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(filepath.Join(cfg.DataFolder, "runs.db"))
	if err != nil {
		return nil, err
	}

	if err := store.AutoMigrate(context.Background()); err != nil {
		return nil, err
	}

	driver, err := fetchers.NewPlaywrightDriver(cfg.Debug, cfg.Proxies...)
	if err != nil {
		return nil, err
	}

	state := scraper.NewState()

	coord := scraper.NewCoordinator(
		driver,
		fetchers.NewHTTPFetcher(cfg.Proxies...),
		addrparse.New(),
		state,
		store,
		runner.Telemetry(),
		log,
	)

	ans := webrunner{
		cfg:    cfg,
		log:    log,
		driver: driver,
		state:  state,
		store:  store,
		coord:  coord,
	}

	return &ans, nil
}

func (w *webrunner) Run(ctx context.Context) error {
	srv := web.NewServer(ctx, w.coord, w.state, w.store, w.log)

	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return srv.Serve(ctx, w.cfg.Addr)
	})

	return egroup.Wait()
}

func (w *webrunner) Close(context.Context) error {
	err := w.driver.Close()

	return multierr.Append(err, w.log.Sync())
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
