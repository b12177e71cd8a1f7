package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/scraper/sites"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

var (
	scrapeAll       bool
	scrapeDebug     bool
	scrapeMaxPages  int
	scrapeFetch     string
	scrapeHeaded    bool
	scrapeOutputDir string
	scrapeMetrics   string
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [site...]",
		Short: "Scrape one or more registered sites",
		Long: `Fetch each site's listing page(s), extract title, link, date and the
site-specific fields, and write data/<site>_news.json or
data/<site>_articles.json. Run "newsharvest sites" for the list.`,
		RunE: runScrape,
	}

	cmd.Flags().BoolVar(&scrapeAll, "all", false, "scrape every registered site")
	cmd.Flags().BoolVar(&scrapeDebug, "debug", false, "save fetched HTML under the debug directory")
	cmd.Flags().IntVar(&scrapeMaxPages, "max-pages", 0, "page limit for paginated sites (0 = config default)")
	cmd.Flags().StringVar(&scrapeFetch, "fetch", "", "force fetch mode: browser, http or auto")
	cmd.Flags().BoolVar(&scrapeHeaded, "headed", false, "start the browser with a visible window")
	cmd.Flags().StringVarP(&scrapeOutputDir, "output-dir", "o", "", "output directory for JSON files")
	cmd.Flags().StringVar(&scrapeMetrics, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyScrapeOverrides(cfg)
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Logging)

	reg := sites.Builtin()
	selected, err := selectSites(reg, args, scrapeAll)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Addr, cfg.Metrics.Path)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sc, cleanup, err := newSiteScraper(ctx, cfg, logger, metrics, 1)
	if err != nil {
		return err
	}
	defer cleanup()

	failed := sc.scrapeAll(ctx, selected, cmd.OutOrStdout())

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scrape interrupted: %w", err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d sites failed: %v", len(failed), len(selected), failed)
	}
	return nil
}

// siteScraper runs sites one after another, retrying a failed site with
// 2^n second backoff.
type siteScraper struct {
	scrape  func(ctx context.Context, site *scraper.Site, opts scraper.Options) (*scraper.Result, error)
	opts    scraper.Options
	retries int
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

// newSiteScraper wires fetchers, storage and the runner from config. The
// returned cleanup closes them.
func newSiteScraper(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, retries int) (*siteScraper, func(), error) {
	factory, err := fetcher.NewFactory(cfg, logger, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetchers: %w", err)
	}
	store, err := openScrapeStorage(ctx, cfg, logger)
	if err != nil {
		factory.Close()
		return nil, nil, err
	}

	runner := scraper.NewRunner(factory, store, metrics, logger)
	sc := &siteScraper{
		scrape: runner.Scrape,
		opts: scraper.Options{
			MaxPages:  cfg.Output.MaxPages,
			PageDelay: cfg.Output.PageDelay,
			Debug:     cfg.Output.Debug,
			DebugDir:  cfg.Output.DebugDir,
		},
		retries: retries,
		sleep:   sleepCtx,
		logger:  logger,
	}
	cleanup := func() {
		store.Close()
		factory.Close()
	}
	return sc, cleanup, nil
}

// scrapeAll scrapes every site and returns the names of those that failed.
func (s *siteScraper) scrapeAll(ctx context.Context, list []*scraper.Site, out io.Writer) []string {
	var failed []string
	for _, site := range list {
		if ctx.Err() != nil {
			break
		}
		res, err := s.scrapeSite(ctx, site)
		if err != nil {
			failed = append(failed, site.Name)
			s.logger.Error("site failed", "site", site.Name, "error", err)
			color.New(color.FgRed).Fprintf(out, "✗ %-14s %v\n", site.Name, err)
			continue
		}
		printScrapeResult(out, site, res)
	}
	return failed
}

func (s *siteScraper) scrapeSite(ctx context.Context, site *scraper.Site) (*scraper.Result, error) {
	retries := max(s.retries, 1)
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<attempt) * time.Second
			s.logger.Info("retrying site", "site", site.Name, "attempt", attempt+1, "of", retries, "wait", wait)
			if serr := s.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
		}
		var res *scraper.Result
		res, err = s.scrape(ctx, site, s.opts)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// applyScrapeOverrides applies command-line flag values to the config.
func applyScrapeOverrides(cfg *config.Config) {
	if scrapeFetch != "" {
		cfg.Fetch.Mode = scrapeFetch
	}
	if scrapeHeaded {
		cfg.Fetch.InitialHeadless = false
	}
	if scrapeDebug {
		cfg.Output.Debug = true
	}
	if scrapeMaxPages > 0 {
		cfg.Output.MaxPages = scrapeMaxPages
	}
	if scrapeOutputDir != "" {
		cfg.Output.DataDir = scrapeOutputDir
	}
	if scrapeMetrics != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = scrapeMetrics
	}
}

// selectSites resolves site names against the registry; --all takes every site in name order.
func selectSites(reg *scraper.Registry, names []string, all bool) ([]*scraper.Site, error) {
	if all {
		return reg.All(), nil
	}
	if len(names) == 0 {
		return nil, errors.New("name at least one site or pass --all (see \"newsharvest sites\")")
	}

	seen := make(map[string]bool, len(names))
	var out []*scraper.Site
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		s, err := reg.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// openScrapeStorage always writes JSON files and mirrors to MongoDB when configured.
func openScrapeStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	js, err := storage.NewJSONStorage(cfg.Output.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}
	if cfg.Storage.MongoURI == "" {
		return js, nil
	}

	mongo, err := storage.NewMongoStorage(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
	if err != nil {
		logger.Warn("mongo mirror disabled", "error", err)
		return js, nil
	}
	return storage.NewMultiStorage([]storage.Storage{js, mongo}, logger), nil
}

func printScrapeResult(w io.Writer, site *scraper.Site, res *scraper.Result) {
	mark := color.GreenString("✓")
	if len(res.Articles) == 0 {
		mark = color.YellowString("⚠")
	}
	fmt.Fprintf(w, "%s %-14s %3d articles  %d page(s)  %d skipped  %d dropped  %s  -> %s\n",
		mark, site.Name, len(res.Articles), res.Pages, res.Skipped, res.Dropped,
		res.Duration.Round(time.Millisecond), site.Filename)
}
