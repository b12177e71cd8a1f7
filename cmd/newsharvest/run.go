package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/enrich"
	"github.com/IshaanNene/NewsHarvest/internal/scraper/sites"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

var (
	runSkipScraping   bool
	runSkipCombining  bool
	runSkipEnrichment bool
	runSiteRetries    int
	runLimit          int
	runNoInsights     bool
)

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape every site, combine into SQLite and enrich",
		Long: `Run the whole collection pipeline:

  1. scrape every registered site, retrying a failed site
  2. combine the JSON output into the SQLite articles table
  3. enrich stored articles with body text, main ideas and tags

Scrape failures are reported and the run continues. A failed combine
stops the run before enrichment.`,
		RunE: runPipeline,
	}
	addDBFlag(cmd)
	cmd.Flags().BoolVar(&runSkipScraping, "skip-scraping", false, "use existing JSON files")
	cmd.Flags().BoolVar(&runSkipCombining, "skip-combining", false, "use the articles already in the database")
	cmd.Flags().BoolVar(&runSkipEnrichment, "skip-enrichment", false, "only scrape and combine")
	cmd.Flags().IntVar(&runSiteRetries, "site-retries", 3, "attempts per site before giving up")
	cmd.Flags().IntVar(&runLimit, "limit", 0, "maximum rows to enrich (0 = all)")
	cmd.Flags().BoolVar(&runNoInsights, "no-insights", false, "store body text only, without LLM main ideas and tags")
	return cmd
}

type pipelineReport struct {
	sites      int
	failed     []string
	combine    *storage.CombineResult
	combineErr error
	enrich     *enrich.Stats
	enrichErr  error
}

func runPipeline(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if runSkipScraping && runSkipCombining && runSkipEnrichment {
		fmt.Fprintln(out, "All steps skipped. Nothing to do.")
		return nil
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if runNoInsights {
		cfg.Enrich.Insights = false
	}
	ctx := cmd.Context()
	heading := color.New(color.Bold)
	rep := &pipelineReport{}

	if !runSkipScraping {
		heading.Fprintln(out, "Step 1: scraping")
		list := sites.Builtin().All()
		sc, cleanup, err := newSiteScraper(ctx, cfg, logger, nil, runSiteRetries)
		if err != nil {
			return err
		}
		rep.sites = len(list)
		rep.failed = sc.scrapeAll(ctx, list, out)
		cleanup()
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
	}

	if runSkipCombining && runSkipEnrichment {
		printPipelineReport(out, rep)
		return nil
	}

	store, err := storage.OpenSQLite(pick(dbPath, cfg.Storage.DBPath), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if !runSkipCombining {
		heading.Fprintln(out, "Step 2: combining")
		rep.combine, rep.combineErr = combineOutputs(ctx, cfg.Output.DataDir, store, logger)
		if rep.combineErr != nil {
			color.New(color.FgRed).Fprintf(out, "✗ Pipeline stopped: combine failed: %v\n", rep.combineErr)
			printPipelineReport(out, rep)
			return fmt.Errorf("combine: %w", rep.combineErr)
		}
	}

	if !runSkipEnrichment {
		heading.Fprintln(out, "Step 3: enriching")
		rep.enrich, rep.enrichErr = runEnrich(ctx, cfg, logger, store, runLimit)
	}

	printPipelineReport(out, rep)
	if rep.enrichErr != nil {
		return fmt.Errorf("enrich: %w", rep.enrichErr)
	}
	return nil
}

// combineOutputs fails when the data directory holds no scrape output.
func combineOutputs(ctx context.Context, dataDir string, store *storage.SQLiteStore, logger *slog.Logger) (*storage.CombineResult, error) {
	files, err := storage.OutputFiles(dataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scrape output files in %s", dataDir)
	}
	return storage.Combine(ctx, dataDir, store, logger)
}

func printPipelineReport(w io.Writer, rep *pipelineReport) {
	mark := func(ran bool, err error) string {
		switch {
		case !ran:
			return color.YellowString("skipped")
		case err != nil:
			return color.RedString("✗")
		}
		return color.GreenString("✓")
	}

	fmt.Fprintln(w)
	color.New(color.Bold).Fprintln(w, "Pipeline summary")
	if rep.sites > 0 {
		fmt.Fprintf(w, "  Scraping:    %d/%d sites successful", rep.sites-len(rep.failed), rep.sites)
		if len(rep.failed) > 0 {
			fmt.Fprintf(w, " (failed: %v)", rep.failed)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "  Scraping:    %s\n", mark(false, nil))
	}

	fmt.Fprintf(w, "  Combining:   %s", mark(rep.combine != nil || rep.combineErr != nil, rep.combineErr))
	if rep.combine != nil {
		fmt.Fprintf(w, "  %d inserted, %d duplicates", rep.combine.Inserted, rep.combine.Duplicates)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Enrichment:  %s", mark(rep.enrich != nil || rep.enrichErr != nil, rep.enrichErr))
	if rep.enrich != nil {
		fmt.Fprintf(w, "  %d filled, %d with main ideas, %d failed", rep.enrich.Filled, rep.enrich.Enhanced, rep.enrich.Failed)
	}
	fmt.Fprintln(w)
}
