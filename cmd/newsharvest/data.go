package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/ai"
	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/enrich"
	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/validator"
)

var (
	dbPath string

	combineDataDir string

	enrichLimit      int
	enrichDelay      time.Duration
	enrichNoInsights bool

	validateID              int64
	validateBatchSize       int
	validateDelay           time.Duration
	validateOnlyUnvalidated bool
)

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
}

// combineCmd creates the "combine" subcommand.
func combineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Load scraped JSON files into the SQLite articles table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if combineDataDir == "" {
				combineDataDir = cfg.Output.DataDir
			}

			store, err := storage.OpenSQLite(pick(dbPath, cfg.Storage.DBPath), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := storage.Combine(cmd.Context(), combineDataDir, store, logger)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"✓ %d files, %d records read, %d inserted, %d duplicates, %d files skipped\n",
				res.Files, res.Read, res.Inserted, res.Duplicates, res.Skipped)
			return nil
		},
	}
	addDBFlag(cmd)
	cmd.Flags().StringVar(&combineDataDir, "data-dir", "", "directory holding *_articles.json and *_news.json")
	return cmd
}

// enrichCmd creates the "enrich" subcommand.
func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Store article body text, main ideas and tags",
		Long: `Download the page of every article with no stored body text and keep
its readable text. When an LLM is configured, also extract 3-5 main
ideas and 5-10 tags for every article that has none yet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delay") {
				cfg.Enrich.Delay = enrichDelay
			}
			if enrichNoInsights {
				cfg.Enrich.Insights = false
			}

			store, err := storage.OpenSQLite(pick(dbPath, cfg.Storage.DBPath), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := runEnrich(cmd.Context(), cfg, logger, store, enrichLimit)
			if err != nil {
				return err
			}
			printEnrichStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	addDBFlag(cmd)
	cmd.Flags().IntVar(&enrichLimit, "limit", 0, "maximum rows to enrich (0 = all)")
	cmd.Flags().DurationVar(&enrichDelay, "delay", time.Second, "minimum delay between rows")
	cmd.Flags().BoolVar(&enrichNoInsights, "no-insights", false, "store body text only, without LLM main ideas and tags")
	return cmd
}

// runEnrich wires the enricher from config and runs one pass. Configured
// browser domains go through the browser retry fetcher, everything else
// over HTTP.
func runEnrich(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *storage.SQLiteStore, limit int) (*enrich.Stats, error) {
	factory, err := fetcher.NewFactory(cfg, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetchers: %w", err)
	}
	defer factory.Close()

	hf, err := factory.For(fetcher.ModeHTTP, nil)
	if err != nil {
		return nil, err
	}
	bf, err := factory.For(fetcher.ModeBrowser, nil)
	if err != nil {
		return nil, err
	}

	opts := []enrich.Option{
		enrich.WithBrowser(bf, cfg.Enrich.BrowserDomains),
		enrich.WithMaxTextChars(cfg.Enrich.MaxTextChars),
	}
	if cfg.Enrich.Insights {
		if hasLLMKey(cfg.LLM) {
			opts = append(opts, enrich.WithInsights(ai.NewLLMClient(cfg.LLM, logger)))
		} else {
			logger.Warn("no llm api key, storing body text only", "provider", cfg.LLM.Provider)
		}
	}
	return enrich.New(hf, cfg.Enrich.Delay, logger, opts...).Fill(ctx, store, limit)
}

func printEnrichStats(w io.Writer, stats *enrich.Stats) {
	color.New(color.FgGreen).Fprintf(w,
		"✓ %d filled, %d with main ideas, %d failed, %d skipped of %d candidates\n",
		stats.Filled, stats.Enhanced, stats.Failed, stats.Skipped, stats.Candidates)
}

// hasLLMKey reports whether the provider can be called. Ollama needs no key.
func hasLLMKey(c config.LLMConfig) bool {
	return c.APIKey != "" || c.Provider == string(ai.ProviderOllama)
}

// validateCmd creates the "validate" subcommand.
func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Ask the LLM to check every stored article record",
		Long: `Send each article's fields and a preview of its body text to the
configured LLM, and store the returned status (1 valid, 0 invalid) and
comment in validation_status and validation_comment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if !hasLLMKey(cfg.LLM) {
				return fmt.Errorf("no API key for llm provider %q", cfg.LLM.Provider)
			}

			store, err := storage.OpenSQLite(pick(dbPath, cfg.Storage.DBPath), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			v := validator.New(store, ai.NewLLMClient(cfg.LLM, logger), nil, logger)
			out := cmd.OutOrStdout()

			if validateID > 0 {
				res, err := v.ValidateOne(cmd.Context(), validateID, cfg.Validator.PreviewChars)
				if err != nil {
					return err
				}
				printVerdict(cmd, res)
				return nil
			}

			opts := validator.Options{
				BatchSize:       cfg.Validator.BatchSize,
				Delay:           cfg.Validator.Delay,
				OnlyUnvalidated: cfg.Validator.OnlyUnvalidated || validateOnlyUnvalidated,
				PreviewChars:    cfg.Validator.PreviewChars,
			}
			if cmd.Flags().Changed("batch-size") {
				opts.BatchSize = validateBatchSize
			}
			if cmd.Flags().Changed("delay") {
				opts.Delay = validateDelay
			}

			sum, err := v.ValidateAll(cmd.Context(), opts)
			if sum != nil {
				fmt.Fprintf(out, "Processed: %d  Valid: %s  Invalid: %s\n",
					sum.Processed, color.GreenString("%d", sum.Valid), color.RedString("%d", sum.Invalid))
			}
			return err
		},
	}
	addDBFlag(cmd)
	cmd.Flags().Int64Var(&validateID, "id", 0, "validate a single article by id")
	cmd.Flags().IntVar(&validateBatchSize, "batch-size", 1, "commit after this many verdicts")
	cmd.Flags().DurationVar(&validateDelay, "delay", time.Second, "minimum delay between LLM calls")
	cmd.Flags().BoolVar(&validateOnlyUnvalidated, "only-unvalidated", false, "skip rows that already have a status")
	return cmd
}

func printVerdict(cmd *cobra.Command, v storage.Validation) {
	status := color.GreenString("valid")
	if v.Status != 1 {
		status = color.RedString("invalid")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Article %d: %s\n", v.ID, status)
	if v.Comment != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", v.Comment)
	}
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
