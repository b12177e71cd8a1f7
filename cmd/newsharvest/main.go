package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsharvest",
		Short: "NewsHarvest - telecom and enterprise IT news collector",
		Long: `NewsHarvest scrapes news and blog listings from a fixed set of vendor
and analyst sites, combines the results into SQLite, fills in article
body text and asks an LLM to validate every stored record.

Typical run:
  newsharvest run
  newsharvest validate --only-unvalidated

or step by step:
  newsharvest scrape --all
  newsharvest combine
  newsharvest enrich`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(sitesCmd())
	rootCmd.AddCommand(combineCmd())
	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// loadConfig reads and validates the configuration and builds the logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(os.Stderr, cfg.Logging), nil
}

// setupLogger creates a structured logger.
func setupLogger(w io.Writer, lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "NewsHarvest %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config) {
	heading := color.New(color.Bold)

	heading.Fprintln(w, "Fetch:")
	fmt.Fprintf(w, "  Mode:              %s\n", cfg.Fetch.Mode)
	fmt.Fprintf(w, "  Max Retries:       %d\n", cfg.Fetch.MaxRetries)
	fmt.Fprintf(w, "  Initial Headless:  %v\n", cfg.Fetch.InitialHeadless)
	fmt.Fprintf(w, "  Ready Timeout:     %s\n", cfg.Fetch.ReadyTimeout)
	fmt.Fprintf(w, "  Backoff Base:      %s\n", cfg.Fetch.BackoffBase)
	fmt.Fprintf(w, "  Stealth:           %v\n", cfg.Fetch.Stealth)
	fmt.Fprintf(w, "\n")
	heading.Fprintln(w, "Proxy:")
	fmt.Fprintf(w, "  Enabled:           %v\n", cfg.Proxy.Enabled)
	fmt.Fprintf(w, "  Rotation:          %s\n", cfg.Proxy.Rotation)
	fmt.Fprintf(w, "  Count:             %d\n", len(cfg.Proxy.URLs))
	fmt.Fprintf(w, "\n")
	heading.Fprintln(w, "Output:")
	fmt.Fprintf(w, "  Data Dir:          %s\n", cfg.Output.DataDir)
	fmt.Fprintf(w, "  Debug Dir:         %s\n", cfg.Output.DebugDir)
	fmt.Fprintf(w, "  Max Pages:         %d\n", cfg.Output.MaxPages)
	fmt.Fprintf(w, "\n")
	heading.Fprintln(w, "Storage:")
	fmt.Fprintf(w, "  SQLite:            %s\n", cfg.Storage.DBPath)
	fmt.Fprintf(w, "  Mongo Mirror:      %v\n", cfg.Storage.MongoURI != "")
	fmt.Fprintf(w, "\n")
	heading.Fprintln(w, "Enrich:")
	fmt.Fprintf(w, "  Insights:          %v\n", cfg.Enrich.Insights)
	fmt.Fprintf(w, "  Browser Domains:   %s\n", strings.Join(cfg.Enrich.BrowserDomains, ", "))
	fmt.Fprintf(w, "\n")
	heading.Fprintln(w, "LLM:")
	fmt.Fprintf(w, "  Provider:          %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "  Model:             %s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "  API Key Set:       %v\n", cfg.LLM.APIKey != "")
	fmt.Fprintf(w, "\n")
	heading.Fprintln(w, "Metrics:")
	fmt.Fprintf(w, "  Enabled:           %v\n", cfg.Metrics.Enabled)
	fmt.Fprintf(w, "  Addr:              %s%s\n", cfg.Metrics.Addr, cfg.Metrics.Path)
}
