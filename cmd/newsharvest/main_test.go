package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/scraper/sites"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

func TestSelectSites(t *testing.T) {
	reg := sites.Builtin()

	all, err := selectSites(reg, nil, true)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	got, err := selectSites(reg, []string{"nokia", "ibm", "nokia"}, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "nokia", got[0].Name)
	assert.Equal(t, "ibm", got[1].Name)

	_, err = selectSites(reg, []string{"acme"}, false)
	assert.ErrorIs(t, err, types.ErrUnknownSite)

	_, err = selectSites(reg, nil, false)
	assert.Error(t, err)
}

func TestApplyScrapeOverrides(t *testing.T) {
	t.Cleanup(func() {
		scrapeFetch, scrapeHeaded, scrapeDebug = "", false, false
		scrapeMaxPages, scrapeOutputDir, scrapeMetrics = 0, "", ""
	})
	scrapeFetch = "http"
	scrapeHeaded = true
	scrapeDebug = true
	scrapeMaxPages = 2
	scrapeOutputDir = "out"
	scrapeMetrics = ":9100"

	cfg := config.DefaultConfig()
	applyScrapeOverrides(cfg)

	assert.Equal(t, "http", cfg.Fetch.Mode)
	assert.False(t, cfg.Fetch.InitialHeadless)
	assert.True(t, cfg.Output.Debug)
	assert.Equal(t, 2, cfg.Output.MaxPages)
	assert.Equal(t, "out", cfg.Output.DataDir)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.NoError(t, config.Validate(cfg))
}

func TestRenderSites(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, renderSites(&buf, sites.Builtin().All()))

	out := buf.String()
	assert.Contains(t, out, "analysysmason_articles.json")
	assert.Contains(t, out, "Nokia/news")
	assert.Contains(t, out, "Servicenow/blog")
	assert.Contains(t, out, "6 sites")
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "site", "ibm")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"site":"ibm"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "NewsHarvest "+config.Version)
}
