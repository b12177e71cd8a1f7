package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/scraper/sites"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

// sitesCmd creates the "sites" subcommand.
func sitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List registered sites",
		Long: `List every registered site with its fetch mode, pagination and output
file. The "combine" column shows whether the output file name is one
the combine step picks up, and under which source name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderSites(cmd.OutOrStdout(), sites.Builtin().All())
		},
	}
}

func renderSites(w io.Writer, list []*scraper.Site) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header([]string{"Site", "Kind", "Fetch", "Paginated", "Output", "Combine", "URL"})

	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.Name,
			string(s.Kind),
			s.Fetch,
			yesNo(s.PageURL != nil),
			s.Filename,
			combineStatus(s.Filename),
			s.URL,
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d sites\n", len(list))
	return nil
}

func combineStatus(filename string) string {
	if !storage.ValidFilename(filename) {
		return color.RedString("no")
	}
	source, kind := storage.SourceOf(filename)
	return color.GreenString("%s/%s", source, kind)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
