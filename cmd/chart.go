package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/app"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/chart"
)

func newChartCmd() *cobra.Command {
	var (
		dateFlag string
		size     int
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Fetch a chart week and print entries with playable links",
		Long: `Fetches the Hot 100 for the requested week (the date is snapped to
the chart's Saturday), resolves each entry to a Spotify link and
prints the result as a table.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}

			date := time.Now()
			if dateFlag != "" {
				date, err = time.Parse(chart.DateLayout, dateFlag)
				if err != nil {
					return fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
				}
			}

			a := app.New(rt.Cfg, rt.Logger)
			snapshot, err := a.GetChart(cmd.Context(), date, size)
			if err != nil {
				return fmt.Errorf("could not load chart for %s: %w", chart.ChartDate(date).Format(chart.DateLayout), err)
			}

			renderChart(cmd.Context(), cmd.OutOrStdout(), snapshot, a)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "chart week (YYYY-MM-DD, default: current week)")
	cmd.Flags().IntVar(&size, "size", 0, "number of entries (default: configured default_size)")

	return cmd
}

func renderChart(ctx context.Context, out io.Writer, snapshot chart.Snapshot, linkSvc app.LinkService) {
	fmt.Fprintf(out, "Billboard Hot 100, week of %s\n\n", snapshot.Date.Format(chart.DateLayout))
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTITLE\tARTIST\tLINK\tVIA")
	for _, entry := range snapshot.Entries {
		link := linkSvc.GetLink(ctx, entry.Title, entry.Artist)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", entry.Rank, entry.Title, entry.Artist, link.URL, link.Source)
	}
	_ = w.Flush()
}
