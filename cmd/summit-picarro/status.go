package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
)

const tsLayout = "2006-01-02 15:04:05"

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show files, calibration events and master calibrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := database.OpenReadOnly(cmd.Context(), ctx.config.Storage, ctx.logger.Named("database"))
			if err != nil {
				return err
			}
			defer store.Close()

			return writeStatus(cmd.Context(), cmd.OutOrStdout(), store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of recent events and master calibrations to show")
	return cmd
}

func writeStatus(ctx context.Context, out io.Writer, store *database.Store, limit int) error {
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	files, err := store.ListFiles(ctx)
	if err != nil {
		return err
	}
	events, err := store.ListCalEvents(ctx, "", limit)
	if err != nil {
		return err
	}
	mcs, err := store.ListMasterCals(ctx, limit)
	if err != nil {
		return err
	}

	latest := "-"
	if counts.LatestEpochMs > 0 {
		latest = time.UnixMilli(counts.LatestEpochMs).UTC().Format(tsLayout)
	}
	summary := [][]string{
		{"Files", strconv.FormatInt(counts.Files, 10), fmt.Sprintf("%d pending", counts.PendingFiles)},
		{"Measurements", humanize.Comma(counts.Data), fmt.Sprintf("%s flushed, latest %s", humanize.Comma(counts.FlushedData), latest)},
		{"Calibration events", strconv.FormatInt(counts.CalEvents, 10), fmt.Sprintf("%d dumped, %d unmatched", counts.DumpedEvents, counts.PendingEvents)},
		{"Master calibrations", strconv.FormatInt(counts.MasterCals, 10), ""},
	}
	fmt.Fprintln(out, renderTable("Summary", []string{"Entity", "Count", "Detail"}, summary, []columnAlignment{alignLeft, alignRight, alignLeft}))

	fileRows := make([][]string, 0, len(files))
	for _, f := range files {
		fileRows = append(fileRows, []string{f.Name, humanize.Bytes(uint64(f.Size)), strconv.FormatBool(f.Processed), f.Path})
	}
	fmt.Fprintln(out, renderTable("Files", []string{"Name", "Size", "Processed", "Path"}, fileRows, []columnAlignment{alignLeft, alignRight}))

	eventRows := make([][]string, 0, len(events))
	for _, ev := range events {
		row := []string{strconv.FormatUint(uint64(ev.ID), 10), ev.Time().Format(tsLayout), string(ev.StandardUsed), ev.Duration().String()}
		for _, cpd := range standards.Compounds() {
			row = append(row, formatValue(ev.Result(cpd).Mean))
		}
		eventRows = append(eventRows, row)
	}
	fmt.Fprintln(out, renderTable("Calibration events", []string{"ID", "End", "Standard", "Duration", "CO", "CO2", "CH4"}, eventRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}))

	mcRows := make([][]string, 0, len(mcs))
	for _, mc := range mcs {
		row := []string{strconv.FormatUint(uint64(mc.ID), 10), mc.Time().Format(tsLayout)}
		for _, cpd := range standards.Compounds() {
			c := mc.Curve(cpd)
			row = append(row, fmt.Sprintf("%s / %s", formatValue(c.Slope), formatValue(c.MiddleOffset)))
		}
		mcRows = append(mcRows, row)
	}
	fmt.Fprintln(out, renderTable("Master calibrations (slope / mid offset)", []string{"ID", "Low end", "CO", "CO2", "CH4"}, mcRows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight}))

	return nil
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
