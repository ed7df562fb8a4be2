package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JashanChopra/Summit/internal/app"
	"github.com/JashanChopra/Summit/internal/constants"
	"github.com/JashanChopra/Summit/internal/log"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline continuously until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Infow("starting", "app", constants.AppName, "version", constants.Version, "config", ctx.configFlag)
			if err := app.New(ctx.provider, ctx.logger).Run(cmd.Context()); err != nil {
				log.Errorf("application error: %v", err)
				return err
			}
			return nil
		},
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run every pipeline task once and exit",
		Long:  "Run ingestion, segmentation, matching, curve fitting and flush filtering once, in that order. Useful for backfills.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := app.New(ctx.provider, ctx.logger).Process(cmd.Context()); err != nil {
				log.Errorf("processing failed: %v", err)
				return err
			}
			log.Infof("processing pass finished in %s", time.Since(start))
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", constants.AppName, constants.Version)
		},
	}
}
