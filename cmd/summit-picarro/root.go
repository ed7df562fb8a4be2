package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/constants"
	"github.com/JashanChopra/Summit/internal/log"
	"github.com/JashanChopra/Summit/pkg/config"
)

type commandContext struct {
	configFlag string
	debugFlag  bool

	provider config.ConfigProvider
	config   *config.ConfigData
	logger   *zap.SugaredLogger
}

// setup loads the configuration and initializes logging. It runs once per invocation.
func (c *commandContext) setup() error {
	if c.config != nil {
		return nil
	}

	filename, err := filepath.Abs(c.configFlag)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	c.provider = config.NewYAMLProvider(filename)

	cfg, err := c.provider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error reading config file. Did you pass the --config flag? Run with -h for help: %w", err)
	}

	err = log.Init(log.Options{
		Debug:      c.debugFlag,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		log.Warnf("config file %s not found; using defaults", filename)
	} else {
		log.Debugf("loaded configuration from %s", filename)
	}

	c.config = cfg
	// undo the caller skip that the package-level helpers rely on
	c.logger = log.GetZapLogger().WithOptions(zap.AddCallerSkip(-1)).Sugar()
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Picarro CO/CO2/CH4 ingestion and calibration pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return ctx.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&ctx.debugFlag, "debug", false, "Turn on debugging output")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
