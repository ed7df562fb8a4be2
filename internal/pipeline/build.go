package pipeline

import (
	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/calibration"
	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/ingest"
	"github.com/JashanChopra/Summit/internal/tracker"
	"github.com/JashanChopra/Summit/pkg/config"
)

// Build wires the ingest, calibrate, match and flush tasks from the configuration
func Build(store *database.Store, cfg *config.ConfigData, logger *zap.SugaredLogger) (*Scheduler, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	tr := tracker.New(store, cfg.DataDir, cfg.FilePattern, logger.Named("tracker"))
	ingestor := ingest.New(store, tr, logger.Named("ingest"))
	segmenter := calibration.NewSegmenter(store, cfg.Calibration, logger.Named("calibrate"))
	match := NewSequence("match",
		calibration.NewMatcher(store, cfg.Calibration.MatchTolerance, logger.Named("match")),
		calibration.NewFitter(store, registry, logger.Named("fit")),
	)
	flusher := calibration.NewFlusher(store, cfg.Calibration.FlushWindow, logger.Named("flush"))

	return NewScheduler(logger.Named("pipeline"),
		PeriodicTask{Task: ingestor, Interval: cfg.Pipeline.IngestInterval},
		PeriodicTask{Task: segmenter, Interval: cfg.Pipeline.CalibrationInterval},
		PeriodicTask{Task: match, Interval: cfg.Pipeline.MatchInterval},
		PeriodicTask{Task: flusher, Interval: cfg.Pipeline.FlushInterval},
	), nil
}
