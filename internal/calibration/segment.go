// Package calibration turns standard-gas measurements into calibration
// events, matches them into master calibrations, fits response curves and
// flags ambient data still contaminated by standard gas.
package calibration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
	"github.com/JashanChopra/Summit/pkg/config"
)

// SegmentRuns splits time-ordered measurements into maximal runs. A new run
// starts whenever consecutive timestamps are more than gap apart.
func SegmentRuns(data []database.Datum, gap time.Duration) [][]database.Datum {
	if len(data) == 0 {
		return nil
	}

	gapMs := gap.Milliseconds()
	var runs [][]database.Datum
	start := 0
	for i := 1; i < len(data); i++ {
		if data[i].EpochMs-data[i-1].EpochMs > gapMs {
			runs = append(runs, data[start:i])
			start = i
		}
	}
	return append(runs, data[start:])
}

// BuildEvent summarizes a run of one standard. Runs shorter than the
// minimum duration are tagged as dumped and carry no results.
func BuildEvent(run []database.Datum, cat standards.Category, cfg config.CalibrationData) database.CalEvent {
	first, last := run[0], run[len(run)-1]
	ev := database.CalEvent{
		EpochMs:      last.EpochMs,
		StartEpochMs: first.EpochMs,
		StandardUsed: cat,
		Points:       len(run),
	}

	if ev.Duration() < cfg.MinDuration {
		ev.StandardUsed = standards.Dump
		return ev
	}

	for _, cpd := range standards.Compounds() {
		ev.SetResult(cpd, Quantify(run, cpd, ev.EpochMs, cfg.Window))
	}
	ev.BackPeriod = cfg.Window.Seconds()
	return ev
}

// Segmenter groups unassigned standard measurements into calibration events
type Segmenter struct {
	store  *database.Store
	cfg    config.CalibrationData
	logger *zap.SugaredLogger
}

// NewSegmenter creates a segmenter using the given thresholds
func NewSegmenter(store *database.Store, cfg config.CalibrationData, logger *zap.SugaredLogger) *Segmenter {
	return &Segmenter{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Name implements the pipeline task interface
func (s *Segmenter) Name() string {
	return "calibrate"
}

// Run creates events from every closed run of each standard. The newest
// run of a standard stays pending until the store holds data more than
// one gap past its end, since it may still be growing. Each event is
// committed on its own.
func (s *Segmenter) Run(ctx context.Context) error {
	latest, ok, err := s.store.LatestEpoch(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	gapMs := s.cfg.GapThreshold.Milliseconds()
	for _, cat := range standards.Standards() {
		data, err := s.store.UnassignedData(ctx, cat.Valve())
		if err != nil {
			return err
		}

		runs := SegmentRuns(data, s.cfg.GapThreshold)
		if n := len(runs); n > 0 {
			tail := runs[n-1]
			if latest <= tail[len(tail)-1].EpochMs+gapMs {
				runs = runs[:n-1]
			}
		}
		if len(runs) == 0 {
			s.logger.Debugf("no new calibration events found for standard %s", cat)
			continue
		}

		for _, run := range runs {
			ev := BuildEvent(run, cat, s.cfg)
			ids := make([]uint, len(run))
			for i, d := range run {
				ids[i] = d.ID
			}

			err := s.store.Transaction(ctx, func(tx *database.Store) error {
				return tx.CreateCalEvent(ctx, &ev, ids)
			})
			if err != nil {
				return fmt.Errorf("commit %s event ending %s: %w", cat, ev.Time().Format(timeFormat), err)
			}

			if ev.StandardUsed == standards.Dump {
				s.logger.Infof("calevent for %s lasted %s, under the %s minimum, and was dumped",
					ev.Time().Format(timeFormat), ev.Duration(), s.cfg.MinDuration)
				continue
			}
			s.logger.Infof("calevent for %s added (%s)", ev.Time().Format(timeFormat), cat)
			s.logQuantification(ev)
		}
	}
	return nil
}

const timeFormat = "2006-01-02 15:04:05"

func (s *Segmenter) logQuantification(ev database.CalEvent) {
	if !s.logger.Desugar().Core().Enabled(zap.DebugLevel) {
		return
	}

	s.logger.Debugf("calevent for %s, of duration %s quantified:", ev.Time().Format(timeFormat), ev.Duration())
	s.logger.Debug("result sets below (mean, median, stdev)")
	for _, pick := range []func(database.Result) *float64{
		func(r database.Result) *float64 { return r.Mean },
		func(r database.Result) *float64 { return r.Median },
		func(r database.Result) *float64 { return r.Stdev },
	} {
		parts := make([]string, 0, len(standards.Compounds()))
		for _, cpd := range standards.Compounds() {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(string(cpd)), formatOptional(pick(ev.Result(cpd)))))
		}
		s.logger.Debug(strings.Join(parts, ", "))
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}
