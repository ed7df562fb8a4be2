package calibration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
)

// NearestWithin returns the index of the pool event whose end time is
// closest to targetMs, provided the difference is at most tol. Equal
// distances go to the earlier event, then to the lower id.
func NearestWithin(targetMs int64, pool []database.CalEvent, tol time.Duration) (int, bool) {
	best := -1
	var bestDiff int64
	for i, ev := range pool {
		diff := ev.EpochMs - targetMs
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff || (diff == bestDiff && earlier(ev, pool[best])) {
			best, bestDiff = i, diff
		}
	}
	if best < 0 || bestDiff > tol.Milliseconds() {
		return -1, false
	}
	return best, true
}

func earlier(a, b database.CalEvent) bool {
	if a.EpochMs != b.EpochMs {
		return a.EpochMs < b.EpochMs
	}
	return a.ID < b.ID
}

// Matcher pairs pending low, high and mid events into master calibrations
type Matcher struct {
	store     *database.Store
	tolerance time.Duration
	logger    *zap.SugaredLogger
}

// NewMatcher creates a matcher accepting partners up to tolerance apart
func NewMatcher(store *database.Store, tolerance time.Duration, logger *zap.SugaredLogger) *Matcher {
	return &Matcher{
		store:     store,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Name implements the pipeline task interface
func (m *Matcher) Name() string {
	return "match"
}

// Run matches each pending low event to its nearest high event, and that
// high event to its nearest mid event. Every complete triple is committed
// as a master calibration and its events leave the pools. Events without
// results are never matched.
func (m *Matcher) Run(ctx context.Context) error {
	pools := make(map[standards.Category][]database.CalEvent, 3)
	for _, cat := range standards.Standards() {
		events, err := m.store.PendingCalEvents(ctx, cat)
		if err != nil {
			return err
		}
		usable := events[:0]
		for _, ev := range events {
			if ev.HasResults() {
				usable = append(usable, ev)
			}
		}
		pools[cat] = usable
	}

	created := 0
	for _, low := range pools[standards.LowStd] {
		hi, ok := NearestWithin(low.EpochMs, pools[standards.HighStd], m.tolerance)
		if !ok {
			continue
		}
		high := pools[standards.HighStd][hi]

		mi, ok := NearestWithin(high.EpochMs, pools[standards.MidStd], m.tolerance)
		if !ok {
			continue
		}
		mid := pools[standards.MidStd][mi]

		mc := database.MasterCal{
			EpochMs:   low.EpochMs,
			LowCalID:  low.ID,
			HighCalID: high.ID,
			MidCalID:  mid.ID,
		}
		err := m.store.Transaction(ctx, func(tx *database.Store) error {
			return tx.CreateMasterCal(ctx, &mc)
		})
		if err != nil {
			return fmt.Errorf("commit master calibration for %s: %w", low.Time().Format(timeFormat), err)
		}

		pools[standards.HighStd] = remove(pools[standards.HighStd], hi)
		pools[standards.MidStd] = remove(pools[standards.MidStd], mi)
		created++
		m.logger.Infof("mastercal for %s created", low.Time().Format(timeFormat))
	}

	if created == 0 {
		m.logger.Debug("no mastercals were created")
	}
	return nil
}

func remove(pool []database.CalEvent, i int) []database.CalEvent {
	return append(pool[:i:i], pool[i+1:]...)
}
