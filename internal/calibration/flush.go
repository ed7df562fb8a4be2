package calibration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/database"
)

// Flusher flags ambient measurements taken while standard gas was still
// being flushed from the sample line
type Flusher struct {
	store  *database.Store
	window time.Duration
	logger *zap.SugaredLogger
}

// NewFlusher creates a flusher covering window after each event
func NewFlusher(store *database.Store, window time.Duration, logger *zap.SugaredLogger) *Flusher {
	return &Flusher{
		store:  store,
		window: window,
		logger: logger,
	}
}

// Name implements the pipeline task interface
func (f *Flusher) Name() string {
	return "flush"
}

// Run flags ambient data in (end, end+window] for every unflushed event
// and marks the event flushed. An event is only handled once the store
// holds data past its window, so late rows inside it are not missed.
func (f *Flusher) Run(ctx context.Context) error {
	latest, ok, err := f.store.LatestEpoch(ctx)
	if err != nil || !ok {
		return err
	}

	events, err := f.store.UnflushedCalEvents(ctx)
	if err != nil {
		return err
	}

	for _, ev := range events {
		until := ev.EpochMs + f.window.Milliseconds()
		if latest <= until {
			continue
		}

		var flagged int64
		err := f.store.Transaction(ctx, func(tx *database.Store) error {
			n, err := tx.FlagFlushData(ctx, ev.EpochMs, until)
			if err != nil {
				return err
			}
			flagged = n
			return tx.MarkFlushed(ctx, ev.ID)
		})
		if err != nil {
			return err
		}
		if flagged > 0 {
			f.logger.Infof("flagged %d ambient measurements after %s event ending %s",
				flagged, ev.StandardUsed, ev.Time().Format(timeFormat))
		}
	}
	return nil
}
