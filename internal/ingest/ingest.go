// Package ingest loads analyzer output files into the store.
package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/tracker"
)

// Ingestor parses queued files and stores their measurements
type Ingestor struct {
	store   *database.Store
	tracker *tracker.Tracker
	logger  *zap.SugaredLogger
}

// New creates an ingestor fed by the given tracker
func New(store *database.Store, tr *tracker.Tracker, logger *zap.SugaredLogger) *Ingestor {
	return &Ingestor{
		store:   store,
		tracker: tr,
		logger:  logger,
	}
}

// Name implements the pipeline task interface
func (in *Ingestor) Name() string {
	return "ingest"
}

// Run checks for new or grown files and ingests each one. A file that
// fails is logged and left unprocessed for the next cycle.
func (in *Ingestor) Run(ctx context.Context) error {
	queue, err := in.tracker.Check(ctx)
	if err != nil {
		return err
	}

	for _, file := range queue {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := in.IngestFile(ctx, file); err != nil {
			in.logger.Errorf("error ingesting file %s: %v", file.Path, err)
		}
	}
	return nil
}

// IngestFile stores every measurement in the file whose timestamp is not
// already present, then marks the file processed with the size of its
// complete lines. An unfinished last line is not stored; the file then
// reads as grown on the next check and the line is picked up once it is
// complete. The whole file commits or none of it does. It returns the
// number of measurements inserted.
func (in *Ingestor) IngestFile(ctx context.Context, file database.DataFile) (int64, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f.Close()

	rows, stats, err := Parse(f)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", file.Path, err)
	}
	if stats.Skipped > 0 {
		in.logger.Warnf("skipped %d malformed rows in %s", stats.Skipped, file.Name)
	}
	if stats.Pending > 0 {
		in.logger.Debugf("holding back %d bytes of an unfinished row in %s", stats.Pending, file.Name)
	}

	var inserted int64
	err = in.store.Transaction(ctx, func(tx *database.Store) error {
		data, err := in.newData(ctx, tx, file.ID, rows)
		if err != nil {
			return err
		}

		inserted, err = tx.InsertData(ctx, data)
		if err != nil {
			return err
		}

		file.Processed = true
		file.Size = stats.Bytes
		return tx.SaveFile(ctx, &file)
	})
	if err != nil {
		return 0, err
	}

	in.logger.Infof("all data in file %s processed: %d new of %d rows (%s)",
		file.Name, inserted, stats.Rows, humanize.Bytes(uint64(stats.Bytes)))
	return inserted, nil
}

// newData drops rows whose timestamp is already stored or repeated earlier in the file
func (in *Ingestor) newData(ctx context.Context, tx *database.Store, fileID uint, rows []Row) ([]database.Datum, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	lo, hi := rows[0].EpochMs, rows[0].EpochMs
	for _, r := range rows[1:] {
		lo = min(lo, r.EpochMs)
		hi = max(hi, r.EpochMs)
	}

	seen, err := tx.ExistingEpochs(ctx, lo, hi)
	if err != nil {
		return nil, err
	}

	data := make([]database.Datum, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.EpochMs]; dup {
			continue
		}
		seen[r.EpochMs] = struct{}{}
		data = append(data, r.Datum(fileID))
	}
	return data, nil
}
