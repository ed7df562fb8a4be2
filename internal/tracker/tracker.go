// Package tracker discovers analyzer output files and decides which of them
// need (re)ingestion.
package tracker

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/database"
)

// Found is a file discovered on disk
type Found struct {
	Name string
	Path string
	Size int64
}

// Scan walks root recursively and returns every regular file whose base
// name matches pattern, sorted by name and then by path
func Scan(root, pattern string) ([]Found, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}

	var found []Found
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found = append(found, Found{Name: d.Name(), Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Name != found[j].Name {
			return found[i].Name < found[j].Name
		}
		return found[i].Path < found[j].Path
	})
	return found, nil
}

// Tracker compares files on disk against the registered file records
type Tracker struct {
	store   *database.Store
	root    string
	pattern string
	logger  *zap.SugaredLogger
}

// New creates a tracker over root for files matching pattern
func New(store *database.Store, root, pattern string, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		store:   store,
		root:    root,
		pattern: pattern,
		logger:  logger,
	}
}

// Check returns the files that need ingestion: previously registered files
// that were never processed, newly discovered files, and files that grew
// since they were last queued. New registrations and size updates are
// committed before Check returns.
func (t *Tracker) Check(ctx context.Context) ([]database.DataFile, error) {
	found, err := Scan(t.root, t.pattern)
	if err != nil {
		return nil, err
	}

	var queue []database.DataFile
	err = t.store.Transaction(ctx, func(tx *database.Store) error {
		pending, err := tx.UnprocessedFiles(ctx)
		if err != nil {
			return err
		}
		queued := make(map[uint]bool, len(pending))
		for _, f := range pending {
			queued[f.ID] = true
		}
		queue = append(queue, pending...)

		for _, f := range found {
			matches, err := tx.FilesByName(ctx, f.Name)
			if err != nil {
				return err
			}

			if len(matches) == 0 {
				rec := database.DataFile{Name: f.Name, Path: f.Path, Size: f.Size}
				if err := tx.RegisterFile(ctx, &rec); err != nil {
					return err
				}
				t.logger.Infof("file %s (%s) added for processing", f.Name, humanize.Bytes(uint64(f.Size)))
				queue = append(queue, rec)
				continue
			}

			if len(matches) > 1 {
				t.logger.Warnf("multiple records found for file %s; the first was used", f.Name)
			}
			rec := matches[0]

			switch {
			case f.Size > rec.Size:
				growth := f.Size - rec.Size
				rec.Size = f.Size
				rec.Processed = false
				if err := tx.SaveFile(ctx, &rec); err != nil {
					return err
				}
				t.logger.Infof("file %s had %s more data and was added for processing", f.Name, humanize.Bytes(uint64(growth)))
				if !queued[rec.ID] {
					queued[rec.ID] = true
					queue = append(queue, rec)
				} else {
					replaceQueued(queue, rec)
				}
			case f.Size < rec.Size:
				t.logger.Warnf("file %s shrank from %s to %s; it will not be reprocessed",
					f.Name, humanize.Bytes(uint64(rec.Size)), humanize.Bytes(uint64(f.Size)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check files: %w", err)
	}

	if len(queue) == 0 {
		t.logger.Debug("no new data was found")
	}
	return queue, nil
}

func replaceQueued(queue []database.DataFile, rec database.DataFile) {
	for i := range queue {
		if queue[i].ID == rec.ID {
			queue[i] = rec
			return
		}
	}
}
