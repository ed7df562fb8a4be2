package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/ingest"
	"github.com/JashanChopra/Summit/internal/testsupport"
	"github.com/JashanChopra/Summit/internal/tracker"
)

func lines(start float64, n int) []testsupport.Line {
	out := make([]testsupport.Line, n)
	for i := range out {
		out[i] = testsupport.Line{Epoch: start + float64(i), Valve: 1, CO: 0.12, CO2: 411.2, CH4: 1.95}
	}
	return out
}

func newIngestor(t *testing.T, root string) (*ingest.Ingestor, *database.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t)
	logger := testsupport.Logger(t)
	return ingest.New(store, tracker.New(store, root, "*.dat", logger), logger), store
}

func TestRunIngestsAndMarksProcessed(t *testing.T) {
	root := t.TempDir()
	in, store := newIngestor(t, root)
	ctx := context.Background()

	path := filepath.Join(root, "day1.dat")
	testsupport.WriteDataFile(t, path, lines(1_559_390_400, 10))

	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Data != 10 || counts.Files != 1 || counts.PendingFiles != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	files, err := store.ListFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !files[0].Processed || files[0].Size != info.Size() {
		t.Fatalf("file record not updated: %+v (size on disk %d)", files[0], info.Size())
	}

	data, err := store.UnassignedData(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if data[0].FileID != files[0].ID {
		t.Fatalf("datum linked to file %d, want %d", data[0].FileID, files[0].ID)
	}
	if data[0].CO < 119.99 || data[0].CO > 120.01 {
		t.Fatalf("co = %v, want 120 ppb", data[0].CO)
	}
}

func TestRunIngestsOnlyAppendedRows(t *testing.T) {
	root := t.TempDir()
	in, store := newIngestor(t, root)
	ctx := context.Background()

	path := filepath.Join(root, "day1.dat")
	testsupport.WriteDataFile(t, path, lines(1000, 5))
	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	testsupport.AppendLines(t, path, lines(1005, 3))
	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Data != 8 {
		t.Fatalf("data = %d, want 8", counts.Data)
	}
}

func TestIngestFileSkipsDuplicateTimestamps(t *testing.T) {
	root := t.TempDir()
	in, store := newIngestor(t, root)
	ctx := context.Background()

	first := filepath.Join(root, "a.dat")
	testsupport.WriteDataFile(t, first, lines(1000, 5))
	second := filepath.Join(root, "b.dat")
	// overlaps a.dat by three timestamps and repeats one internally
	testsupport.WriteDataFile(t, second, append(lines(1002, 5), lines(1006, 1)...))

	for _, p := range []string{first, second} {
		rec := &database.DataFile{Name: filepath.Base(p), Path: p}
		if err := store.RegisterFile(ctx, rec); err != nil {
			t.Fatal(err)
		}
		if _, err := in.IngestFile(ctx, *rec); err != nil {
			t.Fatalf("IngestFile %s: %v", p, err)
		}
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Data != 7 {
		t.Fatalf("data = %d, want 7 unique timestamps", counts.Data)
	}
}

func TestRunContinuesPastFailingFile(t *testing.T) {
	root := t.TempDir()
	in, store := newIngestor(t, root)
	ctx := context.Background()

	missing := &database.DataFile{Name: "gone.dat", Path: filepath.Join(root, "gone.dat")}
	if err := store.RegisterFile(ctx, missing); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteDataFile(t, filepath.Join(root, "ok.dat"), lines(1000, 4))

	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pending, err := store.UnprocessedFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != missing.ID {
		t.Fatalf("expected only the failing file left unprocessed, got %+v", pending)
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Data != 4 {
		t.Fatalf("data = %d, want 4", counts.Data)
	}
}

func TestRunHoldsBackUnfinishedRow(t *testing.T) {
	root := t.TempDir()
	in, store := newIngestor(t, root)
	ctx := context.Background()

	path := filepath.Join(root, "day1.dat")
	rows := lines(1_559_390_400, 2)
	testsupport.WriteDataFile(t, path, rows[:1])
	complete, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// the writer stopped inside the last column: "0.45" reads as "0.4"
	second := testsupport.FormatLine(rows[1])
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(second[:len(second)-1]); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	files, err := store.ListFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if files[0].Size != complete.Size() {
		t.Fatalf("size = %d, want %d (complete lines only)", files[0].Size, complete.Size())
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Data != 1 {
		t.Fatalf("data = %d, want the unfinished row held back", counts.Data)
	}

	f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(second[len(second)-1:] + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := store.UnassignedData(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 {
		t.Fatalf("expected 2 rows after the line was finished, got %d", len(data))
	}
	for _, d := range data {
		if d.H2O != 0.45 {
			t.Fatalf("epoch %d: h2o = %v, want 0.45", d.EpochMs, d.H2O)
		}
	}
}
