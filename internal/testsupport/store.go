package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
	"github.com/JashanChopra/Summit/pkg/config"
)

// MustOpenStore opens a SQLite-backed store in a temp directory and registers cleanup.
func MustOpenStore(t testing.TB) *database.Store {
	t.Helper()

	sc := config.StorageData{
		SQLite: &config.SQLiteData{Path: filepath.Join(t.TempDir(), "test.sqlite")},
	}
	store, err := database.Open(context.Background(), sc, Logger(t))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedData registers a placeholder file and inserts the given measurements
// linked to it. Measurements are returned with their assigned ids.
func SeedData(t testing.TB, store *database.Store, data []database.Datum) []database.Datum {
	t.Helper()

	ctx := context.Background()
	file := &database.DataFile{
		Name:      "seed.dat",
		Path:      filepath.Join(t.TempDir(), "seed.dat"),
		Processed: true,
	}
	if err := store.RegisterFile(ctx, file); err != nil {
		t.Fatalf("store.RegisterFile: %v", err)
	}
	for i := range data {
		data[i].FileID = file.ID
		if data[i].InstrumentStatus == 0 {
			data[i].InstrumentStatus = standards.StatusGood
		}
	}
	if _, err := store.InsertData(ctx, data); err != nil {
		t.Fatalf("store.InsertData: %v", err)
	}
	return data
}

// Run builds one-second measurements at a valve position, starting at
// startMs, with constant concentrations.
func Run(valve int, startMs int64, count int, co, co2, ch4 float64) []database.Datum {
	data := make([]database.Datum, count)
	for i := range data {
		data[i] = database.Datum{
			EpochMs:     startMs + int64(i)*1000,
			MPVPosition: valve,
			CO:          co,
			CO2:         co2,
			CH4:         ch4,
		}
	}
	return data
}
