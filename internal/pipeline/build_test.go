package pipeline_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/JashanChopra/Summit/internal/pipeline"
	"github.com/JashanChopra/Summit/internal/standards"
	"github.com/JashanChopra/Summit/internal/testsupport"
	"github.com/JashanChopra/Summit/pkg/config"
)

func span(valve float64, start float64, secs int, co, co2, ch4 float64) []testsupport.Line {
	out := make([]testsupport.Line, 0, secs+1)
	for i := 0; i <= secs; i++ {
		out = append(out, testsupport.Line{Epoch: start + float64(i), Valve: valve, CO: co, CO2: co2, CH4: ch4})
	}
	return out
}

func TestPipelineEndToEnd(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	const t0 = 1_559_390_400.0
	var lines []testsupport.Line
	lines = append(lines, span(2, t0, 120, 0.0698, 390.24, 1.8385)...)
	lines = append(lines, span(3, t0+180, 120, 0.1744, 428.53, 2.0506)...)
	lines = append(lines, span(4, t0+360, 120, 0.1180, 408.65, 1.9255)...)
	lines = append(lines, span(1, t0+481, 219, 0.1000, 410.00, 1.9000)...)
	testsupport.WriteDataFile(t, filepath.Join(cfg.DataDir, "2019", "20190601.dat"), lines)

	s, err := pipeline.Build(store, cfg, testsupport.Logger(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Tasks()) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(s.Tasks()))
	}

	if err := s.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Data != int64(len(lines)) || counts.PendingFiles != 0 {
		t.Fatalf("unexpected ingest counts %+v", counts)
	}
	if counts.CalEvents != 3 || counts.DumpedEvents != 0 || counts.PendingEvents != 0 {
		t.Fatalf("unexpected event counts %+v", counts)
	}
	// ambient rows in (mid end, mid end + 60s]
	if counts.FlushedData != 60 {
		t.Fatalf("flushed data = %d, want 60", counts.FlushedData)
	}

	mcs, err := store.ListMasterCals(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mcs) != 1 || !mcs[0].Fitted {
		t.Fatalf("expected one fitted master calibration, got %+v", mcs)
	}
	co := mcs[0].Curve(standards.CO)
	want := (174.4 - 69.8) / (174.6 - 69.6)
	if co.Slope == nil || math.Abs(*co.Slope-want) > 1e-6 {
		t.Fatalf("co slope = %v, want %v", co.Slope, want)
	}

	// a second pass finds nothing new
	if err := s.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	again, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again != counts {
		t.Fatalf("second pass changed state: %+v -> %+v", counts, again)
	}
}
