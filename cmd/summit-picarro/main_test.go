package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
	"github.com/JashanChopra/Summit/internal/testsupport"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "summit-picarro ") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable("Files", []string{"Name", "Size"}, [][]string{{"a.dat", "1.2 kB"}, {"b.dat"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Files", "NAME", "a.dat", "1.2 kB", "b.dat"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<nil>") {
		t.Errorf("short rows should render blank cells:\n%s", got)
	}
	if renderTable("", nil, nil, nil) != "" {
		t.Error("expected empty render without headers")
	}
}

func TestWriteStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	testsupport.SeedData(t, store, testsupport.Run(1, 1_559_390_400_000, 1200, 100, 410, 1900))

	ev := database.CalEvent{EpochMs: 1_559_390_400_000, StartEpochMs: 1_559_390_280_000, StandardUsed: standards.LowStd}
	mean := 69.812
	ev.SetResult(standards.CO, database.Result{Mean: &mean})
	if err := store.CreateCalEvent(ctx, &ev, nil); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := writeStatus(ctx, &out, store, 5); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}
	for _, want := range []string{"1,200", "seed.dat", "low_std", "69.812", "2m0s", "2019-06-01 12:00:00"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}
}

func TestProcessCommandWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	testsupport.WriteDataFile(t, filepath.Join(dataDir, "a.dat"), []testsupport.Line{
		{Epoch: 1000, Valve: 1, CO: 0.1, CO2: 410, CH4: 1.9},
	})

	cfgPath := filepath.Join(dir, "config.yaml")
	contents := "data-dir: " + dataDir + "\nstorage:\n  sqlite:\n    path: " + filepath.Join(dir, "store.sqlite") + "\n"
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", cfgPath, "process"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("process: %v", err)
	}

	var out bytes.Buffer
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "status"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "a.dat") {
		t.Fatalf("status should list the ingested file:\n%s", out.String())
	}
}
