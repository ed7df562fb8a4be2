package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DataHeader is the column layout of an analyzer output file.
var DataHeader = []string{
	"DATE", "TIME", "EPOCH_TIME", "ALARM_STATUS", "INST_STATUS",
	"CavityPressure", "CavityTemp", "DasTemp", "EtalonTemp", "WarmBoxTemp",
	"MPVPosition", "OutletValve",
	"CO_sync", "CO2_sync", "CO2_dry_sync", "CH4_sync", "CH4_dry_sync", "H2O_sync",
}

// Line is one analyzer output row in file-native units: CO and CH4 in ppm.
type Line struct {
	Epoch float64
	Valve float64
	CO    float64
	CO2   float64
	CH4   float64
}

// FormatLine renders a row in the column order of DataHeader.
func FormatLine(l Line) string {
	return fmt.Sprintf("2019-06-01 00:00:00.000 %.3f 0 963 140.0 45.0 33.1 45.2 45.0 %.0f 32000 %.6f %.4f %.4f %.6f %.6f 0.45",
		l.Epoch, l.Valve, l.CO, l.CO2+1.5, l.CO2, l.CH4+0.01, l.CH4)
}

// WriteDataFile writes a header and the given rows to path, creating parent directories.
func WriteDataFile(t testing.TB, path string, lines []Line) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(DataHeader, "  "))
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString(FormatLine(l))
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AppendLines appends rows to an existing data file.
func AppendLines(t testing.TB, path string, lines []Line) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := fmt.Fprintln(f, FormatLine(l)); err != nil {
			t.Fatalf("append %s: %v", path, err)
		}
	}
}
