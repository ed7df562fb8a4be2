package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/JashanChopra/Summit/internal/database"
)

// ErrMissingColumn is returned when the header lacks a required column
var ErrMissingColumn = errors.New("missing required column")

// Row is one parsed analyzer output row. CO and CH4 are converted to ppb.
type Row struct {
	EpochMs          int64
	AlarmStatus      int
	InstrumentStatus int
	CavityPressure   float64
	CavityTemp       float64
	DasTemp          float64
	EtalonTemp       float64
	WarmboxTemp      float64
	MPVPosition      int
	OutletValve      float64
	CO               float64
	CO2Wet           float64
	CO2              float64
	CH4Wet           float64
	CH4              float64
	H2O              float64
}

// Datum converts the row to a measurement linked to a file
func (r Row) Datum(fileID uint) database.Datum {
	return database.Datum{
		EpochMs:          r.EpochMs,
		AlarmStatus:      r.AlarmStatus,
		InstrumentStatus: r.InstrumentStatus,
		CavityPressure:   r.CavityPressure,
		CavityTemp:       r.CavityTemp,
		DasTemp:          r.DasTemp,
		EtalonTemp:       r.EtalonTemp,
		WarmboxTemp:      r.WarmboxTemp,
		MPVPosition:      r.MPVPosition,
		OutletValve:      r.OutletValve,
		CO:               r.CO,
		CO2Wet:           r.CO2Wet,
		CO2:              r.CO2,
		CH4Wet:           r.CH4Wet,
		CH4:              r.CH4,
		H2O:              r.H2O,
		FileID:           fileID,
	}
}

// ParseStats counts what Parse saw. Bytes covers complete lines only;
// Pending is the length of an unterminated final line, which is left for a
// later read once the writer finishes it.
type ParseStats struct {
	Lines   int
	Rows    int
	Skipped int
	Bytes   int64
	Pending int
}

// ppm to ppb
const ppb = 1000

// columns maps each required source column to the field it fills
var columns = []struct {
	name string
	set  func(r *Row, v float64)
}{
	{"EPOCH_TIME", func(r *Row, v float64) { r.EpochMs = int64(math.Round(v * 1000)) }},
	{"ALARM_STATUS", func(r *Row, v float64) { r.AlarmStatus = int(math.Round(v)) }},
	{"INST_STATUS", func(r *Row, v float64) { r.InstrumentStatus = int(math.Round(v)) }},
	{"CavityPressure", func(r *Row, v float64) { r.CavityPressure = v }},
	{"CavityTemp", func(r *Row, v float64) { r.CavityTemp = v }},
	{"DasTemp", func(r *Row, v float64) { r.DasTemp = v }},
	{"EtalonTemp", func(r *Row, v float64) { r.EtalonTemp = v }},
	{"WarmBoxTemp", func(r *Row, v float64) { r.WarmboxTemp = v }},
	{"MPVPosition", func(r *Row, v float64) { r.MPVPosition = int(math.Round(v)) }},
	{"OutletValve", func(r *Row, v float64) { r.OutletValve = v }},
	{"CO_sync", func(r *Row, v float64) { r.CO = v * ppb }},
	{"CO2_sync", func(r *Row, v float64) { r.CO2Wet = v }},
	{"CO2_dry_sync", func(r *Row, v float64) { r.CO2 = v }},
	{"CH4_sync", func(r *Row, v float64) { r.CH4Wet = v * ppb }},
	{"CH4_dry_sync", func(r *Row, v float64) { r.CH4 = v * ppb }},
	{"H2O_sync", func(r *Row, v float64) { r.H2O = v }},
}

// Parse reads a whitespace-delimited analyzer file: one header line naming
// the columns, then one row per measurement. Extra columns are ignored.
// Rows with the wrong field count or an unparseable required value are
// skipped and counted. Only newline-terminated lines are read.
func Parse(r io.Reader) ([]Row, ParseStats, error) {
	var stats ParseStats
	br := bufio.NewReaderSize(r, 64*1024)

	next := func() ([]string, bool, error) {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			stats.Pending = len(line)
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		stats.Lines++
		stats.Bytes += int64(len(line))
		return strings.Fields(line), true, nil
	}

	var header []string
	for {
		fields, ok, err := next()
		if err != nil {
			return nil, stats, fmt.Errorf("read header: %w", err)
		}
		if !ok {
			return nil, stats, nil
		}
		if len(fields) > 0 {
			header = fields
			break
		}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	positions := make([]int, len(columns))
	for i, c := range columns {
		pos, ok := index[c.name]
		if !ok {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, c.name)
		}
		positions[i] = pos
	}

	var rows []Row
	for {
		fields, ok, err := next()
		if err != nil {
			return nil, stats, fmt.Errorf("read rows: %w", err)
		}
		if !ok {
			break
		}
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(header) {
			stats.Skipped++
			continue
		}

		row, ok := parseRow(fields, positions)
		if !ok {
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
	}

	stats.Rows = len(rows)
	return rows, stats, nil
}

func parseRow(fields []string, positions []int) (Row, bool) {
	var row Row
	for i, c := range columns {
		v, err := strconv.ParseFloat(fields[positions[i]], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Row{}, false
		}
		c.set(&row, v)
	}
	return row, true
}
