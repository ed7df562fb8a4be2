package restserver

import (
	"github.com/JashanChopra/Summit/internal/database"
)

// StatusResponse summarizes the pipeline state
type StatusResponse struct {
	Version string          `json:"version"`
	Counts  database.Counts `json:"counts"`
}

// FileResponse describes a registered data file
type FileResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Processed bool   `json:"processed"`
}

// ResultResponse holds one compound's statistics. Missing values are null.
type ResultResponse struct {
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Stdev  *float64 `json:"stdev"`
}

// CalEventResponse represents a calibration event for JSON output
type CalEventResponse struct {
	ID           uint                      `json:"id"`
	Timestamp    int64                     `json:"ts"`
	StartTime    int64                     `json:"start_ts"`
	StandardUsed string                    `json:"standard_used"`
	Points       int                       `json:"points"`
	BackPeriod   float64                   `json:"back_period"`
	Results      map[string]ResultResponse `json:"results"`
	MasterCalID  *uint                     `json:"mastercal_id"`
	Flushed      bool                      `json:"flushed"`
}

// DatumResponse is one measurement. CO and CH4 are in ppb, CO2 in ppm.
type DatumResponse struct {
	Timestamp        int64   `json:"ts"`
	InstrumentStatus int     `json:"instrument_status"`
	MPVPosition      int     `json:"mpv_position"`
	CO               float64 `json:"co"`
	CO2              float64 `json:"co2"`
	CH4              float64 `json:"ch4"`
	H2O              float64 `json:"h2o"`
}

// CurveResponse holds one compound's fitted curve. Missing values are null.
type CurveResponse struct {
	Slope        *float64 `json:"slope"`
	Intercept    *float64 `json:"intercept"`
	MiddleOffset *float64 `json:"middle_offset"`
}

// MasterCalResponse represents a master calibration for JSON output
type MasterCalResponse struct {
	ID        uint                     `json:"id"`
	Timestamp int64                    `json:"ts"`
	LowCalID  uint                     `json:"low_cal_id"`
	HighCalID uint                     `json:"high_cal_id"`
	MidCalID  uint                     `json:"mid_cal_id"`
	Fitted    bool                     `json:"fitted"`
	Curves    map[string]CurveResponse `json:"curves"`
}
