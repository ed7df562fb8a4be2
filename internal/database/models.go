package database

import (
	"time"

	"gorm.io/datatypes"

	"github.com/JashanChopra/Summit/internal/standards"
)

// DataFile is an analyzer output file discovered under the data root.
// Size is the byte size observed when the file was last queued for ingestion.
type DataFile struct {
	ID        uint   `gorm:"primaryKey;column:id" json:"id"`
	Name      string `gorm:"column:name;not null;index" json:"name"`
	Path      string `gorm:"column:path;not null;uniqueIndex" json:"path"`
	Size      int64  `gorm:"column:size;not null" json:"size"`
	Processed bool   `gorm:"column:processed;not null" json:"processed"`
}

// TableName specifies the table name for DataFile
func (DataFile) TableName() string {
	return "files"
}

// Datum is one timestamped row of analyzer output.
// CO and CH4 are in ppb; CO2 is in ppm. CO2 and CH4 are the dry values,
// CO2Wet and CH4Wet the uncorrected ones.
type Datum struct {
	ID               uint    `gorm:"primaryKey;column:id" json:"id"`
	EpochMs          int64   `gorm:"column:epoch_ms;not null;uniqueIndex" json:"ts"`
	AlarmStatus      int     `gorm:"column:alarm_status" json:"alarm_status"`
	InstrumentStatus int     `gorm:"column:instrument_status" json:"instrument_status"`
	CavityPressure   float64 `gorm:"column:cavity_pressure" json:"cavity_pressure"`
	CavityTemp       float64 `gorm:"column:cavity_temp" json:"cavity_temp"`
	DasTemp          float64 `gorm:"column:das_temp" json:"das_temp"`
	EtalonTemp       float64 `gorm:"column:etalon_temp" json:"etalon_temp"`
	WarmboxTemp      float64 `gorm:"column:warmbox_temp" json:"warmbox_temp"`
	MPVPosition      int     `gorm:"column:mpv_position;not null;index" json:"mpv_position"`
	OutletValve      float64 `gorm:"column:outlet_valve" json:"outlet_valve"`
	CO               float64 `gorm:"column:co" json:"co"`
	CO2Wet           float64 `gorm:"column:co2_wet" json:"co2_wet"`
	CO2              float64 `gorm:"column:co2" json:"co2"`
	CH4Wet           float64 `gorm:"column:ch4_wet" json:"ch4_wet"`
	CH4              float64 `gorm:"column:ch4" json:"ch4"`
	H2O              float64 `gorm:"column:h2o" json:"h2o"`

	FileID uint  `gorm:"column:file_id;not null;index" json:"file_id"`
	CalID  *uint `gorm:"column:cal_id;index" json:"cal_id,omitempty"`

	File *DataFile `gorm:"foreignKey:FileID;constraint:OnDelete:RESTRICT" json:"-"`
	Cal  *CalEvent `gorm:"foreignKey:CalID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the table name for Datum
func (Datum) TableName() string {
	return "data"
}

// Time returns the measurement timestamp in UTC
func (d Datum) Time() time.Time {
	return time.UnixMilli(d.EpochMs).UTC()
}

// Concentration returns the stored concentration for a compound
func (d Datum) Concentration(cpd standards.Compound) (float64, bool) {
	switch cpd {
	case standards.CO:
		return d.CO, true
	case standards.CO2:
		return d.CO2, true
	case standards.CH4:
		return d.CH4, true
	}
	return 0, false
}

// Result holds trailing-window statistics for one compound. A nil field
// means the statistic could not be computed, which is distinct from zero.
type Result struct {
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Stdev  *float64 `json:"stdev"`
}

// Complete reports whether the mean, the value used for curve fitting, is set
func (r Result) Complete() bool {
	return r.Mean != nil
}

// CalEvent is a contiguous run of measurements of a single standard.
// EpochMs is the time of the last member measurement.
type CalEvent struct {
	ID           uint               `gorm:"primaryKey;column:id" json:"id"`
	EpochMs      int64              `gorm:"column:epoch_ms;not null;index" json:"ts"`
	StartEpochMs int64              `gorm:"column:start_epoch_ms;not null" json:"start_ts"`
	StandardUsed standards.Category `gorm:"column:standard_used;type:varchar(16);not null;index" json:"standard_used"`
	Points       int                `gorm:"column:points;not null" json:"points"`

	COResult  datatypes.JSONType[Result] `gorm:"column:co_result" json:"co_result"`
	CO2Result datatypes.JSONType[Result] `gorm:"column:co2_result" json:"co2_result"`
	CH4Result datatypes.JSONType[Result] `gorm:"column:ch4_result" json:"ch4_result"`

	// BackPeriod is the trailing window, in seconds, the results were computed over
	BackPeriod float64 `gorm:"column:back_period" json:"back_period"`

	MasterCalID *uint `gorm:"column:mastercal_id;index" json:"mastercal_id,omitempty"`
	Flushed     bool  `gorm:"column:flushed;not null;index" json:"flushed"`
}

// TableName specifies the table name for CalEvent
func (CalEvent) TableName() string {
	return "cals"
}

// Time returns the end time of the event
func (e CalEvent) Time() time.Time {
	return time.UnixMilli(e.EpochMs).UTC()
}

// Duration returns the span between the first and last member measurement
func (e CalEvent) Duration() time.Duration {
	return time.Duration(e.EpochMs-e.StartEpochMs) * time.Millisecond
}

// Result returns the stored result for a compound
func (e CalEvent) Result(cpd standards.Compound) Result {
	switch cpd {
	case standards.CO:
		return e.COResult.Data()
	case standards.CO2:
		return e.CO2Result.Data()
	case standards.CH4:
		return e.CH4Result.Data()
	}
	return Result{}
}

// SetResult stores the result for a compound
func (e *CalEvent) SetResult(cpd standards.Compound, r Result) {
	switch cpd {
	case standards.CO:
		e.COResult = datatypes.NewJSONType(r)
	case standards.CO2:
		e.CO2Result = datatypes.NewJSONType(r)
	case standards.CH4:
		e.CH4Result = datatypes.NewJSONType(r)
	}
}

// HasResults reports whether every compound has a mean
func (e CalEvent) HasResults() bool {
	for _, cpd := range standards.Compounds() {
		if !e.Result(cpd).Complete() {
			return false
		}
	}
	return true
}

// CurveFit is the two-point response curve for one compound plus the
// mid-standard offset from it. Nil fields mean the fit failed.
type CurveFit struct {
	Slope        *float64 `json:"slope"`
	Intercept    *float64 `json:"intercept"`
	MiddleOffset *float64 `json:"middle_offset"`
}

// MasterCal is a matched low/high/mid triple of calibration events.
// EpochMs is the end time of the low standard event. The event side of the
// link, CalEvent.MasterCalID, carries no constraint since the two tables
// would reference each other.
type MasterCal struct {
	ID        uint  `gorm:"primaryKey;column:id" json:"id"`
	EpochMs   int64 `gorm:"column:epoch_ms;not null;index" json:"ts"`
	LowCalID  uint  `gorm:"column:low_cal_id;not null;uniqueIndex" json:"low_cal_id"`
	HighCalID uint  `gorm:"column:high_cal_id;not null;uniqueIndex" json:"high_cal_id"`
	MidCalID  uint  `gorm:"column:mid_cal_id;not null;uniqueIndex" json:"mid_cal_id"`

	LowCal  *CalEvent `gorm:"foreignKey:LowCalID;constraint:OnDelete:RESTRICT" json:"-"`
	HighCal *CalEvent `gorm:"foreignKey:HighCalID;constraint:OnDelete:RESTRICT" json:"-"`
	MidCal  *CalEvent `gorm:"foreignKey:MidCalID;constraint:OnDelete:RESTRICT" json:"-"`

	COSlope         *float64 `gorm:"column:co_slope" json:"co_slope"`
	COIntercept     *float64 `gorm:"column:co_intercept" json:"co_intercept"`
	COMiddleOffset  *float64 `gorm:"column:co_middle_offset" json:"co_middle_offset"`
	CO2Slope        *float64 `gorm:"column:co2_slope" json:"co2_slope"`
	CO2Intercept    *float64 `gorm:"column:co2_intercept" json:"co2_intercept"`
	CO2MiddleOffset *float64 `gorm:"column:co2_middle_offset" json:"co2_middle_offset"`
	CH4Slope        *float64 `gorm:"column:ch4_slope" json:"ch4_slope"`
	CH4Intercept    *float64 `gorm:"column:ch4_intercept" json:"ch4_intercept"`
	CH4MiddleOffset *float64 `gorm:"column:ch4_middle_offset" json:"ch4_middle_offset"`

	Fitted bool `gorm:"column:fitted;not null;index" json:"fitted"`
}

// TableName specifies the table name for MasterCal
func (MasterCal) TableName() string {
	return "mastercals"
}

// Time returns the end time of the low standard event
func (m MasterCal) Time() time.Time {
	return time.UnixMilli(m.EpochMs).UTC()
}

// Curve returns the stored curve for a compound
func (m MasterCal) Curve(cpd standards.Compound) CurveFit {
	switch cpd {
	case standards.CO:
		return CurveFit{m.COSlope, m.COIntercept, m.COMiddleOffset}
	case standards.CO2:
		return CurveFit{m.CO2Slope, m.CO2Intercept, m.CO2MiddleOffset}
	case standards.CH4:
		return CurveFit{m.CH4Slope, m.CH4Intercept, m.CH4MiddleOffset}
	}
	return CurveFit{}
}

// SetCurve stores the curve for a compound
func (m *MasterCal) SetCurve(cpd standards.Compound, c CurveFit) {
	switch cpd {
	case standards.CO:
		m.COSlope, m.COIntercept, m.COMiddleOffset = c.Slope, c.Intercept, c.MiddleOffset
	case standards.CO2:
		m.CO2Slope, m.CO2Intercept, m.CO2MiddleOffset = c.Slope, c.Intercept, c.MiddleOffset
	case standards.CH4:
		m.CH4Slope, m.CH4Intercept, m.CH4MiddleOffset = c.Slope, c.Intercept, c.MiddleOffset
	}
}
