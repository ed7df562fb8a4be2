package restserver

import (
	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
)

func transformFile(f database.DataFile) FileResponse {
	return FileResponse{
		ID:        f.ID,
		Name:      f.Name,
		Path:      f.Path,
		Size:      f.Size,
		Processed: f.Processed,
	}
}

func transformCalEvent(ev database.CalEvent) CalEventResponse {
	resp := CalEventResponse{
		ID:           ev.ID,
		Timestamp:    ev.EpochMs,
		StartTime:    ev.StartEpochMs,
		StandardUsed: string(ev.StandardUsed),
		Points:       ev.Points,
		BackPeriod:   ev.BackPeriod,
		Results:      make(map[string]ResultResponse, len(standards.Compounds())),
		MasterCalID:  ev.MasterCalID,
		Flushed:      ev.Flushed,
	}
	for _, cpd := range standards.Compounds() {
		r := ev.Result(cpd)
		resp.Results[string(cpd)] = ResultResponse{Mean: r.Mean, Median: r.Median, Stdev: r.Stdev}
	}
	return resp
}

func transformDatum(d database.Datum) DatumResponse {
	return DatumResponse{
		Timestamp:        d.EpochMs,
		InstrumentStatus: d.InstrumentStatus,
		MPVPosition:      d.MPVPosition,
		CO:               d.CO,
		CO2:              d.CO2,
		CH4:              d.CH4,
		H2O:              d.H2O,
	}
}

func transformMasterCal(mc database.MasterCal) MasterCalResponse {
	resp := MasterCalResponse{
		ID:        mc.ID,
		Timestamp: mc.EpochMs,
		LowCalID:  mc.LowCalID,
		HighCalID: mc.HighCalID,
		MidCalID:  mc.MidCalID,
		Fitted:    mc.Fitted,
		Curves:    make(map[string]CurveResponse, len(standards.Compounds())),
	}
	for _, cpd := range standards.Compounds() {
		c := mc.Curve(cpd)
		resp.Curves[string(cpd)] = CurveResponse{Slope: c.Slope, Intercept: c.Intercept, MiddleOffset: c.MiddleOffset}
	}
	return resp
}
