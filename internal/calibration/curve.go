package calibration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
)

var (
	// ErrDegenerateCurve is returned when the two certified concentrations are equal
	ErrDegenerateCurve = errors.New("degenerate curve: certified concentrations are equal")
	// ErrMissingMean is returned when a measured mean needed for the fit is unset
	ErrMissingMean = errors.New("measured mean is missing")
)

// Point pairs a certified concentration with the measured mean for that standard
type Point struct {
	Certified float64
	Measured  *float64
}

// Curve is a response line: measured = Slope*certified + Intercept
type Curve struct {
	Slope     float64
	Intercept float64
}

// At returns the expected measured value for a certified concentration
func (c Curve) At(certified float64) float64 {
	return c.Slope*certified + c.Intercept
}

// FitTwoPoint fits the line through the low and high standard points
func FitTwoPoint(low, high Point) (Curve, error) {
	if low.Measured == nil || high.Measured == nil {
		return Curve{}, ErrMissingMean
	}
	if low.Certified == high.Certified {
		return Curve{}, ErrDegenerateCurve
	}

	xs := []float64{low.Certified, high.Certified}
	ys := []float64{*low.Measured, *high.Measured}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Curve{Slope: slope, Intercept: intercept}, nil
}

// MidOffset returns how far the measured mid standard sits above the
// line; positive means the instrument reads high
func (c Curve) MidOffset(mid Point) (float64, error) {
	if mid.Measured == nil {
		return 0, ErrMissingMean
	}
	return *mid.Measured - c.At(mid.Certified), nil
}

// Fitter computes response curves for new master calibrations
type Fitter struct {
	store    *database.Store
	registry *standards.Registry
	logger   *zap.SugaredLogger
}

// NewFitter creates a fitter using the given certified values
func NewFitter(store *database.Store, registry *standards.Registry, logger *zap.SugaredLogger) *Fitter {
	return &Fitter{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// Name implements the pipeline task interface
func (f *Fitter) Name() string {
	return "fit"
}

// Run fits every unfitted master calibration. A compound whose fit fails
// is logged and left unset; the calibration is still marked fitted.
func (f *Fitter) Run(ctx context.Context) error {
	mcs, err := f.store.UnfittedMasterCals(ctx)
	if err != nil {
		return err
	}

	for i := range mcs {
		mc := &mcs[i]
		events := make(map[standards.Category]*database.CalEvent, 3)
		for cat, id := range map[standards.Category]uint{
			standards.LowStd:  mc.LowCalID,
			standards.HighStd: mc.HighCalID,
			standards.MidStd:  mc.MidCalID,
		} {
			ev, err := f.store.GetCalEvent(ctx, id)
			if err != nil {
				return err
			}
			if ev == nil {
				return fmt.Errorf("master calibration %d references missing event %d", mc.ID, id)
			}
			events[cat] = ev
		}

		for _, cpd := range standards.Compounds() {
			fit, err := f.fitCompound(events, cpd)
			if err != nil {
				f.logger.Warnf("mastercal %d: no %s curve: %v", mc.ID, cpd, err)
			}
			mc.SetCurve(cpd, fit)
		}

		mc.Fitted = true
		if err := f.store.SaveMasterCalCurve(ctx, mc); err != nil {
			return err
		}
		f.logCurve(mc)
	}
	return nil
}

func (f *Fitter) point(ev *database.CalEvent, cpd standards.Compound) (Point, error) {
	certified, err := f.registry.Certified(ev.StandardUsed, cpd)
	if err != nil {
		return Point{}, err
	}
	return Point{Certified: certified, Measured: ev.Result(cpd).Mean}, nil
}

func (f *Fitter) fitCompound(events map[standards.Category]*database.CalEvent, cpd standards.Compound) (database.CurveFit, error) {
	var pts [3]Point
	for i, cat := range []standards.Category{standards.LowStd, standards.HighStd, standards.MidStd} {
		p, err := f.point(events[cat], cpd)
		if err != nil {
			return database.CurveFit{}, err
		}
		pts[i] = p
	}

	curve, err := FitTwoPoint(pts[0], pts[1])
	if err != nil {
		return database.CurveFit{}, err
	}

	fit := database.CurveFit{Slope: &curve.Slope, Intercept: &curve.Intercept}
	offset, err := curve.MidOffset(pts[2])
	if err != nil {
		return fit, fmt.Errorf("mid offset: %w", err)
	}
	fit.MiddleOffset = &offset
	return fit, nil
}

func (f *Fitter) logCurve(mc *database.MasterCal) {
	for _, cpd := range standards.Compounds() {
		c := mc.Curve(cpd)
		f.logger.Debugf("mastercal for %s %s curve: slope %s, intercept %s, mid offset %s",
			mc.Time().Format(timeFormat), cpd, formatOptional(c.Slope), formatOptional(c.Intercept), formatOptional(c.MiddleOffset))
	}
}
