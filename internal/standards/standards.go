// Package standards holds the valve-position categories, the compounds the
// analyzer reports, and the certified concentrations of the reference gas
// mixtures used for calibration.
package standards

import (
	"errors"
	"fmt"
)

// Category is the sampling state selected by the multi-position valve
type Category string

const (
	NoSequence Category = "no_sequence"
	Ambient    Category = "ambient"
	LowStd     Category = "low_std"
	HighStd    Category = "high_std"
	MidStd     Category = "mid_std"

	// Dump marks calibration events that were too short to be genuine.
	// Dumped events are never matched into a master calibration.
	Dump Category = "dump"
)

// Instrument status codes. 963 is what the analyzer reports for good data;
// 999 is written over measurements taken while the sample line was still
// flushing out standard gas.
const (
	StatusGood    = 963
	StatusFlushed = 999
)

var valveCategories = map[int]Category{
	0: NoSequence,
	1: Ambient,
	2: LowStd,
	3: HighStd,
	4: MidStd,
}

// CategoryForValve maps an MPV position code to its category
func CategoryForValve(code int) (Category, bool) {
	c, ok := valveCategories[code]
	return c, ok
}

// Valve returns the MPV position code for a category, or -1 for categories
// that have no valve position (Dump)
func (c Category) Valve() int {
	for code, cat := range valveCategories {
		if cat == c {
			return code
		}
	}
	return -1
}

// IsStandard reports whether the category is one of the three reference gases
func (c Category) IsStandard() bool {
	return c == LowStd || c == MidStd || c == HighStd
}

// Standards returns the reference gas categories in matching order
func Standards() []Category {
	return []Category{LowStd, HighStd, MidStd}
}

// Compound is a gas species quantified by the analyzer
type Compound string

const (
	CO  Compound = "co"
	CO2 Compound = "co2"
	CH4 Compound = "ch4"
)

// Compounds returns every quantified compound in a fixed order
func Compounds() []Compound {
	return []Compound{CO, CO2, CH4}
}

var (
	ErrUnknownStandard = errors.New("unknown standard")
	ErrUnknownCompound = errors.New("unknown compound")
)

// Registry holds certified concentrations per standard and compound.
// CO and CH4 are in ppb, CO2 in ppm, matching the ingested data.
type Registry struct {
	values map[Category]map[Compound]float64
}

// NewRegistry builds a registry from a category -> compound -> value table
func NewRegistry(values map[Category]map[Compound]float64) (*Registry, error) {
	r := &Registry{values: make(map[Category]map[Compound]float64)}
	for _, cat := range Standards() {
		row, ok := values[cat]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no certified values", ErrUnknownStandard, cat)
		}
		r.values[cat] = make(map[Compound]float64)
		for _, cpd := range Compounds() {
			v, ok := row[cpd]
			if !ok {
				return nil, fmt.Errorf("%w: %s has no certified value for %s", ErrUnknownCompound, cat, cpd)
			}
			r.values[cat][cpd] = v
		}
	}
	return r, nil
}

// Default returns the registry for the tanks currently installed at the site
func Default() *Registry {
	r, _ := NewRegistry(DefaultValues())
	return r
}

// DefaultValues returns the compiled-in certified concentrations
func DefaultValues() map[Category]map[Compound]float64 {
	return map[Category]map[Compound]float64{
		LowStd:  {CO: 69.6, CO2: 390.24, CH4: 1838.5},
		MidStd:  {CO: 117.4, CO2: 408.65, CH4: 1925.5},
		HighStd: {CO: 174.6, CO2: 428.53, CH4: 2050.6},
	}
}

// Certified returns the certified concentration of a compound in a standard
func (r *Registry) Certified(cat Category, cpd Compound) (float64, error) {
	row, ok := r.values[cat]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownStandard, cat)
	}
	v, ok := row[cpd]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCompound, cpd)
	}
	return v, nil
}
