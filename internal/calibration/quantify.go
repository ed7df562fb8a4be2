package calibration

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
)

// Quantify computes statistics for one compound over the members of an
// event taken strictly after endMs - window. Fields that cannot be
// computed are left nil: all of them for an empty window, and the
// standard deviation when only one point qualifies.
func Quantify(data []database.Datum, cpd standards.Compound, endMs int64, window time.Duration) database.Result {
	cutoff := endMs - window.Milliseconds()

	var values []float64
	for _, d := range data {
		if d.EpochMs <= cutoff || d.EpochMs > endMs {
			continue
		}
		if v, ok := d.Concentration(cpd); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return database.Result{}
	}

	mean := stat.Mean(values, nil)
	med := median(values)
	result := database.Result{Mean: &mean, Median: &med}
	if len(values) > 1 {
		sd := stat.StdDev(values, nil)
		result.Stdev = &sd
	}
	return result
}

// median averages the two middle values of an even-length set
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
