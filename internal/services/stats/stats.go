package stats

import (
	"math"

	"github.com/layiku/data-simulator/internal/domain/models"
)

// Compute summarizes the numeric values of a history window. Non-numeric
// points (order records) count toward Count but contribute no min/max/mean.
func Compute(points []models.DataPoint) models.SeriesStats {
	s := models.SeriesStats{Count: len(points)}

	sum := 0.0
	numeric := 0
	min, max := math.Inf(1), math.Inf(-1)
	var last float64

	for _, p := range points {
		v, ok := models.Numeric(p.Value)
		if !ok {
			continue
		}
		numeric++
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		last = v
	}

	if numeric == 0 {
		return s
	}

	mean := sum / float64(numeric)
	s.Min = &min
	s.Max = &max
	s.Mean = &mean
	s.Last = &last
	return s
}
