package models

// SeriesStats summarizes the numeric points of one object's history window.
// Order histories carry no numeric values, so only Count is meaningful there.
type SeriesStats struct {
	Count int      `json:"count"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
	Last  *float64 `json:"last,omitempty"`
}
