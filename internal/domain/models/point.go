package models

import (
	"encoding/json"
	"time"
)

// DataPoint is one sample of a feed: a scalar for random/step/sum objects,
// an OrderRecord for order objects.
type DataPoint struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func NewScalarPoint(v float64, ts time.Time) DataPoint {
	return DataPoint{Value: v, Timestamp: ts}
}

func NewOrderPoint(rec OrderRecord, ts time.Time) DataPoint {
	return DataPoint{Value: rec, Timestamp: ts}
}

// Snapshot is the current-value view of one object. Value and Timestamp are
// null until the object has produced its first point.
type Snapshot struct {
	Name      string     `json:"name"`
	Value     any        `json:"value"`
	Timestamp *time.Time `json:"timestamp"`
}

// Numeric extracts a float from a point value. Order records and nil are
// not numeric.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
