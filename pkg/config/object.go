package config

import "time"

// Object data types.
const (
	TypeRandom = "random"
	TypeStep   = "step"
	TypeOrder  = "order"
	TypeSum    = "sum"
)

// ObjectConfig is the per-object surface of the objects mapping. Fields that
// do not apply to the object's data_type stay zero and are omitted from JSON.
type ObjectConfig struct {
	DataType       string  `yaml:"data_type" json:"data_type" validate:"required"`
	HistoryLimit   int     `yaml:"history_limit" json:"history_limit" validate:"min=1"`
	UpdateInterval float64 `yaml:"update_interval" json:"update_interval" validate:"gt=0"` // seconds

	// random
	BaseValue   float64   `yaml:"base_value" json:"base_value,omitempty"`
	UpdateRange []float64 `yaml:"update_range" json:"update_range,omitempty" validate:"omitempty,len=2"`
	MinValue    *float64  `yaml:"min_value" json:"min_value,omitempty"`
	MaxValue    *float64  `yaml:"max_value" json:"max_value,omitempty"`

	// step
	Values    []float64 `yaml:"values" json:"values,omitempty"`
	DwellTime float64   `yaml:"dwell_time" json:"dwell_time,omitempty" validate:"omitempty,gt=0"` // seconds
	Loop      *bool     `yaml:"loop" json:"loop,omitempty"`

	// order
	OrderIDBase      int64     `yaml:"order_id_base" json:"order_id_base,omitempty"`
	IDIncrementRange []int64   `yaml:"id_increment_range" json:"id_increment_range,omitempty" validate:"omitempty,len=2"`
	Locations        []string  `yaml:"locations" json:"locations,omitempty"`
	PowerDemandRange []int64   `yaml:"power_demand_range" json:"power_demand_range,omitempty" validate:"omitempty,len=2"`
	IntervalRange    []float64 `yaml:"interval_range" json:"interval_range,omitempty" validate:"omitempty,len=2"` // seconds
	Unit             string    `yaml:"unit" json:"unit,omitempty"`

	// sum
	SourceObjects []string `yaml:"source_objects" json:"source_objects,omitempty"`
}

// Normalize fills the type-dependent defaults. Structural and semantic
// checks happen at generator construction so one bad object cannot take
// the whole config down.
func (o *ObjectConfig) Normalize() {
	if o.HistoryLimit == 0 {
		if o.DataType == TypeOrder {
			o.HistoryLimit = 20
		} else {
			o.HistoryLimit = 200
		}
	}
	if o.UpdateInterval == 0 {
		if o.DataType == TypeSum {
			o.UpdateInterval = 5.0
		} else {
			o.UpdateInterval = 1.0
		}
	}

	switch o.DataType {
	case TypeRandom:
		if o.UpdateRange == nil {
			o.UpdateRange = []float64{-1, 1}
		}
	case TypeStep:
		if o.Values == nil {
			o.Values = []float64{0}
		}
		if o.DwellTime == 0 {
			o.DwellTime = 1.0
		}
		if o.Loop == nil {
			t := true
			o.Loop = &t
		}
	case TypeOrder:
		if o.OrderIDBase == 0 {
			o.OrderIDBase = 1000000000
		}
		if o.IDIncrementRange == nil {
			o.IDIncrementRange = []int64{1, 10}
		}
		if o.Locations == nil {
			o.Locations = []string{"beijing", "shanghai", "shenzhen", "chengdu"}
		}
		if o.PowerDemandRange == nil {
			o.PowerDemandRange = []int64{100, 1000}
		}
		if o.IntervalRange == nil {
			o.IntervalRange = []float64{5, 30}
		}
	}
}

// Interval is update_interval as a duration.
func (o *ObjectConfig) Interval() time.Duration {
	return Seconds(o.UpdateInterval)
}

// Dwell is dwell_time as a duration.
func (o *ObjectConfig) Dwell() time.Duration {
	return Seconds(o.DwellTime)
}

// Looping reports whether a step sequence wraps around.
func (o *ObjectConfig) Looping() bool {
	return o.Loop == nil || *o.Loop
}

// Seconds converts a fractional seconds value to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
