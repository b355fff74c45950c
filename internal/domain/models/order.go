package models

import "fmt"

// OrderTimeLayout is the minute-precision wall clock carried by order records.
const OrderTimeLayout = "2006-01-02 15:04"

// OrderRecord is the fixed-shape value produced by order objects. PowerDemand
// stays numeric in storage; unit formatting happens on read.
type OrderRecord struct {
	OrderID     int64  `json:"order_id"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	PowerDemand int64  `json:"power_demand"`
}

// FormattedOrder mirrors OrderRecord with the demand rendered as "<n> (<unit>)".
type FormattedOrder struct {
	OrderID     int64  `json:"order_id"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	PowerDemand string `json:"power_demand"`
}

// Formatted returns the read-time view of the record. With an empty unit the
// record is returned as is.
func (r OrderRecord) Formatted(unit string) any {
	if unit == "" {
		return r
	}
	return FormattedOrder{
		OrderID:     r.OrderID,
		Time:        r.Time,
		Location:    r.Location,
		PowerDemand: fmt.Sprintf("%d (%s)", r.PowerDemand, unit),
	}
}
