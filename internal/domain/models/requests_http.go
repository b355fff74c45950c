package models

// Requests for the read facade. Defined in domain for consistency and reuse.

type HistoryRequest struct {
	Count int    `query:"count" json:"count" validate:"omitempty,gte=1,lte=100000"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
}

type OrdersRequest struct {
	Count int `query:"count" json:"count" default:"10" validate:"gte=1,lte=100000"`
}
