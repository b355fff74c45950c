package models

import "time"

// FeedEvent is one appended point on its way to the egress pipeline.
type FeedEvent struct {
	Object    string    `json:"object"`
	DataType  string    `json:"data_type"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
