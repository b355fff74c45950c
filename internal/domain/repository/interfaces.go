package repository

import (
	"context"

	"github.com/layiku/data-simulator/internal/domain/models"
)

// PointSink receives appended data points for downstream consumers. Delivery
// is at most once; the pipeline drops on overflow rather than block an
// update loop.
type PointSink interface {
	Init(ctx context.Context) error // ensure tables/topics, health checks
	StoreBatch(ctx context.Context, events []models.FeedEvent) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordUpdate(object, dataType string, seconds float64)
	RecordLastValue(object string, value float64)
	RecordHistoryLength(object string, length int)
	RecordSourceSkip(aggregate, reason string)
	RecordConstructionSkip(reason string)
}
