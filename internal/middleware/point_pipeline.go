package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/domain/repository"
	"github.com/layiku/data-simulator/pkg/logger"
)

// PointPipeline is the egress middleware between the update loops and a
// downstream sink. Dispatch never blocks a generator: when the buffer is
// full the event is dropped and counted. A background flusher drains the
// buffer into the sink in batches, by size or by interval, whichever comes
// first. Delivery is at most once.
type PointPipeline struct {
	sink repository.PointSink
	log  *logger.Logger

	bufCh  chan models.FeedEvent
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool

	batchSize  int
	flushEvery time.Duration
}

type PipelineOption func(*PointPipeline)

// WithBufferSize sets how many events the dispatch buffer absorbs before
// dropping.
func WithBufferSize(n int) PipelineOption {
	return func(p *PointPipeline) {
		if n > 0 {
			p.bufCh = make(chan models.FeedEvent, n)
		}
	}
}

// WithBatchSize sets the flush batch size.
func WithBatchSize(n int) PipelineOption {
	return func(p *PointPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *PointPipeline) {
		if d > 0 {
			p.flushEvery = d
		}
	}
}

// NewPointPipeline creates a pipeline in front of sink.
func NewPointPipeline(sink repository.PointSink, log *logger.Logger, opts ...PipelineOption) *PointPipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &PointPipeline{
		sink:       sink,
		log:        log,
		bufCh:      make(chan models.FeedEvent, 1024),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		batchSize:  100,
		flushEvery: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	initPipelineMetricsOnce()
	return p
}

// Dispatch offers one event to the buffer without blocking.
func (p *PointPipeline) Dispatch(ev models.FeedEvent) {
	select {
	case p.bufCh <- ev:
		pipelineDispatched.Inc()
	default:
		pipelineDropped.Inc()
	}
}

// Start launches the background flusher.
func (p *PointPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop requests the flusher to drain once and exit, waiting a bounded time.
// Idempotent; safe when Start never ran.
func (p *PointPipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if !started {
		return
	}
	select {
	case <-p.doneCh:
	case <-time.After(5 * time.Second):
		p.log.Warn("pipeline flusher did not exit in time")
	}
}

func (p *PointPipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	batch := make([]models.FeedEvent, 0, p.batchSize)
	backoff := 50 * time.Millisecond

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.flush(ctx, batch); err != nil {
			// Cap the backoff; the batch is dropped, not requeued.
			if backoff < 2*time.Second {
				backoff *= 2
			}
			time.Sleep(backoff)
		} else {
			backoff = 50 * time.Millisecond
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-p.stopCh:
			p.drainInto(&batch)
			flush()
			return
		case <-ctx.Done():
			p.drainInto(&batch)
			flush()
			return
		case ev := <-p.bufCh:
			batch = append(batch, ev)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// drainInto moves whatever is still buffered into the final batch.
func (p *PointPipeline) drainInto(batch *[]models.FeedEvent) {
	for {
		select {
		case ev := <-p.bufCh:
			*batch = append(*batch, ev)
		default:
			return
		}
	}
}

func (p *PointPipeline) flush(ctx context.Context, batch []models.FeedEvent) error {
	start := time.Now()
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := p.sink.StoreBatch(flushCtx, batch)
	pipelineFlushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		pipelineFlushes.WithLabelValues("error").Inc()
		p.log.Error("pipeline flush failed",
			logger.Int("batch", len(batch)),
			logger.Error(err))
		return err
	}
	pipelineFlushes.WithLabelValues("ok").Inc()
	return nil
}

var (
	pipelineOnce          sync.Once
	pipelineDispatched    prometheus.Counter
	pipelineDropped       prometheus.Counter
	pipelineFlushes       *prometheus.CounterVec
	pipelineFlushDuration prometheus.Histogram
)

func initPipelineMetricsOnce() {
	pipelineOnce.Do(func() {
		pipelineDispatched = promauto.NewCounter(prometheus.CounterOpts{
			Name: "simulator_pipeline_dispatched_total",
			Help: "Events accepted into the egress buffer",
		})
		pipelineDropped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "simulator_pipeline_dropped_total",
			Help: "Events dropped because the egress buffer was full",
		})
		pipelineFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_pipeline_flushes_total",
			Help: "Batch flushes to the sink",
		}, []string{"result"})
		pipelineFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_pipeline_flush_seconds",
			Help:    "Sink flush latency",
			Buckets: prometheus.DefBuckets,
		})
	})
}
