package generator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/domain/repository"
	"github.com/layiku/data-simulator/pkg/config"
	"github.com/layiku/data-simulator/pkg/logger"
)

// Type identifies a generator variant.
type Type string

const (
	Random Type = "random"
	Step   Type = "step"
	Order  Type = "order"
	Sum    Type = "sum"
)

// Generator produces timestamped points for one named object and keeps a
// bounded history of them.
type Generator interface {
	Name() string
	Type() Type
	Config() *config.ObjectConfig

	// Update runs one update cycle. Concurrent calls on the same generator
	// serialize on its lock.
	Update()

	// Current returns the latest value and its timestamp; both are null
	// before the first point.
	Current() models.Snapshot

	// History returns a chronological copy of the newest points, capped at
	// limit when limit > 0. The copy is isolated from the internal buffer.
	History(limit int) []models.DataPoint

	// Start begins the background update loop. Starting a running generator
	// is a no-op.
	Start()

	// Stop requests loop exit and waits for it with a bounded timeout.
	// Idempotent and safe on a generator that never started.
	Stop()
}

// SourceLookup resolves aggregate sources by object name.
type SourceLookup interface {
	Lookup(name string) (Generator, bool)
}

// Deps carries the shared collaborators a generator needs.
type Deps struct {
	Lookup   SourceLookup
	Log      *logger.Logger
	Metrics  repository.Metrics
	Emit     func(models.FeedEvent)
	StopWait time.Duration
	Seed     int64 // 0 means time-based
}

const defaultStopWait = time.Second

// orderQuantum paces randomized-cadence loops; the deadline is re-checked at
// this resolution.
const orderQuantum = 100 * time.Millisecond

type base struct {
	name    string
	typ     Type
	cfg     *config.ObjectConfig
	quantum time.Duration

	mu     sync.Mutex
	hist   *history
	curVal any
	curTS  time.Time
	has    bool
	rng    *rand.Rand

	// tick is what the loop runs once per quantum.
	tick func()
	// render maps a stored value to its read-time form.
	render func(any) any

	runMu sync.Mutex
	quit  chan struct{}
	done  chan struct{}
	wait  time.Duration

	log     *logger.Logger
	metrics repository.Metrics
	emit    func(models.FeedEvent)
}

func newBase(name string, typ Type, cfg *config.ObjectConfig, quantum time.Duration, d Deps) base {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	wait := d.StopWait
	if wait <= 0 {
		wait = defaultStopWait
	}
	seed := d.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return base{
		name:    name,
		typ:     typ,
		cfg:     cfg,
		quantum: quantum,
		hist:    newHistory(cfg.HistoryLimit),
		rng:     rand.New(rand.NewSource(seed)),
		wait:    wait,
		log:     log,
		metrics: d.Metrics,
		emit:    d.Emit,
	}
}

func (b *base) Name() string                 { return b.name }
func (b *base) Type() Type                   { return b.typ }
func (b *base) Config() *config.ObjectConfig { return b.cfg }

func (b *base) Current() models.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has {
		return models.Snapshot{Name: b.name}
	}
	ts := b.curTS
	return models.Snapshot{Name: b.name, Value: b.view(b.curVal), Timestamp: &ts}
}

func (b *base) History(limit int) []models.DataPoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	points := b.hist.snapshot(limit)
	if b.render != nil {
		for i := range points {
			points[i].Value = b.render(points[i].Value)
		}
	}
	return points
}

func (b *base) view(v any) any {
	if b.render != nil {
		return b.render(v)
	}
	return v
}

// setCurrent refreshes the snapshot state without touching the history.
// Callers hold b.mu.
func (b *base) setCurrent(v any, ts time.Time) {
	b.curVal = v
	b.curTS = ts
	b.has = true
}

// append records a new point: snapshot state, history, metrics, and the
// egress hook. Callers hold b.mu.
func (b *base) append(v any, ts time.Time) {
	b.setCurrent(v, ts)
	b.hist.push(models.DataPoint{Value: v, Timestamp: ts})
	if b.metrics != nil {
		if f, ok := models.Numeric(v); ok {
			b.metrics.RecordLastValue(b.name, f)
		}
		b.metrics.RecordHistoryLength(b.name, b.hist.len())
	}
	if b.emit != nil {
		b.emit(models.FeedEvent{Object: b.name, DataType: string(b.typ), Value: v, Timestamp: ts})
	}
}

func (b *base) Start() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.quit != nil {
		return
	}
	b.quit = make(chan struct{})
	b.done = make(chan struct{})
	go b.run(b.quit, b.done)
	b.log.Debug("generator started",
		logger.String("object", b.name),
		logger.String("type", string(b.typ)),
		logger.Duration("quantum", b.quantum))
}

func (b *base) Stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.quit == nil {
		return
	}
	close(b.quit)
	select {
	case <-b.done:
	case <-time.After(b.wait):
		b.log.Warn("generator loop did not exit in time", logger.String("object", b.name))
	}
	b.quit, b.done = nil, nil
	b.log.Debug("generator stopped", logger.String("object", b.name))
}

func (b *base) run(quit, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(b.quantum)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			b.cycle()
		}
	}
}

// cycle runs one tick. A panicking cycle is logged and the loop keeps going.
func (b *base) cycle() {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update cycle panicked",
				logger.String("object", b.name),
				logger.Any("panic", r))
		}
	}()
	start := time.Now()
	b.tick()
	if b.metrics != nil {
		b.metrics.RecordUpdate(b.name, string(b.typ), time.Since(start).Seconds())
	}
}
