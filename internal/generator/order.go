package generator

import (
	"fmt"
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/pkg/config"
)

// OrderEvent emits order records on a randomized cadence drawn from
// interval_range. Order ids advance by a random inclusive increment, so they
// are strictly monotonic. Unit formatting happens on read only.
type OrderEvent struct {
	base
	idLo, idHi int64
	locations  []string
	dmLo, dmHi int64
	ivLo, ivHi float64
	unit       string

	lastID int64
	due    time.Time
}

func NewOrderEvent(name string, cfg *config.ObjectConfig, d Deps) (*OrderEvent, error) {
	if err := validateObject(name, cfg); err != nil {
		return nil, err
	}
	if cfg.IDIncrementRange[0] > cfg.IDIncrementRange[1] || cfg.IDIncrementRange[0] < 1 {
		return nil, &ConfigurationError{Object: name, Reason: fmt.Sprintf("id_increment_range %v is not a positive ascending range", cfg.IDIncrementRange)}
	}
	if cfg.PowerDemandRange[0] > cfg.PowerDemandRange[1] {
		return nil, &ConfigurationError{Object: name, Reason: fmt.Sprintf("power_demand_range %v inverted", cfg.PowerDemandRange)}
	}
	if cfg.IntervalRange[0] > cfg.IntervalRange[1] || cfg.IntervalRange[0] < 0 {
		return nil, &ConfigurationError{Object: name, Reason: fmt.Sprintf("interval_range %v is not a non-negative ascending range", cfg.IntervalRange)}
	}
	if len(cfg.Locations) == 0 {
		return nil, &ConfigurationError{Object: name, Reason: "locations cannot be empty"}
	}

	g := &OrderEvent{
		base:      newBase(name, Order, cfg, orderQuantum, d),
		idLo:      cfg.IDIncrementRange[0],
		idHi:      cfg.IDIncrementRange[1],
		locations: cfg.Locations,
		dmLo:      cfg.PowerDemandRange[0],
		dmHi:      cfg.PowerDemandRange[1],
		ivLo:      cfg.IntervalRange[0],
		ivHi:      cfg.IntervalRange[1],
		unit:      cfg.Unit,
		lastID:    cfg.OrderIDBase,
	}
	g.tick = g.pace
	g.render = g.format
	return g, nil
}

// Update emits one order immediately.
func (g *OrderEvent) Update() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emitOrder(time.Now())
}

// pace runs on the fixed quantum and emits when the randomized deadline has
// passed. The deadline starts due, so the first loop tick emits right away
// and every later order waits a fresh draw from interval_range.
func (g *OrderEvent) pace() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if !g.due.IsZero() && now.Before(g.due) {
		return
	}
	g.emitOrder(now)
	g.due = now.Add(g.nextInterval())
}

// emitOrder appends one record. Callers hold g.mu.
func (g *OrderEvent) emitOrder(now time.Time) {
	g.lastID += g.idLo + g.rng.Int63n(g.idHi-g.idLo+1)
	rec := models.OrderRecord{
		OrderID:     g.lastID,
		Time:        now.Format(models.OrderTimeLayout),
		Location:    g.locations[g.rng.Intn(len(g.locations))],
		PowerDemand: g.dmLo + g.rng.Int63n(g.dmHi-g.dmLo+1),
	}
	g.append(rec, now)
}

func (g *OrderEvent) nextInterval() time.Duration {
	return config.Seconds(g.ivLo + g.rng.Float64()*(g.ivHi-g.ivLo))
}

func (g *OrderEvent) format(v any) any {
	rec, ok := v.(models.OrderRecord)
	if !ok {
		return v
	}
	return rec.Formatted(g.unit)
}
