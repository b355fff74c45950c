package generator

import (
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/pkg/config"
	"github.com/layiku/data-simulator/pkg/logger"
)

// SumAggregate derives its value from other objects: each cycle it sums the
// numeric current values of its sources. Missing sources and non-numeric
// values are skipped; a cycle where nothing contributed appends nothing.
type SumAggregate struct {
	base
	sources []string
	lookup  SourceLookup
}

func NewSumAggregate(name string, cfg *config.ObjectConfig, d Deps) (*SumAggregate, error) {
	if err := validateObject(name, cfg); err != nil {
		return nil, err
	}
	if len(cfg.SourceObjects) == 0 {
		return nil, &ConfigurationError{Object: name, Reason: "source_objects cannot be empty"}
	}
	if d.Lookup == nil {
		return nil, &ConfigurationError{Object: name, Reason: "aggregate requires a source lookup"}
	}

	g := &SumAggregate{
		base:    newBase(name, Sum, cfg, cfg.Interval(), d),
		sources: cfg.SourceObjects,
		lookup:  d.Lookup,
	}
	g.tick = g.Update
	return g, nil
}

// Update reads source snapshots without holding this aggregate's lock:
// aggregates may source each other, and holding both locks at once would
// deadlock a mutual pair.
func (g *SumAggregate) Update() {
	total := 0.0
	counted := 0
	for _, src := range g.sources {
		sg, ok := g.lookup.Lookup(src)
		if !ok {
			err := &SourceLookupError{Aggregate: g.name, Source: src}
			g.log.Warn("aggregate source skipped", logger.Error(err))
			if g.metrics != nil {
				g.metrics.RecordSourceSkip(g.name, "missing")
			}
			continue
		}
		snap := sg.Current()
		v, numeric := models.Numeric(snap.Value)
		if !numeric {
			g.log.Debug("aggregate source not numeric",
				logger.String("aggregate", g.name),
				logger.String("source", src))
			if g.metrics != nil {
				g.metrics.RecordSourceSkip(g.name, "non_numeric")
			}
			continue
		}
		total += v
		counted++
	}

	if counted == 0 {
		g.log.Debug("no sources contributed, value unchanged", logger.String("aggregate", g.name))
		return
	}

	g.mu.Lock()
	g.append(total, time.Now())
	g.mu.Unlock()
}

// FirstUpdate computes the initial value. The registry calls it once all
// aggregates exist, before any loop starts.
func (g *SumAggregate) FirstUpdate() { g.Update() }

// Sources returns the configured source names.
func (g *SumAggregate) Sources() []string { return g.sources }

// SourceData maps each resolvable source to its current snapshot.
func (g *SumAggregate) SourceData() map[string]models.Snapshot {
	out := make(map[string]models.Snapshot, len(g.sources))
	for _, src := range g.sources {
		if sg, ok := g.lookup.Lookup(src); ok {
			out[src] = sg.Current()
		}
	}
	return out
}
