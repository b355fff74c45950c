package generator

import (
	"fmt"
	"math"
	"time"

	"github.com/layiku/data-simulator/pkg/config"
)

// RandomWalk drifts a scalar by a uniform delta per cycle, clamped to
// [min_value, max_value]. The walk starts from base_value.
type RandomWalk struct {
	base
	baseValue float64
	lo, hi    float64
	min, max  float64

	val     float64
	started bool
}

func NewRandomWalk(name string, cfg *config.ObjectConfig, d Deps) (*RandomWalk, error) {
	if err := validateObject(name, cfg); err != nil {
		return nil, err
	}
	lo, hi := cfg.UpdateRange[0], cfg.UpdateRange[1]
	if lo > hi {
		return nil, &ConfigurationError{Object: name, Reason: fmt.Sprintf("update_range low %v > high %v", lo, hi)}
	}
	min, max := math.Inf(-1), math.Inf(1)
	if cfg.MinValue != nil {
		min = *cfg.MinValue
	}
	if cfg.MaxValue != nil {
		max = *cfg.MaxValue
	}
	if min > max {
		return nil, &ConfigurationError{Object: name, Reason: fmt.Sprintf("min_value %v > max_value %v", min, max)}
	}

	g := &RandomWalk{
		base:      newBase(name, Random, cfg, cfg.Interval(), d),
		baseValue: cfg.BaseValue,
		lo:        lo,
		hi:        hi,
		min:       min,
		max:       max,
	}
	g.tick = g.Update
	return g, nil
}

func (g *RandomWalk) Update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.baseValue
	if g.started {
		cur = g.val
	}
	next := cur + g.lo + g.rng.Float64()*(g.hi-g.lo)
	if next < g.min {
		next = g.min
	}
	if next > g.max {
		next = g.max
	}
	g.val = next
	g.started = true
	g.append(next, time.Now())
}
