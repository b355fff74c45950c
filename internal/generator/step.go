package generator

import (
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/pkg/config"
)

// StepSequence walks a fixed list of values, holding each for dwell_time.
// Consecutive duplicates are not appended to the history; the current
// snapshot still refreshes every cycle.
type StepSequence struct {
	base
	values []float64
	dwell  time.Duration
	loop   bool

	idx        int
	lastChange time.Time
}

func NewStepSequence(name string, cfg *config.ObjectConfig, d Deps) (*StepSequence, error) {
	if err := validateObject(name, cfg); err != nil {
		return nil, err
	}
	g := &StepSequence{
		base:   newBase(name, Step, cfg, cfg.Interval(), d),
		values: cfg.Values,
		dwell:  cfg.Dwell(),
		loop:   cfg.Looping(),
	}
	g.tick = g.Update
	return g, nil
}

func (g *StepSequence) Update() {
	if len(g.values) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	switch {
	case g.lastChange.IsZero():
		g.lastChange = now
	case now.Sub(g.lastChange) >= g.dwell:
		g.lastChange = now
		if g.idx < len(g.values)-1 {
			g.idx++
		} else if g.loop {
			g.idx = 0
		}
	}

	v := g.values[g.idx]
	if last, ok := g.hist.last(); ok {
		if prev, numeric := models.Numeric(last.Value); numeric && prev == v {
			g.setCurrent(v, now)
			return
		}
	}
	g.append(v, now)
}
