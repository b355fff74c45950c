package registry

import (
	"sort"
	"sync"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/domain/repository"
	"github.com/layiku/data-simulator/internal/generator"
	"github.com/layiku/data-simulator/pkg/config"
	"github.com/layiku/data-simulator/pkg/logger"
)

// Registry owns every generator by name and drives their lifecycle. The
// name set is fixed at Build time; afterwards the map only gets read.
type Registry struct {
	log  *logger.Logger
	deps generator.Deps

	mu      sync.RWMutex
	objects map[string]generator.Generator
	order   []string // insertion order: non-aggregates first, then aggregates

	cycles []*generator.DependencyCycleError
}

// Build constructs every configured object. Non-aggregates come up first and
// produce their initial point; aggregates follow in dependency order and get
// their first update only once all of them exist, so an aggregate sourcing
// another aggregate never reads an empty sibling. Per-object failures are
// logged and skipped; a dependency cycle is reported and cut, never fatal.
func Build(cfg *config.Config, d Deps) *Registry {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{
		log:     log,
		objects: make(map[string]generator.Generator, len(cfg.Objects)),
	}
	r.deps = generator.Deps{
		Lookup:   r,
		Log:      log,
		Metrics:  d.Metrics,
		Emit:     d.Emit,
		StopWait: cfg.Engine.ShutdownWait.Std(),
		Seed:     d.Seed,
	}

	plain, sums := partition(cfg)

	for _, name := range plain {
		g, err := generator.New(name, cfg.Objects[name], r.deps)
		if err != nil {
			r.skip(name, err, d.Metrics)
			continue
		}
		r.insert(name, g)
		g.Update() // seed the initial point before anything reads it
	}

	creation := r.resolveOrder(sums, cfg)

	aggregates := make([]*generator.SumAggregate, 0, len(creation))
	for _, name := range creation {
		g, err := generator.New(name, cfg.Objects[name], r.deps)
		if err != nil {
			r.skip(name, err, d.Metrics)
			continue
		}
		r.insert(name, g)
		if sum, ok := g.(*generator.SumAggregate); ok {
			aggregates = append(aggregates, sum)
		}
	}
	for _, sum := range aggregates {
		sum.FirstUpdate()
	}

	for _, c := range r.cycles {
		log.Warn("dependency cycle cut", logger.Error(c))
	}
	log.Info("registry built",
		logger.Int("objects", len(r.order)),
		logger.Int("aggregates", len(aggregates)),
		logger.Int("cycles", len(r.cycles)))
	return r
}

// Deps carries the registry's collaborators.
type Deps struct {
	Log     *logger.Logger
	Metrics repository.Metrics
	Emit    func(models.FeedEvent)
	Seed    int64
}

// partition splits configured names into non-aggregates and aggregates,
// keeping the file's declaration order. Objects configured without a
// declared order (built programmatically) fall back to sorted names.
func partition(cfg *config.Config) (plain, sums []string) {
	names := cfg.ObjectOrder
	if len(names) != len(cfg.Objects) {
		names = make([]string, 0, len(cfg.Objects))
		for name := range cfg.Objects {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	for _, name := range names {
		if cfg.Objects[name].DataType == config.TypeSum {
			sums = append(sums, name)
		} else {
			plain = append(plain, name)
		}
	}
	return plain, sums
}

// resolveOrder orders aggregates so that every aggregate-to-aggregate source
// is created before its dependent. Depth first over source_objects edges; a
// name revisited while still on the traversal path is a cycle: the edge is
// cut, the cycle recorded, and ordering continues.
func (r *Registry) resolveOrder(sums []string, cfg *config.Config) []string {
	isSum := make(map[string]bool, len(sums))
	for _, name := range sums {
		isSum[name] = true
	}

	order := make([]string, 0, len(sums))
	done := make(map[string]bool, len(sums))
	onPath := make(map[string]bool, len(sums))

	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		if onPath[name] {
			r.cycles = append(r.cycles, &generator.DependencyCycleError{Path: append(append([]string{}, path...), name)})
			return
		}
		if done[name] {
			return
		}
		onPath[name] = true
		for _, src := range cfg.Objects[name].SourceObjects {
			if isSum[src] && !done[src] {
				visit(src, append(path, name))
			}
		}
		delete(onPath, name)
		done[name] = true
		order = append(order, name)
	}

	for _, name := range sums {
		visit(name, nil)
	}
	return order
}

func (r *Registry) insert(name string, g generator.Generator) {
	r.mu.Lock()
	r.objects[name] = g
	r.order = append(r.order, name)
	r.mu.Unlock()
}

func (r *Registry) skip(name string, err error, m repository.Metrics) {
	r.log.Warn("object skipped", logger.String("object", name), logger.Error(err))
	if m != nil {
		m.RecordConstructionSkip(skipReason(err))
	}
}

func skipReason(err error) string {
	switch err.(type) {
	case *generator.UnsupportedTypeError:
		return "unsupported_type"
	case *generator.ConfigurationError:
		return "invalid_config"
	default:
		return "error"
	}
}

// Lookup resolves one generator by name. Implements generator.SourceLookup.
func (r *Registry) Lookup(name string) (generator.Generator, bool) {
	r.mu.RLock()
	g, ok := r.objects[name]
	r.mu.RUnlock()
	return g, ok
}

// Names returns all object names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of built objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// CurrentAll returns the current snapshot of every object.
func (r *Registry) CurrentAll() map[string]models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.Snapshot, len(r.objects))
	for name, g := range r.objects {
		out[name] = g.Current()
	}
	return out
}

// ConfigAll returns the static configuration of every object.
func (r *Registry) ConfigAll() map[string]*config.ObjectConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*config.ObjectConfig, len(r.objects))
	for name, g := range r.objects {
		out[name] = g.Config()
	}
	return out
}

// CycleReports returns the dependency cycles cut during Build, formatted.
func (r *Registry) CycleReports() []string {
	out := make([]string, 0, len(r.cycles))
	for _, c := range r.cycles {
		out = append(out, c.Error())
	}
	return out
}

// StartAll begins every generator's background loop.
func (r *Registry) StartAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		r.objects[name].Start()
	}
	r.log.Info("generators started", logger.Int("count", len(r.order)))
}

// StopAll stops every generator, waiting a bounded time for each loop to
// exit. Idempotent; safe when StartAll never ran.
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		r.objects[name].Stop()
	}
	r.log.Info("generators stopped", logger.Int("count", len(r.order)))
}
