package flowgraph

import "sync"

// ProcessFactory constructs a fresh Process instance by type name. Process
// types register themselves under a symbolic name (e.g. "numbers",
// "multiplication") so pipelines can be assembled from configuration
// rather than Go code. cfg carries the instance's initial configuration;
// factories that defer all reads to Configure may ignore it.
type ProcessFactory func(instanceName string, cfg *Config) Process

// SchedulerFactory constructs a fresh Scheduler bound to cfg and pipeline.
type SchedulerFactory func(cfg *Config, pipeline *Pipeline) (Scheduler, error)

// Registry is the external collaborator processes and schedulers register
// themselves with, so a pipeline can be built from names read out of
// configuration instead of direct Go references.
type Registry struct {
	mu         sync.RWMutex
	processes  map[string]ProcessFactory
	schedulers map[string]SchedulerFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		processes:  make(map[string]ProcessFactory),
		schedulers: make(map[string]SchedulerFactory),
	}
}

// RegisterProcess associates typeName with a factory. Registering the same
// typeName twice overwrites the previous factory.
func (r *Registry) RegisterProcess(typeName string, factory ProcessFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes[typeName] = factory
}

// CreateProcess builds a new Process of typeName, or reports ok=false if
// typeName is unregistered.
func (r *Registry) CreateProcess(typeName, instanceName string, cfg *Config) (Process, bool) {
	r.mu.RLock()
	factory, ok := r.processes[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(instanceName, cfg), true
}

// ProcessTypes returns every registered process type name.
func (r *Registry) ProcessTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.processes))
	for name := range r.processes {
		out = append(out, name)
	}
	return out
}

// RegisterScheduler associates typeName with a scheduler factory.
func (r *Registry) RegisterScheduler(typeName string, factory SchedulerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedulers[typeName] = factory
}

// CreateScheduler builds a new Scheduler of typeName bound to cfg and
// pipeline, or reports ok=false if typeName is unregistered.
func (r *Registry) CreateScheduler(typeName string, cfg *Config, pipeline *Pipeline) (Scheduler, bool, error) {
	r.mu.RLock()
	factory, ok := r.schedulers[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	sched, err := factory(cfg, pipeline)
	return sched, true, err
}
