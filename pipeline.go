package flowgraph

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// PipelineState is a node in the pipeline lifecycle state machine:
// initial -> setup -> running -> stopped.
type PipelineState int

const (
	PipelineInitial PipelineState = iota
	PipelineSetupState
	PipelineRunning
	PipelineStopped
	// PipelineSetupFailed is the intermediate state a pipeline lands in
	// when SetupPipeline returns an error partway through: Reset() returns
	// it to initial, but a scheduler bound to it fails KindPipelineNotReady
	// rather than KindPipelineNotSetup.
	PipelineSetupFailed
)

func (s PipelineState) String() string {
	switch s {
	case PipelineInitial:
		return "initial"
	case PipelineSetupState:
		return "setup"
	case PipelineRunning:
		return "running"
	case PipelineStopped:
		return "stopped"
	case PipelineSetupFailed:
		return "setup-failed"
	default:
		return "unknown"
	}
}

// Connection names an output port of one process and the input port of
// another that it feeds.
type Connection struct {
	UpProcess   string
	UpPort      string
	DownProcess string
	DownPort    string
}

func (c Connection) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", c.UpProcess, c.UpPort, c.DownProcess, c.DownPort)
}

// Observability keys for the pipeline graph.
const (
	PipelineProcessesGauge   = metricz.Key("pipeline.processes.count")
	PipelineConnectionsGauge = metricz.Key("pipeline.connections.count")
	PipelineSetupSpan        = tracez.Key("pipeline.setup")
	PipelineEventSetup       = hookz.Key("pipeline.setup")
	PipelineEventReset       = hookz.Key("pipeline.reset")
)

// PipelineEvent is delivered to hookz handlers on lifecycle transitions.
type PipelineEvent struct {
	State PipelineState
	Err   error
}

// DefaultEdgeCapacity is used for connections that do not specify one.
const DefaultEdgeCapacity = 8

// Configuration keys the pipeline itself consumes. Edge defaults live under
// _pipeline:_edge; a single connection may be overridden through a matching
// subblock, e.g. _pipeline:_edge:<up>:<up_port>:<down>:<down_port>:capacity.
const (
	edgeConfigPrefix = "_pipeline" + ConfigSeparator + "_edge"
	edgeCapacityKey  = edgeConfigPrefix + ConfigSeparator + "capacity"
	edgeBlockingKey  = edgeConfigPrefix + ConfigSeparator + "blocking"
)

// Pipeline is the process/connection graph (C6): a registry of named
// processes joined by typed, rate-checked connections, driven through the
// initial -> setup -> running -> stopped lifecycle.
type Pipeline struct {
	mu sync.RWMutex

	state PipelineState

	processes map[string]Process
	clusters  map[string]Cluster
	configs   map[string]*Config
	order     []string // insertion order, for deterministic setup/iteration

	connections []Connection
	edges       map[Connection]*Edge
	rates       map[string]*big.Rat

	cfg          *Config
	edgeCapacity int

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[PipelineEvent]
}

// NewPipeline creates an empty pipeline in the initial state with an empty
// configuration.
func NewPipeline() *Pipeline {
	p, _ := NewPipelineFromConfig(NewConfig("_pipeline")) //nolint:errcheck // config is never nil here
	return p
}

// NewPipelineFromConfig creates an empty pipeline reading its own settings
// (edge capacity, edge blocking policy, per-connection overrides) from cfg.
// It fails with KindNullPipelineConfig when cfg is nil.
func NewPipelineFromConfig(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, newErr(KindNullPipelineConfig, "")
	}
	m := metricz.New()
	m.Gauge(PipelineProcessesGauge)
	m.Gauge(PipelineConnectionsGauge)
	return &Pipeline{
		state:        PipelineInitial,
		processes:    make(map[string]Process),
		clusters:     make(map[string]Cluster),
		configs:      make(map[string]*Config),
		edges:        make(map[Connection]*Edge),
		rates:        make(map[string]*big.Rat),
		cfg:          cfg,
		edgeCapacity: ConfigAsDefault(cfg, edgeCapacityKey, DefaultEdgeCapacity),
		metrics:      m,
		tracer:       tracez.New(),
		hooks:        hookz.New[PipelineEvent](),
	}, nil
}

// State reports the pipeline's current lifecycle state.
func (p *Pipeline) State() PipelineState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetEdgeCapacity overrides the default capacity used for edges created at
// setup. Must be called before SetupPipeline.
func (p *Pipeline) SetEdgeCapacity(capacity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edgeCapacity = capacity
}

// AddProcess registers a named process with its initial configuration. cfg
// may be nil, in which case an empty Config is used.
func (p *Pipeline) AddProcess(name string, proc Process, cfg *Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PipelineInitial {
		return newErr(KindAddAfterSetup, name)
	}
	if proc == nil {
		return newErr(KindNullProcessAddition, name)
	}
	if _, exists := p.processes[name]; exists {
		return newErr(KindDuplicateProcessName, name)
	}
	if cfg == nil {
		cfg = NewConfig(name)
	}
	_ = cfg.Set(NameKey, name) //nolint:errcheck // a read-only _name is left as the caller pinned it
	p.processes[name] = proc
	p.configs[name] = cfg
	p.order = append(p.order, name)
	p.metrics.Gauge(PipelineProcessesGauge).Set(float64(len(p.processes)))
	return nil
}

// AddCluster registers a named cluster. It is expanded into ordinary
// processes during SetupPipeline.
func (p *Pipeline) AddCluster(name string, cluster Cluster, cfg *Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PipelineInitial {
		return newErr(KindAddAfterSetup, name)
	}
	if cluster == nil {
		return newErr(KindNullProcessAddition, name)
	}
	if _, exists := p.clusters[name]; exists {
		return newErr(KindDuplicateProcessName, name)
	}
	if cfg == nil {
		cfg = NewConfig(name)
	}
	p.clusters[name] = cluster
	p.configs[name] = cfg
	return nil
}

// RemoveProcess unregisters a process and drops every connection that
// references it.
func (p *Pipeline) RemoveProcess(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PipelineInitial {
		return newErr(KindRemoveAfterSetup, name)
	}
	if _, ok := p.processes[name]; !ok {
		return newErr(KindNoSuchProcess, name)
	}
	delete(p.processes, name)
	delete(p.configs, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	kept := p.connections[:0]
	for _, c := range p.connections {
		if c.UpProcess == name || c.DownProcess == name {
			continue
		}
		kept = append(kept, c)
	}
	p.connections = kept
	p.metrics.Gauge(PipelineProcessesGauge).Set(float64(len(p.processes)))
	p.metrics.Gauge(PipelineConnectionsGauge).Set(float64(len(p.connections)))
	return nil
}

// portLookup finds the PortSpec for process:port, searching processes
// already registered (clusters are resolved in a later pass).
func (p *Pipeline) portLookup(process, port string) (PortSpec, bool) {
	proc, ok := p.processes[process]
	if !ok {
		return PortSpec{}, false
	}
	for _, spec := range proc.Ports() {
		if spec.Name == port {
			return spec, true
		}
	}
	return PortSpec{}, false
}

// Connect joins an output port to an input port. Concrete-type mismatches
// are rejected immediately; flow_dependent/any/data_dependent couplings are
// resolved later by type inference.
func (p *Pipeline) Connect(upProcess, upPort, downProcess, downPort string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PipelineInitial {
		return newErr(KindConnectionAfterSetup, fmt.Sprintf("%s.%s->%s.%s", upProcess, upPort, downProcess, downPort))
	}
	_, upIsCluster := p.clusters[upProcess]
	_, downIsCluster := p.clusters[downProcess]
	if _, ok := p.processes[upProcess]; !ok && !upIsCluster {
		return newErr(KindNoSuchProcess, upProcess)
	}
	if _, ok := p.processes[downProcess]; !ok && !downIsCluster {
		return newErr(KindNoSuchProcess, downProcess)
	}

	if !upIsCluster && !downIsCluster {
		upSpec, ok := p.portLookup(upProcess, upPort)
		if !ok {
			return &FlowError{Kind: KindNoSuchPort, Process: upProcess, Port: upPort}
		}
		downSpec, ok := p.portLookup(downProcess, downPort)
		if !ok {
			return &FlowError{Kind: KindNoSuchPort, Process: downProcess, Port: downPort}
		}
		if IsConcreteType(upSpec.Type) && IsConcreteType(downSpec.Type) && upSpec.Type != downSpec.Type {
			return &FlowError{Kind: KindConnectionTypeMismatch, Process: upProcess, Port: upPort, Peer: downProcess, PeerPort: downPort}
		}
		if upSpec.Flags.Has(FlagConst) && downSpec.Flags.Has(FlagMutate) {
			return &FlowError{Kind: KindConnectionFlagMismatch, Process: upProcess, Port: upPort, Peer: downProcess, PeerPort: downPort}
		}
	}

	conn := Connection{UpProcess: upProcess, UpPort: upPort, DownProcess: downProcess, DownPort: downPort}
	p.connections = append(p.connections, conn)
	p.metrics.Gauge(PipelineConnectionsGauge).Set(float64(len(p.connections)))
	return nil
}

// Disconnect removes a previously made connection.
func (p *Pipeline) Disconnect(upProcess, upPort, downProcess, downPort string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PipelineInitial {
		return newErr(KindDisconnectionAfterSetup, "")
	}
	target := Connection{UpProcess: upProcess, UpPort: upPort, DownProcess: downProcess, DownPort: downPort}
	for i, c := range p.connections {
		if c == target {
			p.connections = append(p.connections[:i], p.connections[i+1:]...)
			p.metrics.Gauge(PipelineConnectionsGauge).Set(float64(len(p.connections)))
			return nil
		}
	}
	return newErr(KindMissingConnection, target.String())
}

// ProcessNames returns every registered process name in insertion order.
func (p *Pipeline) ProcessNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// ProcessByName returns the process registered under name.
func (p *Pipeline) ProcessByName(name string) (Process, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proc, ok := p.processes[name]
	return proc, ok
}

// ConnectionsFromAddr returns every connection whose upstream endpoint is
// process:port.
func (p *Pipeline) ConnectionsFromAddr(process, port string) []Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Connection
	for _, c := range p.connections {
		if c.UpProcess == process && c.UpPort == port {
			out = append(out, c)
		}
	}
	return out
}

// ConnectionsToAddr returns the connection whose downstream endpoint is
// process:port, if any (inputs accept a single edge).
func (p *Pipeline) ConnectionsToAddr(process, port string) (Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.connections {
		if c.DownProcess == process && c.DownPort == port {
			return c, true
		}
	}
	return Connection{}, false
}

// ProcessRate returns the per-cycle execution rate assigned to name by
// frequency analysis during SetupPipeline.
func (p *Pipeline) ProcessRate(name string) (*big.Rat, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rates[name]
	return r, ok
}

// EdgeForConnection returns the edge materialized for a connection at
// setup, if the pipeline has been set up.
func (p *Pipeline) EdgeForConnection(c Connection) (*Edge, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.edges[c]
	return e, ok
}

// expandClusters replaces every registered cluster with its expansion,
// rewriting connections made against the cluster's own name onto the
// resolved child process:port addresses. Clusters are expanded in
// lexicographic name order so setup behaves deterministically regardless
// of registration order.
func (p *Pipeline) expandClusters() error {
	names := make([]string, 0, len(p.clusters))
	for name := range p.clusters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, clusterName := range names {
		cluster := p.clusters[clusterName]
		children, childConns, err := cluster.Expand()
		if err != nil {
			return err
		}
		for _, nc := range children {
			qualified := clusterName + "/" + nc.Name
			p.processes[qualified] = nc.Process
			p.configs[qualified] = p.configs[clusterName].Subblock(nc.Name)
			p.order = append(p.order, qualified)
		}
		for _, c := range childConns {
			c.UpProcess = clusterName + "/" + c.UpProcess
			c.DownProcess = clusterName + "/" + c.DownProcess
			p.connections = append(p.connections, c)
		}

		for i, c := range p.connections {
			if c.UpProcess == clusterName {
				childProc, childPort, ok := cluster.MapPort(c.UpPort)
				if !ok {
					return &FlowError{Kind: KindNoSuchPort, Process: clusterName, Port: c.UpPort}
				}
				p.connections[i].UpProcess = clusterName + "/" + childProc
				p.connections[i].UpPort = childPort
			}
			if c.DownProcess == clusterName {
				childProc, childPort, ok := cluster.MapPort(c.DownPort)
				if !ok {
					return &FlowError{Kind: KindNoSuchPort, Process: clusterName, Port: c.DownPort}
				}
				p.connections[i].DownProcess = clusterName + "/" + childProc
				p.connections[i].DownPort = childPort
			}
		}
	}
	p.clusters = make(map[string]Cluster)
	return nil
}

// checkOrphans fails with KindOrphanedProcesses if any process participates
// in zero connections while either carrying a required port or sharing the
// pipeline with other processes. A single standalone process with no
// required ports is a legitimate minimal pipeline.
func (p *Pipeline) checkOrphans() error {
	touched := make(map[string]bool)
	for _, c := range p.connections {
		touched[c.UpProcess] = true
		touched[c.DownProcess] = true
	}
	var orphans []string
	for _, name := range p.order {
		if touched[name] {
			continue
		}
		required := false
		for _, spec := range p.processes[name].Ports() {
			if spec.Flags.Has(FlagRequired) {
				required = true
				break
			}
		}
		if required || len(p.order) > 1 {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return newErr(KindOrphanedProcesses, fmt.Sprint(orphans))
	}
	return nil
}

// checkRequiredPorts fails with KindMissingConnection if any FlagRequired
// port lacks a connection.
func (p *Pipeline) checkRequiredPorts() error {
	for _, name := range p.order {
		proc := p.processes[name]
		for _, spec := range proc.Ports() {
			if !spec.Flags.Has(FlagRequired) {
				continue
			}
			switch spec.Direction {
			case DirectionInput:
				found := false
				for _, c := range p.connections {
					if c.DownProcess == name && c.DownPort == spec.Name {
						found = true
						break
					}
				}
				if !found {
					return &FlowError{Kind: KindMissingConnection, Process: name, Port: spec.Name}
				}
			case DirectionOutput:
				found := false
				for _, c := range p.connections {
					if c.UpProcess == name && c.UpPort == spec.Name {
						found = true
						break
					}
				}
				if !found {
					return &FlowError{Kind: KindMissingConnection, Process: name, Port: spec.Name}
				}
			}
		}
	}
	return nil
}

// checkFlags validates port-flag compatibility across the final connection
// set. const/mutate is also rejected eagerly in Connect for immediate
// feedback, but shared/mutate depends on an output's total fan-out, which
// is only known once every connection has been made — so it is checked
// here, once, at setup. A shared output may feed any number of downstream
// inputs as long as at most one of them carries mutate, and only if that
// output has no other connection.
func (p *Pipeline) checkFlags() error {
	for _, c := range p.connections {
		if c.UpProcess == c.DownProcess {
			continue
		}
		upSpec, ok := p.portLookup(c.UpProcess, c.UpPort)
		if !ok {
			continue
		}
		downSpec, ok := p.portLookup(c.DownProcess, c.DownPort)
		if !ok {
			continue
		}
		if upSpec.Flags.Has(FlagConst) && downSpec.Flags.Has(FlagMutate) {
			return &FlowError{Kind: KindConnectionFlagMismatch, Process: c.UpProcess, Port: c.UpPort, Peer: c.DownProcess, PeerPort: c.DownPort}
		}
		if upSpec.Flags.Has(FlagShared) && downSpec.Flags.Has(FlagMutate) {
			fanout := 0
			for _, other := range p.connections {
				if other.UpProcess == c.UpProcess && other.UpPort == c.UpPort {
					fanout++
				}
			}
			if fanout > 1 {
				return &FlowError{Kind: KindConnectionFlagMismatch, Process: c.UpProcess, Port: c.UpPort, Peer: c.DownProcess, PeerPort: c.DownPort}
			}
		}
	}
	return nil
}

// checkDAG fails with KindNotADAG if the connection graph, ignoring
// self-loops, contains a cycle.
func (p *Pipeline) checkDAG() error {
	adj := make(map[string][]string)
	for _, c := range p.connections {
		if c.UpProcess == c.DownProcess {
			continue
		}
		adj[c.UpProcess] = append(adj[c.UpProcess], c.DownProcess)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(n string) error
	visit = func(n string) error {
		color[n] = gray
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				return newErr(KindNotADAG, n+"->"+next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}
	for _, name := range p.order {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// connectionConfigPrefix names the configuration subblock overriding one
// connection's edge settings.
func connectionConfigPrefix(c Connection) string {
	return strings.Join([]string{edgeConfigPrefix, c.UpProcess, c.UpPort, c.DownProcess, c.DownPort}, ConfigSeparator)
}

// edgeCapacityFor resolves a connection's edge capacity: per-connection
// override, then the pipeline-wide configured/programmatic default.
func (p *Pipeline) edgeCapacityFor(c Connection) int {
	return ConfigAsDefault(p.cfg, connectionConfigPrefix(c)+ConfigSeparator+"capacity", p.edgeCapacity)
}

// edgeBlockingFor resolves a connection's blocking policy the same way.
func (p *Pipeline) edgeBlockingFor(c Connection) bool {
	def := ConfigAsDefault(p.cfg, edgeBlockingKey, true)
	return ConfigAsDefault(p.cfg, connectionConfigPrefix(c)+ConfigSeparator+"blocking", def)
}

// SetupPipeline runs the full setup sequence: cluster expansion, orphan
// check, process Configure, type inference, flag, frequency, DAG and
// required-port validation, edge creation, and process Init. Calling it
// again without an intervening Reset fails with KindPipelineDuplicateSetup.
func (p *Pipeline) SetupPipeline(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PipelineInitial {
		return newErr(KindPipelineDuplicateSetup, p.state.String())
	}

	ctx, span := p.tracer.StartSpan(ctx, PipelineSetupSpan)
	defer span.Finish()

	capitan.Info(ctx, SignalPipelineSetupStart)

	emit := func(err error) error {
		if err != nil {
			p.state = PipelineSetupFailed
			capitan.Warn(ctx, SignalPipelineSetupFail, FieldDetail.Field(err.Error()))
		} else {
			capitan.Info(ctx, SignalPipelineSetupOK)
		}
		_ = p.hooks.Emit(ctx, PipelineEventSetup, PipelineEvent{State: p.state, Err: err}) //nolint:errcheck
		return err
	}

	if err := p.expandClusters(); err != nil {
		return emit(err)
	}
	if len(p.order) == 0 {
		return emit(newErr(KindNoProcesses, ""))
	}
	if err := p.checkOrphans(); err != nil {
		return emit(err)
	}

	for _, name := range p.order {
		if err := p.processes[name].Configure(p.configs[name]); err != nil {
			return emit(err)
		}
	}

	if err := inferTypes(ctx, p); err != nil {
		return emit(err)
	}
	if err := p.checkFlags(); err != nil {
		return emit(err)
	}
	if err := assignFrequencies(ctx, p); err != nil {
		return emit(err)
	}
	if err := p.checkDAG(); err != nil {
		return emit(err)
	}
	if err := p.checkRequiredPorts(); err != nil {
		return emit(err)
	}

	for _, c := range p.connections {
		if _, exists := p.edges[c]; exists {
			continue
		}
		p.edges[c] = NewEdge(p.edgeCapacityFor(c), p.edgeBlockingFor(c), c.DownProcess, c.DownPort)
	}
	for _, c := range p.connections {
		e := p.edges[c]
		upProc := p.processes[c.UpProcess]
		downProc := p.processes[c.DownProcess]
		if err := upProc.ConnectOutputPort(c.UpPort, e); err != nil {
			return emit(err)
		}
		if err := downProc.ConnectInputPort(c.DownPort, e); err != nil {
			return emit(err)
		}
	}

	for _, name := range p.order {
		if err := p.processes[name].Init(); err != nil {
			return emit(err)
		}
	}

	p.state = PipelineSetupState
	return emit(nil)
}

// Reset returns every process (and the pipeline itself) to its pre-setup
// state. It fails with KindResetRunningPipeline while the pipeline is
// running.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PipelineRunning {
		return newErr(KindResetRunningPipeline, "")
	}
	for _, name := range p.order {
		if err := p.processes[name].Reset(); err != nil {
			return err
		}
	}
	p.edges = make(map[Connection]*Edge)
	p.rates = make(map[string]*big.Rat)
	p.state = PipelineInitial
	capitan.Info(context.Background(), SignalPipelineReset)
	_ = p.hooks.Emit(context.Background(), PipelineEventReset, PipelineEvent{State: p.state}) //nolint:errcheck
	return nil
}

// Reconfigure delivers updated configuration to every top-level process:
// each process receives the subblock under its own name. Processes grafted
// in by cluster expansion (names containing the cluster separator) are not
// reconfigured from the top; a cluster that wants its children updated
// forwards the values itself. Allowed only after SetupPipeline.
func (p *Pipeline) Reconfigure(cfg *Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PipelineInitial {
		return newErr(KindReconfigureBeforeSetup, "")
	}
	if cfg == nil {
		return newErr(KindNullPipelineConfig, "")
	}
	for _, name := range p.order {
		if strings.Contains(name, "/") {
			continue
		}
		sub := cfg.Subblock(name)
		if err := p.processes[name].Reconfigure(sub); err != nil {
			return err
		}
		if err := p.configs[name].Merge(sub); err != nil {
			return err
		}
	}
	return nil
}

// shutdownEdges moves every edge into shutdown: blocked pushers fail with
// KindEdgeComplete, blocked poppers drain and then see a synthetic
// complete. Called by schedulers on Stop/Shutdown.
func (p *Pipeline) shutdownEdges() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.edges {
		e.MarkDownstreamComplete()
		e.CloseUpstream()
	}
}

// markRunning and markStopped are called by a Scheduler driving this
// pipeline; they are not part of the setup contract.
func (p *Pipeline) markRunning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PipelineSetupState {
		p.state = PipelineRunning
	}
}

func (p *Pipeline) markStopped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = PipelineStopped
}

// OnSetup registers a handler invoked after every SetupPipeline attempt
// (success or failure).
func (p *Pipeline) OnSetup(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventSetup, handler)
	return err
}

// Metrics returns the pipeline's metrics registry.
func (p *Pipeline) Metrics() *metricz.Registry {
	return p.metrics
}
