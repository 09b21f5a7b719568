package flowgraph

import "context"

// Process is the contract a user-authored dataflow node must satisfy. The
// pipeline and scheduler drive a Process entirely through this interface;
// concrete implementations (numeric sources, sinks, transforms, clusters'
// expanded children) are external collaborators.
type Process interface {
	// Configure is called once after construction, before Init. The
	// process may consult its configuration and register/adjust ports.
	Configure(cfg *Config) error

	// Init is called after every port type has been resolved and edges
	// have been attached. It performs final checks and allocates state.
	Init() error

	// Step drives one unit of work. It must be callable repeatedly and
	// must terminate without indefinite work.
	Step(ctx context.Context) error

	// Reset returns the process to its pre-Init state.
	Reset() error

	// Reconfigure adopts updated configuration values. The process
	// decides which keys are live-editable; unspecified keys may be
	// ignored.
	Reconfigure(cfg *Config) error

	// Ports returns the process's declared ports. Implementations must
	// return a stable, freshly-built slice.
	Ports() []PortSpec

	// ConnectInputPort attaches edge as the (sole) incoming edge for an
	// input port.
	ConnectInputPort(port string, edge *Edge) error

	// ConnectOutputPort attaches edge as one of possibly many outgoing
	// edges for an output port.
	ConnectOutputPort(port string, edge *Edge) error

	// SetInputPortType/SetOutputPortType are invoked by type inference
	// when it wants a flow_dependent or any port to adopt a concrete
	// type. The process may refuse by returning false.
	SetInputPortType(port, typ string) bool
	SetOutputPortType(port, typ string) bool
}

// DataDependentSetter is implemented by processes that resolve a
// data_dependent output's type themselves (typically in Configure, but
// possibly later, before they would emit on it). Type inference's
// data-dependent pass consults this to learn the resolved type, if any.
type DataDependentSetter interface {
	// ResolvedOutputType returns the concrete type a data_dependent output
	// has settled on, and whether it has settled yet.
	ResolvedOutputType(port string) (typ string, resolved bool)
}

// BaseProcess provides the bookkeeping every Process needs — port
// registration, edge attachment, and default (accepting) type-inference
// hooks — so concrete processes can embed it and focus on Configure/Step.
type BaseProcess struct {
	name     string
	ports    map[string]PortSpec
	order    []string
	inEdges  map[string]*Edge
	outEdges map[string][]*Edge
}

// NewBaseProcess creates a BaseProcess for the given runtime instance name.
func NewBaseProcess(name string) *BaseProcess {
	return &BaseProcess{
		name:     name,
		ports:    make(map[string]PortSpec),
		inEdges:  make(map[string]*Edge),
		outEdges: make(map[string][]*Edge),
	}
}

// Name returns the process's runtime instance name.
func (b *BaseProcess) Name() string {
	return b.name
}

// AddPort registers a port. Calling it again for the same name replaces the
// spec while keeping the port's original position in Ports().
func (b *BaseProcess) AddPort(spec PortSpec) {
	if _, exists := b.ports[spec.Name]; !exists {
		b.order = append(b.order, spec.Name)
	}
	b.ports[spec.Name] = spec
}

// Ports implements Process.
func (b *BaseProcess) Ports() []PortSpec {
	out := make([]PortSpec, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.ports[name])
	}
	return out
}

// Port returns the spec for name, if registered.
func (b *BaseProcess) Port(name string) (PortSpec, bool) {
	p, ok := b.ports[name]
	return p, ok
}

// ConnectInputPort implements Process: an input port accepts at most one
// edge.
func (b *BaseProcess) ConnectInputPort(port string, edge *Edge) error {
	b.inEdges[port] = edge
	return nil
}

// ConnectOutputPort implements Process: an output port may accept many
// edges (fan-out).
func (b *BaseProcess) ConnectOutputPort(port string, edge *Edge) error {
	b.outEdges[port] = append(b.outEdges[port], edge)
	return nil
}

// InputEdge returns the edge attached to an input port, if any.
func (b *BaseProcess) InputEdge(port string) (*Edge, bool) {
	e, ok := b.inEdges[port]
	return e, ok
}

// OutputEdges returns every edge attached to an output port (fan-out).
func (b *BaseProcess) OutputEdges(port string) []*Edge {
	return b.outEdges[port]
}

// SetInputPortType implements Process by unconditionally accepting the
// proposed type. Processes with veto semantics (tests, clusters with
// stricter contracts) should not embed this default and instead implement
// their own rejection logic.
func (b *BaseProcess) SetInputPortType(port, typ string) bool {
	spec, ok := b.ports[port]
	if !ok {
		return false
	}
	spec.Type = typ
	b.ports[port] = spec
	return true
}

// SetOutputPortType mirrors SetInputPortType for output ports.
func (b *BaseProcess) SetOutputPortType(port, typ string) bool {
	spec, ok := b.ports[port]
	if !ok {
		return false
	}
	spec.Type = typ
	b.ports[port] = spec
	return true
}

// PushOutputs writes datum/stamp to every edge attached to an output port
// (fan-out). It is a convenience helper Step implementations may use.
func (b *BaseProcess) PushOutputs(ctx context.Context, port string, stamp Stamp, datum Datum) error {
	for _, e := range b.outEdges[port] {
		if err := e.Push(ctx, stamp, datum); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears attached edges, returning the process to its pre-Init state.
// It satisfies Process.Reset by default; concrete processes with their own
// state should shadow it, calling b.BaseProcess.Reset() internally.
func (b *BaseProcess) Reset() error {
	b.inEdges = make(map[string]*Edge)
	b.outEdges = make(map[string][]*Edge)
	return nil
}
