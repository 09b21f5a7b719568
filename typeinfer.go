package flowgraph

import (
	"context"
	"sort"

	"github.com/zoobzio/capitan"
)

// typeUnionFind is a minimal disjoint-set structure over portAddr nodes,
// used to compute the type-coupling graph's connected components.
type typeUnionFind struct {
	parent map[portAddr]portAddr
}

func newTypeUnionFind() *typeUnionFind {
	return &typeUnionFind{parent: make(map[portAddr]portAddr)}
}

func (u *typeUnionFind) find(a portAddr) portAddr {
	if _, ok := u.parent[a]; !ok {
		u.parent[a] = a
		return a
	}
	if u.parent[a] != a {
		u.parent[a] = u.find(u.parent[a])
	}
	return u.parent[a]
}

func (u *typeUnionFind) union(a, b portAddr) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// inferTypes resolves every any/flow_dependent/data_dependent port's
// concrete type by grouping ports into a type-coupling graph: two ports
// are coupled when a connection joins them, or when they are the same
// process's ports sharing a flow_dependent:<tag> type. Each connected
// component with exactly one concrete type present cascades it onto the
// component's open ports; a component with more than one concrete type is
// a rejection; a component with none is left as it is, and afterwards any
// connected port still typed flow_dependent or data_dependent is an error
// (ports typed any are allowed to stay any).
func inferTypes(ctx context.Context, p *Pipeline) error {
	uf := newTypeUnionFind()

	allAddrs := func() []portAddr {
		var addrs []portAddr
		for _, name := range p.order {
			for _, spec := range p.processes[name].Ports() {
				addrs = append(addrs, portAddr{process: name, port: spec.Name})
			}
		}
		return addrs
	}()
	for _, a := range allAddrs {
		uf.find(a) // ensure every port has a singleton component to start
	}

	adj := buildTypeAdjacency(p)
	for a, neighbors := range adj {
		for _, b := range neighbors {
			uf.union(a, b)
		}
	}

	components := make(map[portAddr][]portAddr)
	for _, a := range allAddrs {
		root := uf.find(a)
		components[root] = append(components[root], a)
	}

	roots := make([]portAddr, 0, len(components))
	for root, members := range components {
		sort.Slice(members, func(i, j int) bool { return members[i].String() < members[j].String() })
		components[root] = members
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return components[roots[i]][0].String() < components[roots[j]][0].String()
	})

	for _, root := range roots {
		members := components[root]
		if err := resolveComponent(ctx, p, members, adj); err != nil {
			return err
		}
	}

	if err := resolveDataDependent(ctx, p); err != nil {
		return err
	}

	return finalUntypedCheck(p, connectedAddrs(p))
}

// buildTypeAdjacency builds the type-coupling graph's edge list: a
// connection joins its two ports, and a process's ports sharing a
// flow_dependent:<tag> type are joined to each other. resolveComponent
// walks this graph to measure how many hops a propagated type travels
// before reaching a refusing port.
func buildTypeAdjacency(p *Pipeline) map[portAddr][]portAddr {
	adj := make(map[portAddr][]portAddr)
	join := func(a, b portAddr) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}

	for _, c := range p.connections {
		join(portAddr{process: c.UpProcess, port: c.UpPort}, portAddr{process: c.DownProcess, port: c.DownPort})
	}

	for _, name := range p.order {
		byTag := make(map[string][]string)
		for _, spec := range p.processes[name].Ports() {
			if tag, ok := IsFlowDependent(spec.Type); ok {
				byTag[tag] = append(byTag[tag], spec.Name)
			}
		}
		for _, ports := range byTag {
			for i := 1; i < len(ports); i++ {
				join(portAddr{process: name, port: ports[0]}, portAddr{process: name, port: ports[i]})
			}
		}
	}
	return adj
}

// connectedAddrs reports every port address touched by at least one
// connection.
func connectedAddrs(p *Pipeline) map[portAddr]bool {
	connected := make(map[portAddr]bool)
	for _, c := range p.connections {
		connected[portAddr{process: c.UpProcess, port: c.UpPort}] = true
		connected[portAddr{process: c.DownProcess, port: c.DownPort}] = true
	}
	return connected
}

func portType(p *Pipeline, a portAddr) string {
	spec, ok := p.portLookup(a.process, a.port)
	if !ok {
		return ""
	}
	return spec.Type
}

// resolveComponent cascades a component's single concrete type onto its
// open (flow_dependent/any) ports. Propagation walks the type-coupling
// graph outward from the ports that were concrete to begin with (hop 0):
// a refusal one hop from an originally-concrete port is a local refusal
// (KindConnectionDependentType); a refusal reached only by propagating
// through another port that itself just adopted the type (two or more
// hops out) is a cascaded refusal (KindConnectionDependentTypeCascade).
func resolveComponent(ctx context.Context, p *Pipeline, members []portAddr, adj map[portAddr][]portAddr) error {
	concrete := make(map[string]bool)
	var origins []portAddr
	for _, a := range members {
		t := portType(p, a)
		if IsConcreteType(t) {
			concrete[t] = true
			origins = append(origins, a)
		}
	}
	if len(concrete) == 0 {
		return nil // left for finalUntypedCheck / resolveDataDependent
	}
	if len(concrete) > 1 {
		capitan.Warn(ctx, SignalTypeCascadeReject, FieldPort.Field(members[0].String()))
		return newErr(KindConnectionTypeMismatch, members[0].String())
	}
	var resolved string
	for t := range concrete {
		resolved = t
	}

	sort.Slice(origins, func(i, j int) bool { return origins[i].String() < origins[j].String() })

	hops := make(map[portAddr]int, len(origins))
	queue := make([]portAddr, 0, len(origins))
	for _, a := range origins {
		hops[a] = 0
		queue = append(queue, a)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		neighbors := append([]portAddr(nil), adj[cur]...)
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].String() < neighbors[j].String() })

		for _, next := range neighbors {
			if _, visited := hops[next]; visited {
				continue
			}
			hops[next] = hops[cur] + 1

			t := portType(p, next)
			if t != resolved {
				_, isFlowDep := IsFlowDependent(t)
				if isFlowDep || t == TypeAny {
					proc := p.processes[next.process]
					spec, _ := p.portLookup(next.process, next.port)
					var ok bool
					switch spec.Direction {
					case DirectionInput:
						ok = proc.SetInputPortType(next.port, resolved)
					case DirectionOutput:
						ok = proc.SetOutputPortType(next.port, resolved)
					}
					if !ok {
						kind := KindConnectionDependentType
						if hops[next] > 1 {
							kind = KindConnectionDependentTypeCascade
						}
						return &FlowError{Kind: kind, Process: next.process, Port: next.port, Detail: resolved}
					}
					capitan.Info(ctx, SignalTypeResolved, FieldProcess.Field(next.process), FieldPort.Field(next.port), FieldType.Field(resolved))
				}
			}

			queue = append(queue, next)
		}
	}
	return nil
}

// resolveDataDependent asks every DataDependentSetter process for its
// resolved output types (set during Configure) and propagates each onto
// the connected downstream input port. An output that never settles is
// left as data_dependent for finalUntypedCheck to judge: a process may
// legitimately resolve it lazily at first emission instead, so only a
// connected-and-still-unresolved port is an error.
func resolveDataDependent(ctx context.Context, p *Pipeline) error {
	for _, name := range p.order {
		proc := p.processes[name]
		dds, ok := proc.(DataDependentSetter)
		if !ok {
			continue
		}
		for _, spec := range proc.Ports() {
			if spec.Type != TypeDataDependent || spec.Direction != DirectionOutput {
				continue
			}
			typ, settled := dds.ResolvedOutputType(spec.Name)
			if !settled {
				continue
			}
			proc.SetOutputPortType(spec.Name, typ)
			for _, c := range p.connections {
				if c.UpProcess != name || c.UpPort != spec.Name {
					continue
				}
				down := p.processes[c.DownProcess]
				if !down.SetInputPortType(c.DownPort, typ) {
					return &FlowError{Kind: KindConnectionDependentType, Process: c.DownProcess, Port: c.DownPort, Detail: typ}
				}
				capitan.Info(ctx, SignalTypeResolved, FieldProcess.Field(c.DownProcess), FieldPort.Field(c.DownPort), FieldType.Field(typ))
			}
		}
	}
	return nil
}

// finalUntypedCheck rejects any still-unresolved flow_dependent or
// data_dependent port that participates in a connection, per spec §4.7
// step 4.
func finalUntypedCheck(p *Pipeline, connected map[portAddr]bool) error {
	for _, name := range p.order {
		for _, spec := range p.processes[name].Ports() {
			addr := portAddr{process: name, port: spec.Name}
			if !connected[addr] {
				continue
			}
			if _, fd := IsFlowDependent(spec.Type); fd {
				return &FlowError{Kind: KindUntypedConnection, Process: name, Port: spec.Name}
			}
			if spec.Type == TypeDataDependent {
				return &FlowError{Kind: KindUntypedDataDependent, Process: name, Port: spec.Name}
			}
		}
	}
	return nil
}
