package flowgraph

import (
	"context"
	"math/big"
	"sort"

	"github.com/zoobzio/capitan"
)

// assignFrequencies propagates per-cycle execution rates across the
// pipeline using exact rational arithmetic. Each connected component
// (self-loops and nodep-flagged connections excluded from the
// propagation graph) gets its own local root: the lexicographically
// first process name in the component, assigned rate 1/1. For a
// connection up.upPort -> down.downPort, the expected downstream rate is
//
//	rate(down) = rate(up) * upPort.Frequency / downPort.Frequency
//
// so that the volume of data produced per global tick matches the volume
// consumed. A process reachable by two different paths that disagree on
// its rate is a KindFrequencyMismatch.
func assignFrequencies(ctx context.Context, p *Pipeline) error {
	adj := make(map[string][]Connection)
	nodes := make(map[string]bool)
	for _, name := range p.order {
		nodes[name] = true
	}
	for _, c := range p.connections {
		if c.UpProcess == c.DownProcess {
			continue
		}
		upSpec, _ := p.portLookup(c.UpProcess, c.UpPort)
		downSpec, _ := p.portLookup(c.DownProcess, c.DownPort)
		if upSpec.Flags.Has(FlagNoDep) || downSpec.Flags.Has(FlagNoDep) {
			continue
		}
		adj[c.UpProcess] = append(adj[c.UpProcess], c)
		adj[c.DownProcess] = append(adj[c.DownProcess], Connection{
			UpProcess: c.DownProcess, UpPort: c.DownPort,
			DownProcess: c.UpProcess, DownPort: c.UpPort,
		})
	}

	visited := make(map[string]bool)
	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, root := range names {
		if visited[root] {
			continue
		}
		p.rates[root] = big.NewRat(1, 1)
		visited[root] = true
		queue := []string{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			curRate := p.rates[cur]

			edges := append([]Connection{}, adj[cur]...)
			sort.Slice(edges, func(i, j int) bool {
				return edges[i].DownProcess < edges[j].DownProcess
			})

			for _, c := range edges {
				upSpec, _ := p.portLookup(c.UpProcess, c.UpPort)
				downSpec, _ := p.portLookup(c.DownProcess, c.DownPort)
				if upSpec.Frequency == nil || downSpec.Frequency == nil || downSpec.Frequency.Sign() == 0 {
					continue
				}
				expected := new(big.Rat).Mul(curRate, new(big.Rat).Quo(upSpec.Frequency, downSpec.Frequency))

				if existing, ok := p.rates[c.DownProcess]; ok {
					if existing.Cmp(expected) != 0 {
						capitan.Warn(ctx, SignalFrequencyConflict,
							FieldProcess.Field(c.DownProcess),
							FieldFrequency.Field(expected.RatString()),
						)
						return &FlowError{Kind: KindFrequencyMismatch, Process: c.DownProcess, Detail: expected.RatString() + " vs " + existing.RatString()}
					}
					continue
				}
				p.rates[c.DownProcess] = expected
				visited[c.DownProcess] = true
				queue = append(queue, c.DownProcess)
				capitan.Info(ctx, SignalFrequencyAssigned,
					FieldProcess.Field(c.DownProcess),
					FieldFrequency.Field(expected.RatString()),
				)
			}
		}
	}
	return nil
}
