// Package flowgraph is a dataflow pipeline runtime: user-authored processes
// declare typed input/output ports, are wired into a directed graph,
// validated for type, flag, and frequency correctness, and then driven by a
// scheduler that moves stamped data units ("datums") across bounded edges
// until the pipeline completes.
//
// # Core Concepts
//
//   - Stamp: an ordering token, organized by color, attached to every datum.
//   - Datum: a tagged value flowing through the graph (data, empty, complete,
//     error, invalid).
//   - Config: a hierarchical key/value store handed to processes at
//     configure/reconfigure time.
//   - Port: a named, typed, flagged endpoint on a Process.
//   - Edge: a bounded, blocking, single-producer/single-consumer channel
//     connecting one output port to one input port.
//   - Process: the unit of user work — declares ports, steps, reconfigures.
//   - Pipeline: owns processes and connections, validates the graph at
//     setup (typing, flags, frequencies, acyclicity), and produces edges.
//   - Scheduler: drives a validated pipeline through its execution lifecycle.
//
// # Building a pipeline
//
//	p := flowgraph.NewPipeline()
//	p.AddProcess("up", numbersProcess(), nil)
//	p.AddProcess("down", printProcess(), nil)
//	p.Connect("up", "number", "down", "number")
//	if err := p.SetupPipeline(ctx); err != nil { ... }
//
//	sched, err := flowgraph.NewSerialScheduler(flowgraph.NewConfig("scheduler"), p)
//	sched.Start(ctx)
//	sched.Wait()
//
// # Observability
//
// flowgraph uses github.com/zoobzio/capitan for structured signal emission,
// github.com/zoobzio/metricz for counters, github.com/zoobzio/tracez for
// spans, github.com/zoobzio/hookz for lifecycle event hooks, and
// github.com/zoobzio/clockz as the clock abstraction behind an edge's
// periodic stall re-warning while a Push stays blocked, so tests can
// advance a fake clock instead of sleeping to observe it.
//
// The package provides a minimal in-memory Registry for looking process and
// scheduler factories up by name. Concrete process implementations,
// catalog loading, configuration-file parsing, and a CLI are external
// collaborators and are not part of this package.
package flowgraph
