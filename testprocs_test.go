package flowgraph

import (
	"context"
	"math/big"
)

// The processes in this file are minimal fixtures used by the end-to-end
// tests: a numeric source, a few simple transforms and sinks, and a couple
// of deliberately awkward ones (self-feedback, orphan, flow_dependent
// coupling) that exercise edge cases in setup.

// numbersProcess emits 0, 1, 2, ... on "number" until it has emitted
// config key "count" values (default 10), then emits complete.
type numbersProcess struct {
	*BaseProcess
	count     int
	emitted   int
	completed bool
	stamp     Stamp
}

func newNumbersProcess(name string) Process {
	p := &numbersProcess{BaseProcess: NewBaseProcess(name), count: 10}
	p.AddPort(NewPortSpec("number", DirectionOutput, "int", FlagRequired))
	return p
}

func (p *numbersProcess) Configure(cfg *Config) error {
	p.count = ConfigAsDefault(cfg, "count", 10)
	return nil
}

func (p *numbersProcess) Init() error {
	p.stamp = NewStamp(big.NewRat(1, 1))
	return nil
}

func (p *numbersProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "number")
	}
	stamp := p.stamp
	p.stamp = p.stamp.Increment()
	if p.emitted >= p.count {
		p.completed = true
		return p.PushOutputs(ctx, "number", stamp, CompleteDatum())
	}
	n := p.emitted
	p.emitted++
	return p.PushOutputs(ctx, "number", stamp, NewDatum("int", n))
}

func (p *numbersProcess) Reconfigure(cfg *Config) error {
	if v, err := ConfigAs[int](cfg, "count"); err == nil {
		p.count = v
	}
	return nil
}

func (p *numbersProcess) Reset() error {
	p.emitted, p.completed = 0, false
	return p.BaseProcess.Reset()
}

// multiplicationProcess multiplies its "factor1"/"factor2" inputs.
type multiplicationProcess struct {
	*BaseProcess
	completed bool
}

func newMultiplicationProcess(name string) Process {
	p := &multiplicationProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("factor1", DirectionInput, "int", FlagRequired))
	p.AddPort(NewPortSpec("factor2", DirectionInput, "int", FlagRequired))
	p.AddPort(NewPortSpec("product", DirectionOutput, "int", FlagRequired))
	return p
}

func (p *multiplicationProcess) Configure(*Config) error   { return nil }
func (p *multiplicationProcess) Init() error               { return nil }
func (p *multiplicationProcess) Reconfigure(*Config) error { return nil }

func (p *multiplicationProcess) Reset() error {
	p.completed = false
	return p.BaseProcess.Reset()
}

func (p *multiplicationProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "product")
	}
	e1, _ := p.InputEdge("factor1")
	e2, _ := p.InputEdge("factor2")

	s1, d1, err := e1.Pop(ctx)
	if err != nil {
		return err
	}
	if d1.Kind() == KindComplete {
		p.completed = true
		return p.PushOutputs(ctx, "product", s1, CompleteDatum())
	}
	_, d2, err := e2.Pop(ctx)
	if err != nil {
		return err
	}
	if d2.Kind() == KindComplete {
		p.completed = true
		return p.PushOutputs(ctx, "product", s1, CompleteDatum())
	}

	a, err := GetDatum[int](d1)
	if err != nil {
		return err
	}
	b, err := GetDatum[int](d2)
	if err != nil {
		return err
	}
	return p.PushOutputs(ctx, "product", s1, NewDatum("int", a*b))
}

// printNumberProcess records every "number" it receives (test visibility
// substitute for the original's file-writing sink, config key "output").
type printNumberProcess struct {
	*BaseProcess
	received []int
	done     bool
}

func newPrintNumberProcess(name string) Process {
	p := &printNumberProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("number", DirectionInput, "int", FlagRequired))
	return p
}

func (p *printNumberProcess) Configure(*Config) error   { return nil }
func (p *printNumberProcess) Init() error               { return nil }
func (p *printNumberProcess) Reconfigure(*Config) error { return nil }

func (p *printNumberProcess) Reset() error {
	p.received, p.done = nil, false
	return p.BaseProcess.Reset()
}

func (p *printNumberProcess) Step(ctx context.Context) error {
	if p.done {
		return newErr(KindEdgeComplete, "number")
	}
	e, _ := p.InputEdge("number")
	_, d, err := e.Pop(ctx)
	if err != nil {
		return err
	}
	if d.Kind() == KindComplete {
		p.done = true
		return newErr(KindEdgeComplete, "number")
	}
	if d.Kind() == KindEmpty {
		return nil
	}
	n, err := GetDatum[int](d)
	if err != nil {
		return err
	}
	p.received = append(p.received, n)
	return nil
}

// duplicateProcess fans its "input" out to "output" copies times each
// (config key "copies").
type duplicateProcess struct {
	*BaseProcess
	copies    int
	completed bool
}

func newDuplicateProcess(name string) Process {
	p := &duplicateProcess{BaseProcess: NewBaseProcess(name), copies: 1}
	p.AddPort(NewPortSpec("input", DirectionInput, TypeAny, FlagRequired))
	p.AddPort(NewPortSpec("output", DirectionOutput, TypeAny, FlagRequired))
	return p
}

func (p *duplicateProcess) Configure(cfg *Config) error {
	p.copies = ConfigAsDefault(cfg, "copies", 1)
	return nil
}
func (p *duplicateProcess) Init() error               { return nil }
func (p *duplicateProcess) Reconfigure(*Config) error { return nil }

func (p *duplicateProcess) Reset() error {
	p.completed = false
	return p.BaseProcess.Reset()
}

func (p *duplicateProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "output")
	}
	e, _ := p.InputEdge("input")
	stamp, d, err := e.Pop(ctx)
	if err != nil {
		return err
	}
	if d.Kind() == KindComplete {
		p.completed = true
	}
	for i := 0; i < p.copies; i++ {
		if err := p.PushOutputs(ctx, "output", stamp, d); err != nil {
			return err
		}
		stamp = stamp.Increment()
	}
	return nil
}

// skipProcess passes "input" to "output" except for every skip-th item
// (config key "skip"), which it drops (emits an empty datum instead).
type skipProcess struct {
	*BaseProcess
	skip      int
	seen      int
	completed bool
}

func newSkipProcess(name string) Process {
	p := &skipProcess{BaseProcess: NewBaseProcess(name), skip: 0}
	p.AddPort(NewPortSpec("input", DirectionInput, TypeAny, FlagRequired))
	p.AddPort(NewPortSpec("output", DirectionOutput, TypeAny, FlagRequired))
	return p
}

func (p *skipProcess) Configure(cfg *Config) error {
	p.skip = ConfigAsDefault(cfg, "skip", 0)
	return nil
}
func (p *skipProcess) Init() error              { return nil }
func (p *skipProcess) Reconfigure(*Config) error { return nil }

func (p *skipProcess) Reset() error {
	p.seen, p.completed = 0, false
	return p.BaseProcess.Reset()
}

func (p *skipProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "output")
	}
	e, _ := p.InputEdge("input")
	stamp, d, err := e.Pop(ctx)
	if err != nil {
		return err
	}
	if d.Kind() == KindComplete {
		p.completed = true
		return p.PushOutputs(ctx, "output", stamp, d)
	}
	p.seen++
	if p.skip > 0 && p.seen%p.skip == 0 {
		return p.PushOutputs(ctx, "output", stamp, EmptyDatum())
	}
	return p.PushOutputs(ctx, "output", stamp, d)
}

// flowProcess couples its "in"/"out" pair through a shared flow_dependent
// tag, so a concrete type arriving on either connected port must cascade
// across the coupling to the other.
type flowProcess struct {
	*BaseProcess
	completed bool
}

func newFlowProcess(name string) Process {
	p := &flowProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("in", DirectionInput, FlowDependentTag("x"), FlagRequired))
	p.AddPort(NewPortSpec("out", DirectionOutput, FlowDependentTag("x"), FlagRequired))
	return p
}

func (p *flowProcess) Configure(*Config) error   { return nil }
func (p *flowProcess) Init() error               { return nil }
func (p *flowProcess) Reconfigure(*Config) error { return nil }

func (p *flowProcess) Reset() error {
	p.completed = false
	return p.BaseProcess.Reset()
}

func (p *flowProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "out")
	}
	e, _ := p.InputEdge("in")
	stamp, d, err := e.Pop(ctx)
	if err != nil {
		return err
	}
	if d.Kind() == KindComplete {
		p.completed = true
	}
	return p.PushOutputs(ctx, "out", stamp, d)
}

// takeStringProcess requires a concrete "string" input, used to force a
// flow_dependent coupling to resolve to "string" in tests.
type takeStringProcess struct {
	*BaseProcess
	received  []string
	completed bool
}

func newTakeStringProcess(name string) Process {
	p := &takeStringProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("in", DirectionInput, "string", FlagRequired))
	return p
}

func (p *takeStringProcess) Configure(*Config) error   { return nil }
func (p *takeStringProcess) Init() error               { return nil }
func (p *takeStringProcess) Reconfigure(*Config) error { return nil }

func (p *takeStringProcess) Reset() error {
	p.received, p.completed = nil, false
	return p.BaseProcess.Reset()
}

func (p *takeStringProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "in")
	}
	e, _ := p.InputEdge("in")
	_, d, err := e.Pop(ctx)
	if err != nil {
		return err
	}
	if d.Kind() == KindComplete {
		p.completed = true
		return newErr(KindEdgeComplete, "in")
	}
	s, err := GetDatum[string](d)
	if err != nil {
		return err
	}
	p.received = append(p.received, s)
	return nil
}

// stringSourceProcess emits a fixed sequence of strings then completes.
type stringSourceProcess struct {
	*BaseProcess
	values    []string
	next      int
	completed bool
	stamp     Stamp
}

func newStringSourceProcess(name string, values ...string) Process {
	p := &stringSourceProcess{BaseProcess: NewBaseProcess(name), values: values}
	p.AddPort(NewPortSpec("out", DirectionOutput, "string", FlagRequired))
	return p
}

func (p *stringSourceProcess) Configure(*Config) error   { return nil }
func (p *stringSourceProcess) Reconfigure(*Config) error { return nil }

func (p *stringSourceProcess) Init() error {
	p.stamp = NewStamp(big.NewRat(1, 1))
	return nil
}

func (p *stringSourceProcess) Reset() error {
	p.next, p.completed = 0, false
	return p.BaseProcess.Reset()
}

func (p *stringSourceProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "out")
	}
	stamp := p.stamp
	p.stamp = p.stamp.Increment()
	if p.next >= len(p.values) {
		p.completed = true
		return p.PushOutputs(ctx, "out", stamp, CompleteDatum())
	}
	v := p.values[p.next]
	p.next++
	return p.PushOutputs(ctx, "out", stamp, NewDatum("string", v))
}

// feedbackProcess connects its own output back to its input (a self-loop),
// counting how many times it has seen a value before emitting complete.
type feedbackProcess struct {
	*BaseProcess
	ticks     int
	limit     int
	completed bool
}

func newFeedbackProcess(name string) Process {
	p := &feedbackProcess{BaseProcess: NewBaseProcess(name), limit: 3}
	p.AddPort(NewPortSpec("in", DirectionInput, "int", FlagRequired|FlagNoDep))
	p.AddPort(NewPortSpec("out", DirectionOutput, "int", FlagRequired))
	return p
}

func (p *feedbackProcess) Configure(*Config) error   { return nil }
func (p *feedbackProcess) Init() error               { return nil }
func (p *feedbackProcess) Reconfigure(*Config) error { return nil }

func (p *feedbackProcess) Reset() error {
	p.ticks, p.completed = 0, false
	return p.BaseProcess.Reset()
}

func (p *feedbackProcess) Step(ctx context.Context) error {
	if p.completed {
		return newErr(KindEdgeComplete, "out")
	}
	e, _ := p.InputEdge("in")
	stamp, d, err := e.Pop(ctx)
	if err != nil {
		return err
	}
	if d.Kind() == KindComplete {
		p.completed = true
		return newErr(KindEdgeComplete, "out")
	}
	p.ticks++
	if p.ticks >= p.limit {
		p.completed = true
		return p.PushOutputs(ctx, "out", stamp, CompleteDatum())
	}
	return p.PushOutputs(ctx, "out", stamp, NewDatum("int", p.ticks))
}

// rejectProcess has a single flow_dependent input port and, when
// configured with the test-only "reject" key (spec.md §6), vetoes any
// type inference tries to cascade onto it — the cooperating veto
// process the spec's test suite describes.
type rejectProcess struct {
	*BaseProcess
	reject bool
}

func newRejectProcess(name string) Process {
	p := &rejectProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("in", DirectionInput, FlowDependentTag("y"), FlagRequired))
	return p
}

func (p *rejectProcess) Configure(cfg *Config) error {
	p.reject = ConfigAsDefault(cfg, "reject", false)
	return nil
}
func (p *rejectProcess) Init() error               { return nil }
func (p *rejectProcess) Reconfigure(*Config) error { return nil }
func (p *rejectProcess) Step(context.Context) error { return newErr(KindEdgeComplete, "in") }

// SetInputPortType overrides BaseProcess's default-accepting behavior so
// the "reject" config key can veto propagation.
func (p *rejectProcess) SetInputPortType(port, typ string) bool {
	if p.reject {
		return false
	}
	return p.BaseProcess.SetInputPortType(port, typ)
}

// dataDependentProcess exposes a data_dependent output whose concrete
// type settles during Configure only when the test-only
// "set_on_configure" key (spec.md §6) is true; otherwise it reports
// unresolved, mirroring a process that only learns its output type once
// it has seen real data.
type dataDependentProcess struct {
	*BaseProcess
	resolvedType string
	settled      bool
}

func newDataDependentProcess(name string) Process {
	p := &dataDependentProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("out", DirectionOutput, TypeDataDependent, FlagRequired))
	return p
}

func (p *dataDependentProcess) Configure(cfg *Config) error {
	if ConfigAsDefault(cfg, "set_on_configure", false) {
		p.resolvedType, p.settled = "int", true
	}
	return nil
}
func (p *dataDependentProcess) Init() error               { return nil }
func (p *dataDependentProcess) Reconfigure(*Config) error { return nil }

func (p *dataDependentProcess) ResolvedOutputType(port string) (string, bool) {
	if port != "out" {
		return "", false
	}
	return p.resolvedType, p.settled
}

func (p *dataDependentProcess) Step(ctx context.Context) error {
	return p.PushOutputs(ctx, "out", NewStamp(big.NewRat(1, 1)), CompleteDatum())
}

// reconfigureRecorderProcess records whether Reconfigure delivered a value
// for "new_key", for asserting which processes a pipeline-level
// Reconfigure actually reaches.
type reconfigureRecorderProcess struct {
	*BaseProcess
	reconfigured bool
}

func newReconfigureRecorderProcess(name string) *reconfigureRecorderProcess {
	p := &reconfigureRecorderProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("in", DirectionInput, "int", 0))
	p.AddPort(NewPortSpec("out", DirectionOutput, "int", 0))
	return p
}

func (p *reconfigureRecorderProcess) Configure(*Config) error { return nil }
func (p *reconfigureRecorderProcess) Init() error             { return nil }
func (p *reconfigureRecorderProcess) Step(context.Context) error {
	return newErr(KindEdgeComplete, "out")
}

func (p *reconfigureRecorderProcess) Reconfigure(cfg *Config) error {
	if _, err := cfg.Get("new_key"); err == nil {
		p.reconfigured = true
	}
	return nil
}

// recorderCluster expands into a single reconfigureRecorderProcess child,
// for asserting that cluster children are not reconfigured from the top.
type recorderCluster struct {
	child *reconfigureRecorderProcess
}

func (c *recorderCluster) Expand() ([]NamedProcess, []Connection, error) {
	return []NamedProcess{{Name: "child", Process: c.child}}, nil, nil
}

func (c *recorderCluster) Ports() []PortSpec {
	return []PortSpec{NewPortSpec("in", DirectionInput, "int", 0)}
}

func (c *recorderCluster) MapPort(port string) (string, string, bool) {
	if port == "in" {
		return "child", "in", true
	}
	return "", "", false
}

// orphanProcess has ports but is deliberately never connected, to exercise
// the orphaned-process setup check.
type orphanProcess struct {
	*BaseProcess
}

func newOrphanProcess(name string) Process {
	p := &orphanProcess{BaseProcess: NewBaseProcess(name)}
	p.AddPort(NewPortSpec("unused", DirectionOutput, "int", 0))
	return p
}

func (p *orphanProcess) Configure(*Config) error          { return nil }
func (p *orphanProcess) Init() error                      { return nil }
func (p *orphanProcess) Reconfigure(*Config) error         { return nil }
func (p *orphanProcess) Step(context.Context) error        { return nil }
