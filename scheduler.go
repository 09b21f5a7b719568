package flowgraph

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// SchedulerState is a node in the scheduler lifecycle state machine:
// constructed -> started -> paused -> started -> stopped.
type SchedulerState int

const (
	SchedulerConstructed SchedulerState = iota
	SchedulerStarted
	SchedulerPaused
	SchedulerStopped
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerConstructed:
		return "constructed"
	case SchedulerStarted:
		return "started"
	case SchedulerPaused:
		return "paused"
	case SchedulerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Scheduler drives a set up Pipeline's processes. Concrete schedulers
// (serial, thread-per-process, and so on) differ only in how they drive
// Step calls; the lifecycle contract below is shared.
type Scheduler interface {
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	Stop() error
	Wait() error
	Shutdown()
	State() SchedulerState
}

// schedulerImpl is the abstract hook set a concrete scheduler provides.
// BaseScheduler owns the lifecycle state machine and calls these at the
// right transitions, mirroring how sprokit's scheduler base class defers
// to a subclass's _start/_pause/_resume/_stop/_wait.
type schedulerImpl interface {
	start(ctx context.Context) error
	pause() error
	resume() error
	stop() error
	wait() error
}

const (
	SchedulerEventLifecycle = hookz.Key("scheduler.lifecycle")
	SchedulerStartSpan      = tracez.Key("scheduler.start")
)

// SchedulerEvent is delivered to hookz handlers on every lifecycle
// transition.
type SchedulerEvent struct {
	State SchedulerState
	Err   error
}

// BaseScheduler implements the Scheduler lifecycle contract over an
// abstract schedulerImpl. It is embedded by concrete schedulers.
type BaseScheduler struct {
	mu       sync.Mutex
	state    SchedulerState
	pipeline *Pipeline
	cfg      *Config
	impl     schedulerImpl

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[SchedulerEvent]
}

// newBaseScheduler validates cfg/pipeline and the pipeline's readiness,
// then returns a BaseScheduler in the constructed state.
func newBaseScheduler(cfg *Config, pipeline *Pipeline, impl schedulerImpl) (*BaseScheduler, error) {
	if cfg == nil {
		return nil, newErr(KindNullSchedulerConfig, "")
	}
	if pipeline == nil {
		return nil, newErr(KindNullSchedulerPipeline, "")
	}
	switch pipeline.State() {
	case PipelineSetupState:
		// ok
	case PipelineSetupFailed:
		return nil, newErr(KindPipelineNotReady, pipeline.State().String())
	default:
		return nil, newErr(KindPipelineNotSetup, pipeline.State().String())
	}
	return &BaseScheduler{
		state:    SchedulerConstructed,
		pipeline: pipeline,
		cfg:      cfg,
		impl:     impl,
		metrics:  metricz.New(),
		tracer:   tracez.New(),
		hooks:    hookz.New[SchedulerEvent](),
	}, nil
}

// State reports the scheduler's current lifecycle state.
func (b *BaseScheduler) State() SchedulerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BaseScheduler) emit(ctx context.Context, state SchedulerState, err error) {
	_ = b.hooks.Emit(ctx, SchedulerEventLifecycle, SchedulerEvent{State: state, Err: err}) //nolint:errcheck
}

// Start transitions constructed -> started, invoking the concrete
// scheduler's start hook. Calling Start again fails with
// KindRestartScheduler.
func (b *BaseScheduler) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != SchedulerConstructed {
		state := b.state
		b.mu.Unlock()
		return newErr(KindRestartScheduler, state.String())
	}
	b.mu.Unlock()

	ctx, span := b.tracer.StartSpan(ctx, SchedulerStartSpan)
	defer span.Finish()

	if err := b.impl.start(ctx); err != nil {
		b.emit(ctx, b.state, err)
		return err
	}

	b.mu.Lock()
	b.state = SchedulerStarted
	b.mu.Unlock()

	b.pipeline.markRunning()
	capitan.Info(ctx, SignalSchedulerStarted)
	b.emit(ctx, SchedulerStarted, nil)
	return nil
}

// Pause transitions started -> paused.
func (b *BaseScheduler) Pause() error {
	b.mu.Lock()
	switch b.state {
	case SchedulerConstructed:
		b.mu.Unlock()
		return newErr(KindPauseBeforeStart, "")
	case SchedulerPaused:
		b.mu.Unlock()
		return newErr(KindRepauseScheduler, "")
	}
	b.mu.Unlock()

	if err := b.impl.pause(); err != nil {
		return err
	}
	b.mu.Lock()
	b.state = SchedulerPaused
	b.mu.Unlock()
	capitan.Info(context.Background(), SignalSchedulerPaused)
	b.emit(context.Background(), SchedulerPaused, nil)
	return nil
}

// Resume transitions paused -> started.
func (b *BaseScheduler) Resume() error {
	b.mu.Lock()
	switch b.state {
	case SchedulerConstructed:
		b.mu.Unlock()
		return newErr(KindResumeBeforeStart, "")
	case SchedulerPaused:
		// ok
	default:
		b.mu.Unlock()
		return newErr(KindResumeUnpausedScheduler, "")
	}
	b.mu.Unlock()

	if err := b.impl.resume(); err != nil {
		return err
	}
	b.mu.Lock()
	b.state = SchedulerStarted
	b.mu.Unlock()
	capitan.Info(context.Background(), SignalSchedulerResumed)
	b.emit(context.Background(), SchedulerStarted, nil)
	return nil
}

// Stop transitions started/paused -> stopped.
func (b *BaseScheduler) Stop() error {
	b.mu.Lock()
	if b.state == SchedulerConstructed {
		b.mu.Unlock()
		return newErr(KindStopBeforeStart, "")
	}
	b.mu.Unlock()

	if err := b.impl.stop(); err != nil {
		return err
	}
	b.pipeline.shutdownEdges()
	b.mu.Lock()
	b.state = SchedulerStopped
	b.mu.Unlock()
	b.pipeline.markStopped()
	capitan.Info(context.Background(), SignalSchedulerStopped)
	b.emit(context.Background(), SchedulerStopped, nil)
	return nil
}

// Shutdown tears the scheduler down regardless of state. It is idempotent
// and safe to call from deferred cleanup paths: a running or paused
// scheduler is stopped and its edges are shut down; a constructed one is
// marked stopped without calling the stop hook, and an already-stopped one
// is left as it is.
func (b *BaseScheduler) Shutdown() {
	b.mu.Lock()
	state := b.state
	b.state = SchedulerStopped
	b.mu.Unlock()

	if state != SchedulerStarted && state != SchedulerPaused {
		return
	}
	_ = b.impl.stop() //nolint:errcheck // teardown is best-effort
	b.pipeline.shutdownEdges()
	b.pipeline.markStopped()
	capitan.Info(context.Background(), SignalSchedulerStopped)
	b.emit(context.Background(), SchedulerStopped, nil)
}

// Wait blocks until the scheduler's driving loop has fully exited.
func (b *BaseScheduler) Wait() error {
	b.mu.Lock()
	if b.state == SchedulerConstructed {
		b.mu.Unlock()
		return newErr(KindWaitBeforeStart, "")
	}
	b.mu.Unlock()
	return b.impl.wait()
}

// OnLifecycle registers a handler invoked on every scheduler state
// transition.
func (b *BaseScheduler) OnLifecycle(handler func(context.Context, SchedulerEvent) error) error {
	_, err := b.hooks.Hook(SchedulerEventLifecycle, handler)
	return err
}

// SerialScheduler drives every process's Step in a single goroutine, one
// full round per iteration, in the pipeline's process insertion order. It
// stops stepping a process the first time its Step returns a
// KindEdgeComplete error, and the whole scheduler once every process has.
type SerialScheduler struct {
	*BaseScheduler

	runMu   sync.Mutex
	paused  bool
	resumeC chan struct{}
	cancel  context.CancelFunc
	doneC   chan struct{}
	runErr  error
}

// NewSerialScheduler creates a scheduler that steps pipeline's processes
// serially. pipeline must already be set up.
func NewSerialScheduler(cfg *Config, pipeline *Pipeline) (*SerialScheduler, error) {
	s := &SerialScheduler{resumeC: make(chan struct{}, 1)}
	base, err := newBaseScheduler(cfg, pipeline, s)
	if err != nil {
		return nil, err
	}
	s.BaseScheduler = base
	return s, nil
}

func (s *SerialScheduler) start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.doneC = make(chan struct{})

	go func() {
		defer close(s.doneC)
		s.runErr = s.runLoop(runCtx)
	}()
	return nil
}

func (s *SerialScheduler) runLoop(ctx context.Context) error {
	done := make(map[string]bool)
	names := s.pipeline.ProcessNames()

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.runMu.Lock()
		paused := s.paused
		s.runMu.Unlock()
		if paused {
			select {
			case <-s.resumeC:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		allDone := true
		for _, name := range names {
			if done[name] {
				continue
			}
			allDone = false
			proc, ok := s.pipeline.ProcessByName(name)
			if !ok {
				continue
			}
			if err := proc.Step(ctx); err != nil {
				if fe, isFlow := err.(*FlowError); isFlow && fe.Kind == KindEdgeComplete {
					done[name] = true
					continue
				}
				return err
			}
		}
		if allDone {
			return nil
		}
	}
}

func (s *SerialScheduler) pause() error {
	s.runMu.Lock()
	s.paused = true
	s.runMu.Unlock()
	return nil
}

func (s *SerialScheduler) resume() error {
	s.runMu.Lock()
	s.paused = false
	s.runMu.Unlock()
	select {
	case s.resumeC <- struct{}{}:
	default:
	}
	return nil
}

func (s *SerialScheduler) stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *SerialScheduler) wait() error {
	if s.doneC != nil {
		<-s.doneC
	}
	return s.runErr
}
