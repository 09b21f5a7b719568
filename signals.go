package flowgraph

import "github.com/zoobzio/capitan"

// Signal constants for flowgraph events. Signals follow the pattern
// <component>.<event>.
const (
	// Edge signals.
	SignalEdgeBlocked  capitan.Signal = "edge.blocked"
	SignalEdgeFull     capitan.Signal = "edge.full"
	SignalEdgeComplete capitan.Signal = "edge.complete"

	// Type inference signals.
	SignalTypeResolved         capitan.Signal = "typeinfer.resolved"
	SignalTypeCascadeReject    capitan.Signal = "typeinfer.cascade-reject"
	SignalTypeComponentUntyped capitan.Signal = "typeinfer.component-untyped"

	// Frequency analysis signals.
	SignalFrequencyAssigned capitan.Signal = "frequency.assigned"
	SignalFrequencyConflict capitan.Signal = "frequency.conflict"

	// Pipeline lifecycle signals.
	SignalPipelineSetupStart capitan.Signal = "pipeline.setup-start"
	SignalPipelineSetupOK    capitan.Signal = "pipeline.setup-ok"
	SignalPipelineSetupFail  capitan.Signal = "pipeline.setup-fail"
	SignalPipelineReset      capitan.Signal = "pipeline.reset"

	// Scheduler lifecycle signals.
	SignalSchedulerStarted capitan.Signal = "scheduler.started"
	SignalSchedulerPaused  capitan.Signal = "scheduler.paused"
	SignalSchedulerResumed capitan.Signal = "scheduler.resumed"
	SignalSchedulerStopped capitan.Signal = "scheduler.stopped"
)

// Field keys used across the signals above, mirrored after capitan's
// primitive-typed key pattern (no custom struct serialization).
var (
	FieldProcess        = capitan.NewStringKey("process")
	FieldPort           = capitan.NewStringKey("port")
	FieldPeer           = capitan.NewStringKey("peer")
	FieldPeerPort       = capitan.NewStringKey("peer_port")
	FieldKind           = capitan.NewStringKey("kind")
	FieldCapacity       = capitan.NewIntKey("capacity")
	FieldPending        = capitan.NewIntKey("pending")
	FieldType           = capitan.NewStringKey("type")
	FieldFrequency      = capitan.NewStringKey("frequency")
	FieldState          = capitan.NewStringKey("state")
	FieldDetail         = capitan.NewStringKey("detail")
	FieldElapsedSeconds = capitan.NewFloat64Key("elapsed_seconds")
)
