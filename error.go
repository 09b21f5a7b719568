package flowgraph

import (
	"errors"
	"fmt"
)

// Kind identifies a stable error condition raised by the core. Kinds are
// part of the public contract: callers match on Kind, not on error message
// text.
type Kind string

// Error kinds raised by the core, per the taxonomy in the specification's
// error handling design. Grouped by the operation that raises them.
const (
	// Pipeline construction and topology.
	KindNullPipelineConfig             Kind = "null_pipeline_config"
	KindNullProcessAddition            Kind = "null_process_addition"
	KindDuplicateProcessName           Kind = "duplicate_process_name"
	KindNoSuchProcess                  Kind = "no_such_process"
	KindNoSuchPort                     Kind = "no_such_port"
	KindConnectionTypeMismatch         Kind = "connection_type_mismatch"
	KindConnectionFlagMismatch         Kind = "connection_flag_mismatch"
	KindConnectionDependentType        Kind = "connection_dependent_type"
	KindConnectionDependentTypeCascade Kind = "connection_dependent_type_cascade"
	KindUntypedConnection              Kind = "untyped_connection"
	KindUntypedDataDependent           Kind = "untyped_data_dependent"
	KindNotADAG                        Kind = "not_a_dag"
	KindMissingConnection              Kind = "missing_connection"
	KindOrphanedProcesses              Kind = "orphaned_processes"
	KindNoProcesses                    Kind = "no_processes"
	KindFrequencyMismatch              Kind = "frequency_mismatch"
	KindPipelineDuplicateSetup         Kind = "pipeline_duplicate_setup"
	KindAddAfterSetup                  Kind = "add_after_setup"
	KindRemoveAfterSetup               Kind = "remove_after_setup"
	KindConnectionAfterSetup           Kind = "connection_after_setup"
	KindDisconnectionAfterSetup        Kind = "disconnection_after_setup"
	KindReconfigureBeforeSetup         Kind = "reconfigure_before_setup"
	KindResetRunningPipeline           Kind = "reset_running_pipeline"

	// Scheduler lifecycle.
	KindPipelineNotSetup        Kind = "pipeline_not_setup"
	KindPipelineNotReady        Kind = "pipeline_not_ready"
	KindRestartScheduler        Kind = "restart_scheduler"
	KindRepauseScheduler        Kind = "repause_scheduler"
	KindPauseBeforeStart        Kind = "pause_before_start"
	KindResumeUnpausedScheduler Kind = "resume_unpaused_scheduler"
	KindResumeBeforeStart       Kind = "resume_before_start"
	KindStopBeforeStart         Kind = "stop_before_start"
	KindWaitBeforeStart         Kind = "wait_before_start"
	KindNullSchedulerConfig     Kind = "null_scheduler_config"
	KindNullSchedulerPipeline   Kind = "null_scheduler_pipeline"

	// Typed reads and configuration.
	KindBadDatumCast             Kind = "bad_datum_cast"
	KindBadConfigurationCast     Kind = "bad_configuration_cast"
	KindSetOnReadOnly            Kind = "set_on_read_only"
	KindUnsetOnReadOnly          Kind = "unset_on_read_only"
	KindNoSuchConfigurationValue Kind = "no_such_configuration_value"

	// Edge.
	KindEdgeFull     Kind = "edge_full"
	KindEdgeEmpty    Kind = "edge_empty"
	KindEdgeComplete Kind = "edge_complete"
)

// FlowError is the structured error type returned at every core operation
// boundary. It carries a stable Kind plus the offending names so callers
// can build precise diagnostics without parsing message text.
type FlowError struct {
	Kind     Kind
	Process  string
	Port     string
	Peer     string
	PeerPort string
	Detail   string
	Err      error
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	msg := string(e.Kind)
	if e.Process != "" {
		msg += fmt.Sprintf(" process=%s", e.Process)
	}
	if e.Port != "" {
		msg += fmt.Sprintf(" port=%s", e.Port)
	}
	if e.Peer != "" {
		msg += fmt.Sprintf(" peer=%s", e.Peer)
	}
	if e.PeerPort != "" {
		msg += fmt.Sprintf(" peer_port=%s", e.PeerPort)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is/errors.As against a wrapped cause.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *FlowError with the same Kind, so callers
// can write errors.Is(err, flowgraph.KindError(flowgraph.KindNotADAG)).
func (e *FlowError) Is(target error) bool {
	var fe *FlowError
	if errors.As(target, &fe) {
		return fe.Kind == e.Kind
	}
	return false
}

// KindError constructs a bare *FlowError carrying only a Kind, useful as a
// comparison target for errors.Is.
func KindError(kind Kind) *FlowError {
	return &FlowError{Kind: kind}
}

// newErr is the internal constructor used throughout the package.
func newErr(kind Kind, detail string) *FlowError {
	return &FlowError{Kind: kind, Detail: detail}
}
