package flowgraph

import (
	"math/big"
	"strings"
)

// Direction distinguishes input from output ports.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// Flag is a single bit in a port's flag set.
type Flag uint8

const (
	// FlagRequired: input must be connected; output must have ≥1 connection.
	FlagRequired Flag = 1 << iota
	// FlagConst: downstream consumers must not mutate the output's value.
	FlagConst
	// FlagShared: the output's value is shared across multiple consumers.
	FlagShared
	// FlagMutate: the input intends to modify the received value.
	FlagMutate
	// FlagNoDep: the input does not participate in frequency constraints.
	FlagNoDep
)

// Has reports whether f includes other.
func (f Flag) Has(other Flag) bool {
	return f&other != 0
}

// TypeAny is the wildcard port type.
const TypeAny = "any"

// TypeDataDependent marks an output whose type is known only at first value.
const TypeDataDependent = "data_dependent"

// FlowDependentPrefix marks a port type as flow_dependent:<tag>.
const FlowDependentPrefix = "flow_dependent:"

// FlowDependentTag builds a flow_dependent port type string for the given
// coupling tag.
func FlowDependentTag(tag string) string {
	return FlowDependentPrefix + tag
}

// IsFlowDependent reports whether t is a flow_dependent:<tag> type, and
// returns the tag.
func IsFlowDependent(t string) (tag string, ok bool) {
	if strings.HasPrefix(t, FlowDependentPrefix) {
		return strings.TrimPrefix(t, FlowDependentPrefix), true
	}
	return "", false
}

// IsConcreteType reports whether t is neither any, data_dependent, nor
// flow_dependent:*.
func IsConcreteType(t string) bool {
	if t == TypeAny || t == TypeDataDependent {
		return false
	}
	_, fd := IsFlowDependent(t)
	return !fd
}

// PortSpec describes one port of a process.
type PortSpec struct {
	Name        string
	Direction   Direction
	Type        string
	Flags       Flag
	Frequency   *big.Rat
	Description string
}

// NewPortSpec builds a PortSpec with a default frequency of 1/1.
func NewPortSpec(name string, dir Direction, typ string, flags Flag) PortSpec {
	return PortSpec{Name: name, Direction: dir, Type: typ, Flags: flags, Frequency: big.NewRat(1, 1)}
}

// WithFrequency returns a copy of p with Frequency set.
func (p PortSpec) WithFrequency(freq *big.Rat) PortSpec {
	p.Frequency = new(big.Rat).Set(freq)
	return p
}

// WithDescription returns a copy of p with Description set.
func (p PortSpec) WithDescription(desc string) PortSpec {
	p.Description = desc
	return p
}

// portAddr uniquely identifies a port within the pipeline.
type portAddr struct {
	process string
	port    string
}

func (a portAddr) String() string {
	return a.process + "." + a.port
}
