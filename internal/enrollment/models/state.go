package models

import (
	dErrors "datapass/pkg/domain-errors"
)

// State is an enrollment lifecycle state. Only the lifecycle engine mutates
// it, and only along the edges declared in transitionTable.
type State string

const (
	StatePending         State = "pending"
	StateSent            State = "sent"
	StateValidated       State = "validated"
	StateRefused         State = "refused"
	StateTechnicalInputs State = "technical_inputs"
	StateDeployed        State = "deployed"
)

// Event names a requested lifecycle transition.
type Event string

const (
	EventSubmit                 Event = "submit"
	EventValidate               Event = "validate"
	EventRefuse                 Event = "refuse"
	EventRequestChanges         Event = "request_changes"
	EventRequestTechnicalInputs Event = "request_technical_inputs"
	EventDeploy                 Event = "deploy"

	// EventLoop is always legal and never changes state. It exists so side
	// effects can be re-dispatched for the current state.
	EventLoop Event = "loop"
)

// Party is the role relationship an actor must hold with the enrollment for a
// given edge.
type Party string

const (
	PartyApplicant     Party = "applicant"
	PartyProviderAdmin Party = "provider_admin"
	// PartyAny is satisfied by either side of the enrollment.
	PartyAny Party = "any"
	// PartyNone is the resolver's answer for a user with no relationship to
	// the enrollment. It never satisfies an edge.
	PartyNone Party = "none"
)

type edge struct {
	from State
	to   State
	by   Party
}

// transitionTable is the full state graph. One event maps to exactly one edge;
// an event with no edge from the current state is an invalid transition, never
// a silent no-op.
var transitionTable = map[Event]edge{
	EventSubmit:                 {from: StatePending, to: StateSent, by: PartyApplicant},
	EventValidate:               {from: StateSent, to: StateValidated, by: PartyProviderAdmin},
	EventRefuse:                 {from: StateSent, to: StateRefused, by: PartyProviderAdmin},
	EventRequestChanges:         {from: StateSent, to: StatePending, by: PartyProviderAdmin},
	EventRequestTechnicalInputs: {from: StateValidated, to: StateTechnicalInputs, by: PartyProviderAdmin},
	EventDeploy:                 {from: StateTechnicalInputs, to: StateDeployed, by: PartyProviderAdmin},
}

// ParseEvent constructs an Event from external input.
func ParseEvent(s string) (Event, error) {
	switch Event(s) {
	case EventSubmit, EventValidate, EventRefuse, EventRequestChanges,
		EventRequestTechnicalInputs, EventDeploy, EventLoop:
		return Event(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown event: "+s)
}

// TargetState resolves the state the event leads to from the given state.
// EventLoop always resolves to the current state. Any event without an edge
// from the current state yields CodeInvalidTransition.
func TargetState(event Event, from State) (State, error) {
	if event == EventLoop {
		return from, nil
	}
	e, ok := transitionTable[event]
	if !ok || e.from != from {
		return "", dErrors.New(dErrors.CodeInvalidTransition,
			"event "+string(event)+" is not allowed from state "+string(from))
	}
	return e.to, nil
}

// RequiredParty returns which party may trigger the event. EventLoop is open
// to either side.
func RequiredParty(event Event) Party {
	if event == EventLoop {
		return PartyAny
	}
	if e, ok := transitionTable[event]; ok {
		return e.by
	}
	return PartyAny
}

// Events enumerates every declared event, loop included.
func Events() []Event {
	return []Event{
		EventSubmit,
		EventValidate,
		EventRefuse,
		EventRequestChanges,
		EventRequestTechnicalInputs,
		EventDeploy,
		EventLoop,
	}
}

// Terminal reports whether no event leads out of the state.
func (s State) Terminal() bool {
	for _, e := range transitionTable {
		if e.from == s {
			return false
		}
	}
	return true
}
