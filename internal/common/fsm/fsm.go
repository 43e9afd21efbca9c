package fsm

import (
	"errors"
	"fmt"
	"maps"

	"distributed-unit/pkg/model"
)

var ErrInvalidTransition = errors.New("invalid state transition")

type TransitionError struct {
	State model.StateType
	Event model.EventType
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition from state %s on event %q", e.State, e.Event)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type StateMachine interface {
	SyncSendEvent(*State, *EventData) error
	Can(*State, model.EventType) bool
}

type Transitions map[StateEventTuple]model.StateType
type CallbackFn func(*State, *EventData)
type Callbacks map[model.StateType]CallbackFn

type Fsm struct {
	transitions Transitions
	callbacks   Callbacks
	events      map[model.EventType]bool
	handler     CallbackFn
}

type Options struct {
	Transitions           Transitions
	Callbacks             Callbacks
	GenericCallback       CallbackFn
	NonTransitionalEvents []model.EventType
}

// NewFsm panics on a malformed table: a source state without a callback, or a
// non-transitional event that also appears in the transitions.
func NewFsm(opts Options) *Fsm {
	ret := &Fsm{
		transitions: make(Transitions, len(opts.Transitions)),
		callbacks:   make(Callbacks, len(opts.Callbacks)),
		events:      make(map[model.EventType]bool),
		handler:     opts.GenericCallback,
	}
	maps.Copy(ret.callbacks, opts.Callbacks)

	knownEvents := make(map[model.EventType]bool)
	for t, s := range opts.Transitions {
		if _, ok := opts.Callbacks[t.state]; !ok {
			panic(fmt.Sprintf("fsm: state %s has no callback", t.state))
		}
		knownEvents[t.event] = true
		ret.transitions[t] = s
	}

	for _, ev := range opts.NonTransitionalEvents {
		if knownEvents[ev] {
			panic(fmt.Sprintf("fsm: non-transitional event %q is in the transition table", ev))
		}
		ret.events[ev] = true
	}
	if len(ret.events) > 0 && ret.handler == nil {
		panic("fsm: non-transitional events need a generic callback")
	}
	return ret
}

// Can reports whether event is accepted in the current state of s.
func (fsm *Fsm) Can(s *State, event model.EventType) bool {
	if fsm.events[event] {
		return true
	}
	_, ok := fsm.transitions[Tuple(s.CurrentState(), event)]
	return ok
}

// SyncSendEvent handles the event on the calling goroutine. Events on one
// state are serialized; do not send from inside a callback.
func (fsm *Fsm) SyncSendEvent(state *State, event *EventData) error {
	state.slock.Lock()
	defer state.slock.Unlock()

	if fsm.events[event.Type()] {
		fsm.handler(state, event)
		return nil
	}
	return fsm.transit(state, event)
}

func (fsm *Fsm) transit(state *State, event *EventData) error {
	current := state.CurrentState()
	nextState, ok := fsm.transitions[Tuple(current, event.Type())]
	if !ok {
		return &TransitionError{State: current, Event: event.Type()}
	}

	curCallback := fsm.callbacks[current]
	if curCallback != nil {
		curCallback(state, event)
	}
	if current == nextState {
		return nil
	}
	if curCallback != nil {
		curCallback(state, event.clone(model.ExitEvent))
	}
	state.setState(nextState)
	if nextCallback := fsm.callbacks[nextState]; nextCallback != nil {
		nextCallback(state, event.clone(model.EntryEvent))
	}
	return nil
}
