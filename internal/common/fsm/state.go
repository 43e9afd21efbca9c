package fsm

import (
	"sync"

	"distributed-unit/pkg/model"
)

type State struct {
	current model.StateType
	slock   sync.Mutex // serializes event handling
	mutex   sync.RWMutex
	info    any
}

// NewState creates a state carrying info, which callbacks read back with
// GetStateInfo.
func NewState[T any](i model.StateType, info *T) *State {
	state := &State{current: i}
	if info != nil {
		state.info = info
	}
	return state
}

func GetStateInfo[T any](state *State) *T {
	info, _ := state.info.(*T)
	return info
}

func (s *State) setState(now model.StateType) {
	s.mutex.Lock()
	s.current = now
	s.mutex.Unlock()
}

func (s *State) CurrentState() model.StateType {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.current
}

type StateEventTuple struct {
	state model.StateType
	event model.EventType
}

func Tuple(state model.StateType, event model.EventType) StateEventTuple {
	return StateEventTuple{state: state, event: event}
}
