package uecontext

import (
	"distributed-unit/internal/common/fsm"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

// NewLifecycle builds the UE context state machine shared by every UE of a
// DU. State info is the *UeContext.
func NewLifecycle() *fsm.Fsm {
	live := []model.StateType{model.UeCreated, model.UeIdentified, model.UeConfigured}

	transitions := fsm.Transitions{
		fsm.Tuple(model.UeCreated, model.EventCuIdLearned):          model.UeIdentified,
		fsm.Tuple(model.UeIdentified, model.EventBearersConfigured): model.UeConfigured,
		fsm.Tuple(model.UeConfigured, model.EventBearersConfigured): model.UeConfigured,
		fsm.Tuple(model.UeReleasing, model.EventReleaseConfirmed):   model.UeReleased,
		fsm.Tuple(model.UeReleasing, model.EventReleaseTimeout):     model.UeReleased,
		fsm.Tuple(model.UeReleasing, model.EventReset):              model.UeReleased,
		fsm.Tuple(model.UeReleasing, model.EventRemoval):            model.UeReleased,
	}
	for _, s := range live {
		transitions[fsm.Tuple(s, model.EventReleaseCommand)] = model.UeReleasing
		transitions[fsm.Tuple(s, model.EventReset)] = model.UeReleased
		transitions[fsm.Tuple(s, model.EventRemoval)] = model.UeReleased
	}

	return fsm.NewFsm(fsm.Options{
		Transitions: transitions,
		Callbacks: fsm.Callbacks{
			model.UeCreated:    logStateEvent,
			model.UeIdentified: logStateEvent,
			model.UeConfigured: logStateEvent,
			model.UeReleasing:  logStateEvent,
			model.UeReleased:   logStateEvent,
		},
		GenericCallback:       logStateEvent,
		NonTransitionalEvents: []model.EventType{model.EventReestablished},
	})
}

func logStateEvent(s *fsm.State, ev *fsm.EventData) {
	ue := fsm.GetStateInfo[UeContext](s)
	if ue == nil {
		return
	}
	switch ev.Type() {
	case model.EntryEvent:
		if cause := fsm.GetEventData[f1ap.Cause](ev); cause != nil {
			ue.Info("Entered %s, cause %s", s.CurrentState(), cause)
			return
		}
		ue.Info("Entered %s", s.CurrentState())
	case model.ExitEvent:
	default:
		ue.Debug("Event %q in %s", ev.Type(), s.CurrentState())
	}
}
