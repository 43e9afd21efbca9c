package fsm

import "distributed-unit/pkg/model"

type EventData struct {
	evType model.EventType
	evDat  any
}

func NewEmptyEventData(evType model.EventType) *EventData {
	return &EventData{evType: evType}
}

func NewEventData[T any](evType model.EventType, value *T) *EventData {
	ev := &EventData{evType: evType}
	if value != nil {
		ev.evDat = value
	}
	return ev
}

func (e *EventData) Type() model.EventType {
	return e.evType
}

func GetEventData[T any](e *EventData) *T {
	v, _ := e.evDat.(*T)
	return v
}

// clone keeps the payload under a new event type
func (e *EventData) clone(evType model.EventType) *EventData {
	return &EventData{evType: evType, evDat: e.evDat}
}
