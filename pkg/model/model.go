package model

// StateType names a state of a state machine driven by internal/common/fsm.
type StateType string

// EventType names an event fed to a state machine.
type EventType string

const (
	EntryEvent EventType = "Entry event"
	ExitEvent  EventType = "Exit event"
)

// UE context lifecycle states.
const (
	UeCreated    StateType = "CREATED"
	UeIdentified StateType = "IDENTIFIED"
	UeConfigured StateType = "CONFIGURED"
	UeReleasing  StateType = "RELEASING"
	UeReleased   StateType = "RELEASED"
)

// UE context lifecycle events.
const (
	EventCuIdLearned       EventType = "CU UE ID learned"
	EventBearersConfigured EventType = "Bearers configured"
	EventReleaseCommand    EventType = "Release command"
	EventReleaseConfirmed  EventType = "Release confirmed"
	EventReleaseTimeout    EventType = "Release timeout"
	EventReset             EventType = "Reset"
	EventRemoval           EventType = "Removal"

	// non-transitional
	EventReestablished EventType = "Reestablished"
)

// ClockMode is the tick source currently driving the DU clock.
type ClockMode string

const (
	ClockFreeRunning ClockMode = "free-running"
	ClockSlotDriven  ClockMode = "slot-driven"
)
