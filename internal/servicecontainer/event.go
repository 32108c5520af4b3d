package servicecontainer

import "fmt"

// EventType enumerates lifecycle transitions.
type EventType int

const (
	// EventInstalled is emitted once a controller has been created.
	EventInstalled EventType = iota + 1
	// EventStarted is emitted when a service's start routine completed successfully.
	EventStarted
	// EventStartFailed is emitted when a service's start routine failed.
	EventStartFailed
	// EventStopping is emitted when a service has been asked to stop.
	EventStopping
	// EventStopped is emitted when a service's stop routine finished.
	EventStopped
	// EventRemoved is emitted when a controller reached its terminal state.
	EventRemoved
	// EventDependenciesAvailable tells a controller it may start.
	EventDependenciesAvailable
	// EventDependenciesUnavailable tells a controller a dependency is stopping.
	EventDependenciesUnavailable
	// EventDependentsStopped tells a stopping controller nothing depends on it anymore.
	EventDependentsStopped
)

var eventTypeNames = map[EventType]string{
	EventInstalled:               "installed",
	EventStarted:                 "started",
	EventStartFailed:             "start_failed",
	EventStopping:                "stopping",
	EventStopped:                 "stopped",
	EventRemoved:                 "removed",
	EventDependenciesAvailable:   "dependencies_available",
	EventDependenciesUnavailable: "dependencies_unavailable",
	EventDependentsStopped:       "dependents_stopped",
}

// String returns the snake_case name of the event type.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event describes one lifecycle transition of one service. Events are values
// and never mutated after creation.
type Event struct {
	Type    EventType
	Service ServiceName
	// Instance is the controller instance the event belongs to. A service
	// reinstalled under the same name gets a new instance.
	Instance string
	// Payload carries the service value for EventStarted and the failure
	// cause for EventStartFailed.
	Payload any

	controller *controller
}

// String formats the event for logs.
func (e Event) String() string {
	return fmt.Sprintf("%s[%s]", e.Type, e.Service)
}

// EventListener observes every lifecycle event processed by a container, in
// processing order, on the container's event loop. Listeners must not block.
type EventListener func(Event)
