package events

import (
	"time"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// ServiceEvent is the payload of every service.* event.
type ServiceEvent struct {
	Service  servicecontainer.ServiceName
	Instance string
	// Error is set for ServiceStartFailed.
	Error string
}

// RestartEvent is the payload of ServiceRestartScheduled.
type RestartEvent struct {
	Service servicecontainer.ServiceName
	Attempt int
	Backoff time.Duration
	Cause   string
}

// ManifestEvent is the payload of manifest.* events.
type ManifestEvent struct {
	Path      string
	Services  int
	Installed int
	Removed   int
	Replaced  int
	Error     string
}

// ConfigReloadEvent is the payload of config.* events.
type ConfigReloadEvent struct {
	Path  string
	Error string
}

var lifecycleTypes = map[servicecontainer.EventType]EventType{
	servicecontainer.EventInstalled:   ServiceInstalled,
	servicecontainer.EventStarted:     ServiceStarted,
	servicecontainer.EventStartFailed: ServiceStartFailed,
	servicecontainer.EventStopping:    ServiceStopping,
	servicecontainer.EventStopped:     ServiceStopped,
	servicecontainer.EventRemoved:     ServiceRemoved,
}

// FromLifecycle converts a container lifecycle event. Resolver-to-controller
// notifications have no bus equivalent and report false.
func FromLifecycle(ev servicecontainer.Event) (Event, bool) {
	typ, ok := lifecycleTypes[ev.Type]
	if !ok {
		return Event{}, false
	}

	payload := ServiceEvent{Service: ev.Service, Instance: ev.Instance}
	if err, isErr := ev.Payload.(error); isErr && err != nil {
		payload.Error = err.Error()
	}
	return NewEvent(typ, payload), true
}
