// Package events provides an in-process pub/sub bus carrying service
// lifecycle and node runtime events to observers such as health tracking
// and metrics.
package events

import "time"

// EventType identifies the type of event being published.
type EventType string

const (
	ServiceInstalled   EventType = "service.installed"
	ServiceStarted     EventType = "service.started"
	ServiceStartFailed EventType = "service.start_failed"
	ServiceStopping    EventType = "service.stopping"
	ServiceStopped     EventType = "service.stopped"
	ServiceRemoved     EventType = "service.removed"

	// ServiceRestartScheduled is published when a failed service will be
	// installed again after a backoff.
	ServiceRestartScheduled EventType = "service.restart_scheduled"

	// ManifestApplied is published after a manifest has been reconciled.
	ManifestApplied EventType = "manifest.applied"
	// ManifestRejected is published when a manifest fails to load or validate.
	ManifestRejected EventType = "manifest.rejected"

	// ConfigReloaded is published when configuration is successfully reloaded.
	ConfigReloaded EventType = "config.reloaded"
	// ConfigReloadFailed is published when configuration reload fails.
	ConfigReloadFailed EventType = "config.reload_failed"
)

// Event is a published event.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// EventHandler processes one event.
type EventHandler func(event Event)
