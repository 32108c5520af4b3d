package node

import (
	"sort"
	"sync"
	"time"

	"github.com/leefowlercu/servicecontainer/internal/events"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// ServiceState is the health-relevant state of one service.
type ServiceState string

const (
	ServicePending  ServiceState = "pending"
	ServiceRunning  ServiceState = "running"
	ServiceStopping ServiceState = "stopping"
	ServiceFailed   ServiceState = "failed"
)

// ServiceHealth represents the health status of a single service.
type ServiceHealth struct {
	Status   ServiceState `json:"status"`
	Instance string       `json:"instance,omitempty"`

	// Error contains the start failure if Status is "failed".
	Error string `json:"error,omitempty"`

	// Since is when the service entered the current state.
	Since time.Time `json:"since"`

	Restarts int `json:"restarts,omitempty"`
}

// HealthStatus is the response format for /readyz.
type HealthStatus struct {
	// Status is "healthy", or "degraded" when any service has failed.
	Status string `json:"status"`

	// Ready is true when the container is open and every expected service
	// is running.
	Ready bool `json:"ready"`

	Uptime   time.Duration            `json:"uptime"`
	Services map[string]ServiceHealth `json:"services"`

	// Waiting lists expected services that are not running yet.
	Waiting []string `json:"waiting,omitempty"`
}

// HealthManager tracks service health from bus events. It is safe for
// concurrent use.
type HealthManager struct {
	mu        sync.RWMutex
	services  map[string]ServiceHealth
	expected  map[string]bool
	open      bool
	startTime time.Time
	now       func() time.Time
}

// NewHealthManager creates a new HealthManager instance.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		services:  make(map[string]ServiceHealth),
		expected:  make(map[string]bool),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// SetOpen records whether the container accepts services.
func (m *HealthManager) SetOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = open
}

// SetExpected replaces the set of services that must run for readiness.
func (m *HealthManager) SetExpected(names []servicecontainer.ServiceName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expected = make(map[string]bool, len(names))
	for _, n := range names {
		m.expected[n.String()] = true
	}
}

// Handle applies one bus event.
func (m *HealthManager) Handle(event events.Event) {
	if restart, ok := event.Payload.(events.RestartEvent); ok {
		m.mu.Lock()
		key := restart.Service.String()
		h := m.services[key]
		h.Restarts++
		m.services[key] = h
		m.mu.Unlock()
		return
	}

	payload, ok := event.Payload.(events.ServiceEvent)
	if !ok {
		return
	}
	key := payload.Service.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.services[key]
	next := ServiceHealth{Instance: payload.Instance, Since: m.now(), Restarts: prev.Restarts}

	switch event.Type {
	case events.ServiceInstalled:
		next.Status = ServicePending
	case events.ServiceStarted:
		next.Status = ServiceRunning
	case events.ServiceStartFailed:
		next.Status = ServiceFailed
		next.Error = payload.Error
	case events.ServiceStopping:
		next.Status = ServiceStopping
	case events.ServiceRemoved:
		if prev.Instance != payload.Instance {
			return
		}
		// Failures stay visible until the service is installed again.
		if prev.Status == ServiceFailed {
			return
		}
		delete(m.services, key)
		return
	default:
		return
	}

	if event.Type != events.ServiceInstalled && prev.Instance != "" && prev.Instance != payload.Instance {
		return
	}
	m.services[key] = next
}

// Get returns the health of one service.
func (m *HealthManager) Get(name servicecontainer.ServiceName) (ServiceHealth, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.services[name.String()]
	return h, ok
}

// Status returns the aggregate health status.
func (m *HealthManager) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := HealthStatus{
		Status:   "healthy",
		Ready:    m.open,
		Uptime:   m.now().Sub(m.startTime),
		Services: make(map[string]ServiceHealth, len(m.services)),
	}

	for name, h := range m.services {
		status.Services[name] = h
		if h.Status == ServiceFailed {
			status.Status = "degraded"
		}
	}

	for name := range m.expected {
		if h, ok := m.services[name]; !ok || h.Status != ServiceRunning {
			status.Waiting = append(status.Waiting, name)
		}
	}
	sort.Strings(status.Waiting)

	if len(status.Waiting) > 0 {
		status.Ready = false
	}

	return status
}
