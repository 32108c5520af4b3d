package metrics

import (
	"sync"
	"time"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// Recorder turns container lifecycle events into metrics. Observe is meant
// to be registered as a container event listener.
type Recorder struct {
	mu        sync.Mutex
	installed map[string]time.Time
	now       func() time.Time
}

// NewRecorder creates a lifecycle recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		installed: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Observe records one lifecycle event.
func (r *Recorder) Observe(ev servicecontainer.Event) {
	LifecycleEventsTotal.WithLabelValues(ev.Type.String()).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case servicecontainer.EventInstalled:
		ServicesInstalled.Inc()
		r.installed[ev.Instance] = r.now()
	case servicecontainer.EventStarted:
		if at, ok := r.installed[ev.Instance]; ok {
			StartDuration.WithLabelValues(ev.Service.Type).Observe(r.now().Sub(at).Seconds())
		}
	case servicecontainer.EventStartFailed:
		StartFailuresTotal.WithLabelValues(ev.Service.Type).Inc()
	case servicecontainer.EventRemoved:
		ServicesInstalled.Dec()
		delete(r.installed, ev.Instance)
	}
}

// Pending returns the number of installed instances being tracked.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.installed)
}
