package metrics

import (
	"context"
	"sync"
	"time"
)

// MetricsProvider is a component refreshing its own gauges on demand.
type MetricsProvider interface {
	CollectMetrics(ctx context.Context) error
}

// ProviderFunc adapts a function to MetricsProvider.
type ProviderFunc func(ctx context.Context) error

func (f ProviderFunc) CollectMetrics(ctx context.Context) error {
	return f(ctx)
}

// Collector periodically asks registered providers to refresh their metrics.
type Collector struct {
	mu        sync.RWMutex
	providers map[string]MetricsProvider
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
}

// NewCollector creates a collector polling every interval.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		providers: make(map[string]MetricsProvider),
		interval:  interval,
	}
}

// Register adds a provider under name.
func (c *Collector) Register(name string, provider MetricsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = provider
}

// Unregister removes a provider.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.providers, name)
}

// Start collects once and then periodically until Stop or ctx is done.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	StartTime.Set(float64(time.Now().Unix()))
	c.Collect(ctx)
	go c.run(ctx)
}

// Stop halts collection and waits for the loop to exit.
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.doneCh
	c.mu.Unlock()

	<-done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect runs every provider once.
func (c *Collector) Collect(ctx context.Context) {
	c.mu.RLock()
	providers := make(map[string]MetricsProvider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	for name, provider := range providers {
		if err := provider.CollectMetrics(ctx); err != nil {
			CollectorStatus.WithLabelValues(name).Set(0)
		} else {
			CollectorStatus.WithLabelValues(name).Set(1)
		}
	}
}
