package services

import "github.com/leefowlercu/servicecontainer/internal/servicecontainer"

// KindNoop starts and stops immediately. Its value is the "value" option,
// or the service name.
const KindNoop = "noop"

type noop struct {
	value string
}

func newNoop(def Definition) (servicecontainer.Service, error) {
	return &noop{value: def.Entry.Option("value", def.Entry.Name)}, nil
}

func (n *noop) Start(*servicecontainer.StartContext) error { return nil }
func (n *noop) Stop(*servicecontainer.StopContext) error   { return nil }
func (n *noop) Get() any                                   { return n.value }
