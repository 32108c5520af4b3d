// Package servicecontainer supervises the lifecycle of in-process services.
//
// Services are installed under a ServiceName, may depend on other services,
// may join a group, and may observe groups through references. The container
// starts a service only once every dependency has started, and stops it only
// once every dependent has stopped, regardless of the order in which install
// and remove requests arrive.
//
// Each installed service is driven by its own controller goroutine with a
// private mailbox. Lifecycle events from all controllers funnel through the
// container's event loop, which owns the dependency graph and answers with
// targeted notifications back to the affected controllers.
package servicecontainer

import (
	"fmt"
	"strings"
)

// DefaultType is the type assigned by NewServiceName when none is given.
const DefaultType = "service"

// ServiceName identifies a service or a group within a container.
type ServiceName struct {
	Name string
	Type string
}

// NewServiceName returns a ServiceName of DefaultType.
func NewServiceName(name string) ServiceName {
	return ServiceName{Name: name, Type: DefaultType}
}

// TypedServiceName returns a ServiceName with an explicit type.
func TypedServiceName(typ, name string) ServiceName {
	return ServiceName{Name: name, Type: typ}
}

// ParseServiceName parses "type/name" or a bare "name" (DefaultType).
func ParseServiceName(s string) (ServiceName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ServiceName{}, fmt.Errorf("empty service name")
	}
	typ, name, found := strings.Cut(s, "/")
	if !found {
		return NewServiceName(s), nil
	}
	if typ == "" || name == "" {
		return ServiceName{}, fmt.Errorf("invalid service name %q", s)
	}
	return TypedServiceName(typ, name), nil
}

// IsZero reports whether n is the zero ServiceName.
func (n ServiceName) IsZero() bool {
	return n.Name == "" && n.Type == ""
}

// String formats n as "type/name".
func (n ServiceName) String() string {
	return n.Type + "/" + n.Name
}

// MarshalText encodes n as "type/name".
func (n ServiceName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText decodes the format accepted by ParseServiceName.
func (n *ServiceName) UnmarshalText(text []byte) error {
	parsed, err := ParseServiceName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
