package servicecontainer

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceAlreadyExists is returned when installing a name that is still live.
	ErrServiceAlreadyExists = errors.New("service already exists")
	// ErrContainerNotOpen is returned when the container does not accept the request in its current state.
	ErrContainerNotOpen = errors.New("container not open")
	// ErrContainerAlreadyStarted is returned by a second call to Start.
	ErrContainerAlreadyStarted = errors.New("container already started")
	// ErrNoSuchService is returned when removing a name that is not installed.
	ErrNoSuchService = errors.New("no such service")
	// ErrInvalidService is returned for malformed installation requests.
	ErrInvalidService = errors.New("invalid service")
	// ErrUndeclaredDependency is returned when a context is asked for a service it does not depend on.
	ErrUndeclaredDependency = errors.New("service is not a declared dependency")
	// ErrRemoveNotPermitted is returned when a context removes a service it neither depends on nor created.
	ErrRemoveNotPermitted = errors.New("service may not be removed from this context")
	// ErrRemovedBeforeStart fails the ready future of a service removed before it started.
	ErrRemovedBeforeStart = errors.New("service removed before it started")
	// ErrStartInterrupted fails the ready future of a service whose interruptible start was cancelled.
	ErrStartInterrupted = errors.New("service start interrupted")
	// ErrCloseTimeout is returned by Close when services did not stop in time.
	ErrCloseTimeout = errors.New("container close timed out")
	// ErrInjectionType is returned by typed injectors receiving a value of the wrong type.
	ErrInjectionType = errors.New("injected value has unexpected type")
)

// StartError reports a failed start routine.
type StartError struct {
	Service ServiceName
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("service %s failed to start; %v", e.Service, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// ProtocolError reports misuse of a start or stop context by service code,
// such as registering asynchronous completion twice. It is raised as a panic
// from the offending call and recovered at the controller boundary.
type ProtocolError struct {
	Service ServiceName
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("service %s violated the lifecycle protocol; %s", e.Service, e.Message)
}

// panicError converts a recovered panic value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic; %w", err)
	}
	return fmt.Errorf("panic; %v", r)
}
