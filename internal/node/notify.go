package node

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier reports service manager state changes such as daemon.SdNotifyReady.
type Notifier func(state string) error

// SystemdNotifier notifies systemd through NOTIFY_SOCKET. It is a no-op when
// the process was not started by systemd.
func SystemdNotifier(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

func noopNotifier(string) error { return nil }
