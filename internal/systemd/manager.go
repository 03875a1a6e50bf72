// Package systemd reports this daemon's own readiness and shutdown state
// to its systemd supervisor. The daemon is itself the managed unit, so
// the natural fit is the notify-socket side of the sd_notify protocol
// rather than the D-Bus control side.
package systemd

import "github.com/coreos/go-systemd/v22/daemon"

// Manager reports startup and shutdown milestones to systemd via the
// sd_notify protocol. Calls are no-ops when NOTIFY_SOCKET isn't set
// (e.g. running outside a systemd unit, or in tests).
type Manager struct{}

// NewManager returns a Manager. There is no connection to establish:
// sd_notify is a single best-effort datagram write per call.
func NewManager() *Manager {
	return &Manager{}
}

// Ready reports READY=1: the coldplug fork and netlink bind have
// succeeded and the daemon is now processing events.
func (m *Manager) Ready() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	return err
}

// Stopping reports STOPPING=1: the termination predicate has fired and
// cleanup has begun.
func (m *Manager) Stopping() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}
