// Package systemd reports service state to the service manager through
// sd_notify. Every call is a no-op when NOTIFY_SOCKET is unset.
package systemd

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify state strings.
type Notifier struct {
	// send is swapped in tests.
	send func(state string) (bool, error)
}

func New() *Notifier {
	return &Notifier{send: func(state string) (bool, error) {
		return daemon.SdNotify(false, state)
	}}
}

func (n *Notifier) Ready() error     { return n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() error  { return n.notify(daemon.SdNotifyStopping) }
func (n *Notifier) Reloading() error { return n.notify(daemon.SdNotifyReloading) }
func (n *Notifier) Watchdog() error  { return n.notify(daemon.SdNotifyWatchdog) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) error {
	return n.notify("STATUS=" + fmt.Sprintf(format, args...))
}

func (n *Notifier) notify(state string) error {
	if n == nil || n.send == nil {
		return nil
	}
	_, err := n.send(state)
	return err
}

// WatchdogInterval returns half the configured watchdog timeout, or 0 when
// the watchdog is not enabled for this process.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0
	}
	return d / 2
}
