// Package sdnotify reports process state to systemd for Type=notify units:
// readiness, shutdown, and watchdog keepalives. Every call degrades to a
// no-op when NOTIFY_SOCKET is unset, so running outside systemd stays safe.
package sdnotify

import (
	"context"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd the daemon finished starting up.
func Ready() { _, _ = sd.SdNotify(false, sd.SdNotifyReady) }

// Stopping tells systemd a shutdown began.
func Stopping() { _, _ = sd.SdNotify(false, sd.SdNotifyStopping) }

// Ping sends one watchdog keepalive.
func Ping() { _, _ = sd.SdNotify(false, sd.SdNotifyWatchdog) }

// WatchdogInterval reports the unit's WatchdogSec, when set.
func WatchdogInterval() (time.Duration, bool) {
	interval, err := sd.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return 0, false
	}
	return interval, true
}

// Loop pings the watchdog at half the configured interval until ctx ends.
// It returns immediately when no watchdog is configured.
func Loop(ctx context.Context) {
	interval, ok := WatchdogInterval()
	if !ok {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			Ping()
		}
	}
}
