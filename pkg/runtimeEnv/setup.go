// Package runtimeEnv provides process-lifecycle helpers used by the bridge
// supervisor (internal/bridge).
package runtimeEnv

import (
	"fmt"
	"os"
	"os/exec"
)

// SystemdNotify informs systemd of a readiness or status change if the
// process was started under systemd (NOTIFY_SOCKET set), used by the
// supervisor to report startup completion and shutdown.
// https://www.freedesktop.org/software/systemd/man/sd_notify.html
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	cmd := exec.Command("systemd-notify", args...)
	cmd.Run() // errors ignored, there is nothing to do about a failed notify
}
