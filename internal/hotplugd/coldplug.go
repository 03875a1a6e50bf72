package hotplugd

import (
	"log/slog"
	"os/exec"
	"sync"
)

// ColdplugState is the coldplug trigger's lifecycle.
type ColdplugState int

const (
	ColdplugNotStarted ColdplugState = iota
	ColdplugRunning
	ColdplugFinished
)

func (s ColdplugState) String() string {
	switch s {
	case ColdplugRunning:
		return "running"
	case ColdplugFinished:
		return "finished"
	default:
		return "not_started"
	}
}

// coldplug tracks the single coldplug helper process forked at startup.
// The signal hub's reaper goroutine is already running when start forks
// (the hub is installed first so the child's exit can't be missed), which
// means a fast-exiting trigger can be reaped while start is still in
// flight. The mutex is held across the fork and the pid/state record, so
// reapIfMatch observes either the pre-fork state or the fully registered
// one, never a half-written pid.
type coldplug struct {
	mu    sync.Mutex
	state ColdplugState
	pid   int
}

// start forks and execs the coldplug trigger helper once. If enabled is
// false, or the helper cannot be started, the coordinator is immediately
// finished so quiescence doesn't wait on a process that never ran.
func (c *coldplug) start(enabled bool, command string, logger *slog.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !enabled {
		c.state = ColdplugFinished
		return nil
	}

	cmd := exec.Command(command)
	if err := cmd.Start(); err != nil {
		c.state = ColdplugFinished
		return err
	}

	c.pid = cmd.Process.Pid
	c.state = ColdplugRunning
	logger.Info("coldplug trigger started", "command", command, "pid", c.pid)

	// The child is never Wait()'d here: the signal hub's SIGCHLD reaper
	// is the sole reaper of every forked child, coldplug included, so a
	// second waiter never races it for the same pid.
	return nil
}

// reapIfMatch transitions the coordinator to FINISHED if pid is the
// coldplug process. Returns true if it matched.
func (c *coldplug) reapIfMatch(pid int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ColdplugRunning && pid == c.pid {
		c.state = ColdplugFinished
		return true
	}
	return false
}

func (c *coldplug) finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == ColdplugFinished
}
