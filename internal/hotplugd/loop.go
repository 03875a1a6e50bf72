package hotplugd

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hotplugd/hotplugd/internal/diag"
	"github.com/hotplugd/hotplugd/internal/logging"
	"github.com/hotplugd/hotplugd/internal/netlink"
	"github.com/hotplugd/hotplugd/internal/ruleset"
)

// ReadinessNotifier reports startup/shutdown milestones to a process
// supervisor. internal/systemd.Manager implements this; it's expressed
// as an interface here so the core event pipeline doesn't depend on the
// systemd package, matching the rule-engine capability pattern.
type ReadinessNotifier interface {
	Ready() error
	Stopping() error
}

// idleRecvInterval bounds the otherwise-blocking netlink receive so the
// main loop re-checks the signal hub's terminate flag on a quiet socket.
const idleRecvInterval = time.Second

type noopNotifier struct{}

func (noopNotifier) Ready() error    { return nil }
func (noopNotifier) Stopping() error { return nil }

// Daemon owns every piece of process-wide state the pipeline needs and
// drives the main loop. There are no package-level globals: the child
// table, backlog, coldplug state, and counters all live here and are
// passed explicitly to the components that touch them.
type Daemon struct {
	opts Options

	logger *slog.Logger
	diag   *diag.Bus
	notify ReadinessNotifier

	sock     *netlink.Socket
	children *childTable
	backlog  *backlogQueue
	cold     *coldplug
	signals  *signalHub
	dispatch *dispatcher

	stopSignals func()

	highestSeqnum atomic.Uint64
}

// SetNotifier installs a readiness notifier. Optional; a nil or unset
// notifier is treated as a no-op.
func (d *Daemon) SetNotifier(n ReadinessNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	d.notify = n
}

// New constructs a Daemon. rs is nil for dumb-mode operation. logger and
// bus are the ambient logging/diagnostics sinks; the modprobe, dispatcher,
// signals, and coldplug components log through their own per-module
// loggers (logging.GetLogger) so per-module level overrides apply to them.
func New(opts Options, rs ruleset.RuleSet, logger *slog.Logger, bus *diag.Bus) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dumb {
		rs = nil
	}

	sock, err := netlink.Open()
	if err != nil {
		return nil, fmt.Errorf("open netlink socket: %w", err)
	}

	modprobeCmd := opts.ModprobeCmd
	if modprobeCmd == "" {
		modprobeCmd = detectModprobeCommand(logging.GetLogger("modprobe"))
	}

	selfPath, err := os.Executable()
	if err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("resolve self executable path: %w", err)
	}

	children := newChildTable()
	backlogCap := opts.BacklogCap
	if backlogCap <= 0 {
		backlogCap = DefaultBacklogCapacity
	}

	d := &Daemon{
		opts:     opts,
		logger:   logger,
		diag:     bus,
		notify:   noopNotifier{},
		sock:     sock,
		children: children,
		backlog:  newBacklogQueue(backlogCap),
		cold:     &coldplug{},
	}

	d.dispatch = &dispatcher{
		opts:          opts,
		children:      children,
		backlog:       d.backlog,
		rules:         rs,
		selfPath:      selfPath,
		modprobeCmd:   modprobeCmd,
		highestSeqnum: &d.highestSeqnum,
		logger:        logging.GetLogger("dispatcher"),
		diag:          bus,
	}

	// The signal hub must be installed before coldplug forks: if the
	// coldplug child exits before a reaper is listening, the SIGCHLD
	// that announces it can be missed, leaving the coldplug state stuck
	// short of finished and the daemon unable to quiesce.
	d.signals = newSignalHub(logging.GetLogger("signals"), bus, children, d.cold, KernelSeqnumPath, &d.highestSeqnum, opts.Persistent)
	d.stopSignals = d.signals.install()

	coldplugCmd := opts.ColdplugCmd
	if coldplugCmd == "" {
		coldplugCmd = DefaultColdplugCmd
	}
	if err := d.cold.start(opts.Coldplug, coldplugCmd, logging.GetLogger("coldplug")); err != nil {
		d.logger.Warn("coldplug trigger failed to start, continuing without it", "error", err)
	}

	return d, nil
}

// Ready reports the daemon's readiness once the caller (Run, or a test
// harness) considers startup complete: coldplug forked (or skipped) and
// the netlink socket bound.
func (d *Daemon) Ready() {
	if err := d.notify.Ready(); err != nil {
		d.logger.Debug("sd_notify READY failed (likely not running under systemd)", "error", err)
	}
}

// Run executes the main loop until the signal hub decides to terminate.
// It returns nil on orderly signal-driven shutdown.
func (d *Daemon) Run() error {
	defer d.stopSignals()

	d.logger.Info("hotplugd started", "persistent", d.opts.Persistent, "dumb", d.opts.Dumb, "max_children", d.opts.MaxChildren)
	d.Ready()

	for {
		if d.signals.shouldTerminate() {
			return d.cleanup()
		}

		switch {
		case !d.backlog.empty() && d.children.count() < d.opts.MaxChildren:
			event := d.backlog.dequeue()
			d.diag.Publish(diag.BacklogDrained{Depth: d.backlog.count()})
			d.dispatch.dispatch(event)

		case d.backlog.full():
			time.Sleep(ThrottleInterval)

		case !d.backlog.empty():
			// Pool saturated but backlog not yet at capacity: poll
			// netlink with a bounded timeout instead of blocking, so
			// a quiet socket doesn't stall backlog drainage once a
			// slot frees up.
			data, ready, err := d.sock.RecvTimeout(ThrottleInterval)
			if err != nil {
				d.logger.Error("netlink recv error", "error", err)
				continue
			}
			if !ready {
				continue
			}
			d.handleDatagram(data)

		default:
			// Bounded rather than unbounded: the signal hub decides to
			// terminate from its own goroutine, and a thread parked in
			// an indefinite Recvfrom would not observe that until the
			// next uevent arrived. The timeout puts an upper bound on
			// how stale the terminate check at the top of the loop can
			// get while the socket is quiet.
			data, ready, err := d.sock.RecvTimeout(idleRecvInterval)
			if err != nil {
				d.logger.Error("netlink recv error", "error", err)
				continue
			}
			if !ready {
				continue
			}
			d.handleDatagram(data)
		}
	}
}

func (d *Daemon) handleDatagram(data []byte) {
	event := netlink.Decode(data)
	if event == nil {
		d.logger.Debug("dropping datagram with no action@devpath prefix")
		return
	}
	d.dispatch.dispatch(event)
}

// cleanup implements the SIGINT/quiescent-SIGUSR1 exit path: close the
// socket and wait, without a deadline, for every outstanding child
// before returning.
func (d *Daemon) cleanup() error {
	if err := d.notify.Stopping(); err != nil {
		d.logger.Debug("sd_notify STOPPING failed (likely not running under systemd)", "error", err)
	}
	d.logger.Info("shutting down, waiting for outstanding children", "count", d.children.count())
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, 0, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			// ECHILD: nothing left to wait for, coldplug included.
			break
		}
		d.cold.reapIfMatch(pid)
		d.children.remove(pid)
	}
	return d.sock.Close()
}
