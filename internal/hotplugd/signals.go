package hotplugd

import (
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/hotplugd/hotplugd/internal/diag"
)

// signalHub owns SIGINT/SIGUSR1/SIGCHLD handling: rather than
// async-signal-safe handler bodies, the Go runtime delivers signals into
// a channel (itself a self-pipe under the hood) that this hub drains in
// its own goroutine. All state it touches (childTable, coldplug,
// persistent, terminate) is synchronized independently of signal
// delivery.
type signalHub struct {
	ch     chan os.Signal
	logger *slog.Logger
	diag   *diag.Bus

	children *childTable
	cold     *coldplug

	persistent atomic.Bool
	terminate  atomic.Bool

	seqnumPath    string
	highestSeqnum *atomic.Uint64
}

func newSignalHub(logger *slog.Logger, bus *diag.Bus, children *childTable, cold *coldplug, seqnumPath string, highestSeqnum *atomic.Uint64, persistent bool) *signalHub {
	h := &signalHub{
		ch:            make(chan os.Signal, 32),
		logger:        logger,
		diag:          bus,
		children:      children,
		cold:          cold,
		seqnumPath:    seqnumPath,
		highestSeqnum: highestSeqnum,
	}
	h.persistent.Store(persistent)
	return h
}

// install registers the hub's channel with the Go runtime's signal
// delivery and starts the goroutine that drains it. Returns a stop func.
func (h *signalHub) install() (stop func()) {
	signal.Notify(h.ch, syscall.SIGINT, syscall.SIGUSR1, syscall.SIGCHLD)
	done := make(chan struct{})
	go h.run(done)
	return func() {
		signal.Stop(h.ch)
		close(h.ch)
		<-done
	}
}

func (h *signalHub) run(done chan struct{}) {
	defer close(done)
	for sig := range h.ch {
		switch sig {
		case syscall.SIGINT:
			h.logger.Info("received SIGINT, terminating")
			h.terminate.Store(true)
			return
		case syscall.SIGUSR1:
			h.togglePersistent()
		case syscall.SIGCHLD:
			h.reapAll()
		}
		if h.quiescent() {
			h.logger.Info("termination predicate satisfied", "highest_seqnum", h.highestSeqnum.Load())
			h.diag.Publish(diag.Quiescent{HighestSeqnum: h.highestSeqnum.Load()})
			h.terminate.Store(true)
			return
		}
	}
}

func (h *signalHub) togglePersistent() {
	next := !h.persistent.Load()
	h.persistent.Store(next)
	h.logger.Info("SIGUSR1: toggled persistence", "persistent", next)
}

// reapAll non-blockingly reaps every ready child on SIGCHLD, matching
// each reaped pid first against the coldplug pid, then
// against the child table. A pid matching neither is recorded in the
// child table's earlyExits via recordEarlyExit.
func (h *signalHub) reapAll() {
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}

		if h.cold.reapIfMatch(pid) {
			h.logger.Info("coldplug trigger finished", "pid", pid)
			h.diag.Publish(diag.ColdplugFinished{Pid: pid})
			continue
		}

		if h.children.remove(pid) {
			h.diag.Publish(diag.ChildReaped{Pid: pid, Status: status.ExitStatus()})
			continue
		}

		// Neither coldplug nor a registered child: either a pid this
		// process never spawned, or the fork/signal race (dispatcher
		// forked but hasn't called add yet). recordEarlyExit lets the
		// eventual add recognize it instead of registering a record
		// for a child that already exited.
		h.children.recordEarlyExit(pid, status.ExitStatus())
	}
}

// quiescent is the four-part termination predicate: not persistent,
// coldplug finished, no live children, and no kernel-seqnum gap.
func (h *signalHub) quiescent() bool {
	if h.persistent.Load() {
		return false
	}
	if !h.cold.finished() {
		return false
	}
	if !h.children.empty() {
		return false
	}
	kernelSeqnum, ok := getKernelSeqnum(h.seqnumPath)
	if !ok {
		return false
	}
	return h.highestSeqnum.Load() == kernelSeqnum
}

// shouldTerminate reports whether the hub has decided to exit, for the
// main loop to poll between iterations.
func (h *signalHub) shouldTerminate() bool {
	return h.terminate.Load()
}

// isPersistent reports the current persistence flag.
func (h *signalHub) isPersistent() bool {
	return h.persistent.Load()
}
