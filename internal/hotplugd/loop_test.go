package hotplugd

import (
	"syscall"
	"testing"

	"github.com/hotplugd/hotplugd/internal/diag"
)

// newLoopTestDaemon assembles a Daemon around a real dispatcher but no
// netlink socket, enough to drive the decode-and-dispatch half of the
// main loop with hand-built datagrams.
func newLoopTestDaemon(t *testing.T, opts Options) *Daemon {
	t.Helper()
	if opts.BacklogCap <= 0 {
		opts.BacklogCap = DefaultBacklogCapacity
	}

	d := &Daemon{
		opts:     opts,
		logger:   discardLogger(),
		diag:     diag.New(),
		notify:   noopNotifier{},
		children: newChildTable(),
		backlog:  newBacklogQueue(opts.BacklogCap),
		cold:     &coldplug{state: ColdplugFinished},
	}
	d.dispatch = &dispatcher{
		opts:          opts,
		children:      d.children,
		backlog:       d.backlog,
		selfPath:      "/unused",
		modprobeCmd:   "true",
		highestSeqnum: &d.highestSeqnum,
		logger:        discardLogger(),
		diag:          d.diag,
	}
	return d
}

func TestHandleDatagramIgnoresNonUevent(t *testing.T) {
	opts := DefaultOptions()
	opts.Dumb = true
	d := newLoopTestDaemon(t, opts)

	// udevd-style control messages carry no action@devpath prefix and
	// must produce no Event and no side effects.
	d.handleDatagram([]byte("libudev\x00something\x00"))

	if d.highestSeqnum.Load() != 0 {
		t.Error("highestSeqnum must not change for a non-uevent datagram")
	}
	if d.children.count() != 0 || !d.backlog.empty() {
		t.Error("a non-uevent datagram must not reach dispatch")
	}
}

func TestHandleDatagramDropsEventWithoutSeqnum(t *testing.T) {
	opts := DefaultOptions()
	opts.Dumb = true
	d := newLoopTestDaemon(t, opts)

	// Decodes fine but carries no SEQNUM: dropped at the dispatcher's
	// SEQNUM check, never forked or backlogged.
	d.handleDatagram([]byte("add@/devices/x\x00MODALIAS=pci:v1\x00"))

	if d.highestSeqnum.Load() != 0 {
		t.Error("highestSeqnum must not change for a SEQNUM-less event")
	}
	if d.children.count() != 0 || !d.backlog.empty() {
		t.Error("a SEQNUM-less event must be dropped, not dispatched")
	}
}

func TestHandleDatagramDispatchesValidEvent(t *testing.T) {
	opts := DefaultOptions()
	opts.Dumb = true
	d := newLoopTestDaemon(t, opts)

	d.handleDatagram([]byte("add@/devices/x\x00ACTION=add\x00DEVPATH=/devices/x\x00SEQNUM=42\x00MODALIAS=pci:v00008086d00001234\x00"))

	if got := d.highestSeqnum.Load(); got != 42 {
		t.Errorf("highestSeqnum = %d, want 42", got)
	}
	if d.children.count() != 1 {
		t.Fatalf("children.count() = %d, want 1", d.children.count())
	}
	if !d.backlog.empty() {
		t.Error("backlog must be unchanged when a slot was free")
	}

	for pid := range d.children.children {
		var status syscall.WaitStatus
		_, _ = syscall.Wait4(pid, &status, 0, nil)
	}
}

func TestSetNotifierNilFallsBackToNoop(t *testing.T) {
	d := newLoopTestDaemon(t, DefaultOptions())
	d.SetNotifier(nil)

	// Ready must not panic with a nil-reset notifier.
	d.Ready()
}
