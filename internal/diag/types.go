// Package diag is an in-process diagnostics bus decoupling the dispatcher
// and signal hub from whatever observes them (logging, tests, a future
// metrics exporter). It carries no external transport of its own.
package diag

// Event type constants for kelindar/event.
const (
	TypeEventAdmitted uint32 = iota + 1
	TypeEventDropped
	TypeChildSpawned
	TypeChildReaped
	TypeBacklogEnqueued
	TypeBacklogDrained
	TypeColdplugFinished
	TypeQuiescent
)

// Event is the interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// EventAdmitted is published when the dispatcher admits a decoded uevent
// past the dumb/rule-mode admission filter.
type EventAdmitted struct {
	Action  string
	DevPath string
	Seqnum  uint64
}

func (e EventAdmitted) Type() uint32 { return TypeEventAdmitted }

// EventDropped is published when a decoded event is rejected before
// dispatch: missing SEQNUM or admission-filter rejection. A datagram with
// no action@devpath prefix never decodes into an event and publishes
// nothing.
type EventDropped struct {
	Reason  string
	DevPath string
}

func (e EventDropped) Type() uint32 { return TypeEventDropped }

// ChildSpawned is published after a successful fork registers a
// ChildRecord in the child table.
type ChildSpawned struct {
	Pid    int
	Seqnum uint64
}

func (e ChildSpawned) Type() uint32 { return TypeChildSpawned }

// ChildReaped is published when the SIGCHLD reaper observes a pid that
// matched a live ChildRecord, or by the dispatcher when a worker was
// reaped before its ChildRecord could be registered (coldplug reaps are
// reported separately, via ColdplugFinished).
type ChildReaped struct {
	Pid    int
	Status int
}

func (e ChildReaped) Type() uint32 { return TypeChildReaped }

// BacklogEnqueued is published when the dispatcher defers an event to the
// backlog tail because the worker pool is saturated.
type BacklogEnqueued struct {
	Seqnum int
	Depth  int
}

func (e BacklogEnqueued) Type() uint32 { return TypeBacklogEnqueued }

// BacklogDrained is published when the main loop dequeues the backlog
// head for dispatch.
type BacklogDrained struct {
	Depth int
}

func (e BacklogDrained) Type() uint32 { return TypeBacklogDrained }

// ColdplugFinished is published when the coldplug helper's pid is reaped.
type ColdplugFinished struct {
	Pid int
}

func (e ColdplugFinished) Type() uint32 { return TypeColdplugFinished }

// Quiescent is published the moment the termination predicate first
// evaluates true.
type Quiescent struct {
	HighestSeqnum uint64
}

func (e Quiescent) Type() uint32 { return TypeQuiescent }
