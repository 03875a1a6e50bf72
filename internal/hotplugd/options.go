// Package hotplugd implements the daemon's event pipeline and
// child-process controller: netlink intake, decoding, sequence-number
// tracking, bounded-concurrency dispatch with backlog and throttling,
// signal-driven child reaping, coldplug coordination, and the
// termination predicate that ties them together.
package hotplugd

import "time"

const (
	// DefaultBacklogCapacity caps the deferred-event queue.
	DefaultBacklogCapacity = 1024

	// ThrottleInterval is how long the main loop sleeps or polls while
	// the backlog or worker pool is saturated.
	ThrottleInterval = 100 * time.Millisecond

	// DefaultMaxChildren is the worker-pool cap (--max-children default).
	DefaultMaxChildren = 20

	// DefaultColdplugCmd is the coldplug trigger helper, a
	// udevtrigger-compatible command.
	DefaultColdplugCmd = "udevtrigger"

	// KernelSeqnumPath is the sysfs file exposing the kernel-wide uevent
	// sequence counter, used only for quiescence detection.
	KernelSeqnumPath = "/sys/kernel/uevent_seqnum"
)

// Options configures a Daemon. Populated from CLI flags / config file by
// the cmd package.
type Options struct {
	Persistent  bool
	Coldplug    bool
	Override    bool
	Dumb        bool
	MaxChildren int
	ColdplugCmd string
	ModprobeCmd string
	RulesFile   string
	BacklogCap  int
}

// DefaultOptions returns the daemon's compiled-in defaults.
func DefaultOptions() Options {
	return Options{
		Persistent:  false,
		Coldplug:    true,
		Override:    false,
		Dumb:        false,
		MaxChildren: DefaultMaxChildren,
		ColdplugCmd: DefaultColdplugCmd,
		BacklogCap:  DefaultBacklogCapacity,
	}
}
