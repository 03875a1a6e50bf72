package hotplugd

import (
	"log/slog"
	"sync/atomic"

	"github.com/hotplugd/hotplugd/internal/diag"
	"github.com/hotplugd/hotplugd/internal/netlink"
	"github.com/hotplugd/hotplugd/internal/ruleset"
)

// dispatcher runs per-event admission, override pre-evaluation,
// throttling, and the fork/spawn step.
type dispatcher struct {
	opts Options

	children *childTable
	backlog  *backlogQueue

	rules       ruleset.RuleSet // nil in dumb mode
	selfPath    string          // os.Executable(), used to re-exec rule workers
	modprobeCmd string

	highestSeqnum *atomic.Uint64

	logger *slog.Logger
	diag   *diag.Bus
}

// dispatchResult reports what happened to an event. Exactly one outcome
// applies per event: forked, enqueued, skipped, or dropped.
type dispatchResult int

const (
	resultDropped dispatchResult = iota
	resultSkippedByOverride
	resultBacklogged
	resultSpawned
	resultSpawnFailed
)

// dispatch runs one decoded event through admission, pre-evaluation,
// throttling, and spawn. It never blocks on netlink or child-process
// completion.
func (d *dispatcher) dispatch(event *netlink.Event) dispatchResult {
	modalias, _ := event.Get("MODALIAS")

	if !event.HasSeqnum {
		d.logger.Warn("dropping event without SEQNUM", "devpath", event.DevPath)
		d.diag.Publish(diag.EventDropped{Reason: "missing-seqnum", DevPath: event.DevPath})
		return resultDropped
	}

	bumpHighestSeqnum(d.highestSeqnum, event.Seqnum)

	if !d.admit(event, modalias) {
		d.diag.Publish(diag.EventDropped{Reason: "not-admitted", DevPath: event.DevPath})
		return resultDropped
	}

	flags := ruleset.FlagUnset
	if d.rules != nil && d.opts.Override {
		flags = ruleset.EvaluateOverrideFlags(d.rules, event)
		if flags == ruleset.FlagAll {
			d.logger.Debug("override: no rule matched, skipping event", "devpath", event.DevPath)
			return resultSkippedByOverride
		}
	}

	d.diag.Publish(diag.EventAdmitted{Action: event.Action.String(), DevPath: event.DevPath, Seqnum: event.Seqnum})

	if flags&ruleset.FlagNoThrottle == 0 && d.children.count() >= d.opts.MaxChildren {
		d.backlog.enqueue(event)
		d.diag.Publish(diag.BacklogEnqueued{Seqnum: int(event.Seqnum), Depth: d.backlog.count()})
		return resultBacklogged
	}

	return d.spawn(event, modalias)
}

// admit applies the admission filter: dumb mode admits only ADD events
// carrying MODALIAS; rule mode always admits.
func (d *dispatcher) admit(event *netlink.Event, modalias string) bool {
	if d.rules != nil {
		return true
	}
	return event.Action == netlink.ActionAdd && modalias != ""
}

// spawn forks a worker for event. SIGCHLD delivery is
// asynchronous in Go regardless of registration order, so the fork/signal
// race is instead closed by childTable's earlyExits bookkeeping: add()
// recognizes a reap that raced ahead of registration.
func (d *dispatcher) spawn(event *netlink.Event, modalias string) dispatchResult {
	pid, err := d.fork(event, modalias)
	if err != nil {
		d.logger.Error("fork failed, dropping event", "error", err, "devpath", event.DevPath)
		return resultSpawnFailed
	}

	reapedEarly, status := d.children.add(pid, event.Seqnum)
	if reapedEarly {
		d.diag.Publish(diag.ChildReaped{Pid: pid, Status: status})
		return resultSpawned
	}

	d.diag.Publish(diag.ChildSpawned{Pid: pid, Seqnum: event.Seqnum})
	return resultSpawned
}

func (d *dispatcher) fork(event *netlink.Event, modalias string) (int, error) {
	if d.rules != nil {
		cmd, err := spawnRuleWorker(d.selfPath, event)
		if err != nil {
			return 0, err
		}
		return cmd.Process.Pid, nil
	}

	cmd, err := spawnModprobeWorker(d.modprobeCmd, modalias, event)
	if err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}

// bumpHighestSeqnum is a lock-free monotonic max: highestSeqnum only
// ever increases.
func bumpHighestSeqnum(counter *atomic.Uint64, seqnum uint64) {
	for {
		cur := counter.Load()
		if seqnum <= cur {
			return
		}
		if counter.CompareAndSwap(cur, seqnum) {
			return
		}
	}
}
