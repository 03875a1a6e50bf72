package hotplugd

import "sync"

// ChildRecord tracks one live worker process: the OS pid and the seqnum
// of the Event that spawned it.
type ChildRecord struct {
	Pid    int
	Seqnum uint64
}

// childTable is the append-on-fork, remove-on-reap set of live workers.
// It carries its own lock because it is mutated both from the dispatcher
// (on fork) and the signal hub (on reap).
//
// Go's signal delivery already defers SIGCHLD handling out of handler
// context and into the signal hub's own goroutine, but that goroutine
// can still win the race against a
// dispatcher that has forked but not yet called add: a child that exits
// immediately may be reaped before its ChildRecord exists. earlyExits
// records such reaps so add can recognize them instead of registering a
// record for a pid that will never be reaped again.
type childTable struct {
	mu         sync.Mutex
	children   map[int]ChildRecord
	earlyExits map[int]int
}

func newChildTable() *childTable {
	return &childTable{
		children:   make(map[int]ChildRecord),
		earlyExits: make(map[int]int),
	}
}

// add registers a freshly forked child. If the signal hub already reaped
// this pid before add was called (the fork/signal race), the record is
// never inserted live; add reports that case via reapedEarly so the
// dispatcher can account for it exactly as if a normal reap had followed.
func (t *childTable) add(pid int, seqnum uint64) (reapedEarly bool, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if status, ok := t.earlyExits[pid]; ok {
		delete(t.earlyExits, pid)
		return true, status
	}
	t.children[pid] = ChildRecord{Pid: pid, Seqnum: seqnum}
	return false, 0
}

// remove deletes pid's record if present, reporting whether it was found.
// A false result means pid is not a currently registered child; the
// caller (signal hub) then decides whether that's a known non-child pid
// (coldplug) or a candidate for recordEarlyExit.
func (t *childTable) remove(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.children[pid]; !ok {
		return false
	}
	delete(t.children, pid)
	return true
}

// recordEarlyExit marks pid as reaped before any ChildRecord for it could
// be registered. Safe to call for pids that turn out not to belong to
// this table (e.g. a truly foreign pid): entries are only ever consumed
// by add. An entry that add never consumes stays in the map; in this
// daemon the signal hub matches the coldplug pid before calling this, so
// the pids recorded here are workers whose add is still pending.
func (t *childTable) recordEarlyExit(pid int, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.earlyExits[pid] = status
}

// count returns the number of live children.
func (t *childTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.children)
}

// empty reports whether the table has no live children.
func (t *childTable) empty() bool {
	return t.count() == 0
}
