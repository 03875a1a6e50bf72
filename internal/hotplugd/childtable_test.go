package hotplugd

import "testing"

func TestChildTableAddRemove(t *testing.T) {
	ct := newChildTable()
	if !ct.empty() {
		t.Fatal("expected new table to be empty")
	}

	reapedEarly, _ := ct.add(100, 42)
	if reapedEarly {
		t.Fatal("add should not report reapedEarly for a pid with no prior exit")
	}
	if ct.count() != 1 {
		t.Fatalf("count = %d, want 1", ct.count())
	}

	if !ct.remove(100) {
		t.Fatal("remove should find the just-added pid")
	}
	if !ct.empty() {
		t.Fatal("expected table to be empty after remove")
	}
	if ct.remove(100) {
		t.Fatal("second remove of the same pid should report not found")
	}
}

// TestChildTableForkSignalRace exercises the earlyExits path: a SIGCHLD
// reap that observes a pid before the dispatcher registers it must not
// leave a phantom live ChildRecord behind.
func TestChildTableForkSignalRace(t *testing.T) {
	ct := newChildTable()

	ct.recordEarlyExit(200, 0)

	reapedEarly, status := ct.add(200, 7)
	if !reapedEarly {
		t.Fatal("add should report reapedEarly for a pid recorded via recordEarlyExit")
	}
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	if !ct.empty() {
		t.Fatal("a child reaped before registration must never appear live")
	}
}

func TestChildTableCountTracksLiveChildren(t *testing.T) {
	ct := newChildTable()
	for i, pid := range []int{10, 11, 12} {
		ct.add(pid, uint64(i))
	}
	if ct.count() != 3 {
		t.Fatalf("count = %d, want 3", ct.count())
	}
	ct.remove(11)
	if ct.count() != 2 {
		t.Fatalf("count = %d, want 2", ct.count())
	}
}
