package hotplugd

import (
	"os"
	"strconv"
	"strings"
)

// getKernelSeqnum reads the current kernel-wide uevent sequence counter
// from sysfs. Used only by the termination predicate. A
// read failure is treated as "gap not closed" (returns 0, false) so the
// daemon never terminates on a transient sysfs read error.
func getKernelSeqnum(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
