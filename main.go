package main

import (
	"fmt"
	"os"

	"github.com/hotplugd/hotplugd/cmd"
	"github.com/hotplugd/hotplugd/internal/hotplugd"
)

func main() {
	// Rule-mode dispatch re-execs this same binary with a hidden argv
	// flag instead of raw-forking into live Go runtime state. A worker
	// child never reaches the flag parser below.
	if hotplugd.IsRuleWorker(os.Args) {
		os.Exit(hotplugd.RunRuleWorker(nil))
	}

	if err := cmd.CreateRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
