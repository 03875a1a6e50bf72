package hotplugd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/hotplugd/hotplugd/internal/netlink"
	"github.com/hotplugd/hotplugd/internal/ruleset"
)

// ruleWorkerFlag is the hidden argv[1] a re-executed copy of this binary
// recognizes to mean "don't start the daemon, run one rule-engine pass
// for the event on stdin and exit". Go cannot safely continue running a
// live runtime after a bare fork, so worker isolation is achieved by
// re-executing the binary instead, the way self-reexec container tooling
// solves the same problem.
const ruleWorkerFlag = "__hotplugd_rule_worker"

// IsRuleWorker reports whether this process invocation is a re-executed
// rule-worker child, for main to check before deciding whether to start
// the daemon or RunRuleWorker.
func IsRuleWorker(args []string) bool {
	return len(args) > 1 && args[1] == ruleWorkerFlag
}

// eventEnviron builds a child process environment carrying the event's
// uevent key/value pairs on top of the parent's own environment.
func eventEnviron(event *netlink.Event) []string {
	env := os.Environ()
	for _, pair := range event.Env {
		env = append(env, pair.Key+"="+pair.Value)
	}
	return env
}

// spawnModprobeWorker execs "<modprobeCmd> -q <modalias>" for dumb-mode
// dispatch. Only Start is called; the
// signal hub's SIGCHLD reaper is the sole waiter.
func spawnModprobeWorker(modprobeCmd, modalias string, event *netlink.Event) (*exec.Cmd, error) {
	cmd := exec.Command(modprobeCmd, "-q", modalias)
	cmd.Env = eventEnviron(event)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// spawnRuleWorker re-execs the current binary with ruleWorkerFlag,
// streaming the JSON-encoded event to its stdin. The child runs
// RunRuleWorker with whatever RuleSet main passes it; in this build main
// passes nil, so the child exits with status 1 without executing rules.
func spawnRuleWorker(selfPath string, event *netlink.Event) (*exec.Cmd, error) {
	cmd := exec.Command(selfPath, ruleWorkerFlag)
	cmd.Env = eventEnviron(event)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		_ = stdin.Close()
		return cmd, nil
	}
	go func() {
		_, _ = stdin.Write(payload)
		_ = stdin.Close()
	}()

	return cmd, nil
}

// RunRuleWorker is the rule-worker child's entire body: decode the event
// piped on stdin, run it through rs once, and report the outcome as an
// exit code. Called from main when IsRuleWorker(os.Args) is true.
func RunRuleWorker(rs ruleset.RuleSet) int {
	if rs == nil {
		fmt.Fprintln(os.Stderr, "hotplugd: rule worker: no rule set configured")
		return 1
	}
	var event netlink.Event
	if err := json.NewDecoder(os.Stdin).Decode(&event); err != nil {
		fmt.Fprintln(os.Stderr, "hotplugd: rule worker: decode event:", err)
		return 1
	}
	if err := rs.Execute(&event, rs.Rules()); err != nil {
		fmt.Fprintln(os.Stderr, "hotplugd: rule worker: execute:", err)
		return 1
	}
	return 0
}
