// Package ruleset declares the capability the hotplug core depends on
// for rule-driven dispatch. The rule language and its evaluator live
// outside this daemon; this package is the seam, not an implementation.
package ruleset

import "github.com/hotplugd/hotplugd/internal/netlink"

// Verdict is the result of evaluating one rule against one event.
type Verdict int

const (
	NoMatch Verdict = iota
	Match
	Fatal
)

// FlagMask holds per-rule gating bits. The only bit the core interprets
// directly is NoThrottle; the rest are opaque to the dispatcher and are
// ANDed together across matching rules during override pre-evaluation.
type FlagMask uint32

const (
	// FlagNoThrottle exempts a matched event from backlog throttling.
	FlagNoThrottle FlagMask = 1 << iota
)

// FlagAll is returned when no rule matched during override
// pre-evaluation. Note the inversion: "all rules matched" in the
// override sense means "nothing applies", and the dispatcher treats
// FlagAll as a skip-this-event signal, not a permit-everything signal.
const FlagAll FlagMask = ^FlagMask(0)

// FlagUnset is the default flag value when override pre-evaluation is not
// in effect: every gating decision defaults to "on" (throttle applies).
const FlagUnset FlagMask = 0

// Rule is an opaque handle into a RuleSet's internal rule representation.
type Rule any

// RuleSet is the capability surface the core requires from the external
// rule engine. A concrete implementation parses some rule language into
// a program of Rules and executes matched actions, entirely outside this
// daemon's concern.
type RuleSet interface {
	// Rules returns the parsed rule program in evaluation order.
	Rules() []Rule

	// Evaluate tests event against rule's condition.
	Evaluate(event *netlink.Event, rule Rule) Verdict

	// Flags returns rule's gating flag mask.
	Flags(rule Rule) FlagMask

	// Execute runs the matched actions for event against the whole rule
	// set. It may terminate rule iteration early when a rule signals
	// stop; that policy is internal to the RuleSet implementation.
	Execute(event *netlink.Event, rules []Rule) error
}

// EvaluateOverrideFlags computes the override pre-evaluation flag mask
// for event against every rule in rs: the mask is the bitwise AND of
// every matching rule's flags; if no rule matched, the result is FlagAll
// (meaning: skip this event).
func EvaluateOverrideFlags(rs RuleSet, event *netlink.Event) FlagMask {
	flags := FlagAll
	matched := false

	for _, rule := range rs.Rules() {
		if rs.Evaluate(event, rule) != Match {
			continue
		}
		matched = true
		flags &= rs.Flags(rule)
	}

	if !matched {
		return FlagAll
	}
	return flags
}
