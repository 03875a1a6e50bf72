package config

import (
	"github.com/spf13/pflag"

	"github.com/hotplugd/hotplugd/internal/hotplugd"
	"github.com/hotplugd/hotplugd/internal/logging"
)

// CLIOptions is the flag/env/TOML-bound configuration surface for
// hotplugd. Negatable boolean pairs are represented as two plain bools
// each, reconciled by ResolveNegatable after parsing; pflag has no
// native `--[no-]foo` flag type.
type CLIOptions struct {
	Config string `help:"Optional TOML config file"`

	// The "negatable" tag names the paired --no-foo flag so LoadConfig's
	// CLI-precedence check (config.go's cliOverridden) treats either half
	// of the pair as a CLI decision, not just the positive flag.
	Persistent   bool `toml:"persistent" env:"PERSISTENT" negatable:"no-persistent"`
	NoPersistent bool

	Coldplug   bool `toml:"coldplug" env:"COLDPLUG" negatable:"no-coldplug"`
	NoColdplug bool

	Override   bool `toml:"override" env:"OVERRIDE" negatable:"no-override"`
	NoOverride bool

	Dumb   bool `toml:"dumb" env:"DUMB" negatable:"no-dumb"`
	NoDumb bool

	MaxChildren int `toml:"max_children" env:"MAX_CHILDREN"`

	// Field names here mirror their flag names (set-coldplug-cmd, etc)
	// rather than the shorter names used internally, since
	// fieldNameToFlag's reflection-derived CLI-precedence check in
	// LoadConfig has no per-field override for the flag name.
	SetColdplugCmd string `toml:"coldplug_cmd" env:"COLDPLUG_CMD"`
	SetModprobeCmd string `toml:"modprobe_cmd" env:"MODPROBE_CMD"`
	SetRulesFile   string `toml:"rules_file" env:"RULES_FILE"`

	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`

	// Per-module level overrides. Empty means inherit the global level.
	LoggingDispatcher string `toml:"logging.dispatcher" env:"LOGGING_DISPATCHER"`
	LoggingNetlink    string `toml:"logging.netlink" env:"LOGGING_NETLINK"`
	LoggingSignals    string `toml:"logging.signals" env:"LOGGING_SIGNALS"`
	LoggingColdplug   string `toml:"logging.coldplug" env:"LOGGING_COLDPLUG"`
	LoggingModprobe   string `toml:"logging.modprobe" env:"LOGGING_MODPROBE"`
}

// DefaultCLIOptions seeds a CLIOptions from hotplugd's compiled-in
// defaults, for cobra's flag default values.
func DefaultCLIOptions() CLIOptions {
	d := hotplugd.DefaultOptions()
	return CLIOptions{
		Persistent:     d.Persistent,
		Coldplug:       d.Coldplug,
		Override:       d.Override,
		Dumb:           d.Dumb,
		MaxChildren:    d.MaxChildren,
		SetColdplugCmd: d.ColdplugCmd,
		SetModprobeCmd: d.ModprobeCmd,
		SetRulesFile:   d.RulesFile,
		LoggingLevel:   "info",
		LoggingFormat:  "text",
	}
}

// negatablePair is one --foo/--no-foo flag pair prior to reconciliation.
// aliases lists any additional --no-X flag names that share the same
// negative backing variable (e.g. --no-udevtrigger alongside
// --no-coldplug) and must also be checked for .Changed.
type negatablePair struct {
	name     string
	aliases  []string
	positive *bool
	negative *bool
}

// ResolveNegatable reconciles every --foo/--no-foo pflag pair: if --no-foo
// (or any of its aliases) was explicitly passed on the command line, it
// wins over --foo, regardless of flag declaration order. This is the one
// piece of the --[no-]foo contract reflection-based LoadConfig can't
// express, since the negative flag is a synthetic CLI-only addition with
// no TOML/env counterpart of its own.
//
// Checking *p.negative's current value rather than relying solely on a
// single flag's Changed matters when a pair has aliases: --coldplug and
// --udevtrigger share opts.Coldplug, and --no-coldplug/--no-udevtrigger
// share opts.NoColdplug, so a flag named "no-coldplug" being unchanged
// doesn't mean the pair wasn't negated: "no-udevtrigger" might have been
// the one passed instead.
func ResolveNegatable(flags *pflag.FlagSet, opts *CLIOptions) {
	pairs := []negatablePair{
		{"persistent", nil, &opts.Persistent, &opts.NoPersistent},
		{"coldplug", []string{"no-udevtrigger"}, &opts.Coldplug, &opts.NoColdplug},
		{"override", nil, &opts.Override, &opts.NoOverride},
		{"dumb", nil, &opts.Dumb, &opts.NoDumb},
	}

	for _, p := range pairs {
		names := append([]string{"no-" + p.name}, p.aliases...)
		negated := false
		for _, n := range names {
			if f := flags.Lookup(n); f != nil && f.Changed {
				negated = true
				break
			}
		}
		if negated && *p.negative {
			*p.positive = false
		}
	}
}

// ToLoggingConfig projects the logging fields onto logging.Config. Only
// explicitly set per-module overrides are included; absent modules
// inherit the global level inside logging.Initialize.
func (c CLIOptions) ToLoggingConfig() logging.Config {
	cfg := logging.Config{
		Level:   c.LoggingLevel,
		Format:  c.LoggingFormat,
		Modules: make(map[string]string),
	}
	for module, level := range map[string]string{
		"dispatcher": c.LoggingDispatcher,
		"netlink":    c.LoggingNetlink,
		"signals":    c.LoggingSignals,
		"coldplug":   c.LoggingColdplug,
		"modprobe":   c.LoggingModprobe,
	} {
		if level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

// ToDaemonOptions projects the parsed CLIOptions onto hotplugd.Options.
func (c CLIOptions) ToDaemonOptions() hotplugd.Options {
	opts := hotplugd.DefaultOptions()
	opts.Persistent = c.Persistent
	opts.Coldplug = c.Coldplug
	opts.Override = c.Override
	opts.Dumb = c.Dumb
	if c.MaxChildren > 0 {
		opts.MaxChildren = c.MaxChildren
	}
	if c.SetColdplugCmd != "" {
		opts.ColdplugCmd = c.SetColdplugCmd
	}
	opts.ModprobeCmd = c.SetModprobeCmd
	opts.RulesFile = c.SetRulesFile
	return opts
}
