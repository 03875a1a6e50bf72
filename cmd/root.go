// Package cmd builds the hotplugd cobra command: flag parsing, config
// resolution, and the daemon body itself. This daemon has a single
// command because there is only one thing to run.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hotplugd/hotplugd/internal/config"
	"github.com/hotplugd/hotplugd/internal/diag"
	"github.com/hotplugd/hotplugd/internal/hotplugd"
	"github.com/hotplugd/hotplugd/internal/logging"
	"github.com/hotplugd/hotplugd/internal/systemd"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// CreateRootCmd builds the hotplugd root command. The daemon body lives
// in RunE so cobra's --help/--version handling short-circuits before any
// socket is opened or child forked.
func CreateRootCmd() *cobra.Command {
	opts := config.DefaultCLIOptions()

	root := &cobra.Command{
		Use:   "hotplugd",
		Short: "Userspace hotplug event multiplexer for the kernel uevent netlink socket",
		Long: "hotplugd listens on the NETLINK_KOBJECT_UEVENT socket, decodes kobject " +
			"uevents, and dispatches one worker process per admitted event, either a " +
			"direct modprobe invocation or a rule-engine callout.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.Flags()
	flags.StringVarP(&opts.Config, "config", "c", opts.Config, "Path to TOML config file")

	flags.BoolVar(&opts.Persistent, "persistent", opts.Persistent, "Stay running after quiescence instead of exiting")
	flags.BoolVar(&opts.NoPersistent, "no-persistent", false, "Exit once quiescent (overrides --persistent)")

	flags.BoolVar(&opts.Coldplug, "coldplug", opts.Coldplug, "Run the coldplug trigger at startup")
	flags.BoolVar(&opts.NoColdplug, "no-coldplug", false, "Skip the coldplug trigger (overrides --coldplug)")
	flags.BoolVar(&opts.Coldplug, "udevtrigger", opts.Coldplug, "Alias for --coldplug")
	flags.BoolVar(&opts.NoColdplug, "no-udevtrigger", false, "Alias for --no-coldplug")

	flags.BoolVar(&opts.Override, "override", opts.Override, "Evaluate rule override flags before throttling")
	flags.BoolVar(&opts.NoOverride, "no-override", false, "Disable override pre-evaluation (overrides --override)")

	flags.BoolVar(&opts.Dumb, "dumb", opts.Dumb, "Ignore the rule set; admit ADD events with MODALIAS only")
	flags.BoolVar(&opts.NoDumb, "no-dumb", false, "Disable dumb mode (no rule engine is wired into this build, so dumb mode is still used)")

	flags.IntVar(&opts.MaxChildren, "max-children", opts.MaxChildren, "Maximum concurrently running worker processes")
	flags.StringVar(&opts.SetColdplugCmd, "set-coldplug-cmd", opts.SetColdplugCmd, "Coldplug trigger command")
	flags.StringVar(&opts.SetModprobeCmd, "set-modprobe-cmd", opts.SetModprobeCmd, "modprobe command (autodetected when unset)")
	flags.StringVar(&opts.SetRulesFile, "set-rules-file", opts.SetRulesFile, "Rule file path (no rule engine is wired into this build; a configured file is ignored and dumb mode is used)")

	flags.StringVar(&opts.LoggingLevel, "logging-level", opts.LoggingLevel, "Global log level (debug, info, warn, error)")
	flags.StringVar(&opts.LoggingFormat, "logging-format", opts.LoggingFormat, "Log output format (text, json)")
	flags.StringVar(&opts.LoggingDispatcher, "logging-dispatcher", opts.LoggingDispatcher, "Dispatcher log level override")
	flags.StringVar(&opts.LoggingNetlink, "logging-netlink", opts.LoggingNetlink, "Netlink log level override (no component logs under the netlink module in this build)")
	flags.StringVar(&opts.LoggingSignals, "logging-signals", opts.LoggingSignals, "Signal hub log level override")
	flags.StringVar(&opts.LoggingColdplug, "logging-coldplug", opts.LoggingColdplug, "Coldplug log level override")
	flags.StringVar(&opts.LoggingModprobe, "logging-modprobe", opts.LoggingModprobe, "Modprobe autodetect log level override")

	root.RunE = func(cmd *cobra.Command, _ []string) error {
		return runDaemon(cmd, &opts)
	}
	return root
}

// runDaemon is the daemon body: resolve config precedence, bring up
// logging, construct the Daemon, and drive its main loop until the
// signal hub decides to terminate.
func runDaemon(cmd *cobra.Command, opts *config.CLIOptions) error {
	if loadErr := config.LoadConfig(opts, cmd); loadErr != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", loadErr)
	}
	config.ResolveNegatable(cmd.Flags(), opts)

	logging.Initialize(opts.ToLoggingConfig())
	logger := logging.GetLogger("main")

	daemonOpts := opts.ToDaemonOptions()

	// internal/ruleset is a capability seam, not an implementation; no
	// rule parser ships in this build, so a configured rules file can't
	// be loaded into a concrete RuleSet and hotplugd always runs in
	// dumb mode regardless of --dumb. See DESIGN.md.
	if daemonOpts.RulesFile != "" {
		logger.Warn("rules file configured but no rule engine is wired into this build; falling back to dumb mode", "rules_file", daemonOpts.RulesFile)
	}
	daemonOpts.Dumb = true

	bus := diag.New()

	d, err := hotplugd.New(daemonOpts, nil, logger, bus)
	if err != nil {
		logger.Error("failed to initialize daemon", "error", err)
		dumpLogBuffer()
		return err
	}
	d.SetNotifier(systemd.NewManager())

	if err := d.Run(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		dumpLogBuffer()
		return err
	}
	return nil
}

// dumpLogBuffer writes recent log history to stderr on a startup-fatal
// error, so the operator sees the lead-up to the
// failure even if it scrolled past on stdout or never reached journal.
func dumpLogBuffer() {
	if buf := logging.GetBuffer(); buf != nil {
		fmt.Fprintln(os.Stderr, "--- recent log history ---")
		buf.DumpTo(os.Stderr)
	}
}
