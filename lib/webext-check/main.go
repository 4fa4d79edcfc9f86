// A command line tool to check the toolbar button of a Firefox add-on.
//
//    webext-check run --extension ./my-addon
//
//    webext-check selftest
//
// The "run" command needs geckodriver and Firefox, use the "gecko" env var to tune them,
// such as "gecko=show,bin=/opt/firefox/firefox". The "selftest" command runs the same
// scenarios against an emulated browser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-rod/gecko"
	"github.com/go-rod/gecko/lib/fakedriver"
	"github.com/go-rod/gecko/lib/launcher"
	"github.com/go-rod/gecko/lib/scenario"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
	"github.com/spf13/cobra"
)

type options struct {
	config  string
	verbose bool
	show    bool
	bidi    bool
	filters scenario.RegexFilters
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, utils.C(err, "red"))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "webext-check",
		Short:         "Check the toolbar button of a Firefox add-on",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.config, "config", "", "config file (default is ./webext-check.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print the debug output of passed scenarios too")
	flags.Var(&opts.filters.MustMatch, "run", "only run the scenarios that match the regex, repeatable")
	flags.Var(&opts.filters.MustNotMatch, "skip", "skip the scenarios that match the regex, repeatable")
	addFlags(flags)

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the scenarios against Firefox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.config, cmd.Flags())
			if err != nil {
				return err
			}

			l := launcher.New().Headless(!opts.show).BiDi(opts.bidi)
			if opts.verbose {
				l.Log(func(s string) { fmt.Fprint(cmd.ErrOrStderr(), s) })
			}

			b := gecko.New().Launcher(l).Extension(cfg.Extension)

			return execute(cmd, opts, cfg, b)
		},
	}
	run.Flags().BoolVar(&opts.show, "show", false, "show the browser window")
	run.Flags().BoolVar(&opts.bidi, "bidi", false, "collect the console logs of the browser")

	selftest := &cobra.Command{
		Use:   "selftest",
		Short: "Run the scenarios against an emulated browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.config, cmd.Flags())
			if err != nil {
				return err
			}

			d := fakedriver.New()
			u, stop := d.Serve()
			defer stop()

			b := gecko.New().
				Client(webdriver.New(u)).
				Capabilities(launcher.New().Profile("").BiDi(true).Capabilities()).
				Extension(cfg.Extension)

			return execute(cmd, opts, cfg, b)
		},
	}

	root.AddCommand(run, selftest)

	return root
}

func execute(cmd *cobra.Command, opts *options, cfg *config, b *gecko.Browser) error {
	reporter := scenario.NewConsoleReporter()
	reporter.Out = cmd.OutOrStdout()
	reporter.DebugOutputOnSuccess = opts.verbose

	r := scenario.Runner{
		Setup:          scenario.Connect(b.Logger(utils.LoggerQuiet)),
		Scenarios:      scenario.Suite(cfg.Scenario),
		Filter:         opts.filters.AsFilter,
		Reporter:       reporter,
		StartupTimeout: cfg.StartupTimeout,
	}

	res := r.Run(cmd.Context())

	if res.Setup != nil {
		return res.Setup
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d scenarios failed", len(res.Failures), len(res.Scenarios))
	}
	return nil
}
