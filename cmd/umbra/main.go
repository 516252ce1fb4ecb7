// Command umbra scans a date window for solar and lunar eclipses, prints the
// Earth/Moon trajectories and serves the live render state.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thurmanmarka/umbra/internal/config"
	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/observability"
	"github.com/thurmanmarka/umbra/internal/sim"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	a.close(context.Background())
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

// flags holds every command-line value. They are applied over the
// environment configuration only when set explicitly.
type flags struct {
	provider  string
	kernel    string
	logLevel  string
	logFormat string
	tracing   bool

	start     string
	end       string
	step      time.Duration
	criterion string
	policy    string
	refine    time.Duration
	interval  time.Duration
	frames    int
	addr      string
	rate      float64
	maxWindow time.Duration
	jsonOut   bool
	format    string
}

// app is the state shared by the subcommands once the root pre-run hook
// has opened the provider.
type app struct {
	stdout io.Writer
	stderr io.Writer
	f      flags

	cfg      config.Config
	log      logging.Logger
	metrics  *observability.Collector
	provider ephem.Provider
	shutdown func(context.Context) error
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stdout: stdout, stderr: stderr, log: logging.Noop()}

	root := &cobra.Command{
		Use:           "umbra",
		Short:         "Earth/Moon trajectories and eclipse scanning",
		Long:          "umbra computes Earth and Moon motion around the Sun from an ephemeris\nand scans a date window for approximate solar and lunar eclipses.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.f.provider, "provider", "meeus", "ephemeris provider: approx, meeus or jpl")
	pf.StringVar(&a.f.kernel, "kernel", "", "JPL DE binary file for the jpl provider")
	pf.StringVar(&a.f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&a.f.logFormat, "log-format", "text", "log format: text or json")
	pf.BoolVar(&a.f.tracing, "tracing", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(
		newScanCmd(a),
		newTrajectoryCmd(a),
		newLiveCmd(a),
		newServeCmd(a),
		newFormulasCmd(a),
		newProfileCmd(a),
	)
	return root, a
}

// setup resolves the configuration (defaults, then UMBRA_* variables, then
// flags), builds the logger and metrics and opens the provider once.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	a.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.NewWithWriter(a.stderr, logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := cmd.Context()
	if a.shutdown, err = observability.InitTracing(ctx, observability.TracingConfig{
		Enabled: cfg.TracingEnabled,
		Writer:  a.stderr,
	}, a.log); err != nil {
		return err
	}

	if a.metrics, err = observability.NewCollector(nil); err != nil {
		return err
	}

	if cmd.Name() == "formulas" {
		return nil
	}

	mode, err := ephem.ParseMode(cfg.Provider)
	if err != nil {
		return err
	}
	p, err := ephem.Open(ephem.Options{Mode: mode, Kernel: cfg.Kernel})
	if err != nil {
		return err
	}
	if r, ok := p.(interface{ Range() (float64, float64) }); ok {
		startJD, endJD := r.Range()
		a.log.Info(ctx, "ephemeris file loaded",
			logging.String("kernel", cfg.Kernel),
			logging.Float("start_jd", startJD),
			logging.Float("end_jd", endJD))
	}
	a.provider = ephem.Instrument(p, a.metrics)
	a.log.Debug(ctx, "provider opened", logging.String("provider", p.Name()))
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			apply()
		}
	}
	set("provider", func() { cfg.Provider = a.f.provider })
	set("kernel", func() { cfg.Kernel = a.f.kernel })
	set("log-level", func() { cfg.LogLevel = a.f.logLevel })
	set("log-format", func() { cfg.LogFormat = a.f.logFormat })
	set("tracing", func() { cfg.TracingEnabled = a.f.tracing })
	set("step", func() { cfg.Step = a.f.step })
	set("criterion", func() { cfg.Criterion = a.f.criterion })
	set("policy", func() { cfg.Policy = a.f.policy })
	set("refine", func() { cfg.Refine = a.f.refine })
	set("interval", func() { cfg.LiveInterval = a.f.interval })
	set("addr", func() { cfg.ListenAddr = a.f.addr })
	set("rate", func() { cfg.ScanRate = a.f.rate })
	set("max-window", func() { cfg.MaxWindow = a.f.maxWindow })
}

// close releases the provider and flushes spans. It runs whether or not the
// command succeeded.
func (a *app) close(ctx context.Context) {
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.log.Warn(ctx, "closing provider", logging.Err(err))
		}
	}
	observability.ShutdownWithTimeout(ctx, a.shutdown, a.log)
}

func (a *app) scanConfig() (eclipse.Config, error) {
	criterion, err := eclipse.ParseCriterion(a.cfg.Criterion)
	if err != nil {
		return eclipse.Config{}, err
	}
	policy, err := eclipse.ParsePolicy(a.cfg.Policy)
	if err != nil {
		return eclipse.Config{}, err
	}
	return eclipse.Config{
		Step:      a.cfg.Step,
		Criterion: criterion,
		Policy:    policy,
		Refine:    a.cfg.Refine,
	}, nil
}

func (a *app) simulator() (*sim.Simulator, error) {
	cfg, err := a.scanConfig()
	if err != nil {
		return nil, err
	}
	return sim.New(a.provider, cfg, a.log, a.metrics, sim.WithMaxWindow(a.cfg.MaxWindow)), nil
}

func (a *app) window() (time.Time, time.Time, error) {
	start, err := timeutil.ParseDate(a.f.start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
	}
	end, err := timeutil.ParseDate(a.f.end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
	}
	return start, end, nil
}
