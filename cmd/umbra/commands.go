package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/thurmanmarka/umbra/internal/config"
	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/render"
	"github.com/thurmanmarka/umbra/internal/sim"
	"github.com/thurmanmarka/umbra/internal/timeutil"
	"github.com/thurmanmarka/umbra/internal/web"
)

func addWindowFlags(cmd *cobra.Command, f *flags) {
	cmd.Flags().StringVar(&f.start, "start", "", "start date, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date, YYYY-MM-DD (UTC), exclusive")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func addScanFlags(cmd *cobra.Command, f *flags) {
	cmd.Flags().DurationVar(&f.step, "step", eclipse.DefaultStep, "time step")
	cmd.Flags().StringVar(&f.criterion, "criterion", "umbral", "eclipse test: umbral or contact")
	cmd.Flags().StringVar(&f.policy, "policy", "first", "repeated hits keep the first or the last instant")
	cmd.Flags().DurationVar(&f.refine, "refine", 0, "bisect the onset to this tolerance (0 disables)")
}

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a date window for solar and lunar eclipses",
		Example: `  umbra scan --start 2025-03-13 --end 2025-03-16
  umbra scan --start 2024-04-07 --end 2024-04-10 --criterion contact --refine 1s --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := a.window()
			if err != nil {
				return err
			}
			cfg, err := a.scanConfig()
			if err != nil {
				return err
			}
			scanner := eclipse.NewScanner(a.provider, cfg,
				eclipse.WithLogger(a.log), eclipse.WithMetrics(a.metrics))
			res, err := scanner.Scan(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			if a.f.jsonOut {
				return writeJSON(a.stdout, res)
			}
			printScan(a.stdout, a.provider.Name(), cfg, res)
			return nil
		},
	}
	addWindowFlags(cmd, &a.f)
	addScanFlags(cmd, &a.f)
	cmd.Flags().BoolVar(&a.f.jsonOut, "json", false, "output the result as JSON")
	return cmd
}

func printScan(w io.Writer, provider string, cfg eclipse.Config, res eclipse.Result) {
	fmt.Fprintf(w, "Window     : %s .. %s\n", timeutil.Calendar(res.Start), timeutil.Calendar(res.End))
	fmt.Fprintf(w, "Provider   : %s\n", provider)
	fmt.Fprintf(w, "Criterion  : %s (%s hit)\n", cfg.Criterion, cfg.Policy)
	fmt.Fprintf(w, "Steps      : %d x %v\n", res.Steps, cfg.Step)
	fmt.Fprintf(w, "Next Solar Eclipse: %s\n", eventLine(res.Solar))
	fmt.Fprintf(w, "Next Lunar Eclipse: %s\n", eventLine(res.Lunar))
}

func eventLine(ev *eclipse.Event) string {
	if ev == nil {
		return render.NoneFound
	}
	return fmt.Sprintf("%s (separation %.4f°, threshold %.4f°)", ev.Calendar, ev.Separation, ev.Threshold)
}

func newTrajectoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trajectory",
		Short: "Print the precomputed Earth and Moon positions relative to the Sun",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := a.window()
			if err != nil {
				return err
			}
			traj, err := render.Precompute(cmd.Context(), a.provider, start, end, a.cfg.Step)
			if err != nil {
				return err
			}
			switch a.f.format {
			case "csv":
				return writeCSV(a.stdout, traj)
			case "json":
				return writeJSON(a.stdout, traj)
			default:
				return fmt.Errorf("unknown format %q (use csv or json)", a.f.format)
			}
		},
	}
	addWindowFlags(cmd, &a.f)
	cmd.Flags().DurationVar(&a.f.step, "step", eclipse.DefaultStep, "time step")
	cmd.Flags().StringVar(&a.f.format, "format", "csv", "output format: csv or json")
	return cmd
}

func writeCSV(w io.Writer, traj render.Trajectory) error {
	cw := csv.NewWriter(w)
	header := []string{"time", "et", "earth_x", "earth_y", "earth_z", "moon_x", "moon_y", "moon_z"}
	if err := cw.Write(header); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	for _, s := range traj {
		rec := []string{
			s.At.UTC().Format(time.RFC3339), f(s.ET),
			f(s.Earth.X), f(s.Earth.Y), f(s.Earth.Z),
			f(s.Moon.X), f(s.Moon.Y), f(s.Moon.Z),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func newLiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Scan a window, then redraw the live text panel every interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := a.window()
			if err != nil {
				return err
			}
			s, err := a.simulator()
			if err != nil {
				return err
			}
			run, err := s.SimulateWindow(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			task := s.Live(run)
			task.Interval = a.cfg.LiveInterval
			task.Frames = a.f.frames
			task.AddSurface(render.NewTextSurface(a.stdout))
			return task.Run(cmd.Context())
		},
	}
	addWindowFlags(cmd, &a.f)
	addScanFlags(cmd, &a.f)
	cmd.Flags().DurationVar(&a.f.interval, "interval", render.DefaultInterval, "redraw interval")
	cmd.Flags().IntVar(&a.f.frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulations, the live state and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.simulator()
			if err != nil {
				return err
			}
			task := s.Live(&sim.Run{})
			task.Interval = a.cfg.LiveInterval
			srv := web.NewServer(s, task, web.Options{
				ScanRate: a.cfg.ScanRate,
				Burst:    1,
				Logger:   a.log,
				Metrics:  a.metrics,
			})
			return serve(cmd.Context(), srv, task, a.cfg.ListenAddr, a.log)
		},
	}
	cmd.Flags().StringVar(&a.f.addr, "addr", ":8080", "listen address")
	cmd.Flags().Float64Var(&a.f.rate, "rate", 1, "simulation runs per second accepted per client (0 disables limiting)")
	cmd.Flags().DurationVar(&a.f.maxWindow, "max-window", config.Default().MaxWindow, "longest window a simulation request may ask for")
	cmd.Flags().DurationVar(&a.f.interval, "interval", render.DefaultInterval, "live redraw interval")
	addScanFlags(cmd, &a.f)
	return cmd
}

// serve runs the live task and the HTTP server together. Whichever stops
// first stops the other; a failing live task shuts the server down.
func serve(ctx context.Context, srv *web.Server, task *render.Task, addr string, log logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskErr := make(chan error, 1)
	done := task.Start(ctx)
	go func() {
		err := <-done
		if err != nil {
			log.Error(ctx, "live task stopped", logging.Err(err))
			cancel()
		}
		taskErr <- err
	}()

	serveErr := srv.ListenAndServe(ctx, addr)
	cancel()
	if err := <-taskErr; err != nil {
		return errors.Join(serveErr, fmt.Errorf("live task: %w", err))
	}
	return serveErr
}

func newFormulasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formulas",
		Short: "Print the formulas used",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.stdout, "%s\n\n%s\n\n%s\n", render.Title, render.Description, render.Formulas)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
