package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/geom"
	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

type stats struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (s *stats) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.count == 0 {
		s.min, s.max = v, v
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += v
	s.count++
}

func (s *stats) avg() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.sum / float64(s.count)
}

func (s *stats) print(w io.Writer, title string) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  count: %d\n", s.count)
	fmt.Fprintf(w, "  min:   %.3f\n", s.min)
	fmt.Fprintf(w, "  max:   %.3f\n", s.max)
	fmt.Fprintf(w, "  avg:   %.3f\n", s.avg())
}

type profileFlags struct {
	reference string
	outCSV    string
	verbose   bool
}

// newProfileCmd compares the selected provider against a reference
// provider over a window: direction errors in arcminutes and distance
// errors in km for the Sun and the Moon seen from Earth.
func newProfileCmd(a *app) *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Compare the provider against a reference provider over a window",
		Example: `  umbra profile --provider approx --reference meeus --start 2024-01-01 --end 2025-01-01 --step 24h
  umbra profile --provider meeus --reference jpl --kernel de440.bin --start 2024-01-01 --end 2024-02-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := a.window()
			if err != nil {
				return err
			}
			mode, err := ephem.ParseMode(pf.reference)
			if err != nil {
				return err
			}
			ref, err := ephem.Open(ephem.Options{Mode: mode, Kernel: a.cfg.Kernel})
			if err != nil {
				return fmt.Errorf("reference provider: %w", err)
			}
			defer ref.Close()

			var (
				csvFile *os.File
				rows    *csv.Writer
			)
			if pf.outCSV != "" {
				if csvFile, err = os.Create(pf.outCSV); err != nil {
					return err
				}
				defer csvFile.Close()
				rows = csv.NewWriter(csvFile)
				if err := rows.Write([]string{"time", "sun_dir_arcmin", "sun_dist_km", "moon_dir_arcmin", "moon_dist_km"}); err != nil {
					return fmt.Errorf("write %s: %w", pf.outCSV, err)
				}
			}

			var sunDir, sunDist, moonDir, moonDist stats
			skipped := 0
			for _, at := range timeutil.Samples(start, end, a.cfg.Step) {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				et := timeutil.ET(at)
				sd, sr, err := compareBody(a.provider, ref, ephem.Sun, et)
				if errors.Is(err, errFrameMismatch) {
					return err
				}
				if err != nil {
					a.log.Warn(cmd.Context(), "sample skipped", logging.Time("at", at), logging.Err(err))
					skipped++
					continue
				}
				md, mr, err := compareBody(a.provider, ref, ephem.Moon, et)
				if err != nil {
					a.log.Warn(cmd.Context(), "sample skipped", logging.Time("at", at), logging.Err(err))
					skipped++
					continue
				}
				sunDir.add(sd)
				sunDist.add(sr)
				moonDir.add(md)
				moonDist.add(mr)

				if pf.verbose {
					fmt.Fprintf(a.stdout, "%s: sun %.3f' %.1f km, moon %.3f' %.1f km\n", timeutil.Calendar(at), sd, sr, md, mr)
				}
				if rows != nil {
					f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
					if err := rows.Write([]string{at.Format(time.RFC3339), f(sd), f(sr), f(md), f(mr)}); err != nil {
						return fmt.Errorf("write %s: %w", pf.outCSV, err)
					}
				}
			}
			if rows != nil {
				rows.Flush()
				if err := rows.Error(); err != nil {
					return fmt.Errorf("write %s: %w", pf.outCSV, err)
				}
				if err := csvFile.Close(); err != nil {
					return fmt.Errorf("close %s: %w", pf.outCSV, err)
				}
			}

			w := a.stdout
			fmt.Fprintf(w, "Provider : %s\n", a.provider.Name())
			fmt.Fprintf(w, "Reference: %s\n", ref.Name())
			fmt.Fprintf(w, "Window   : %s .. %s every %v\n", timeutil.Calendar(start), timeutil.Calendar(end), a.cfg.Step)
			fmt.Fprintf(w, "Bodies   : %s, %s from %s\n", naifLabel(ephem.Sun), naifLabel(ephem.Moon), naifLabel(ephem.Earth))
			fmt.Fprintf(w, "Samples  : %d (processed), %d skipped\n", sunDir.count, skipped)
			sunDir.print(w, "Sun direction error (arcmin)")
			sunDist.print(w, "Sun distance error (km)")
			moonDir.print(w, "Moon direction error (arcmin)")
			moonDist.print(w, "Moon distance error (km)")
			return nil
		},
	}
	addWindowFlags(cmd, &a.f)
	cmd.Flags().DurationVar(&a.f.step, "step", eclipse.DefaultStep, "time step")
	cmd.Flags().StringVar(&pf.reference, "reference", "meeus", "reference provider: approx, meeus or jpl")
	cmd.Flags().StringVar(&pf.outCSV, "outcsv", "", "optional path to write per-sample errors as CSV")
	cmd.Flags().BoolVar(&pf.verbose, "verbose", false, "print per-sample errors instead of only the summary")
	return cmd
}

var errFrameMismatch = errors.New("providers use different frames")

func naifLabel(b ephem.Body) string {
	return fmt.Sprintf("%s (NAIF %d)", b, b.NAIF())
}

// compareBody returns the direction difference in arcminutes and the
// absolute distance difference in km of body seen from Earth.
func compareBody(p, ref ephem.Provider, body ephem.Body, et float64) (dirArcmin, distKm float64, err error) {
	got, err := p.State(body, ephem.Earth, et)
	if err != nil {
		return 0, 0, err
	}
	want, err := ref.State(body, ephem.Earth, et)
	if err != nil {
		return 0, 0, err
	}
	if got.Frame != want.Frame {
		return 0, 0, fmt.Errorf("%w: %s is %s, %s is %s", errFrameMismatch, p.Name(), got.Frame, ref.Name(), want.Frame)
	}
	return geom.SeparationDeg(got.Position, want.Position) * 60, math.Abs(got.Distance() - want.Distance()), nil
}
