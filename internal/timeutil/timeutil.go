// Package timeutil converts between civil time, the continuous ephemeris
// time scale (TDB seconds past J2000) and the calendar strings shown to users.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// DateLayout is the layout of the start/end date fields.
const DateLayout = "2006-01-02"

// SecondsPerDay is the length of an ephemeris day.
const SecondsPerDay = 86400.0

// JDJ2000 is the Julian date of the J2000.0 epoch.
const JDJ2000 = 2451545.0

// ttMinusTAI is the fixed offset between Terrestrial Time and TAI.
const ttMinusTAI = 32.184

// ErrEmptyDate is returned by ParseDate for blank input.
var ErrEmptyDate = errors.New("empty date")

// j2000 is the J2000.0 epoch: 2000-01-01 12:00:00 UTC.
var j2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// leapSecond is one entry of the TAI-UTC table: from At onwards TAI-UTC = Offset.
type leapSecond struct {
	At     time.Time
	Offset float64
}

// leapSeconds is TAI-UTC since 1972. Dates before the first entry use 10 s.
var leapSeconds = []leapSecond{
	{time.Date(1972, time.January, 1, 0, 0, 0, 0, time.UTC), 10},
	{time.Date(1972, time.July, 1, 0, 0, 0, 0, time.UTC), 11},
	{time.Date(1973, time.January, 1, 0, 0, 0, 0, time.UTC), 12},
	{time.Date(1974, time.January, 1, 0, 0, 0, 0, time.UTC), 13},
	{time.Date(1975, time.January, 1, 0, 0, 0, 0, time.UTC), 14},
	{time.Date(1976, time.January, 1, 0, 0, 0, 0, time.UTC), 15},
	{time.Date(1977, time.January, 1, 0, 0, 0, 0, time.UTC), 16},
	{time.Date(1978, time.January, 1, 0, 0, 0, 0, time.UTC), 17},
	{time.Date(1979, time.January, 1, 0, 0, 0, 0, time.UTC), 18},
	{time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), 19},
	{time.Date(1981, time.July, 1, 0, 0, 0, 0, time.UTC), 20},
	{time.Date(1982, time.July, 1, 0, 0, 0, 0, time.UTC), 21},
	{time.Date(1983, time.July, 1, 0, 0, 0, 0, time.UTC), 22},
	{time.Date(1985, time.July, 1, 0, 0, 0, 0, time.UTC), 23},
	{time.Date(1988, time.January, 1, 0, 0, 0, 0, time.UTC), 24},
	{time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), 25},
	{time.Date(1991, time.January, 1, 0, 0, 0, 0, time.UTC), 26},
	{time.Date(1992, time.July, 1, 0, 0, 0, 0, time.UTC), 27},
	{time.Date(1993, time.July, 1, 0, 0, 0, 0, time.UTC), 28},
	{time.Date(1994, time.July, 1, 0, 0, 0, 0, time.UTC), 29},
	{time.Date(1996, time.January, 1, 0, 0, 0, 0, time.UTC), 30},
	{time.Date(1997, time.July, 1, 0, 0, 0, 0, time.UTC), 31},
	{time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC), 32},
	{time.Date(2006, time.January, 1, 0, 0, 0, 0, time.UTC), 33},
	{time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC), 34},
	{time.Date(2012, time.July, 1, 0, 0, 0, 0, time.UTC), 35},
	{time.Date(2015, time.July, 1, 0, 0, 0, 0, time.UTC), 36},
	{time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC), 37},
}

// TAIMinusUTC returns the accumulated leap seconds at t.
func TAIMinusUTC(t time.Time) float64 {
	u := t.UTC()
	offset := leapSeconds[0].Offset
	for _, ls := range leapSeconds {
		if u.Before(ls.At) {
			break
		}
		offset = ls.Offset
	}
	return offset
}

// ET converts a civil instant to ephemeris time: seconds past J2000 on the
// TT/TDB scale. The periodic TDB-TT terms (under 2 ms) are ignored.
func ET(t time.Time) float64 {
	u := t.UTC()
	utcSeconds := float64(u.Sub(j2000)) / float64(time.Second)
	return utcSeconds + TAIMinusUTC(u) + ttMinusTAI
}

// TimeFromET is the inverse of ET, rounded to the nearest millisecond.
func TimeFromET(et float64) time.Time {
	// First guess with the offset at the epoch, then correct once for a
	// leap second boundary.
	guess := j2000.Add(secondsToDuration(et - ttMinusTAI - 32))
	offset := TAIMinusUTC(guess) + ttMinusTAI
	t := j2000.Add(secondsToDuration(et - offset))
	if o := TAIMinusUTC(t) + ttMinusTAI; o != offset {
		t = j2000.Add(secondsToDuration(et - o))
	}
	return t.Round(time.Millisecond)
}

// JDE returns the Julian Ephemeris Date for ephemeris time et.
func JDE(et float64) float64 {
	return JDJ2000 + et/SecondsPerDay
}

// JulianDay returns the (UT) Julian day for t.
func JulianDay(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// DaysSinceJ2000 returns ephemeris days since J2000.
func DaysSinceJ2000(et float64) float64 {
	return et / SecondsPerDay
}

// ParseDate parses a start/end field. The canonical form is YYYY-MM-DD
// (midnight UTC); a few longer layouts are also accepted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	layouts := []string{
		DateLayout,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	var parseErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", s, parseErr)
}

// Calendar formats t as an uppercase calendar string,
// e.g. "2024 APR 08 18:00:00.000".
func Calendar(t time.Time) string {
	return strings.ToUpper(t.UTC().Format("2006 Jan 02 15:04:05.000"))
}

// Samples returns start, start+step, ... strictly before end. A non-positive
// step or an end not after start yields no samples.
func Samples(start, end time.Time, step time.Duration) []time.Time {
	n := SampleCount(start, end, step)
	out := make([]time.Time, 0, n)
	t := start
	for i := 0; i < n; i++ {
		out = append(out, t)
		t = t.Add(step)
	}
	return out
}

// SampleCount returns how many samples Samples yields for the window. Spans
// longer than a time.Duration (about 292 years) are counted in seconds.
func SampleCount(start, end time.Time, step time.Duration) int {
	if step <= 0 || !end.After(start) {
		return 0
	}
	if d := end.Sub(start); d < math.MaxInt64 {
		n := int(d / step)
		if d%step != 0 {
			n++
		}
		return n
	}
	// end.Sub saturated.
	span := float64(end.Unix()-start.Unix()) + float64(end.Nanosecond()-start.Nanosecond())/1e9
	return int(math.Ceil(span/step.Seconds() - 1e-9))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// -----------------------------
// Basic degree/radian helpers.
// -----------------------------

func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180.0
}

func Rad2Deg(r float64) float64 {
	return r * 180.0 / math.Pi
}

func Normalize360(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}
