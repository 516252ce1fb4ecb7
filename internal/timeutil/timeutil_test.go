package timeutil

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestETAtJ2000(t *testing.T) {
	// 2000-01-01 12:00:00 UTC is 64.184 s after J2000 on the TDB scale.
	got := ET(time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(got-64.184) > 1e-6 {
		t.Fatalf("ET(J2000 UTC) = %.6f, want 64.184", got)
	}
}

func TestETRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(1990, time.March, 3, 4, 5, 6, 0, time.UTC),
		time.Date(2016, time.December, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 8, 18, 17, 0, 0, time.UTC),
	}
	for _, want := range cases {
		got := TimeFromET(ET(want))
		if !got.Equal(want) {
			t.Errorf("TimeFromET(ET(%v)) = %v", want, got)
		}
	}
}

func TestTAIMinusUTC(t *testing.T) {
	tests := []struct {
		at   time.Time
		want float64
	}{
		{time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), 10},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 32},
		{time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC), 36},
		{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 37},
		{time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), 37},
	}
	for _, tt := range tests {
		if got := TAIMinusUTC(tt.at); got != tt.want {
			t.Errorf("TAIMinusUTC(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-04-08 ")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	want := time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseDate = %v, want %v", got, want)
	}

	if _, err := ParseDate(""); !errors.Is(err, ErrEmptyDate) {
		t.Fatalf("ParseDate(\"\") error = %v, want ErrEmptyDate", err)
	}
	if _, err := ParseDate("08/04/2024"); err == nil {
		t.Fatal("ParseDate accepted a malformed date")
	}
}

func TestCalendar(t *testing.T) {
	got := Calendar(time.Date(2024, time.April, 8, 18, 0, 0, 0, time.UTC))
	if got != "2024 APR 08 18:00:00.000" {
		t.Fatalf("Calendar = %q", got)
	}
}

func TestSamples(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	if got := Samples(start, start.Add(48*time.Hour), time.Hour); len(got) != 48 {
		t.Fatalf("len(Samples) = %d, want 48", len(got))
	}
	if got := Samples(start, start.Add(90*time.Minute), time.Hour); len(got) != 2 {
		t.Fatalf("len(Samples) over a partial step = %d, want 2", len(got))
	}
	if got := Samples(start, start, time.Hour); len(got) != 0 {
		t.Fatalf("Samples with end == start returned %d samples", len(got))
	}
	if got := Samples(start, start.Add(-time.Hour), time.Hour); len(got) != 0 {
		t.Fatalf("Samples with end before start returned %d samples", len(got))
	}
}

// Four Gregorian centuries do not fit in a time.Duration.
func TestSamplesLongWindow(t *testing.T) {
	start := time.Date(1700, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

	got := Samples(start, end, 24*time.Hour)
	if len(got) != 146097 {
		t.Fatalf("len(Samples) = %d, want 146097", len(got))
	}
	if last := got[len(got)-1]; !last.Equal(end.AddDate(0, 0, -1)) {
		t.Fatalf("last sample = %v, want %v", last, end.AddDate(0, 0, -1))
	}
	for i := 1; i < len(got); i += 10007 {
		if d := got[i].Sub(got[i-1]); d != 24*time.Hour {
			t.Fatalf("gap before sample %d = %v", i, d)
		}
	}

	if n := SampleCount(start, end.Add(time.Hour), 24*time.Hour); n != 146098 {
		t.Errorf("SampleCount over a partial step = %d, want 146098", n)
	}
}

func TestJulianDay(t *testing.T) {
	got := JulianDay(time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(got-JDJ2000) > 1e-9 {
		t.Fatalf("JulianDay(J2000) = %f, want %f", got, JDJ2000)
	}
}
