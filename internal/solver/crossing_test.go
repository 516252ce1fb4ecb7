package solver

import (
	"errors"
	"math"
	"testing"
)

func linear(zeroAt float64) MarginFunc {
	return func(et float64) (float64, error) { return zeroAt - et, nil }
}

func TestFindCrossingDown(t *testing.T) {
	res, err := FindCrossing(linear(1234.5), 0, 3600, CrossingDown, 1)
	if err != nil {
		t.Fatalf("FindCrossing error: %v", err)
	}
	if res.ET < 1234.5 || res.ET-1234.5 > 1 {
		t.Fatalf("ET = %v, want within 1 s after 1234.5", res.ET)
	}
	if res.Evals < 3 {
		t.Fatalf("Evals = %d, expected bisection steps", res.Evals)
	}
}

func TestFindCrossingUp(t *testing.T) {
	f := func(et float64) (float64, error) { return et - 100, nil }
	res, err := FindCrossing(f, 0, 1000, CrossingUp, 0.5)
	if err != nil {
		t.Fatalf("FindCrossing error: %v", err)
	}
	if math.Abs(res.ET-100) > 0.5 || res.ET >= 100 {
		t.Fatalf("ET = %v, want just before 100", res.ET)
	}
}

func TestFindCrossingNoBracket(t *testing.T) {
	if _, err := FindCrossing(linear(-5), 0, 10, CrossingDown, 1); !errors.Is(err, ErrNoBracket) {
		t.Fatalf("err = %v, want ErrNoBracket", err)
	}
	if _, err := FindCrossing(linear(5), 10, 10, CrossingDown, 1); !errors.Is(err, ErrNoBracket) {
		t.Fatalf("empty interval err = %v, want ErrNoBracket", err)
	}
}

func TestFindCrossingPropagatesErrors(t *testing.T) {
	boom := errors.New("lookup failed")
	f := func(et float64) (float64, error) {
		if et > 0 && et < 100 {
			return 0, boom
		}
		return 50 - et, nil
	}
	if _, err := FindCrossing(f, 0, 100, CrossingDown, 1); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
