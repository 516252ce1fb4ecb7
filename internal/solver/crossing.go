package solver

import "errors"

// MarginFunc returns a signed margin at ephemeris time et: negative while a
// condition holds, positive otherwise (e.g. separation minus threshold).
type MarginFunc func(et float64) (float64, error)

// EventType describes whether we are looking for the condition starting or
// ending.
type EventType int

const (
	// CrossingDown means the margin decreases through zero (condition begins).
	CrossingDown EventType = iota
	// CrossingUp means the margin increases through zero (condition ends).
	CrossingUp
)

// ErrNoBracket is returned when the margin does not change sign across the
// interval in the requested direction.
var ErrNoBracket = errors.New("margin does not cross zero in interval")

// Result holds the output of a crossing search.
type Result struct {
	ET    float64 // first epoch at which the condition is known to hold
	Evals int     // number of margin evaluations
}

// FindCrossing bisects [a, b] (ephemeris seconds) for the zero crossing of
// f in the direction given by eventType, until the bracket is no wider than
// tol seconds. The returned epoch is the side of the final bracket where
// the condition holds, so it never lies before a.
func FindCrossing(f MarginFunc, a, b float64, eventType EventType, tol float64) (Result, error) {
	if !(a < b) {
		return Result{}, ErrNoBracket
	}
	if tol <= 0 {
		tol = 1
	}

	ma, err := f(a)
	if err != nil {
		return Result{}, err
	}
	mb, err := f(b)
	if err != nil {
		return Result{}, err
	}
	evals := 2

	if !hasCrossing(ma, mb, eventType) {
		return Result{Evals: evals}, ErrNoBracket
	}

	for b-a > tol {
		mid := a + (b-a)/2
		mm, err := f(mid)
		if err != nil {
			return Result{Evals: evals}, err
		}
		evals++

		if hasCrossing(ma, mm, eventType) {
			b, mb = mid, mm
		} else {
			a, ma = mid, mm
		}
	}

	at := b
	if eventType == CrossingUp {
		at = a
	}
	return Result{ET: at, Evals: evals}, nil
}

func hasCrossing(m1, m2 float64, eventType EventType) bool {
	switch eventType {
	case CrossingDown:
		return m1 >= 0 && m2 < 0
	case CrossingUp:
		return m1 < 0 && m2 >= 0
	default:
		return m1*m2 <= 0
	}
}
