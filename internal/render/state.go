package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// NoneFound is shown for an absent eclipse candidate.
const NoneFound = "none found"

// State is the live render state: where Earth and the Moon are now and the
// eclipse candidates of the current run.
type State struct {
	At            time.Time      `json:"at"`
	Frame         int            `json:"frame"`
	EarthPosition md3.Vec        `json:"earth_position"` // Earth from Sun, km
	EarthVelocity md3.Vec        `json:"earth_velocity"` // Earth from Sun, km/s
	MoonPosition  md3.Vec        `json:"moon_position"`  // Moon from Sun, km
	MoonVelocity  md3.Vec        `json:"moon_velocity"`  // Moon from Earth, km/s
	Solar         *eclipse.Event `json:"solar"`
	Lunar         *eclipse.Event `json:"lunar"`
}

// Snapshot samples the provider at now. The eclipse candidates are carried
// over from res unchanged.
func Snapshot(p ephem.Provider, now time.Time, res eclipse.Result) (State, error) {
	et := timeutil.ET(now)
	earth, err := p.State(ephem.Earth, ephem.Sun, et)
	if err != nil {
		return State{}, fmt.Errorf("earth state: %w", err)
	}
	moon, err := p.State(ephem.Moon, ephem.Earth, et)
	if err != nil {
		return State{}, fmt.Errorf("moon state: %w", err)
	}
	return State{
		At:            now,
		EarthPosition: earth.Position,
		EarthVelocity: earth.Velocity,
		MoonPosition:  md3.Add(earth.Position, moon.Position),
		MoonVelocity:  moon.Velocity,
		Solar:         res.Solar,
		Lunar:         res.Lunar,
	}, nil
}

// InfoText renders the text panel for s.
func InfoText(s State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Real-Time Position of Earth (km): %s\n", formatVec(s.EarthPosition))
	fmt.Fprintf(&b, "Real-Time Velocity of Earth (km/s): %s\n", formatVec(s.EarthVelocity))
	fmt.Fprintf(&b, "Real-Time Position of Moon (km): %s\n", formatVec(s.MoonPosition))
	fmt.Fprintf(&b, "Real-Time Velocity of Moon (km/s): %s\n", formatVec(s.MoonVelocity))
	fmt.Fprintf(&b, "Next Solar Eclipse: %s\n", eventText(s.Solar))
	fmt.Fprintf(&b, "Next Lunar Eclipse: %s", eventText(s.Lunar))
	return b.String()
}

func formatVec(v md3.Vec) string {
	return fmt.Sprintf("[%.3f %.3f %.3f]", v.X, v.Y, v.Z)
}

func eventText(ev *eclipse.Event) string {
	if ev == nil {
		return NoneFound
	}
	return ev.Calendar
}
