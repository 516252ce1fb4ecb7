package render

// Title is the window and page title.
const Title = "Earth-Moon Simulation"

// Description is the introductory text shown above the date fields.
const Description = `Earth-Moon Simulation tracks the real-time trajectories of Earth and its Moon
around the Sun. It shows the orbital paths, velocities and potential eclipses
of both bodies, with positions relative to the Sun taken from an ephemeris.`

// Formulas is the "Show Formulas" panel.
const Formulas = `1. Orbital Mechanics:
   - Kepler's Laws of Planetary Motion
   - Newton's Law of Gravitation
   - Orbital Equation: F = G(m1*m2)/r^2

2. Eclipse Calculation:
   - Angle between Sun, Earth, and Moon for Solar Eclipses
   - Distance Calculation from the ephemeris provider
   - Geometric Shadow Model for Lunar Eclipses
   - Separation: atan2(|a x b|, a . b)
   - Half-angle of a body of radius R at distance d: asin(R / d)`
