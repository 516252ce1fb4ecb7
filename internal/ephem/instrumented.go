package ephem

import "github.com/thurmanmarka/umbra/internal/observability"

type instrumented struct {
	Provider
	metrics *observability.Collector
}

// Instrument wraps p so that every State lookup is counted by m.
func Instrument(p Provider, m *observability.Collector) Provider {
	return &instrumented{Provider: p, metrics: m}
}

func (i *instrumented) State(target, observer Body, et float64) (StateVector, error) {
	sv, err := i.Provider.State(target, observer, et)
	i.metrics.ObserveLookup(i.Provider.Name(), target.String(), observer.String(), err)
	return sv, err
}
