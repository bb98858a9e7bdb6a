package indicator

import (
	"slices"
	"strings"

	"github.com/dnldd/screener/shared"
)

// Reading represents the computed output of an indicator for a timeframe.
type Reading struct {
	Name      string
	Kind      Kind
	Timeframe shared.Timeframe
	Version   int
	Values    map[string]float64
}

// Value returns the named component of the reading, zero if absent.
func (r *Reading) Value(component string) float64 {
	return r.Values[component]
}

// Readings maps indicator names to their readings.
type Readings map[string]Reading

// Ordered returns the readings in evaluation order.
func (r Readings) Ordered() []Reading {
	set := make([]Reading, 0, len(r))
	for _, reading := range r {
		set = append(set, reading)
	}

	slices.SortFunc(set, func(a, b Reading) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return strings.Compare(a.Name, b.Name)
	})

	return set
}
