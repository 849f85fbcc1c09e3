package stats

import (
	"math"
	"slices"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
)

const (
	KeyMean   = "mean"
	KeyMedian = "median"
	KeyStdDev = "stdDev"
	KeyMin    = "min"
	KeyMax    = "max"
)

type component struct {
	keys  []string
	apply func(values []float64) []float64
}

// Reducer aggregates the valid pixel values of a band. Reducers built with
// Combine share their inputs, so every component sees the same values.
type Reducer struct {
	components []component
}

func Mean() Reducer {
	return Reducer{components: []component{{
		keys:  []string{KeyMean},
		apply: func(values []float64) []float64 { return []float64{mean(values)} },
	}}}
}

func Median() Reducer {
	return Reducer{components: []component{{
		keys: []string{KeyMedian},
		apply: func(values []float64) []float64 {
			return []float64{raster.Median(slices.Clone(values))}
		},
	}}}
}

// StdDev is the population standard deviation.
func StdDev() Reducer {
	return Reducer{components: []component{{
		keys:  []string{KeyStdDev},
		apply: func(values []float64) []float64 { return []float64{stdDev(values)} },
	}}}
}

func MinMax() Reducer {
	return Reducer{components: []component{{
		keys: []string{KeyMin, KeyMax},
		apply: func(values []float64) []float64 {
			if len(values) == 0 {
				return []float64{math.NaN(), math.NaN()}
			}
			return []float64{slices.Min(values), slices.Max(values)}
		},
	}}}
}

func (r Reducer) Combine(others ...Reducer) Reducer {
	combined := Reducer{components: slices.Clone(r.components)}
	for _, other := range others {
		combined.components = append(combined.components, other.components...)
	}
	return combined
}

// Summary is mean, median, standard deviation, min and max combined.
func Summary() Reducer {
	return Mean().Combine(Median(), StdDev(), MinMax())
}

func (r Reducer) Keys() []string {
	var keys []string
	for _, c := range r.components {
		keys = append(keys, c.keys...)
	}
	return keys
}

// Apply runs every component over values. An empty input yields NaN for
// every key.
func (r Reducer) Apply(values []float64) map[string]float64 {
	out := make(map[string]float64, len(r.Keys()))
	for _, c := range r.components {
		results := c.apply(values)
		for i, key := range c.keys {
			out[key] = results[i]
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}
