package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	DefaultScale     = 30
	DefaultMaxPixels = 1e9
)

type BandSummary struct {
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	Valid  int
}

// Statistics is the per-band report of one composite.
type Statistics struct {
	Label  string
	Pixels int
	Bands  map[string]BandSummary
}

func (s Statistics) BandNames() []string {
	names := make([]string, 0, len(s.Bands))
	for name := range s.Bands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Reporter struct {
	out     io.Writer
	options ReduceOptions
}

func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{
		out:     out,
		options: ReduceOptions{Scale: DefaultScale, MaxPixels: DefaultMaxPixels},
	}
}

func (r *Reporter) WithOptions(options ReduceOptions) *Reporter {
	return &Reporter{out: r.out, options: options}
}

// CalculateStatistics reduces the image over the region, prints the report
// and returns it.
func (r *Reporter) CalculateStatistics(img *raster.Image, region orb.Geometry, label string) (*Statistics, error) {
	reduced, err := ReduceRegion(img, region, r.options, Summary())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reduce %q", label)
	}

	statistics := &Statistics{Label: label, Pixels: reduced.Pixels, Bands: map[string]BandSummary{}}
	for _, band := range img.BandNames() {
		statistics.Bands[band] = BandSummary{
			Mean:   reduced.Dictionary[DictionaryKey(band, KeyMean)],
			Median: reduced.Dictionary[DictionaryKey(band, KeyMedian)],
			StdDev: reduced.Dictionary[DictionaryKey(band, KeyStdDev)],
			Min:    reduced.Dictionary[DictionaryKey(band, KeyMin)],
			Max:    reduced.Dictionary[DictionaryKey(band, KeyMax)],
			Valid:  reduced.Valid[band],
		}
	}

	r.print(label, reduced.Dictionary)
	return statistics, nil
}

func (r *Reporter) print(label string, dictionary Dictionary) {
	keys := make([]string, 0, len(dictionary))
	for key := range dictionary {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintln(r.out, label)
	for _, key := range keys {
		fmt.Fprintf(r.out, "  %s: %s\n", key, FormatValue(dictionary[key]))
	}
}

// FormatValue prints NaN as null, the way an empty reduction is reported.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "null"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
