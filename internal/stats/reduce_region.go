package stats

import (
	"fmt"
	"math"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var ErrTooManyPixels = errors.New("too many pixels in the region")

type ReduceOptions struct {
	// Scale is the sampling resolution in metres.
	Scale     float64
	MaxPixels int64
}

// Dictionary maps "<band>_<key>" to the reduced value.
type Dictionary map[string]float64

func DictionaryKey(band, key string) string {
	return fmt.Sprintf("%s_%s", band, key)
}

// Region holds the samples taken for a reduction.
type Region struct {
	Dictionary Dictionary
	// Pixels is the number of sampled pixels whose centre lies in the region.
	Pixels int
	// Valid is the number of those pixels that carried data, per band.
	Valid map[string]int
}

// ReduceRegion samples every band of img at opts.Scale inside the region and
// applies the reducer to the non-NaN samples.
func ReduceRegion(img *raster.Image, region orb.Geometry, opts ReduceOptions, reducer Reducer) (*Region, error) {
	stride := img.Stride(opts.Scale)

	var indexes []int
	for cy := 0; cy*stride < img.Height; cy++ {
		for cx := 0; cx*stride < img.Width; cx++ {
			x, y := img.SamplePixel(cx, cy, stride)
			if region != nil && !raster.Contains(region, img.PixelCenter(x, y)) {
				continue
			}
			indexes = append(indexes, y*img.Width+x)
		}
	}
	if opts.MaxPixels > 0 && int64(len(indexes)) > opts.MaxPixels {
		return nil, errors.Wrapf(ErrTooManyPixels, "found %d, but maxPixels allows only %d", len(indexes), opts.MaxPixels)
	}

	result := &Region{Dictionary: Dictionary{}, Pixels: len(indexes), Valid: map[string]int{}}
	values := make([]float64, 0, len(indexes))
	for _, band := range img.Bands {
		values = values[:0]
		for _, i := range indexes {
			if v := band.Data[i]; !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		result.Valid[band.Name] = len(values)
		for key, v := range reducer.Apply(values) {
			result.Dictionary[DictionaryKey(band.Name, key)] = v
		}
	}
	return result, nil
}
