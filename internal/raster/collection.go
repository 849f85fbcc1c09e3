package raster

import (
	"math"
	"slices"
	"sort"

	"github.com/pkg/errors"
)

type MapFunc func(img *Image) (*Image, error)

// Collection is an ordered set of images sharing a grid. The grid is kept
// so that reducing an empty collection still yields a composite.
type Collection struct {
	Grid   Grid
	Images []*Image
	bands  []string
}

func NewCollection(grid Grid, images ...*Image) Collection {
	return Collection{Grid: grid, Images: images}
}

func (c Collection) Len() int {
	return len(c.Images)
}

func (c Collection) Filter(keep func(img *Image) bool) Collection {
	out := Collection{Grid: c.Grid, bands: c.bands}
	for _, img := range c.Images {
		if keep(img) {
			out.Images = append(out.Images, img)
		}
	}
	return out
}

// FilterBands keeps the images carrying every named band.
func (c Collection) FilterBands(names ...string) Collection {
	return c.Filter(func(img *Image) bool {
		return img.HasBands(names...)
	})
}

func (c Collection) Map(fn MapFunc) (Collection, error) {
	out := Collection{Grid: c.Grid, bands: c.bands}
	for _, img := range c.Images {
		mapped, err := fn(img)
		if err != nil {
			return Collection{}, errors.Wrapf(err, "mapping image %s", img.ID)
		}
		out.Images = append(out.Images, mapped)
	}
	return out, nil
}

func (c Collection) Select(names ...string) (Collection, error) {
	out := Collection{Grid: c.Grid, bands: slices.Clone(names)}
	for _, img := range c.Images {
		selected, err := img.Select(names...)
		if err != nil {
			return Collection{}, err
		}
		out.Images = append(out.Images, selected)
	}
	return out, nil
}

// Median reduces the collection to a per-pixel median of every band,
// ignoring no-data. Pixels without any valid observation stay NaN.
func (c Collection) Median() (*Image, error) {
	if len(c.Images) == 0 {
		out := &Image{Grid: c.Grid, ID: "median"}
		for _, name := range c.bands {
			out.Bands = append(out.Bands, NewBand(name, c.Grid))
		}
		return out, nil
	}

	first := c.Images[0]
	for _, img := range c.Images[1:] {
		if !img.Grid.Equal(first.Grid) {
			return nil, errors.Wrapf(ErrGridMismatch, "image %s differs from %s", img.ID, first.ID)
		}
	}

	out := &Image{Grid: first.Grid, ID: "median", Date: first.Date}
	values := make([]float64, 0, len(c.Images))
	for _, name := range first.BandNames() {
		bands := make([]Band, 0, len(c.Images))
		for _, img := range c.Images {
			band, err := img.Band(name)
			if err != nil {
				return nil, err
			}
			bands = append(bands, band)
		}

		data := make([]float64, first.Size())
		for i := range data {
			values = values[:0]
			for _, band := range bands {
				if v := band.Data[i]; !math.IsNaN(v) {
					values = append(values, v)
				}
			}
			data[i] = Median(values)
		}
		out.Bands = append(out.Bands, Band{Name: name, Data: data})
	}
	return out, nil
}

// Median sorts values in place and returns their median, NaN when empty.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
