package raster

import (
	"math"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var (
	ErrBandNotFound  = errors.New("band not found")
	ErrGridMismatch  = errors.New("images are not on the same grid")
	ErrInvalidBuffer = errors.New("band buffer does not match grid size")
)

// Grid describes the pixel layout shared by every band of an image.
type Grid struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	EPSG         int
	// Scale is the nominal pixel size in metres.
	Scale float64
}

func (g Grid) Size() int {
	return g.Width * g.Height
}

func (g Grid) Equal(other Grid) bool {
	return g.Width == other.Width && g.Height == other.Height && g.GeoTransform == other.GeoTransform && g.EPSG == other.EPSG
}

// PixelCenter returns the georeferenced centre of pixel (x, y).
func (g Grid) PixelCenter(x, y int) orb.Point {
	gt := g.GeoTransform
	px := gt[0] + gt[1]*(float64(x)+0.5) + gt[2]*(float64(y)+0.5)
	py := gt[3] + gt[4]*(float64(x)+0.5) + gt[5]*(float64(y)+0.5)
	return orb.Point{px, py}
}

// Stride is the pixel step used to sample the grid at the requested scale.
func (g Grid) Stride(scale float64) int {
	if g.Scale <= 0 || scale <= g.Scale {
		return 1
	}
	stride := int(math.Round(scale / g.Scale))
	if stride < 1 {
		return 1
	}
	return stride
}

// SamplePixel returns the native pixel read for coarse cell (cx, cy) at the
// given stride: the centre of its block, clamped to the grid.
func (g Grid) SamplePixel(cx, cy, stride int) (int, int) {
	return min(cx*stride+stride/2, g.Width-1), min(cy*stride+stride/2, g.Height-1)
}

type Band struct {
	Name string
	Data []float64
}

func NewBand(name string, grid Grid) Band {
	data := make([]float64, grid.Size())
	for i := range data {
		data[i] = math.NaN()
	}
	return Band{Name: name, Data: data}
}

func (b Band) At(grid Grid, x, y int) float64 {
	return b.Data[y*grid.Width+x]
}

func (b Band) clone() Band {
	return Band{Name: b.Name, Data: slices.Clone(b.Data)}
}

// Image is a multi-band raster. No-data pixels are stored as NaN.
type Image struct {
	Grid
	ID    string
	Date  time.Time
	Bands []Band
}

func NewImage(id string, date time.Time, grid Grid, bands ...Band) (*Image, error) {
	for _, band := range bands {
		if len(band.Data) != grid.Size() {
			return nil, errors.Wrapf(ErrInvalidBuffer, "band %s has %d values, grid has %d", band.Name, len(band.Data), grid.Size())
		}
	}
	return &Image{Grid: grid, ID: id, Date: date, Bands: bands}, nil
}

func (img *Image) BandNames() []string {
	names := make([]string, 0, len(img.Bands))
	for _, band := range img.Bands {
		names = append(names, band.Name)
	}
	return names
}

func (img *Image) HasBands(names ...string) bool {
	bandNames := img.BandNames()
	for _, name := range names {
		if !slices.Contains(bandNames, name) {
			return false
		}
	}
	return true
}

func (img *Image) Band(name string) (Band, error) {
	for _, band := range img.Bands {
		if band.Name == name {
			return band, nil
		}
	}
	return Band{}, errors.Wrapf(ErrBandNotFound, "image %s has no band %s (bands: %v)", img.ID, name, img.BandNames())
}

// AddBands returns a copy of the image with the given bands appended.
// A band whose name already exists replaces the existing one.
func (img *Image) AddBands(bands ...Band) (*Image, error) {
	out := img.shallowCopy()
	for _, band := range bands {
		if len(band.Data) != img.Size() {
			return nil, errors.Wrapf(ErrInvalidBuffer, "band %s", band.Name)
		}
		idx := slices.IndexFunc(out.Bands, func(b Band) bool { return b.Name == band.Name })
		if idx >= 0 {
			out.Bands[idx] = band
			continue
		}
		out.Bands = append(out.Bands, band)
	}
	return out, nil
}

func (img *Image) Select(names ...string) (*Image, error) {
	out := &Image{Grid: img.Grid, ID: img.ID, Date: img.Date}
	for _, name := range names {
		band, err := img.Band(name)
		if err != nil {
			return nil, err
		}
		out.Bands = append(out.Bands, band)
	}
	return out, nil
}

// Clip masks every pixel whose centre falls outside the geometry.
func (img *Image) Clip(geometry orb.Geometry) *Image {
	out := img.deepCopy()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if Contains(geometry, img.PixelCenter(x, y)) {
				continue
			}
			for _, band := range out.Bands {
				band.Data[y*img.Width+x] = math.NaN()
			}
		}
	}
	return out
}

// Resample returns a nearest-neighbour copy of the image at the given scale.
func (img *Image) Resample(scale float64) *Image {
	stride := img.Stride(scale)
	if stride == 1 {
		return img.deepCopy()
	}

	width := (img.Width + stride - 1) / stride
	height := (img.Height + stride - 1) / stride
	gt := img.GeoTransform
	grid := Grid{
		Width:        width,
		Height:       height,
		GeoTransform: [6]float64{gt[0], gt[1] * float64(stride), gt[2] * float64(stride), gt[3], gt[4] * float64(stride), gt[5] * float64(stride)},
		EPSG:         img.EPSG,
		Scale:        img.Scale * float64(stride),
	}

	out := &Image{Grid: grid, ID: img.ID, Date: img.Date}
	for _, band := range img.Bands {
		resampled := make([]float64, grid.Size())
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				sx, sy := img.SamplePixel(x, y, stride)
				resampled[y*width+x] = band.At(img.Grid, sx, sy)
			}
		}
		out.Bands = append(out.Bands, Band{Name: band.Name, Data: resampled})
	}
	return out
}

// Window crops a north-up image to the pixels covering the bound.
func (img *Image) Window(bound orb.Bound) (*Image, error) {
	gt := img.GeoTransform
	if gt[1] == 0 || gt[5] == 0 {
		return nil, errors.Errorf("image %s has a degenerate geotransform %v", img.ID, gt)
	}

	col0 := clampInt(int(math.Floor((bound.Min[0]-gt[0])/gt[1])), 0, img.Width)
	col1 := clampInt(int(math.Ceil((bound.Max[0]-gt[0])/gt[1])), 0, img.Width)
	row0 := clampInt(int(math.Floor((bound.Max[1]-gt[3])/gt[5])), 0, img.Height)
	row1 := clampInt(int(math.Ceil((bound.Min[1]-gt[3])/gt[5])), 0, img.Height)
	if col1 <= col0 || row1 <= row0 {
		return nil, errors.Errorf("bound %v does not intersect image %s", bound, img.ID)
	}

	width, height := col1-col0, row1-row0
	grid := Grid{
		Width:        width,
		Height:       height,
		GeoTransform: [6]float64{gt[0] + float64(col0)*gt[1], gt[1], gt[2], gt[3] + float64(row0)*gt[5], gt[4], gt[5]},
		EPSG:         img.EPSG,
		Scale:        img.Scale,
	}
	out := &Image{Grid: grid, ID: img.ID, Date: img.Date}
	for _, band := range img.Bands {
		data := make([]float64, grid.Size())
		for y := 0; y < height; y++ {
			copy(data[y*width:(y+1)*width], band.Data[(row0+y)*img.Width+col0:(row0+y)*img.Width+col1])
		}
		out.Bands = append(out.Bands, Band{Name: band.Name, Data: data})
	}
	return out, nil
}

func (img *Image) shallowCopy() *Image {
	return &Image{Grid: img.Grid, ID: img.ID, Date: img.Date, Bands: slices.Clone(img.Bands)}
}

func (img *Image) deepCopy() *Image {
	out := &Image{Grid: img.Grid, ID: img.ID, Date: img.Date}
	for _, band := range img.Bands {
		out.Bands = append(out.Bands, band.clone())
	}
	return out
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
