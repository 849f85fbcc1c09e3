package raster

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 4x4 grid of 1-degree pixels anchored at (0, 4), north-up.
func testGrid() Grid {
	return Grid{Width: 4, Height: 4, GeoTransform: [6]float64{0, 1, 0, 4, 0, -1}, EPSG: 4326, Scale: 10}
}

func constantImage(t *testing.T, id string, name string, value float64) *Image {
	t.Helper()
	grid := testGrid()
	data := make([]float64, grid.Size())
	for i := range data {
		data[i] = value
	}
	img, err := NewImage(id, testDate, grid, Band{Name: name, Data: data})
	require.NoError(t, err)
	return img
}

func TestNewImageRejectsWrongBuffer(t *testing.T) {
	_, err := NewImage("bad", testDate, testGrid(), Band{Name: "B4", Data: []float64{1, 2}})
	assert.ErrorIs(t, err, ErrInvalidBuffer)
}

func TestPixelCenter(t *testing.T) {
	grid := testGrid()
	assert.Equal(t, orb.Point{0.5, 3.5}, grid.PixelCenter(0, 0))
	assert.Equal(t, orb.Point{3.5, 0.5}, grid.PixelCenter(3, 3))
}

func TestStride(t *testing.T) {
	grid := testGrid()
	assert.Equal(t, 1, grid.Stride(10))
	assert.Equal(t, 1, grid.Stride(5))
	assert.Equal(t, 3, grid.Stride(30))
	assert.Equal(t, 1, Grid{}.Stride(30))
}

func TestAddBandsAndSelect(t *testing.T) {
	img := constantImage(t, "a", "B4", 1)
	extra := NewBand("B8", img.Grid)

	out, err := img.AddBands(extra)
	require.NoError(t, err)
	assert.Equal(t, []string{"B4", "B8"}, out.BandNames())
	assert.Equal(t, []string{"B4"}, img.BandNames(), "source image must not change")

	selected, err := out.Select("B8")
	require.NoError(t, err)
	assert.Equal(t, []string{"B8"}, selected.BandNames())

	_, err = out.Select("NDSI")
	assert.ErrorIs(t, err, ErrBandNotFound)
}

func TestAddBandsReplacesExisting(t *testing.T) {
	img := constantImage(t, "a", "B4", 1)
	replacement := constantImage(t, "b", "B4", 7).Bands[0]

	out, err := img.AddBands(replacement)
	require.NoError(t, err)
	require.Len(t, out.Bands, 1)
	assert.Equal(t, 7.0, out.Bands[0].Data[0])
}

func TestClipMasksOutsidePixels(t *testing.T) {
	img := constantImage(t, "a", "NDSI", 0.5)
	// covers the two left columns only
	region := orb.Polygon{{{0, 0}, {2, 0}, {2, 4}, {0, 4}, {0, 0}}}

	clipped := img.Clip(region)
	band, err := clipped.Band("NDSI")
	require.NoError(t, err)

	for y := 0; y < 4; y++ {
		assert.Equal(t, 0.5, band.At(clipped.Grid, 0, y))
		assert.Equal(t, 0.5, band.At(clipped.Grid, 1, y))
		assert.True(t, math.IsNaN(band.At(clipped.Grid, 2, y)))
		assert.True(t, math.IsNaN(band.At(clipped.Grid, 3, y)))
	}
	assert.False(t, math.IsNaN(img.Bands[0].Data[3]), "clip must not mutate the source")
}

func TestResample(t *testing.T) {
	grid := testGrid()
	data := make([]float64, grid.Size())
	for i := range data {
		data[i] = float64(i)
	}
	img, err := NewImage("a", testDate, grid, Band{Name: "NDSI", Data: data})
	require.NoError(t, err)

	out := img.Resample(20)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 2, out.Height)
	assert.Equal(t, 20.0, out.Scale)
	assert.Equal(t, [6]float64{0, 2, 0, 4, 0, -2}, out.GeoTransform)
	// centre of each 2x2 block: (1,1) (3,1) (1,3) (3,3)
	assert.Equal(t, []float64{5, 7, 13, 15}, out.Bands[0].Data)
}

func TestResamplePartialBlock(t *testing.T) {
	grid := testGrid()
	data := make([]float64, grid.Size())
	for i := range data {
		data[i] = float64(i)
	}
	img, err := NewImage("a", testDate, grid, Band{Name: "NDSI", Data: data})
	require.NoError(t, err)

	// 3x3 blocks over a 4x4 grid; the trailing blocks are clamped to the edge.
	out := img.Resample(30)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 2, out.Height)
	assert.Equal(t, []float64{5, 7, 13, 15}, out.Bands[0].Data)
}

func TestSamplePixel(t *testing.T) {
	grid := Grid{Width: 3, Height: 3, Scale: 10}
	x, y := grid.SamplePixel(0, 0, 3)
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, y)

	x, y = grid.SamplePixel(1, 0, 2)
	assert.Equal(t, 2, x, "clamped to the last column")
	assert.Equal(t, 1, y)

	x, y = grid.SamplePixel(2, 1, 1)
	assert.Equal(t, 2, x)
	assert.Equal(t, 1, y)
}

func TestWindow(t *testing.T) {
	grid := testGrid()
	data := make([]float64, grid.Size())
	for i := range data {
		data[i] = float64(i)
	}
	img, err := NewImage("a", testDate, grid, Band{Name: "NDSI", Data: data})
	require.NoError(t, err)

	out, err := img.Window(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 2, out.Height)
	assert.Equal(t, [6]float64{1, 1, 0, 3, 0, -1}, out.GeoTransform)
	assert.Equal(t, []float64{5, 6, 9, 10}, out.Bands[0].Data)

	_, err = img.Window(orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{11, 11}})
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	assert.True(t, Contains(square, orb.Point{0.5, 0.5}))
	assert.False(t, Contains(square, orb.Point{1.5, 0.5}))
	assert.True(t, Contains(orb.MultiPolygon{square}, orb.Point{0.5, 0.5}))
	assert.True(t, Contains(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, orb.Point{0.5, 0.5}))
	assert.False(t, Contains(orb.LineString{{0, 0}, {1, 1}}, orb.Point{0.5, 0.5}))
}
