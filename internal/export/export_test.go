package export

import (
	"math"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	written map[string]*raster.Image
	fail    string
}

func (w *fakeWriter) Write(path string, img *raster.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if filepath.Base(path) == w.fail {
		return errors.New("disk full")
	}
	if w.written == nil {
		w.written = map[string]*raster.Image{}
	}
	w.written[path] = img
	return nil
}

// 4x4 image of 10 m pixels over [0,4]x[0,4].
func composite(t *testing.T) *raster.Image {
	t.Helper()
	grid := raster.Grid{Width: 4, Height: 4, GeoTransform: [6]float64{0, 1, 0, 4, 0, -1}, EPSG: 4326, Scale: 10}
	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i)
	}
	img, err := raster.NewImage("median", time.Time{}, grid, raster.Band{Name: "NDSI", Data: data})
	require.NoError(t, err)
	return img
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "NDSI_2018_Jan-Feb", Description(2018, "Jan-Feb"))
	assert.Equal(t, "NDSI_2023_May-Jun", Description(2023, "May-Jun"))
}

func TestExportNDSIQueuesJobs(t *testing.T) {
	region := orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}
	writer := &fakeWriter{fail: "NDSI_2019_May-Jun.tif"}
	exporter := NewExporter("exports", region, writer, 2)

	img := composite(t)
	for _, year := range []int{2018, 2019} {
		for _, label := range []string{"Jan-Feb", "May-Jun"} {
			exporter.ExportNDSI(img, year, label)
		}
	}
	results := exporter.Wait()

	require.Len(t, results, 4)
	var descriptions []string
	var failed []string
	for _, result := range results {
		descriptions = append(descriptions, result.Job.Description)
		assert.Equal(t, FormatGeoTIFF, result.Job.FileFormat)
		assert.Equal(t, float64(DefaultScale), result.Job.Scale)
		assert.Equal(t, int64(DefaultMaxPixels), result.Job.MaxPixels)
		assert.NotEmpty(t, result.Job.ID)
		if result.Err != nil {
			failed = append(failed, result.Job.Description)
		}
	}
	sort.Strings(descriptions)
	assert.Equal(t, []string{"NDSI_2018_Jan-Feb", "NDSI_2018_May-Jun", "NDSI_2019_Jan-Feb", "NDSI_2019_May-Jun"}, descriptions)
	assert.Equal(t, []string{"NDSI_2019_May-Jun"}, failed)
	assert.Contains(t, writer.written, filepath.Join("exports", "NDSI_2018_Jan-Feb.tif"))
	assert.Len(t, writer.written, 3)
}

func TestPrepareResamplesAndClips(t *testing.T) {
	// Triangle covering the lower-left half of the image.
	region := orb.Polygon{{{0, 0}, {4.5, 0}, {0, 4.5}, {0, 0}}}
	job := Job{Description: "NDSI_2020_Jan-Feb", Scale: 20, Region: region}

	out, err := Prepare(composite(t), job)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 2, out.Height)
	assert.Equal(t, 20.0, out.Scale)

	band, err := out.Band("NDSI")
	require.NoError(t, err)
	// Pixel centres (1,3) (3,3) (1,1) (3,1); only (3,3) lies outside the triangle.
	// Each coarse pixel takes the native pixel at the centre of its block.
	assert.Equal(t, 5.0, band.Data[0])
	assert.True(t, math.IsNaN(band.Data[1]))
	assert.Equal(t, 13.0, band.Data[2])
	assert.Equal(t, 15.0, band.Data[3])
}

func TestPrepareEnforcesMaxPixels(t *testing.T) {
	_, err := Prepare(composite(t), Job{Description: "big", Scale: 10, MaxPixels: 15})
	assert.Error(t, err)
}

func TestExporterWithLimits(t *testing.T) {
	writer := &fakeWriter{}
	exporter := NewExporter("exports", nil, writer, 1).WithLimits(20, 3)
	exporter.ExportNDSI(composite(t), 2021, "Jan-Feb")

	results := exporter.Wait()
	require.Len(t, results, 1)
	assert.Equal(t, 20.0, results[0].Job.Scale)
	assert.Equal(t, int64(3), results[0].Job.MaxPixels)
	assert.ErrorContains(t, results[0].Err, "4 pixels")
	assert.Empty(t, writer.written)
}
