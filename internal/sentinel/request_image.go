package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

const (
	nativeResolution = 10.0
	maxOutputPixels  = 2500
	metresPerDegree  = 111_000.0
	epsgWGS84        = 4326
)

const evalscript = `
//VERSION=3
function setup() {
  return {
    input: [{ bands: ["B04", "B08", "dataMask"], units: "DN" }],
    output: {
      id: "default",
      bands: 3,
      sampleType: SampleType.FLOAT32,
    },
  }
}

function evaluatePixel(sample) {
  return [sample.B04, sample.B08, sample.dataMask];
}
`

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (metresPerDegree / resolution)
	if pixels < 1 {
		return 1
	}
	if pixels > maxOutputPixels {
		return maxOutputPixels
	}
	return int(pixels)
}

// Grid is the raster layout every scene of the region is requested on, so
// that scenes can be composited pixel by pixel.
func (c *Client) Grid(region Region) raster.Grid {
	bound := region.Bound()
	dx := bound.Max[0] - bound.Min[0]
	dy := bound.Max[1] - bound.Min[1]
	// A degree of longitude shrinks with the cosine of the latitude.
	shrink := math.Cos((bound.Min[1] + bound.Max[1]) / 2 * math.Pi / 180)
	width := calculatePixels(dx*shrink, nativeResolution)
	height := calculatePixels(dy, nativeResolution)

	scale := nativeResolution
	if clamped := dx * shrink * metresPerDegree / float64(width); clamped > scale {
		scale = clamped
	}
	if clamped := dy * metresPerDegree / float64(height); clamped > scale {
		scale = clamped
	}

	return raster.Grid{
		Width:        width,
		Height:       height,
		GeoTransform: [6]float64{bound.Min[0], dx / float64(width), 0, bound.Max[1], 0, -dy / float64(height)},
		EPSG:         epsgWGS84,
		Scale:        scale,
	}
}

func (c *Client) requestImage(ctx context.Context, scene Scene, region Region, grid raster.Grid) ([]byte, error) {
	day := scene.Datetime.UTC().Truncate(24 * time.Hour)
	bound := region.Bound()

	geometry, err := json.Marshal(geojson.NewGeometry(region.Geometry))
	if err != nil {
		return nil, errors.Wrap(err, "failed to export region to GeoJSON")
	}

	requestPayload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"bbox":     []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
				"geometry": json.RawMessage(geometry),
				"properties": map[string]string{
					"crs": fmt.Sprintf("http://www.opengis.net/def/crs/EPSG/0/%d", epsgWGS84),
				},
			},
			"data": []map[string]interface{}{
				{
					"type": scene.Collection,
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": day.Format(time.RFC3339),
							"to":   day.Add(24*time.Hour - time.Second).Format(time.RFC3339),
						},
						"mosaickingOrder": "leastCC",
					},
				},
			},
		},
		"output": map[string]interface{}{
			"width":  grid.Width,
			"height": grid.Height,
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format": map[string]string{
						"type": "image/tiff",
					},
				},
			},
		},
		"evalscript": evalscript,
	}

	return c.post(ctx, processPath, "image/tiff", requestPayload)
}

// Load returns the B4/B8 raster of a scene over the region. Rasters are
// cached under the image directory; scenes without any valid pixel are
// remembered and reported with ErrNoValidPixels.
func (c *Client) Load(ctx context.Context, scene Scene, region Region) (*raster.Image, error) {
	grid := c.Grid(region)
	imageName := fmt.Sprintf("%s_%s_%s.tif", region.Key(), scene.Collection, scene.Day())
	dir := filepath.Join(c.imageDir, region.Key())
	fileName := filepath.Join(dir, imageName)

	invalid := newInvalidImages(filepath.Join(c.imageDir, "invalid_images.json"))
	if invalid.Contains(imageName) {
		return nil, errors.Wrapf(ErrNoValidPixels, "scene %s", scene.ID)
	}

	if _, err := os.Stat(fileName); err == nil {
		img, err := readImage(fileName, scene, grid)
		if err == nil {
			return img, nil
		}
		c.log.Warnf("discarding unreadable cached image %s: %v", fileName, err)
		os.Remove(fileName)
	}

	imageBytes, err := c.requestImage(ctx, scene, region, grid)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to request scene %s", scene.ID)
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}
	if err := os.WriteFile(fileName, imageBytes, 0644); err != nil {
		return nil, errors.Wrap(err, "failed to write image file")
	}

	img, err := readImage(fileName, scene, grid)
	if err != nil {
		return nil, err
	}
	if !hasValidPixels(img) {
		if err := invalid.Add(imageName); err != nil {
			c.log.Warnf("failed to record invalid image %s: %v", imageName, err)
		}
		if err := os.Remove(fileName); err != nil {
			c.log.Warnf("failed to delete image file %s: %v", fileName, err)
		}
		return nil, errors.Wrapf(ErrNoValidPixels, "scene %s", scene.ID)
	}
	return img, nil
}

func hasValidPixels(img *raster.Image) bool {
	for _, band := range img.Bands {
		for _, v := range band.Data {
			if !math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}
