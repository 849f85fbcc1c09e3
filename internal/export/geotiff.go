package export

import (
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/utils"
	"github.com/pkg/errors"
)

var registerDrivers sync.Once

// GeoTIFFWriter writes every band of an image as Float64 with NaN as no-data.
type GeoTIFFWriter struct{}

func (GeoTIFFWriter) Write(path string, img *raster.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	var err error
	utils.ExecuteWithMutex(func() {
		err = writeGeoTIFF(path, img)
	})
	return err
}

func writeGeoTIFF(path string, img *raster.Image) (err error) {
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Create(godal.GTiff, path, len(img.Bands), godal.Float64, img.Width, img.Height, godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if closeErr := ds.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "failed to close %s", path)
		}
	}()

	if err := ds.SetGeoTransform(img.GeoTransform); err != nil {
		return errors.Wrap(err, "failed to set geotransform")
	}
	if img.EPSG != 0 {
		sr, err := godal.NewSpatialRefFromEPSG(img.EPSG)
		if err != nil {
			return errors.Wrapf(err, "unknown EPSG %d", img.EPSG)
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return errors.Wrap(err, "failed to set spatial reference")
		}
	}

	for i, band := range ds.Bands() {
		if err := band.SetNoData(math.NaN()); err != nil {
			return errors.Wrapf(err, "failed to set no-data on band %s", img.Bands[i].Name)
		}
		if err := band.Write(0, 0, img.Bands[i].Data, img.Width, img.Height); err != nil {
			return errors.Wrapf(err, "failed to write band %s", img.Bands[i].Name)
		}
	}
	return nil
}
