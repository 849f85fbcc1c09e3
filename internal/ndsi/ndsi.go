// Package ndsi computes the Normalized Difference Salinity Index,
// (R - NIR) / (R + NIR), from Sentinel-2 red (B4) and near-infrared (B8) bands.
package ndsi

import (
	"math"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/pkg/errors"
)

const (
	BandRed  = "B4"
	BandNIR  = "B8"
	BandName = "NDSI"

	// NoDataDN is the digital number Sentinel-2 products use for missing data.
	NoDataDN = 0
)

// Expression evaluates the index for one pixel. Missing inputs and a zero
// denominator produce NaN.
func Expression(r, nir float64) float64 {
	if isNoData(r) || isNoData(nir) {
		return math.NaN()
	}
	denominator := r + nir
	if denominator == 0 {
		return math.NaN()
	}
	return (r - nir) / denominator
}

func isNoData(v float64) bool {
	return math.IsNaN(v) || v == NoDataDN
}

// CalculateNDSI appends the NDSI band to the image.
func CalculateNDSI(img *raster.Image) (*raster.Image, error) {
	red, err := img.Band(BandRed)
	if err != nil {
		return nil, errors.Wrap(err, "red band")
	}
	nir, err := img.Band(BandNIR)
	if err != nil {
		return nil, errors.Wrap(err, "near-infrared band")
	}

	data := make([]float64, len(red.Data))
	for i := range data {
		data[i] = Expression(red.Data[i], nir.Data[i])
	}
	return img.AddBands(raster.Band{Name: BandName, Data: data})
}

// Transform is CalculateNDSI as a collection mapping function.
var Transform raster.MapFunc = CalculateNDSI
