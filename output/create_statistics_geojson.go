package output

import (
	"math"
	"os"
	"path/filepath"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// CreateStatisticsGeoJSON writes one feature per statistics report, each
// carrying the region geometry and the band summaries as properties.
// NaN values are written as null.
func CreateStatisticsGeoJSON(region orb.Geometry, reports []*stats.Statistics, outputPath string) (string, error) {
	fc := geojson.NewFeatureCollection()
	for _, report := range reports {
		feature := geojson.NewFeature(region)
		feature.Properties["label"] = report.Label
		feature.Properties["pixels"] = report.Pixels
		for _, band := range report.BandNames() {
			summary := report.Bands[band]
			feature.Properties[stats.DictionaryKey(band, stats.KeyMean)] = nullable(summary.Mean)
			feature.Properties[stats.DictionaryKey(band, stats.KeyMedian)] = nullable(summary.Median)
			feature.Properties[stats.DictionaryKey(band, stats.KeyStdDev)] = nullable(summary.StdDev)
			feature.Properties[stats.DictionaryKey(band, stats.KeyMin)] = nullable(summary.Min)
			feature.Properties[stats.DictionaryKey(band, stats.KeyMax)] = nullable(summary.Max)
		}
		fc.Append(feature)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return "", errors.Wrap(err, "failed to encode statistics GeoJSON")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return "", errors.Wrap(err, "failed to create result folder")
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", outputPath)
	}
	return outputPath, nil
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
