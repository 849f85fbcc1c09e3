package sentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

const regionIDProperty = "region_id"

var ErrRegionNotFound = errors.New("region not found")

// Region is the area of interest every composite is clipped to.
type Region struct {
	Name     string
	Geometry orb.Geometry
}

func (r Region) Bound() orb.Bound {
	return r.Geometry.Bound()
}

// Key names the cache and result directories of the region.
func (r Region) Key() string {
	return strings.ReplaceAll(strings.ToLower(r.Name), " ", "_")
}

func RegionPath(name string) string {
	return properties.DataPath("geojsons", name+".geojson")
}

// LoadRegion reads data/geojsons/<name>.geojson. With an empty regionID every
// polygon feature is merged into one geometry, otherwise only the feature whose
// region_id property matches is kept.
func LoadRegion(name, regionID string) (Region, error) {
	return LoadRegionFile(RegionPath(name), name, regionID)
}

func LoadRegionFile(path, name, regionID string) (Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Region{}, errors.Wrapf(err, "failed to read region file %s", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Region{}, errors.Wrapf(err, "failed to parse region file %s", path)
	}

	var polygons orb.MultiPolygon
	for _, feature := range fc.Features {
		if regionID != "" && featureRegionID(feature) != regionID {
			continue
		}
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		}
	}

	if len(polygons) == 0 {
		if regionID != "" {
			return Region{}, errors.Wrapf(ErrRegionNotFound, "%s has no polygon with %s %s", path, regionIDProperty, regionID)
		}
		return Region{}, errors.Wrapf(ErrRegionNotFound, "%s has no polygon features", path)
	}

	region := Region{Name: name, Geometry: polygons}
	if len(polygons) == 1 {
		region.Geometry = polygons[0]
	}
	return region, nil
}

func featureRegionID(feature *geojson.Feature) string {
	value, ok := feature.Properties[regionIDProperty]
	if !ok || value == nil {
		return ""
	}
	// JSON numbers decode as float64.
	if f, ok := value.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%v", value)
}

// RegionIDs lists the region_id values of a region file, in file order.
func RegionIDs(name string) ([]string, error) {
	data, err := os.ReadFile(RegionPath(name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read region %s", name)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse region %s", name)
	}

	var ids []string
	for _, feature := range fc.Features {
		if id := featureRegionID(feature); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListRegions returns the names of the GeoJSON files in dir.
func ListRegions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read regions directory %s", dir)
	}

	var regions []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".geojson" {
			continue
		}
		regions = append(regions, strings.TrimSuffix(entry.Name(), ".geojson"))
	}
	sort.Strings(regions)
	return regions, nil
}
