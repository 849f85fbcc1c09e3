package delivery

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/dataset"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/export"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/sentinel"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/stats"
	"github.com/forest-guardian/ndsi-salinity-cli/output"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRegion = sentinel.Region{
		Name:     "westcoast",
		Geometry: orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
	}
	testGrid = raster.Grid{Width: 2, Height: 2, GeoTransform: [6]float64{0, 1, 0, 2, 0, -1}, EPSG: 4326, Scale: 30}
)

type fakeCatalog struct {
	mu      sync.Mutex
	queries []sentinel.Query
	loads   []string
	// empty marks a period start with no scenes.
	empty  time.Time
	failAt int
}

func (c *fakeCatalog) Search(ctx context.Context, query sentinel.Query) ([]sentinel.Scene, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	if c.failAt > 0 && query.Start.Year() == c.failAt {
		return nil, errors.New("catalog unavailable")
	}
	if query.Start.Equal(c.empty) {
		return nil, nil
	}

	day := query.Start.Add(24 * time.Hour)
	return []sentinel.Scene{
		{ID: "a", Datetime: day.Add(11 * time.Hour), Bands: []string{"B2", "B4", "B8"}},
		{ID: "no-nir", Datetime: day.Add(48 * time.Hour), Bands: []string{"B4"}},
		{ID: "same-day", Datetime: day.Add(11*time.Hour + time.Second), Bands: []string{"B4", "B8"}},
		{ID: "masked", Datetime: day.Add(96 * time.Hour), Bands: []string{"B4", "B8"}},
	}, nil
}

func (c *fakeCatalog) Load(ctx context.Context, scene sentinel.Scene, region sentinel.Region) (*raster.Image, error) {
	c.mu.Lock()
	c.loads = append(c.loads, scene.ID)
	c.mu.Unlock()

	if scene.ID == "masked" {
		return nil, errors.Wrap(sentinel.ErrNoValidPixels, "scene masked")
	}
	return raster.NewImage(scene.ID, scene.Datetime, testGrid,
		raster.Band{Name: "B4", Data: []float64{0.3, 0.3, 0.5, 0.2}},
		raster.Band{Name: "B8", Data: []float64{0.1, 0.3, 0.5, 0.6}},
	)
}

func (c *fakeCatalog) Grid(region sentinel.Region) raster.Grid {
	return testGrid
}

type recordingReporter struct {
	reporter *stats.Reporter
	labels   []string
}

func (r *recordingReporter) CalculateStatistics(img *raster.Image, region orb.Geometry, label string) (*stats.Statistics, error) {
	r.labels = append(r.labels, label)
	return r.reporter.CalculateStatistics(img, region, label)
}

type recordingExporter struct {
	descriptions []string
	composites   []*raster.Image
}

func (e *recordingExporter) ExportNDSI(img *raster.Image, year int, periodLabel string) {
	e.descriptions = append(e.descriptions, export.Description(year, periodLabel))
	e.composites = append(e.composites, img)
}

type recordingMap struct {
	layers    []string
	legends   []*output.Legend
	baseStyle string
	saved     bool
}

func (m *recordingMap) AddLayer(img *raster.Image, vis output.VisParams, name string) error {
	m.layers = append(m.layers, name)
	return nil
}

func (m *recordingMap) Add(legend *output.Legend) {
	m.legends = append(m.legends, legend)
}

func (m *recordingMap) SetOptions(baseStyle string, styles map[string][]output.MapStyle) error {
	m.baseStyle = baseStyle
	return nil
}

func (m *recordingMap) Save() (*output.Manifest, error) {
	m.saved = true
	manifest := &output.Manifest{BaseStyle: m.baseStyle}
	for _, name := range m.layers {
		manifest.Layers = append(manifest.Layers, output.Layer{Name: name})
	}
	return manifest, nil
}

type fixture struct {
	catalog  *fakeCatalog
	reporter *recordingReporter
	exporter *recordingExporter
	layerMap *recordingMap
	out      *bytes.Buffer
	csv      string
	deps     Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	out := &bytes.Buffer{}
	f := &fixture{
		catalog:  &fakeCatalog{},
		reporter: &recordingReporter{reporter: stats.NewReporter(out)},
		exporter: &recordingExporter{},
		layerMap: &recordingMap{},
		out:      out,
		csv:      filepath.Join(t.TempDir(), "statistics.csv"),
	}
	f.deps = Dependencies{
		Region:      testRegion,
		Catalog:     f.catalog,
		Reporter:    f.reporter,
		Exporter:    f.exporter,
		Map:         f.layerMap,
		Sinks:       []dataset.Sink{dataset.NewCSVSink(f.csv)},
		Concurrency: 2,
	}
	return f
}

func TestRunAnalysisDefaultPlan(t *testing.T) {
	f := newFixture(t)
	f.catalog.empty = time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)

	report, err := RunAnalysis(t.Context(), f.deps, properties.DefaultPlan())
	require.NoError(t, err)

	var wantLabels, wantLayers, wantDescriptions []string
	for _, year := range properties.DefaultYears() {
		for _, period := range properties.DefaultPeriods() {
			wantLabels = append(wantLabels, StatisticsLabel(year, period.Label))
			wantLayers = append(wantLayers, LayerName(year, period.Label))
			wantDescriptions = append(wantDescriptions, export.Description(year, period.Label))
		}
	}
	assert.Len(t, f.reporter.labels, 12)
	assert.Len(t, f.exporter.descriptions, 12)
	assert.Equal(t, wantLabels, f.reporter.labels)
	assert.Equal(t, wantLayers, f.layerMap.layers)
	assert.Equal(t, wantDescriptions, f.exporter.descriptions)
	assert.Equal(t, "NDSI 2018 Jan-Feb - Statistics", f.reporter.labels[0])
	assert.Equal(t, "NDSI_2023_May-Jun", f.exporter.descriptions[11])

	assert.Len(t, f.layerMap.legends, 1)
	assert.Len(t, f.layerMap.legends[0].Rows, 5)
	assert.Equal(t, output.StyleSnazzyBlack, f.layerMap.baseStyle)
	assert.True(t, f.layerMap.saved)

	require.Len(t, f.catalog.queries, 12)
	first := f.catalog.queries[0]
	assert.Equal(t, "sentinel-2-l1c", first.Collection)
	assert.Equal(t, 20.0, first.MaxCloudCover)
	assert.Equal(t, testRegion.Bound(), first.Bounds)
	assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, time.Date(2018, 2, 28, 0, 0, 0, 0, time.UTC), first.End)
	assert.NotContains(t, f.catalog.loads, "no-nir")
	assert.NotContains(t, f.catalog.loads, "same-day")

	require.Len(t, report.Iterations, 12)
	assert.Equal(t, 2, report.Iterations[0].Scenes)
	assert.Equal(t, 1, report.Iterations[0].Images)

	summary := report.Iterations[0].Statistics.Bands["NDSI"]
	assert.InDelta(t, 0, summary.Mean, 1e-12)
	assert.InDelta(t, 0.5, summary.Max, 1e-12)
	assert.InDelta(t, -0.5, summary.Min, 1e-12)

	empty := report.Iterations[5]
	assert.Equal(t, 2020, empty.Year)
	assert.Equal(t, "May-Jun", empty.Period.Label)
	assert.Zero(t, empty.Scenes)
	assert.True(t, math.IsNaN(empty.Statistics.Bands["NDSI"].Mean))
	assert.Equal(t, []string{"NDSI"}, f.exporter.composites[5].BandNames())
	assert.Contains(t, f.out.String(), "NDSI 2020 May-Jun - Statistics\n  NDSI_max: null\n")

	rows, err := dataset.LoadStatistics(f.csv)
	require.NoError(t, err)
	assert.Len(t, rows, 12)
}

func TestRunAnalysisHaltsOnCatalogFailure(t *testing.T) {
	f := newFixture(t)
	f.catalog.failAt = 2019

	_, err := RunAnalysis(t.Context(), f.deps, properties.DefaultPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog unavailable")
	assert.Contains(t, err.Error(), "NDSI 2019 Jan-Feb")
	assert.Len(t, f.reporter.labels, 2)
	assert.Len(t, f.exporter.descriptions, 2)
	assert.False(t, f.layerMap.saved)
}

func TestRunAnalysisRejectsInvalidPlan(t *testing.T) {
	f := newFixture(t)
	plan := properties.DefaultPlan()
	plan.Years = nil

	_, err := RunAnalysis(t.Context(), f.deps, plan)
	assert.Error(t, err)
	assert.Empty(t, f.catalog.queries)
}

func TestComposite(t *testing.T) {
	first, err := raster.NewImage("first", time.Time{}, testGrid,
		raster.Band{Name: "B4", Data: []float64{0.2, 0.4, 0.5, math.NaN()}},
		raster.Band{Name: "B8", Data: []float64{0.2, 0, 0.5, 0.1}},
	)
	require.NoError(t, err)
	second, err := raster.NewImage("second", time.Time{}, testGrid,
		raster.Band{Name: "B4", Data: []float64{0.6, 0.4, 0.0, 0.3}},
		raster.Band{Name: "B8", Data: []float64{0.2, 0.4, 0.0, 0.1}},
	)
	require.NoError(t, err)
	redOnly, err := raster.NewImage("red-only", time.Time{}, testGrid,
		raster.Band{Name: "B4", Data: []float64{1, 1, 1, 1}},
	)
	require.NoError(t, err)

	// The region covers the left column only.
	region := orb.Polygon{{{0, 0}, {1, 0}, {1, 2}, {0, 2}, {0, 0}}}
	composite, err := Composite(raster.NewCollection(testGrid, first, second, redOnly), region, []string{"B4", "B8"})
	require.NoError(t, err)

	band, err := composite.Band("NDSI")
	require.NoError(t, err)
	assert.Equal(t, []string{"NDSI"}, composite.BandNames())
	// (0 + 0.5) / 2
	assert.InDelta(t, 0.25, band.Data[0], 1e-12)
	assert.True(t, math.IsNaN(band.Data[1]), "outside the region")
	// Only the first image has data: R == NIR.
	assert.InDelta(t, 0, band.Data[2], 1e-12)
	assert.True(t, math.IsNaN(band.Data[3]), "outside the region")
}
