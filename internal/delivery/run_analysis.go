package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/dataset"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/ndsi"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/sentinel"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/stats"
	"github.com/forest-guardian/ndsi-salinity-cli/output"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Catalog interface {
	Search(ctx context.Context, query sentinel.Query) ([]sentinel.Scene, error)
	Load(ctx context.Context, scene sentinel.Scene, region sentinel.Region) (*raster.Image, error)
	Grid(region sentinel.Region) raster.Grid
}

type StatisticsReporter interface {
	CalculateStatistics(img *raster.Image, region orb.Geometry, label string) (*stats.Statistics, error)
}

type NDSIExporter interface {
	ExportNDSI(img *raster.Image, year int, periodLabel string)
}

type LayerMap interface {
	AddLayer(img *raster.Image, vis output.VisParams, name string) error
	Add(legend *output.Legend)
	SetOptions(baseStyle string, styles map[string][]output.MapStyle) error
	Save() (*output.Manifest, error)
}

type Dependencies struct {
	Region   sentinel.Region
	Catalog  Catalog
	Reporter StatisticsReporter
	Exporter NDSIExporter
	Map      LayerMap
	Sinks    []dataset.Sink
	// ResultDir receives videos and the statistics GeoJSON. Empty skips both.
	ResultDir   string
	Concurrency int
	Progress    bool
}

type Iteration struct {
	Year       int
	Period     properties.Period
	Scenes     int
	Images     int
	Statistics *stats.Statistics
	Layer      string
}

type Report struct {
	Region     string
	Iterations []Iteration
	Manifest   *output.Manifest
	Statistics string
	Videos     []string
	Duration   time.Duration
}

func StatisticsLabel(year int, periodLabel string) string {
	return fmt.Sprintf("NDSI %d %s - Statistics", year, periodLabel)
}

func LayerName(year int, periodLabel string) string {
	return fmt.Sprintf("NDSI %d %s", year, periodLabel)
}

// RunAnalysis builds the NDSI composite of every year and period of the plan,
// reports its statistics, adds it to the map and queues its export. The first
// catalog or loading failure stops the run.
func RunAnalysis(ctx context.Context, deps Dependencies, plan properties.Plan) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid analysis plan")
	}

	started := time.Now()
	log := logrus.WithField("region", deps.Region.Name)
	report := &Report{Region: deps.Region.Name}

	var progressBar *progressbar.ProgressBar
	if deps.Progress {
		progressBar = progressbar.Default(int64(len(plan.Years)*len(plan.Periods)), "Analysing NDSI")
	}

	for _, year := range plan.Years {
		for _, period := range plan.Periods {
			iteration, err := runIteration(ctx, deps, plan, year, period)
			if err != nil {
				return nil, errors.Wrapf(err, "NDSI %d %s", year, period.Label)
			}
			report.Iterations = append(report.Iterations, *iteration)
			log.WithFields(logrus.Fields{
				"year":   year,
				"period": period.Label,
				"scenes": iteration.Scenes,
				"images": iteration.Images,
			}).Debug("composite done")

			if progressBar != nil {
				progressBar.Add(1)
			}
		}
	}

	deps.Map.Add(output.NewLegend())
	if err := deps.Map.SetOptions(output.StyleSnazzyBlack, output.BaseMapStyles()); err != nil {
		return nil, err
	}
	manifest, err := deps.Map.Save()
	if err != nil {
		return nil, errors.Wrap(err, "failed to save map")
	}
	report.Manifest = manifest

	if err := writeStatistics(ctx, deps, report); err != nil {
		return nil, err
	}

	if plan.Video && deps.ResultDir != "" {
		videos, err := createVideos(manifest, plan, filepath.Join(deps.ResultDir, "videos"))
		if err != nil {
			return nil, err
		}
		report.Videos = videos
	}

	report.Duration = time.Since(started)
	return report, nil
}

func runIteration(ctx context.Context, deps Dependencies, plan properties.Plan, year int, period properties.Period) (*Iteration, error) {
	start, end, err := period.Range(year)
	if err != nil {
		return nil, err
	}

	scenes, err := deps.Catalog.Search(ctx, sentinel.Query{
		Collection:    plan.Collection,
		Bounds:        deps.Region.Bound(),
		Start:         start,
		End:           end,
		MaxCloudCover: plan.MaxCloudCover,
	})
	if err != nil {
		return nil, err
	}

	var withBands []sentinel.Scene
	for _, scene := range scenes {
		if scene.HasBands(plan.RequiredBands...) {
			withBands = append(withBands, scene)
		}
	}
	withBands = sentinel.DistinctDays(withBands)

	images, err := loadImages(ctx, deps, withBands)
	if err != nil {
		return nil, err
	}

	composite, err := Composite(raster.NewCollection(deps.Catalog.Grid(deps.Region), images...), deps.Region.Geometry, plan.RequiredBands)
	if err != nil {
		return nil, err
	}

	statistics, err := deps.Reporter.CalculateStatistics(composite, deps.Region.Geometry, StatisticsLabel(year, period.Label))
	if err != nil {
		return nil, err
	}

	layer := LayerName(year, period.Label)
	if err := deps.Map.AddLayer(composite, output.NDSIVisParams(), layer); err != nil {
		return nil, err
	}

	deps.Exporter.ExportNDSI(composite, year, period.Label)

	return &Iteration{
		Year:       year,
		Period:     period,
		Scenes:     len(withBands),
		Images:     len(images),
		Statistics: statistics,
		Layer:      layer,
	}, nil
}

// Composite maps the NDSI transform over the collection, takes the per-pixel
// median of the NDSI band and clips it to the region.
func Composite(collection raster.Collection, region orb.Geometry, requiredBands []string) (*raster.Image, error) {
	mapped, err := collection.FilterBands(requiredBands...).Map(ndsi.Transform)
	if err != nil {
		return nil, err
	}
	selected, err := mapped.Select(ndsi.BandName)
	if err != nil {
		return nil, err
	}
	median, err := selected.Median()
	if err != nil {
		return nil, err
	}
	return median.Clip(region), nil
}

func loadImages(ctx context.Context, deps Dependencies, scenes []sentinel.Scene) ([]*raster.Image, error) {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	loaded := make([]*raster.Image, len(scenes))
	errGrp, gCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrency)
	for i, scene := range scenes {
		errGrp.Go(func() error {
			img, err := deps.Catalog.Load(gCtx, scene, deps.Region)
			if errors.Is(err, sentinel.ErrNoValidPixels) {
				logrus.WithField("scene", scene.ID).Warn("scene has no valid pixels over the region, skipping")
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "loading scene %s", scene.ID)
			}
			loaded[i] = img
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	images := make([]*raster.Image, 0, len(loaded))
	for _, img := range loaded {
		if img != nil {
			images = append(images, img)
		}
	}
	return images, nil
}

func writeStatistics(ctx context.Context, deps Dependencies, report *Report) error {
	var rows []dataset.StatisticsRow
	var reports []*stats.Statistics
	for _, iteration := range report.Iterations {
		rows = append(rows, dataset.NewStatisticsRows(deps.Region.Name, iteration.Year, iteration.Period.Label, iteration.Statistics)...)
		reports = append(reports, iteration.Statistics)
	}
	if err := dataset.WriteAll(ctx, rows, deps.Sinks...); err != nil {
		return errors.Wrap(err, "failed to save statistics")
	}

	if deps.ResultDir == "" {
		return nil
	}
	path, err := output.CreateStatisticsGeoJSON(deps.Region.Geometry, reports, filepath.Join(deps.ResultDir, "statistics.geojson"))
	if err != nil {
		return err
	}
	report.Statistics = path
	return nil
}

// createVideos renders one time-lapse per period, a frame per year.
func createVideos(manifest *output.Manifest, plan properties.Plan, dir string) ([]string, error) {
	maps := map[string]string{}
	for _, layer := range manifest.Layers {
		maps[layer.Name] = layer.Map
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "failed to create videos folder")
	}

	var videos []string
	for _, period := range plan.Periods {
		var frames []string
		for _, year := range plan.Years {
			if path, ok := maps[LayerName(year, period.Label)]; ok && path != "" {
				frames = append(frames, path)
			}
		}
		if len(frames) == 0 {
			continue
		}
		video, err := output.CreateVideoFromImages(frames, filepath.Join(dir, "NDSI_"+period.Label))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s video", period.Label)
		}
		videos = append(videos, video)
	}
	return videos, nil
}
