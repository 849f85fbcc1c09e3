package export

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultScale     = 30
	DefaultMaxPixels = 1e9
	FormatGeoTIFF    = "GeoTIFF"
)

// Description names the export of one year and period, e.g. NDSI_2018_Jan-Feb.
func Description(year int, periodLabel string) string {
	return fmt.Sprintf("NDSI_%d_%s", year, periodLabel)
}

type Job struct {
	ID          string
	Description string
	Scale       float64
	Region      orb.Geometry
	FileFormat  string
	MaxPixels   int64
	Path        string
	SubmittedAt time.Time
}

// Writer persists the prepared raster of a job.
type Writer interface {
	Write(path string, img *raster.Image) error
}

type Result struct {
	Job      Job
	Err      error
	Duration time.Duration
}

// Exporter runs export jobs in the background. Callers submit and move on;
// outcomes are only logged and collected for the end-of-run summary.
type Exporter struct {
	dir       string
	region    orb.Geometry
	writer    Writer
	scale     float64
	maxPixels int64
	pool      *workerpool.WorkerPool
	log       *logrus.Entry
	mu        sync.Mutex
	results   []Result
}

func NewExporter(dir string, region orb.Geometry, writer Writer, workers int) *Exporter {
	if workers < 1 {
		workers = 1
	}
	return &Exporter{
		dir:       dir,
		region:    region,
		writer:    writer,
		scale:     DefaultScale,
		maxPixels: DefaultMaxPixels,
		pool:      workerpool.New(workers),
		log:       logrus.WithField("component", "export"),
	}
}

// WithLimits overrides the export scale and pixel budget. Non-positive values
// keep the defaults.
func (e *Exporter) WithLimits(scale float64, maxPixels int64) *Exporter {
	if scale > 0 {
		e.scale = scale
	}
	if maxPixels > 0 {
		e.maxPixels = maxPixels
	}
	return e
}

// ExportNDSI queues the composite of one year and period as a GeoTIFF.
func (e *Exporter) ExportNDSI(img *raster.Image, year int, periodLabel string) {
	description := Description(year, periodLabel)
	e.Submit(img, Job{
		ID:          uuid.New().String(),
		Description: description,
		Scale:       e.scale,
		Region:      e.region,
		FileFormat:  FormatGeoTIFF,
		MaxPixels:   e.maxPixels,
		Path:        filepath.Join(e.dir, description+".tif"),
		SubmittedAt: time.Now(),
	})
}

func (e *Exporter) Submit(img *raster.Image, job Job) {
	e.log.WithFields(logrus.Fields{"job": job.ID, "description": job.Description}).Info("export submitted")
	e.pool.Submit(func() {
		err := e.run(img, job)
		result := Result{Job: job, Err: err, Duration: time.Since(job.SubmittedAt)}

		e.mu.Lock()
		e.results = append(e.results, result)
		e.mu.Unlock()

		entry := e.log.WithFields(logrus.Fields{"job": job.ID, "description": job.Description, "duration": result.Duration})
		if err != nil {
			entry.Errorf("export failed: %v", err)
			return
		}
		entry.Infof("exported %s", job.Path)
	})
}

func (e *Exporter) run(img *raster.Image, job Job) error {
	prepared, err := Prepare(img, job)
	if err != nil {
		return err
	}
	return e.writer.Write(job.Path, prepared)
}

// Prepare resamples the image to the job scale and crops it to the region.
func Prepare(img *raster.Image, job Job) (*raster.Image, error) {
	out := img.Resample(job.Scale)
	if job.Region != nil {
		window, err := out.Window(job.Region.Bound())
		if err != nil {
			return nil, errors.Wrap(err, "failed to crop export to region")
		}
		out = window.Clip(job.Region)
	}
	if job.MaxPixels > 0 && int64(out.Size()) > job.MaxPixels {
		return nil, errors.Errorf("export %s has %d pixels, more than the %d allowed", job.Description, out.Size(), job.MaxPixels)
	}
	return out, nil
}

// Wait blocks until every queued job has finished and returns their results.
func (e *Exporter) Wait() []Result {
	e.pool.StopWait()

	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}
