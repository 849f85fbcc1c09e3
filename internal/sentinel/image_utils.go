package sentinel

import (
	"encoding/json"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/ndsi"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/utils"
	"github.com/pkg/errors"
)

var ErrNoValidPixels = errors.New("image has no valid pixels")

// Band order of the process API response.
const (
	redBandIndex = iota
	nirBandIndex
	dataMaskBandIndex
	responseBands
)

var registerDrivers sync.Once

func openDataset(path string) (*godal.Dataset, error) {
	registerDrivers.Do(godal.RegisterAll)
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.Errorf("GDAL error %d: %s", code, msg)
	}))
}

// readImage decodes a process API GeoTIFF into an image on grid. Pixels
// outside the data mask become NaN.
func readImage(path string, scene Scene, grid raster.Grid) (*raster.Image, error) {
	var (
		red, nir, mask []float64
		err            error
	)
	utils.ExecuteWithMutex(func() {
		red, nir, mask, err = readBands(path, grid)
	})
	if err != nil {
		return nil, err
	}

	for i := range mask {
		if mask[i] == 0 {
			red[i] = math.NaN()
			nir[i] = math.NaN()
		}
	}

	return raster.NewImage(scene.ID, scene.Datetime, grid,
		raster.Band{Name: ndsi.BandRed, Data: red},
		raster.Band{Name: ndsi.BandNIR, Data: nir},
	)
}

func readBands(path string, grid raster.Grid) (red, nir, mask []float64, err error) {
	ds, err := openDataset(path)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.SizeX != grid.Width || structure.SizeY != grid.Height {
		return nil, nil, nil, errors.Errorf("%s is %dx%d, expected %dx%d", path, structure.SizeX, structure.SizeY, grid.Width, grid.Height)
	}
	bands := ds.Bands()
	if len(bands) < responseBands {
		return nil, nil, nil, errors.Errorf("%s has %d bands, expected %d", path, len(bands), responseBands)
	}

	read := func(index int) ([]float64, error) {
		data := make([]float64, grid.Size())
		if err := bands[index].Read(0, 0, data, grid.Width, grid.Height); err != nil {
			return nil, errors.Wrapf(err, "failed to read band %d of %s", index+1, path)
		}
		return data, nil
	}
	if red, err = read(redBandIndex); err != nil {
		return nil, nil, nil, err
	}
	if nir, err = read(nirBandIndex); err != nil {
		return nil, nil, nil, err
	}
	if mask, err = read(dataMaskBandIndex); err != nil {
		return nil, nil, nil, err
	}
	return red, nir, mask, nil
}

// invalidImages is the JSON list of cached image names known to hold no data.
type invalidImages struct {
	mu   sync.Mutex
	path string
}

var invalidImagesLocks sync.Map

func newInvalidImages(path string) *invalidImages {
	lock, _ := invalidImagesLocks.LoadOrStore(path, &invalidImages{path: path})
	return lock.(*invalidImages)
}

func (i *invalidImages) Contains(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, existing := range i.load() {
		if existing == name {
			return true
		}
	}
	return false
}

func (i *invalidImages) Add(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	unique := map[string]struct{}{name: {}}
	for _, existing := range i.load() {
		unique[existing] = struct{}{}
	}
	names := make([]string, 0, len(unique))
	for n := range unique {
		names = append(names, n)
	}
	sort.Strings(names)

	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(i.path, data, 0644)
}

func (i *invalidImages) load() []string {
	data, err := os.ReadFile(i.path)
	if err != nil {
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil
	}
	return names
}
