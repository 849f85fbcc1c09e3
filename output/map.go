package output

import (
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/raster"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Layer struct {
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Map    string     `json:"map,omitempty"`
	Band   string     `json:"band"`
	Vis    VisParams  `json:"vis"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Bounds [4]float64 `json:"bounds"`
	Shown  bool       `json:"shown"`
}

// Manifest is the map.json document describing a saved map.
type Manifest struct {
	BaseStyle string                `json:"baseStyle"`
	Styles    map[string][]MapStyle `json:"styles"`
	Layers    []Layer               `json:"layers"`
	Widgets   []*Legend             `json:"widgets"`
}

// Map collects rendered layers, widgets and base-map options, then writes
// them under its directory: raw layers in layers/, composed maps in maps/
// and the manifest in map.json.
type Map struct {
	dir       string
	layers    []Layer
	widgets   []*Legend
	baseStyle string
	styles    map[string][]MapStyle
	log       *logrus.Entry
}

func NewMap(dir string) *Map {
	return &Map{
		dir: dir,
		log: logrus.WithField("component", "map"),
	}
}

func layerFileName(name string) string {
	return strings.Join(strings.Fields(name), "_") + ".png"
}

// AddLayer renders the first band of img with vis and stores it as a PNG.
func (m *Map) AddLayer(img *raster.Image, vis VisParams, name string) error {
	if len(img.Bands) == 0 {
		return errors.Errorf("layer %s has no bands", name)
	}
	palette, err := ParsePalette(vis.Palette...)
	if err != nil {
		return err
	}

	band := img.Bands[0]
	rendered := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			rendered.SetRGBA(x, y, vis.valueToColor(palette, band.At(img.Grid, x, y)))
		}
	}

	layersDir := filepath.Join(m.dir, "layers")
	if err := os.MkdirAll(layersDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create layers folder")
	}
	path := filepath.Join(layersDir, layerFileName(name))
	if err := writePNG(path, rendered); err != nil {
		return err
	}

	gt := img.GeoTransform
	m.layers = append(m.layers, Layer{
		Name:   name,
		File:   path,
		Band:   band.Name,
		Vis:    vis,
		Width:  img.Width,
		Height: img.Height,
		Bounds: [4]float64{gt[0], gt[3] + gt[5]*float64(img.Height), gt[0] + gt[1]*float64(img.Width), gt[3]},
		Shown:  true,
	})
	m.log.WithField("layer", name).Debug("layer added")
	return nil
}

func (m *Map) Add(legend *Legend) {
	m.widgets = append(m.widgets, legend)
}

// SetOptions selects the base-map style and registers the available ones.
func (m *Map) SetOptions(baseStyle string, styles map[string][]MapStyle) error {
	if _, ok := styles[baseStyle]; !ok {
		return errors.Errorf("base map style %s is not registered", baseStyle)
	}
	m.baseStyle = baseStyle
	m.styles = styles
	return nil
}

func (m *Map) Layers() []Layer {
	return append([]Layer(nil), m.layers...)
}

// Save composes every layer over the base-map background with the widgets
// drawn on top, then writes map.json.
func (m *Map) Save() (*Manifest, error) {
	background := "#ffffff"
	if m.baseStyle != "" {
		background = Background(m.styles[m.baseStyle])
	}
	backgroundColor, err := ParseColor(background)
	if err != nil {
		return nil, err
	}

	mapsDir := filepath.Join(m.dir, "maps")
	if err := os.MkdirAll(mapsDir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "failed to create maps folder")
	}

	for i, layer := range m.layers {
		rendered, err := gg.LoadPNG(layer.File)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load layer %s", layer.Name)
		}

		dc := gg.NewContext(layer.Width, layer.Height)
		dc.SetColor(backgroundColor)
		dc.Clear()
		dc.DrawImage(rendered, 0, 0)
		for _, widget := range m.widgets {
			if err := widget.Draw(dc); err != nil {
				return nil, err
			}
		}

		path := filepath.Join(mapsDir, filepath.Base(layer.File))
		if err := dc.SavePNG(path); err != nil {
			return nil, errors.Wrapf(err, "failed to save map %s", path)
		}
		m.layers[i].Map = path
	}

	manifest := &Manifest{
		BaseStyle: m.baseStyle,
		Styles:    m.styles,
		Layers:    m.Layers(),
		Widgets:   m.widgets,
	}
	file, err := os.Create(filepath.Join(m.dir, "map.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create map manifest")
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(manifest); err != nil {
		return nil, errors.Wrap(err, "failed to encode map manifest")
	}

	m.log.WithField("layers", len(m.layers)).Infof("map saved to %s", m.dir)
	return manifest, nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return nil
}
