package output

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1"
)

// NDSIPalette runs from saline-poor red to saline-rich violet.
var NDSIPalette = []string{"#d53e4f", "#fdae61", "#ffffbf", "#3288bd", "#5e4fa2"}

// VisParams stretches band values between Min and Max over the palette.
type VisParams struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Palette []string `json:"palette"`
}

func NDSIVisParams() VisParams {
	return VisParams{Min: -1, Max: 1, Palette: NDSIPalette}
}

type Palette []color.RGBA

func ParsePalette(hexColors ...string) (Palette, error) {
	if len(hexColors) == 0 {
		return nil, errors.New("palette needs at least one colour")
	}
	palette := make(Palette, 0, len(hexColors))
	for _, hex := range hexColors {
		rgba, err := ParseColor(hex)
		if err != nil {
			return nil, err
		}
		palette = append(palette, rgba)
	}
	return palette, nil
}

func ParseColor(hex string) (color.RGBA, error) {
	parsed, err := colors.ParseHEX(hex)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "invalid colour %q", hex)
	}
	rgb := parsed.ToRGB()
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}, nil
}

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// At interpolates linearly between neighbouring palette stops.
func (p Palette) At(norm float64) color.RGBA {
	if len(p) == 1 {
		return p[0]
	}
	pos := norm * float64(len(p)-1)
	i := int(math.Floor(pos))
	if i >= len(p)-1 {
		return p[len(p)-1]
	}
	ratio := pos - float64(i)
	from, to := p[i], p[i+1]
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*ratio))
	}
	return color.RGBA{R: lerp(from.R, to.R), G: lerp(from.G, to.G), B: lerp(from.B, to.B), A: 255}
}

// valueToColor maps a band value to its palette colour. No-data is transparent.
func (v VisParams) valueToColor(palette Palette, value float64) color.RGBA {
	if math.IsNaN(value) {
		return color.RGBA{}
	}
	return palette.At(normalize(value, v.Min, v.Max))
}
