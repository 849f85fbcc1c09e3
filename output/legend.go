package output

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
)

type Style struct {
	Position        string `json:"position,omitempty"`
	Padding         string `json:"padding,omitempty"`
	Margin          string `json:"margin,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	FontSize        string `json:"fontSize,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

type LegendRow struct {
	Color string `json:"color"`
	Name  string `json:"name"`
}

// Legend is the panel drawn in a corner of every rendered layer.
type Legend struct {
	Title      string      `json:"title"`
	Style      Style       `json:"style"`
	TitleStyle Style       `json:"titleStyle"`
	Rows       []LegendRow `json:"rows"`
}

func NewLegend() *Legend {
	legend := &Legend{
		Title:      "NDSI Salinity Index",
		Style:      Style{Position: "bottom-left", Padding: "8px 15px"},
		TitleStyle: Style{FontWeight: "bold", FontSize: "18px", Margin: "0 0 4px 0", Padding: "0"},
	}
	legend.AddRow("#d53e4f", "Very Low")
	legend.AddRow("#fdae61", "Low")
	legend.AddRow("#ffffbf", "Moderate")
	legend.AddRow("#3288bd", "High")
	legend.AddRow("#5e4fa2", "Very High")
	return legend
}

func (l *Legend) AddRow(color, name string) {
	l.Rows = append(l.Rows, LegendRow{Color: color, Name: name})
}

const (
	legendPadX    = 15.0
	legendPadY    = 8.0
	legendBox     = 16.0
	legendRowGap  = 4.0
	legendTextGap = 6.0
	legendTitleH  = 18.0
	legendMargin  = 10.0
)

// Size is the pixel size of the drawn panel.
func (l *Legend) Size(dc *gg.Context) (float64, float64) {
	width, _ := dc.MeasureString(l.Title)
	for _, row := range l.Rows {
		w, _ := dc.MeasureString(row.Name)
		if w+legendBox+legendTextGap > width {
			width = w + legendBox + legendTextGap
		}
	}
	height := legendTitleH + legendRowGap + float64(len(l.Rows))*(legendBox+legendRowGap)
	return width + 2*legendPadX, height + 2*legendPadY
}

// Draw paints the legend on the context at its configured corner.
func (l *Legend) Draw(dc *gg.Context) error {
	width, height := l.Size(dc)
	x, y := legendMargin, float64(dc.Height())-height-legendMargin
	switch l.Style.Position {
	case "top-left":
		y = legendMargin
	case "top-right":
		x, y = float64(dc.Width())-width-legendMargin, legendMargin
	case "bottom-right":
		x = float64(dc.Width()) - width - legendMargin
	}

	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawRectangle(x, y, width, height)
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(l.Title, x+legendPadX, y+legendPadY+legendTitleH/2, 0, 0.5)

	rowY := y + legendPadY + legendTitleH + legendRowGap
	for _, row := range l.Rows {
		rgba, err := ParseColor(row.Color)
		if err != nil {
			return err
		}
		dc.SetColor(rgba)
		dc.DrawRectangle(x+legendPadX, rowY, legendBox, legendBox)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(row.Name, x+legendPadX+legendBox+legendTextGap, rowY+legendBox/2, 0, 0.5)
		rowY += legendBox + legendRowGap
	}
	return nil
}

// SaveLegendPNG renders the legend alone on a transparent canvas.
func SaveLegendPNG(legend *Legend, path string) (string, error) {
	measure := gg.NewContext(1, 1)
	width, height := legend.Size(measure)

	dc := gg.NewContext(int(math.Ceil(width+2*legendMargin)), int(math.Ceil(height+2*legendMargin)))
	if err := legend.Draw(dc); err != nil {
		return "", err
	}
	if err := dc.SavePNG(path); err != nil {
		return "", errors.Wrapf(err, "failed to save legend %s", path)
	}
	return path, nil
}
