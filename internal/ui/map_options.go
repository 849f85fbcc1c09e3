package ui

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/forest-guardian/ndsi-salinity-cli/output"
	"github.com/pkg/errors"
)

// ShowLegend prints the NDSI legend rows with a swatch of their colour and,
// when path is set, renders the legend to a PNG file.
func ShowLegend(path string) error {
	legend := output.NewLegend()

	fmt.Printf("\n%s%s%s\n", ColorGreen, legend.Title, ColorReset)
	for _, row := range legend.Rows {
		rgba, err := output.ParseColor(row.Color)
		if err != nil {
			return err
		}
		fmt.Printf("\033[48;2;%d;%d;%dm    %s %s %s\n", rgba.R, rgba.G, rgba.B, ColorReset, row.Color, row.Name)
	}

	if path == "" {
		return nil
	}
	saved, err := output.SaveLegendPNG(legend, path)
	if err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Legend saved at: %s", saved))
	return nil
}

// ShowStyles lists the registered base-map styles. With a name it prints that
// style as JSON, ready to paste into a Maps JavaScript API map.
func ShowStyles(name string) error {
	styles := output.BaseMapStyles()

	if name == "" {
		names := make([]string, 0, len(styles))
		for styleName := range styles {
			names = append(names, styleName)
		}
		sort.Strings(names)

		fmt.Printf("\n%sAvailable base map styles:%s\n", ColorGreen, ColorReset)
		for _, styleName := range names {
			fmt.Printf("%s- %s (%d rules, background %s)%s\n", ColorGreen, styleName, len(styles[styleName]), output.Background(styles[styleName]), ColorReset)
		}
		return nil
	}

	style, ok := styles[name]
	if !ok {
		return errors.Errorf("unknown base map style %s", name)
	}
	data, err := json.MarshalIndent(style, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
