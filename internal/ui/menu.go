package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/pkg/errors"
)

type menuOption struct {
	title   string
	handler func()
}

// ShowMenu displays the main menu and handles user input. plan holds the
// defaults offered when running an analysis.
func ShowMenu(ctx context.Context, plan properties.Plan) {
	menuOptions := []menuOption{
		{"Run the NDSI salinity analysis of a region", func() { RunAnalysis(ctx, plan) }},
		{"View the list of available regions", ListRegions},
		{"View the region ids of a region", func() { ListRegionIDs("") }},
		{"View the NDSI legend", func() {
			if err := ShowLegend(""); err != nil {
				PrintError(err.Error())
			}
		}},
		{"View the base map styles", func() {
			if err := ShowStyles(""); err != nil {
				PrintError(err.Error())
			}
		}},
		{"Exit the application", func() { fmt.Println("Exiting..."); os.Exit(0) }},
	}

	for {
		fmt.Println("\033[34m===================\033[0m")
		for i, opt := range menuOptions {
			fmt.Printf("\033[34m%d. %s\033[0m\n", i+1, opt.title)
		}

		choice, err := ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if errors.Is(err, io.EOF) {
			fmt.Println("Exiting...")
			return
		}
		if err != nil {
			PrintError(err.Error())
			continue
		}

		menuOptions[choice-1].handler()
	}
}
