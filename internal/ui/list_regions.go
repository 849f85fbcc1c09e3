package ui

import (
	"fmt"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/sentinel"
)

// ListRegions handles the UI for viewing the list of available regions
func ListRegions() {
	regions, err := sentinel.ListRegions(properties.DataPath("geojsons"))
	if err != nil {
		PrintError(err.Error())
		return
	}

	PrintWarning("To add a new region, add its '.geojson' file at 'data/geojsons' folder.")

	if len(regions) == 0 {
		PrintError("No regions found in data/geojsons")
		return
	}
	fmt.Printf("\n%sAvailable regions:%s\n", ColorGreen, ColorReset)
	for _, region := range regions {
		fmt.Printf("%s- %s%s\n", ColorGreen, region, ColorReset)
	}
}

// ListRegionIDs handles the UI for viewing the features of a region that can
// be analysed on their own
func ListRegionIDs(region string) {
	PrintWarning("To analyse part of a region add the 'region_id' property to its features.\nThe 'region_id' property should be located at 'features[N].properties.region_id'.")

	if region == "" {
		region = ReadString("Enter the region name: ")
	}

	ids, err := sentinel.RegionIDs(region)
	if err != nil {
		PrintError(err.Error())
		return
	}
	if len(ids) == 0 {
		PrintError(fmt.Sprintf("No region_id found in %s.geojson, the whole file is analysed as one region", region))
		return
	}

	fmt.Printf("\n%sAvailable region ids:%s\n", ColorGreen, ColorReset)
	for _, id := range ids {
		fmt.Printf("%s- %s%s\n", ColorGreen, id, ColorReset)
	}
}
