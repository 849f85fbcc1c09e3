package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/ndsi"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/sentinel"
	"github.com/joho/godotenv"
)

func main() {
	// Hardcoded test parameters - modify these to test different scenarios
	regionName := "westcoast"
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 2, 28, 0, 0, 0, 0, time.UTC)
	collection := "sentinel-2-l1c"

	fmt.Println("=== NDSI Test Scene Download ===")
	fmt.Printf("Region: %s\n", regionName)
	fmt.Printf("Range: %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Println()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
		fmt.Println("Make sure you have set the required environment variables:")
		fmt.Println("- COPERNICUS_CLIENT_ID")
		fmt.Println("- COPERNICUS_CLIENT_SECRET")
		fmt.Println("- COPERNICUS_TOKEN_URL")
		fmt.Println("- ROOT_PATH")
		fmt.Println()
	}
	if properties.RootPath() == "" {
		wd, _ := os.Getwd()
		os.Setenv("ROOT_PATH", wd)
		fmt.Printf("Setting ROOT_PATH to: %s\n", wd)
	}

	region, err := sentinel.LoadRegion(regionName, "")
	if err != nil {
		log.Fatalf("Failed to load region: %v", err)
	}
	fmt.Println("✓ Region loaded successfully")

	client, err := sentinel.NewClient(sentinel.ConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	scenes, err := client.Search(ctx, sentinel.Query{
		Collection:    collection,
		Bounds:        region.Bound(),
		Start:         start,
		End:           end,
		MaxCloudCover: 20,
	})
	if err != nil {
		log.Fatalf("Failed to search scenes: %v", err)
	}

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Scenes found: %d\n", len(scenes))
	for _, scene := range scenes {
		fmt.Printf("- %s (%s, cloud cover %.1f%%, bands %v)\n", scene.ID, scene.Day(), scene.CloudCover, scene.Bands)
	}
	if len(scenes) == 0 {
		fmt.Println("No scenes were found. This could mean:")
		fmt.Println("- Every scene is above the cloud threshold")
		fmt.Println("- No satellite data available for this range")
		fmt.Println("- API credentials issue")
		return
	}

	grid := client.Grid(region)
	fmt.Printf("\nGrid: %dx%d at %.1f m\n", grid.Width, grid.Height, grid.Scale)

	img, err := client.Load(ctx, scenes[0], region)
	if err != nil {
		log.Fatalf("Failed to load scene %s: %v", scenes[0].ID, err)
	}
	withIndex, err := ndsi.CalculateNDSI(img)
	if err != nil {
		log.Fatalf("Failed to calculate NDSI: %v", err)
	}
	band, err := withIndex.Band(ndsi.BandName)
	if err != nil {
		log.Fatalf("Failed to read NDSI band: %v", err)
	}

	valid := 0
	for _, v := range band.Data {
		if !math.IsNaN(v) {
			valid++
		}
	}
	fmt.Printf("Scene %s: %d of %d pixels with an NDSI value\n", scenes[0].ID, valid, len(band.Data))
	fmt.Printf("Image files saved to: %s\n", properties.DataPath("images", region.Key()))

	fmt.Println("\n✓ Test completed successfully!")
}
