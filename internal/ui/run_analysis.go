package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/dataset"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/delivery"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/export"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/notification"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/sentinel"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/stats"
	"github.com/forest-guardian/ndsi-salinity-cli/output"
	"github.com/sirupsen/logrus"
)

// Analysis is the outcome of a full run, exports included.
type Analysis struct {
	Report  *delivery.Report
	Exports []export.Result
}

func (a Analysis) FailedExports() []export.Result {
	var failed []export.Result
	for _, result := range a.Exports {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// Analyze loads the plan's region, wires the Sentinel Hub client and every
// output of the run, then waits for the queued exports.
func Analyze(ctx context.Context, plan properties.Plan, progress bool) (*Analysis, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	region, err := sentinel.LoadRegion(plan.Region, plan.RegionID)
	if err != nil {
		return nil, err
	}
	if plan.RegionID != "" {
		region.Name = fmt.Sprintf("%s_%s", plan.Region, plan.RegionID)
	}

	client, err := sentinel.NewClient(sentinel.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	resultDir, err := CreateResultDirectory(region.Key())
	if err != nil {
		return nil, err
	}

	sinks := []dataset.Sink{dataset.NewCSVSink(filepath.Join(resultDir, "statistics.csv"))}
	if dsn := properties.PostgresDSN(); dsn != "" {
		postgres, err := dataset.NewPostgresSink(ctx, dsn)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, postgres)
	}
	defer func() {
		for _, sink := range sinks {
			if err := sink.Close(); err != nil {
				logrus.Warnf("failed to close statistics sink: %v", err)
			}
		}
	}()

	exporter := export.NewExporter(filepath.Join(resultDir, "exports"), region.Geometry, export.GeoTIFFWriter{}, properties.ExportWorkers()).
		WithLimits(plan.Scale, plan.MaxPixels)

	deps := delivery.Dependencies{
		Region:      region,
		Catalog:     client,
		Reporter:    stats.NewReporter(os.Stdout).WithOptions(stats.ReduceOptions{Scale: plan.Scale, MaxPixels: plan.MaxPixels}),
		Exporter:    exporter,
		Map:         output.NewMap(resultDir),
		Sinks:       sinks,
		ResultDir:   resultDir,
		Concurrency: client.Concurrency(),
		Progress:    progress,
	}

	report, err := delivery.RunAnalysis(ctx, deps, plan)
	// Jobs queued before a failure still run to completion.
	exports := exporter.Wait()
	if err != nil {
		return nil, err
	}
	return &Analysis{Report: report, Exports: exports}, nil
}

// RunPlan runs the analysis, prints its summary and notifies Discord of the
// outcome.
func RunPlan(ctx context.Context, plan properties.Plan, progress bool) error {
	notifier := notification.NewNotifier()

	analysis, err := Analyze(ctx, plan, progress)
	if err != nil {
		PrintError(fmt.Sprintf("Error running NDSI analysis: %s", err.Error()))
		if notifyErr := notifier.Error(ctx, fmt.Sprintf("NDSI CLI\n\nError analysing region %s: %s", plan.Region, err.Error())); notifyErr != nil {
			logrus.Warnf("failed to send error notification: %v", notifyErr)
		}
		return err
	}

	printSummary(analysis)

	if failed := analysis.FailedExports(); len(failed) > 0 {
		messages := strings.Builder{}
		for _, result := range failed {
			messages.WriteString(fmt.Sprintf("- %s: %s\n", result.Job.Description, result.Err.Error()))
		}
		if err := notifier.Warning(ctx, fmt.Sprintf("NDSI CLI\n\nExports failed for region %s:\n%s", plan.Region, messages.String())); err != nil {
			logrus.Warnf("failed to send warning notification: %v", err)
		}
	}

	report := analysis.Report
	err = notifier.Success(ctx, fmt.Sprintf("NDSI CLI\n\nSuccessful NDSI analysis of %s!", report.Region),
		notification.DiscordField{Name: "Composites", Value: fmt.Sprintf("%d", len(report.Iterations)), Inline: true},
		notification.DiscordField{Name: "Exports", Value: fmt.Sprintf("%d/%d", len(analysis.Exports)-len(analysis.FailedExports()), len(analysis.Exports)), Inline: true},
		notification.DiscordField{Name: "Processing time", Value: report.Duration.Round(time.Second).String(), Inline: true},
	)
	if err != nil {
		logrus.Warnf("failed to send success notification: %v", err)
	}
	return nil
}

func printSummary(analysis *Analysis) {
	report := analysis.Report
	fmt.Printf("\n%s%-6s %-10s %7s %7s %10s%s\n", ColorGreen, "Year", "Period", "Scenes", "Images", "Mean NDSI", ColorReset)
	for _, iteration := range report.Iterations {
		mean := stats.FormatValue(iteration.Statistics.Bands["NDSI"].Mean)
		fmt.Printf("%s%-6d %-10s %7d %7d %10s%s\n", ColorGreen, iteration.Year, iteration.Period.Label, iteration.Scenes, iteration.Images, mean, ColorReset)
	}

	lines := []string{fmt.Sprintf("Successful analysis of %s in %s!", report.Region, report.Duration.Round(time.Second))}
	if report.Manifest != nil {
		lines = append(lines, fmt.Sprintf(" Map layers: %d", len(report.Manifest.Layers)))
	}
	if report.Statistics != "" {
		lines = append(lines, fmt.Sprintf(" Statistics located at: %s", report.Statistics))
	}
	for _, video := range report.Videos {
		lines = append(lines, fmt.Sprintf(" Video located at: %s", video))
	}
	lines = append(lines, fmt.Sprintf(" Exports: %d queued, %d failed", len(analysis.Exports), len(analysis.FailedExports())))
	PrintSuccess(strings.Join(lines, "\n"))
}

// RunAnalysis handles the UI for running the NDSI analysis of a region
func RunAnalysis(ctx context.Context, base properties.Plan) {
	PrintWarning("- A '.geojson' file with the region name should be present in data/geojsons folder.\n- Features can be selected by their 'region_id' property, leave it empty to analyse the whole file.")

	ListRegions()
	plan := base
	if region := ReadString(fmt.Sprintf("Enter the region name [%s]: ", base.Region)); region != "" {
		plan.Region = region
	}
	plan.RegionID = ReadString("Enter the region id (optional): ")

	years, err := ReadYears(fmt.Sprintf("Enter the years, e.g. 2018-2023 [%s]: ", formatYears(base.Years)), base.Years)
	if err != nil {
		PrintError(err.Error())
		return
	}
	plan.Years = years

	if answer := strings.ToLower(ReadString("Create time-lapse videos? (y/N): ")); answer == "y" || answer == "yes" {
		plan.Video = true
	}

	RunPlan(ctx, plan, true)
}

func formatYears(years []int) string {
	parts := make([]string, len(years))
	for i, year := range years {
		parts[i] = fmt.Sprintf("%d", year)
	}
	return strings.Join(parts, ",")
}
