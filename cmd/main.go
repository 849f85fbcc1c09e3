package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/notification"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/ui"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func printBanner() {
	figure1 := figure.NewFigure("NDSI", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func loadEnv() {
	for _, path := range []string{"../../.env", "../.env", ".env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
	logrus.Debug("no .env file found, using the process environment")
}

func reportPanic() {
	r := recover()
	if r == nil {
		return
	}

	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}

	fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
	fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
	fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")
	fmt.Printf("\033[31mExiting...\033[0m\n")

	errMessage := fmt.Sprintf("NDSI CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
		fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
	}
	os.Exit(2)
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var configFile string
	var verbose bool

	root := &cobra.Command{
		Use:           "ndsi",
		Short:         "Sentinel-2 NDSI soil salinity analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			if configFile != "" {
				v.SetConfigFile(configFile)
			} else {
				v.SetConfigName("ndsi")
				v.SetConfigType("yaml")
				v.AddConfigPath(".")
				if rootPath := properties.RootPath(); rootPath != "" {
					v.AddConfigPath(rootPath)
				}
			}
			if err := v.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
					return errors.Wrap(err, "failed to read config")
				}
			}
			logrus.Debugf("config file: %s", v.ConfigFileUsed())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "analysis plan file (default ./ndsi.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(v), newMenuCmd(v), newRegionsCmd(), newLegendCmd(), newStylesCmd())
	return root
}

func bindPlanFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.String("region", "", "region name, data/geojsons/<region>.geojson")
	flags.String("region-id", "", "analyse only the features with this region_id")
	flags.String("collection", "", "Sentinel-2 collection")
	flags.IntSlice("years", nil, "years to analyse")
	flags.Float64("max-cloud-cover", 0, "maximum scene cloud cover, percent")
	flags.Float64("scale", 0, "statistics and export scale, metres")
	flags.Int64("max-pixels", 0, "statistics and export pixel budget")
	flags.Bool("video", false, "render one time-lapse per period")

	for key, flag := range map[string]string{
		"region":          "region",
		"region_id":       "region-id",
		"collection":      "collection",
		"years":           "years",
		"max_cloud_cover": "max-cloud-cover",
		"scale":           "scale",
		"max_pixels":      "max-pixels",
		"video":           "video",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the yearly seasonal NDSI composites of a region",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := properties.LoadPlan(v)
			if err != nil {
				return err
			}
			return ui.RunPlan(cmd.Context(), plan, !noProgress)
		},
	}
	bindPlanFlags(cmd, v)
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}

func newMenuCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := properties.LoadPlan(v)
			if err != nil {
				return err
			}
			ui.ShowMenu(cmd.Context(), plan)
			return nil
		},
	}
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions [region]",
		Short: "List the available regions, or the region ids of one region",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				ui.ListRegions()
				return
			}
			ui.ListRegionIDs(args[0])
		},
	}
}

func newLegendCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "legend",
		Short: "Print the NDSI legend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.ShowLegend(out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "also render the legend to this PNG file")
	return cmd
}

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles [name]",
		Short: "List the base map styles, or print one as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return ui.ShowStyles(name)
		},
	}
}

func main() {
	defer reportPanic()

	loadEnv()

	v := viper.New()
	properties.SetPlanDefaults(v)
	v.SetEnvPrefix("NDSI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "menu")
	}
	switch os.Args[1] {
	case "menu", "run":
		printBanner()
	}

	root := newRootCmd(v)
	if err := root.ExecuteContext(ctx); err != nil {
		logrus.Error(err)
		stop()
		os.Exit(1)
	}
}
