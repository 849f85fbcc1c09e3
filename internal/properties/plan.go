package properties

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Period is a seasonal window given as MM-DD bounds, repeated every year.
// End is exclusive.
type Period struct {
	Start string `mapstructure:"start" json:"start"`
	End   string `mapstructure:"end" json:"end"`
	Label string `mapstructure:"label" json:"label"`
}

// Range returns the [start, end) interval of the period in the given year.
func (p Period) Range(year int) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", fmt.Sprintf("%d-%s", year, p.Start))
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(err, "period %s start", p.Label)
	}
	end, err := time.Parse("2006-01-02", fmt.Sprintf("%d-%s", year, p.End))
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(err, "period %s end", p.Label)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.Errorf("period %s ends before it starts in %d", p.Label, year)
	}
	return start, end, nil
}

type Plan struct {
	Region        string   `mapstructure:"region"`
	RegionID      string   `mapstructure:"region_id"`
	Collection    string   `mapstructure:"collection"`
	Years         []int    `mapstructure:"years"`
	Periods       []Period `mapstructure:"periods"`
	MaxCloudCover float64  `mapstructure:"max_cloud_cover"`
	RequiredBands []string `mapstructure:"required_bands"`
	Scale         float64  `mapstructure:"scale"`
	MaxPixels     int64    `mapstructure:"max_pixels"`
	Video         bool     `mapstructure:"video"`
}

func DefaultPeriods() []Period {
	return []Period{
		{Start: "01-01", End: "02-28", Label: "Jan-Feb"},
		{Start: "05-01", End: "06-30", Label: "May-Jun"},
	}
}

func DefaultYears() []int {
	return []int{2018, 2019, 2020, 2021, 2022, 2023}
}

func DefaultPlan() Plan {
	return Plan{
		Region:        "westcoast",
		Collection:    "sentinel-2-l1c",
		Years:         DefaultYears(),
		Periods:       DefaultPeriods(),
		MaxCloudCover: 20,
		RequiredBands: []string{"B4", "B8"},
		Scale:         30,
		MaxPixels:     1e9,
	}
}

// SetPlanDefaults registers the default plan on a viper instance so that
// flags, environment and ndsi.yaml can override single keys.
func SetPlanDefaults(v *viper.Viper) {
	plan := DefaultPlan()
	v.SetDefault("region", plan.Region)
	v.SetDefault("region_id", plan.RegionID)
	v.SetDefault("collection", plan.Collection)
	v.SetDefault("years", plan.Years)
	v.SetDefault("periods", plan.Periods)
	v.SetDefault("max_cloud_cover", plan.MaxCloudCover)
	v.SetDefault("required_bands", plan.RequiredBands)
	v.SetDefault("scale", plan.Scale)
	v.SetDefault("max_pixels", plan.MaxPixels)
	v.SetDefault("video", plan.Video)
}

func LoadPlan(v *viper.Viper) (Plan, error) {
	var plan Plan
	if err := v.Unmarshal(&plan); err != nil {
		return Plan{}, errors.Wrap(err, "failed to decode analysis plan")
	}
	return plan, plan.Validate()
}

func (p Plan) Validate() error {
	if p.Region == "" {
		return errors.New("region is required")
	}
	if len(p.Years) == 0 {
		return errors.New("at least one year is required")
	}
	if len(p.Periods) == 0 {
		return errors.New("at least one period is required")
	}
	labels := map[string]bool{}
	for _, period := range p.Periods {
		if period.Label == "" {
			return errors.Errorf("period %s..%s has no label", period.Start, period.End)
		}
		if labels[period.Label] {
			return errors.Errorf("duplicate period label %s", period.Label)
		}
		labels[period.Label] = true
		if _, _, err := period.Range(p.Years[0]); err != nil {
			return err
		}
	}
	if p.Scale <= 0 {
		return errors.Errorf("scale must be positive, got %v", p.Scale)
	}
	if p.MaxPixels <= 0 {
		return errors.Errorf("max_pixels must be positive, got %d", p.MaxPixels)
	}
	return nil
}
