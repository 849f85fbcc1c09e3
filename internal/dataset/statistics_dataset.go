package dataset

import (
	"context"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/stats"
)

// StatisticsRow is one band summary of one composite.
type StatisticsRow struct {
	Region    string    `csv:"region" db:"region"`
	Year      int       `csv:"year" db:"year"`
	Period    string    `csv:"period" db:"period"`
	Label     string    `csv:"label" db:"label"`
	Band      string    `csv:"band" db:"band"`
	Pixels    int       `csv:"pixels" db:"pixels"`
	Valid     int       `csv:"valid" db:"valid"`
	Mean      float64   `csv:"mean" db:"mean"`
	Median    float64   `csv:"median" db:"median"`
	StdDev    float64   `csv:"std_dev" db:"std_dev"`
	Min       float64   `csv:"min" db:"min"`
	Max       float64   `csv:"max" db:"max"`
	CreatedAt time.Time `csv:"created_at" db:"created_at"`
}

func (r StatisticsRow) key() [4]interface{} {
	return [4]interface{}{r.Region, r.Year, r.Period, r.Band}
}

// Sink persists statistics rows. Rows of the same region, year, period and
// band replace earlier ones.
type Sink interface {
	Write(ctx context.Context, rows []StatisticsRow) error
	Close() error
}

func NewStatisticsRows(region string, year int, period string, statistics *stats.Statistics) []StatisticsRow {
	now := time.Now().UTC()
	rows := make([]StatisticsRow, 0, len(statistics.Bands))
	for _, band := range statistics.BandNames() {
		summary := statistics.Bands[band]
		rows = append(rows, StatisticsRow{
			Region:    region,
			Year:      year,
			Period:    period,
			Label:     statistics.Label,
			Band:      band,
			Pixels:    statistics.Pixels,
			Valid:     summary.Valid,
			Mean:      summary.Mean,
			Median:    summary.Median,
			StdDev:    summary.StdDev,
			Min:       summary.Min,
			Max:       summary.Max,
			CreatedAt: now,
		})
	}
	return rows
}

// WriteAll writes the rows to every sink and returns the first error.
func WriteAll(ctx context.Context, rows []StatisticsRow, sinks ...Sink) error {
	for _, sink := range sinks {
		if err := sink.Write(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
