package dataset

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const statisticsSchema = `
CREATE TABLE IF NOT EXISTS ndsi_statistics (
	region     TEXT             NOT NULL,
	year       INTEGER          NOT NULL,
	period     TEXT             NOT NULL,
	label      TEXT             NOT NULL,
	band       TEXT             NOT NULL,
	pixels     INTEGER          NOT NULL,
	valid      INTEGER          NOT NULL,
	mean       DOUBLE PRECISION,
	median     DOUBLE PRECISION,
	std_dev    DOUBLE PRECISION,
	min        DOUBLE PRECISION,
	max        DOUBLE PRECISION,
	created_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	PRIMARY KEY (region, year, period, band)
);`

const upsertStatistics = `
INSERT INTO ndsi_statistics (region, year, period, label, band, pixels, valid, mean, median, std_dev, min, max, created_at)
VALUES (:region, :year, :period, :label, :band, :pixels, :valid, :mean, :median, :std_dev, :min, :max, :created_at)
ON CONFLICT (region, year, period, band) DO UPDATE SET
	label = EXCLUDED.label,
	pixels = EXCLUDED.pixels,
	valid = EXCLUDED.valid,
	mean = EXCLUDED.mean,
	median = EXCLUDED.median,
	std_dev = EXCLUDED.std_dev,
	min = EXCLUDED.min,
	max = EXCLUDED.max,
	created_at = EXCLUDED.created_at`

// PostgresSink upserts statistics rows into ndsi_statistics.
type PostgresSink struct {
	db *sqlx.DB
}

func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: connect")
	}
	if _, err := db.ExecContext(ctx, statisticsSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "postgres: migrate")
	}
	return &PostgresSink{db: db}, nil
}

// postgresRow carries NaN summaries as NULL.
type postgresRow struct {
	Region    string          `db:"region"`
	Year      int             `db:"year"`
	Period    string          `db:"period"`
	Label     string          `db:"label"`
	Band      string          `db:"band"`
	Pixels    int             `db:"pixels"`
	Valid     int             `db:"valid"`
	Mean      sql.NullFloat64 `db:"mean"`
	Median    sql.NullFloat64 `db:"median"`
	StdDev    sql.NullFloat64 `db:"std_dev"`
	Min       sql.NullFloat64 `db:"min"`
	Max       sql.NullFloat64 `db:"max"`
	CreatedAt time.Time       `db:"created_at"`
}

func toPostgresRow(row StatisticsRow) postgresRow {
	return postgresRow{
		Region:    row.Region,
		Year:      row.Year,
		Period:    row.Period,
		Label:     row.Label,
		Band:      row.Band,
		Pixels:    row.Pixels,
		Valid:     row.Valid,
		Mean:      nullFloat(row.Mean),
		Median:    nullFloat(row.Median),
		StdDev:    nullFloat(row.StdDev),
		Min:       nullFloat(row.Min),
		Max:       nullFloat(row.Max),
		CreatedAt: row.CreatedAt,
	}
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (s *PostgresSink) Write(ctx context.Context, rows []StatisticsRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "postgres: begin")
	}
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertStatistics, toPostgresRow(row)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "postgres: upsert %s %d %s %s", row.Region, row.Year, row.Period, row.Band)
		}
	}
	return errors.Wrap(tx.Commit(), "postgres: commit")
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
