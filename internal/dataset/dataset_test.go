package dataset

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/stats"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(label string, mean float64) *stats.Statistics {
	return &stats.Statistics{
		Label:  label,
		Pixels: 10,
		Bands: map[string]stats.BandSummary{
			"NDSI": {Mean: mean, Median: 0.1, StdDev: 0.05, Min: -0.2, Max: 0.4, Valid: 8},
		},
	}
}

func TestNewStatisticsRows(t *testing.T) {
	rows := NewStatisticsRows("westcoast", 2018, "Jan-Feb", report("NDSI 2018 Jan-Feb - Statistics", 0.12))
	require.Len(t, rows, 1)
	assert.Equal(t, "westcoast", rows[0].Region)
	assert.Equal(t, 2018, rows[0].Year)
	assert.Equal(t, "Jan-Feb", rows[0].Period)
	assert.Equal(t, "NDSI", rows[0].Band)
	assert.Equal(t, 10, rows[0].Pixels)
	assert.Equal(t, 8, rows[0].Valid)
	assert.Equal(t, 0.12, rows[0].Mean)
	assert.False(t, rows[0].CreatedAt.IsZero())
}

func TestCSVSinkMergesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "westcoast", "statistics.csv")
	sink := NewCSVSink(path)
	ctx := context.Background()

	require.NoError(t, sink.Write(ctx, NewStatisticsRows("westcoast", 2018, "Jan-Feb", report("a", 0.1))))
	require.NoError(t, sink.Write(ctx, NewStatisticsRows("westcoast", 2018, "May-Jun", report("b", math.NaN()))))
	require.NoError(t, sink.Write(ctx, NewStatisticsRows("westcoast", 2018, "Jan-Feb", report("a", 0.3))))

	rows, err := LoadStatistics(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jan-Feb", rows[0].Period)
	assert.Equal(t, 0.3, rows[0].Mean)
	assert.Equal(t, "May-Jun", rows[1].Period)
	assert.True(t, math.IsNaN(rows[1].Mean))
	assert.Equal(t, 0.4, rows[1].Max)
}

func TestLoadStatisticsMissingFile(t *testing.T) {
	rows, err := LoadStatistics(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

type failingSink struct{ calls int }

func (s *failingSink) Write(context.Context, []StatisticsRow) error {
	s.calls++
	return errors.New("unavailable")
}

func (s *failingSink) Close() error { return nil }

func TestWriteAllStopsAtFirstError(t *testing.T) {
	first, second := &failingSink{}, &failingSink{}
	err := WriteAll(context.Background(), []StatisticsRow{{Band: "NDSI"}}, first, second)
	assert.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestNullFloat(t *testing.T) {
	assert.False(t, nullFloat(math.NaN()).Valid)
	assert.Equal(t, 0.5, nullFloat(0.5).Float64)
	assert.True(t, toPostgresRow(StatisticsRow{Mean: 1, Max: math.NaN()}).Mean.Valid)
	assert.False(t, toPostgresRow(StatisticsRow{Mean: 1, Max: math.NaN()}).Max.Valid)
}
