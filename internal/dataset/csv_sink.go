package dataset

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// CSVSink keeps every statistics row of a region in one CSV file.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Path() string {
	return s.path
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// LoadStatistics reads the rows saved at path. A missing file has no rows.
func LoadStatistics(path string) ([]StatisticsRow, error) {
	if !fileExists(path) {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open statistics file")
	}
	defer file.Close()

	var rows []StatisticsRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to read statistics file")
	}
	return rows, nil
}

func (s *CSVSink) Write(ctx context.Context, rows []StatisticsRow) error {
	if len(rows) == 0 {
		return nil
	}

	existing, err := LoadStatistics(s.path)
	if err != nil {
		return err
	}
	merged := mergeRows(existing, rows)

	if err := os.MkdirAll(filepath.Dir(s.path), os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create statistics folder")
	}
	file, err := os.Create(s.path)
	if err != nil {
		return errors.Wrap(err, "failed to create statistics file")
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&merged, file); err != nil {
		return errors.Wrap(err, "failed to save statistics to file")
	}
	return nil
}

func (s *CSVSink) Close() error {
	return nil
}

// mergeRows keeps the order of existing rows, replacing those with a newer
// version and appending the rest.
func mergeRows(existing, rows []StatisticsRow) []StatisticsRow {
	index := map[[4]interface{}]int{}
	merged := make([]StatisticsRow, 0, len(existing)+len(rows))
	for _, row := range append(existing, rows...) {
		if i, ok := index[row.key()]; ok {
			merged[i] = row
			continue
		}
		index[row.key()] = len(merged)
		merged = append(merged, row)
	}
	return merged
}
