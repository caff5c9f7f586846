package fetcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/speedy-finance/bulkdeals/internal/models"
	"github.com/speedy-finance/bulkdeals/internal/normalize"
)

// CSVFile loads deals from a historical CSV export for backfills. The
// exchanges revised their column headers over the years, so rows go through
// the same alias-based normalization as the live sources.
type CSVFile struct {
	path string
}

// NewCSVFile creates a fetcher over one CSV file.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Name implements Fetcher.
func (f *CSVFile) Name() string { return "historical-csv" }

// Fetch implements Fetcher. The date argument filters rows when non-empty;
// pass "" to load the whole file.
func (f *CSVFile) Fetch(ctx context.Context, date string) ([]models.Deal, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", f.path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var deals []models.Deal
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		d := normalize.Record(row, normalize.HistoricalCSVSource)
		if date != "" && d.Date != date {
			continue
		}
		deals = append(deals, d)
	}

	return deals, nil
}
