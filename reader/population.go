package reader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"epiflow/logger"
	"epiflow/models"
)

// FetchPopulation downloads the per-district population CSV and returns
// the city-wide total: the sum of the last column of every data row.
func (c *Client) FetchPopulation(ctx context.Context) (uint32, error) {
	log := c.log.WithComponent("population_reader")
	log.Debug("reading population info")

	body, err := c.get(ctx, c.config.Source.PopulationURL)
	if err != nil {
		return 0, err
	}

	rdr := csv.NewReader(bytes.NewReader(body))
	rdr.Comma = ';'
	rdr.FieldsPerRecord = -1

	rows, err := rdr.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("population csv: %w", err)
	}
	if len(rows) < 2 {
		return 0, fmt.Errorf("population csv: no data rows")
	}

	var total uint32
	for i, row := range rows[1:] { // skip header
		if len(row) == 0 {
			return 0, fmt.Errorf("population row %d: empty line: %w", i+1, models.ErrMalformedField)
		}
		field := strings.TrimSpace(row[len(row)-1])
		n, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("population row %d: %q: %w", i+1, field, models.ErrMalformedField)
		}
		total += uint32(n)
	}

	log.WithFields(logger.Fields{"population": total, "districts": len(rows) - 1}).Debug("population summed")
	return total, nil
}
