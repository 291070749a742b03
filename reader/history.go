package reader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"epiflow/logger"
	"epiflow/models"
)

// historyDateFormat is the date layout of the bulk export's first column.
const historyDateFormat = "2006-01-02"

// Column indices of the historical bulk export. The export always
// supplies cumulative totals; cases additionally carry the per-day
// reported count but no increase.
const (
	colDate               = 0
	colCasesReported      = 4
	colCasesTotal         = 5
	colHospitalIncrease   = 6
	colHospitalTotal      = 7
	colDeathsIncrease     = 8
	colDeathsTotal        = 9
	colRecoveriesIncrease = 10
	colRecoveriesTotal    = 11
)

// FetchHistory downloads the historical bulk CSV export and returns its
// rows as raw records, oldest first. Any unparseable date or numeric
// field fails the whole fetch with models.ErrMalformedField in the
// chain: skipping a row would corrupt every running total behind it.
func (c *Client) FetchHistory(ctx context.Context) ([]models.RawRecord, error) {
	log := c.log.WithComponent("history_reader")
	log.Debug("reading bulk export from data portal")

	body, err := c.get(ctx, c.config.Source.HistoryURL)
	if err != nil {
		return nil, err
	}

	rdr := csv.NewReader(bytes.NewReader(body))
	rdr.Comma = ';'
	rdr.FieldsPerRecord = -1

	rows, err := rdr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("history csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("history csv: empty document")
	}

	records := make([]models.RawRecord, 0, len(rows)-1)
	for i, row := range rows[1:] { // skip header
		rec, err := historyRecord(uint32(i+1), row)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	log.WithFields(logger.Fields{"records": len(records)}).Debug("bulk export parsed")
	return records, nil
}

func historyRecord(objectID uint32, row []string) (models.RawRecord, error) {
	if len(row) <= colRecoveriesTotal {
		return models.RawRecord{}, fmt.Errorf("expected %d columns, got %d: %w",
			colRecoveriesTotal+1, len(row), models.ErrMalformedField)
	}

	date, err := time.ParseInLocation(historyDateFormat, row[colDate], time.UTC)
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("date %q: %w", row[colDate], models.ErrMalformedField)
	}

	fields := make([]*uint32, len(row))
	for _, col := range []int{
		colCasesReported, colCasesTotal,
		colHospitalIncrease, colHospitalTotal,
		colDeathsIncrease, colDeathsTotal,
		colRecoveriesIncrease, colRecoveriesTotal,
	} {
		n, err := strconv.ParseUint(row[col], 10, 32)
		if err != nil {
			return models.RawRecord{}, fmt.Errorf("column %d %q: %w", col, row[col], models.ErrMalformedField)
		}
		v := uint32(n)
		fields[col] = &v
	}

	return models.RawRecord{
		ObjectID: objectID,
		RawDates: models.RawDates{Day: &models.Day{Time: date}},
		RawCases: models.RawCases{
			Total:    fields[colCasesTotal],
			Reported: fields[colCasesReported],
		},
		RawDeaths: models.RawDeaths{
			Total:    fields[colDeathsTotal],
			Increase: fields[colDeathsIncrease],
		},
		RawRecoveries: models.RawRecoveries{
			Total:    fields[colRecoveriesTotal],
			Increase: fields[colRecoveriesIncrease],
		},
		RawHospitalisations: models.RawHospitalisations{
			Total:    fields[colHospitalTotal],
			Increase: fields[colHospitalIncrease],
		},
	}, nil
}
