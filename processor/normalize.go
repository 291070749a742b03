// Package processor turns raw source records into one consistent,
// chronologically ordered time series: it normalizes partially populated
// records, reconciles cumulative totals against day-over-day deltas, and
// derives the trailing 7-day incidence per 100,000 population.
package processor

import (
	"errors"
	"fmt"
	"time"

	"epiflow/logger"
	"epiflow/models"
)

// Normalize converts one raw source record into a fully populated Record.
// The date is resolved from the textual day field first, falling back to
// the epoch-millisecond stamp; a record with neither fails with
// models.ErrMissingDate. Absent numeric fields resolve to zero. No range
// validation happens here.
func Normalize(raw models.RawRecord) (models.Record, error) {
	date, ok := resolveDate(raw)
	if !ok {
		return models.Record{}, fmt.Errorf("record %d: %w", raw.ObjectID, models.ErrMissingDate)
	}

	return models.Record{
		ObjectID:      raw.ObjectID,
		Date:          date,
		Show:          bool(raw.Show),
		FeedIncidence: f64(raw.Incidence),
		Cases: models.CaseMetrics{
			Total:    u32(raw.RawCases.Total),
			Increase: u32(raw.RawCases.Increase),
			Reported: u32(raw.RawCases.Reported),
		},
		Deaths: models.Metrics{
			Total:    u32(raw.RawDeaths.Total),
			Increase: u32(raw.RawDeaths.Increase),
		},
		Recoveries: models.Metrics{
			Total:    u32(raw.RawRecoveries.Total),
			Increase: u32(raw.RawRecoveries.Increase),
		},
		Hospitalisations: models.HospitalMetrics{
			Total:     u32(raw.RawHospitalisations.Total),
			Increase:  u32(raw.RawHospitalisations.Increase),
			BedsInUse: u32(raw.RawHospitalisations.BedsInUse),
		},
	}, nil
}

// NormalizeAll maps Normalize over a batch, preserving order. Records
// without a date are dropped (the feed's period-summary rows have none);
// any other failure aborts the batch.
func NormalizeAll(raws []models.RawRecord) ([]models.Record, error) {
	log := logger.GetLogger().WithComponent("normalizer")

	records := make([]models.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			if errors.Is(err, models.ErrMissingDate) {
				log.WithFields(logger.Fields{"object_id": raw.ObjectID}).Debug("dropping record without date")
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func resolveDate(raw models.RawRecord) (time.Time, bool) {
	if raw.Day != nil {
		return raw.Day.Time, true
	}
	if raw.Stamp != nil {
		return raw.Stamp.Time, true
	}
	return time.Time{}, false
}

func u32(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}

func f64(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
