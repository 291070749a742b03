package models

import "errors"

// Sentinel errors for the ingestion pipeline. Raise sites wrap them with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is while
// still seeing where the failure came from.
var (
	// ErrMissingDate marks a record that carries no usable date. Such
	// records cannot participate in the time series and are dropped by
	// the normalizer batch path.
	ErrMissingDate = errors.New("record has no usable date")

	// ErrMalformedField marks a numeric or date field whose upstream text
	// representation could not be parsed. Fatal for the whole fetch: a
	// silently skipped record would corrupt every subsequent running total.
	ErrMalformedField = errors.New("malformed field")

	// ErrInvalidPopulation marks a non-positive (or NaN) population
	// denominator handed to the reconciliation pass.
	ErrInvalidPopulation = errors.New("population must be a positive number")
)
