package models

import "time"

// CaseMetrics is the normalized case group of one record.
type CaseMetrics struct {
	Total    uint32 `json:"total"`
	Increase uint32 `json:"increase"`
	Reported uint32 `json:"reported"`
}

// Metrics is the normalized total/increase pair used by the deaths and
// recoveries groups.
type Metrics struct {
	Total    uint32 `json:"total"`
	Increase uint32 `json:"increase"`
}

// HospitalMetrics is the normalized hospitalisations group.
type HospitalMetrics struct {
	Total     uint32 `json:"total"`
	Increase  uint32 `json:"increase"`
	BedsInUse uint32 `json:"beds_in_use"`
}

// Record is a fully populated input record: the date is required and every
// numeric field is concrete (absent upstream values resolved to zero).
// Records are treated as immutable once built.
type Record struct {
	ObjectID uint32    `json:"object_id"`
	Date     time.Time `json:"date"`
	Show     bool      `json:"show"`

	// FeedIncidence is the upstream's own incidence value, kept for
	// comparison only. The engine computes its own.
	FeedIncidence float64 `json:"feed_incidence"`

	Cases            CaseMetrics     `json:"cases"`
	Deaths           Metrics         `json:"deaths"`
	Recoveries       Metrics         `json:"recoveries"`
	Hospitalisations HospitalMetrics `json:"hospitalisations"`
}

// DataPoint is the finalized, externally consumed unit: a Record whose
// total/increase pairs are mutually consistent with the running state,
// plus the computed trailing 7-day incidence.
type DataPoint struct {
	Record
	Incidence float64 `json:"incidence"`
}

// CachedSeries is the on-disk cache document.
type CachedSeries struct {
	SnapshotID string      `json:"snapshot_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Points     []DataPoint `json:"points"`
}
