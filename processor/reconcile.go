package processor

import (
	"fmt"
	"math"

	"epiflow/models"
)

// WindowSize is the number of trailing daily reported-case counts that
// feed the incidence computation.
const WindowSize = 7

// State is the accumulator of one reconciliation pass: a running
// cumulative counter per metric group and the window of the most recent
// reported-case counts, newest at the highest index. The zero value is
// the correct start for a full pass over a complete series.
type State struct {
	Cases            uint32
	Deaths           uint32
	Recoveries       uint32
	Hospitalisations uint32
	Window           [WindowSize]uint32
}

// Reconcile walks an ascending-date sequence of normalized records in a
// single left-to-right pass and produces the same-length sequence of
// finalized data points. The caller guarantees the ordering and has
// already deduplicated overlapping dates (see MergeByDate).
//
// Per record, in this order: the incidence is computed from the window
// BEFORE the record's own reported count is admitted (a lagging
// indicator), the window advances, and then each metric group is settled
// against its running counter. A nonzero total is authoritative and
// yields the increase; a zero total means the source reported only the
// delta, which yields the total. A total below the running counter (an
// upstream correction) clamps the increase at zero rather than going
// negative; the counter still resets downward.
//
// A nil seed starts from zero state. A non-nil seed is copied, so
// re-running with the same inputs yields identical output.
func Reconcile(records []models.Record, population float64, seed *State) ([]models.DataPoint, error) {
	if math.IsNaN(population) || population <= 0 {
		return nil, fmt.Errorf("%w, got %v", models.ErrInvalidPopulation, population)
	}

	var st State
	if seed != nil {
		st = *seed
	}

	points := make([]models.DataPoint, 0, len(records))
	for _, rec := range records {
		var sum uint64
		for _, v := range st.Window {
			sum += uint64(v)
		}
		incidence := float64(sum) * 100_000 / population

		copy(st.Window[:], st.Window[1:])
		st.Window[WindowSize-1] = rec.Cases.Reported

		rec.Cases.Total, rec.Cases.Increase = settle(rec.Cases.Total, rec.Cases.Increase, &st.Cases)
		rec.Deaths.Total, rec.Deaths.Increase = settle(rec.Deaths.Total, rec.Deaths.Increase, &st.Deaths)
		rec.Recoveries.Total, rec.Recoveries.Increase = settle(rec.Recoveries.Total, rec.Recoveries.Increase, &st.Recoveries)
		rec.Hospitalisations.Total, rec.Hospitalisations.Increase = settle(rec.Hospitalisations.Total, rec.Hospitalisations.Increase, &st.Hospitalisations)

		points = append(points, models.DataPoint{Record: rec, Incidence: incidence})
	}
	return points, nil
}

// settle resolves one total/increase pair against its running counter and
// returns the pair with both sides populated.
func settle(total, increase uint32, counter *uint32) (uint32, uint32) {
	if total != 0 {
		if total >= *counter {
			increase = total - *counter
		} else {
			increase = 0
		}
		*counter = total
		return total, increase
	}
	total = *counter + increase
	*counter = total
	return total, increase
}

// StateFromSeries rebuilds the accumulator from the tail of previously
// finalized output, so an incremental pass can continue where the cached
// series ends: counters from the last point's totals, window from the
// last seven reported counts (zero-padded at the front when fewer exist).
func StateFromSeries(points []models.DataPoint) *State {
	st := &State{}
	if len(points) == 0 {
		return st
	}

	last := points[len(points)-1]
	st.Cases = last.Cases.Total
	st.Deaths = last.Deaths.Total
	st.Recoveries = last.Recoveries.Total
	st.Hospitalisations = last.Hospitalisations.Total

	start := len(points) - WindowSize
	if start < 0 {
		start = 0
	}
	tail := points[start:]
	for i, p := range tail {
		st.Window[WindowSize-len(tail)+i] = p.Cases.Reported
	}
	return st
}

// MergeByDate concatenates the historical and incremental sequences into
// one ascending-date sequence. Both inputs must already be sorted by
// date. On a date collision the incremental record wins: the feed is
// fresher than the bulk export, which lags behind it.
func MergeByDate(hist, incr []models.Record) []models.Record {
	merged := make([]models.Record, 0, len(hist)+len(incr))
	i, j := 0, 0
	for i < len(hist) && j < len(incr) {
		switch {
		case hist[i].Date.Before(incr[j].Date):
			merged = append(merged, hist[i])
			i++
		case incr[j].Date.Before(hist[i].Date):
			merged = append(merged, incr[j])
			j++
		default:
			merged = append(merged, incr[j])
			i++
			j++
		}
	}
	merged = append(merged, hist[i:]...)
	merged = append(merged, incr[j:]...)
	return merged
}

// ActiveCases derives the currently active case count of one finalized
// point: cumulative cases minus deaths and recoveries, clamped at zero.
// Purely presentational; no running state involved.
func ActiveCases(p models.DataPoint) uint32 {
	resolved := p.Deaths.Total + p.Recoveries.Total
	if p.Cases.Total <= resolved {
		return 0
	}
	return p.Cases.Total - resolved
}
