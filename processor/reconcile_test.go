package processor

import (
	"math"
	"reflect"
	"testing"
	"time"

	"epiflow/models"
)

// day returns midnight UTC n days after an arbitrary fixed start date.
func day(n int) time.Time {
	return time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func caseRecord(n int, reported, total uint32) models.Record {
	return models.Record{
		ObjectID: uint32(n + 1),
		Date:     day(n),
		Cases:    models.CaseMetrics{Total: total, Reported: reported},
	}
}

func TestReconcileLengthAndOrderPreserved(t *testing.T) {
	records := make([]models.Record, 20)
	for i := range records {
		records[i] = caseRecord(i, uint32(i), uint32(10*(i+1)))
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(points) != len(records) {
		t.Fatalf("expected %d points, got %d", len(records), len(points))
	}
	for i, p := range points {
		if !p.Date.Equal(records[i].Date) {
			t.Errorf("point %d: date %v, want %v", i, p.Date, records[i].Date)
		}
	}
}

func TestReconcileIncidenceLagsOneDay(t *testing.T) {
	// Window before record 2 holds only record 1's reported count, so its
	// incidence is 10*100000/100000 = 10; record 1 sees an empty window.
	records := []models.Record{
		caseRecord(0, 10, 10),
		caseRecord(1, 20, 35),
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if points[0].Incidence != 0 {
		t.Errorf("first incidence: got %v, want 0", points[0].Incidence)
	}
	if points[0].Cases.Increase != 10 || points[0].Cases.Total != 10 {
		t.Errorf("first cases: got %+v", points[0].Cases)
	}
	if points[1].Incidence != 10 {
		t.Errorf("second incidence: got %v, want 10", points[1].Incidence)
	}
	if points[1].Cases.Increase != 25 || points[1].Cases.Total != 35 {
		t.Errorf("second cases: got %+v", points[1].Cases)
	}
}

func TestReconcileTotalAndDeltaDrivenMix(t *testing.T) {
	// Deaths alternate between an authoritative total and delta-only
	// records; the running totals must come out as 5, 7, 10.
	records := []models.Record{
		{Date: day(0), Deaths: models.Metrics{Total: 5}},
		{Date: day(1), Deaths: models.Metrics{Increase: 2}},
		{Date: day(2), Deaths: models.Metrics{Increase: 3}},
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	wantTotals := []uint32{5, 7, 10}
	wantIncreases := []uint32{5, 2, 3}
	for i, p := range points {
		if p.Deaths.Total != wantTotals[i] {
			t.Errorf("point %d: deaths total %d, want %d", i, p.Deaths.Total, wantTotals[i])
		}
		if p.Deaths.Increase != wantIncreases[i] {
			t.Errorf("point %d: deaths increase %d, want %d", i, p.Deaths.Increase, wantIncreases[i])
		}
	}
}

func TestReconcilePairConsistency(t *testing.T) {
	records := []models.Record{
		{Date: day(0), Recoveries: models.Metrics{Total: 12}},
		{Date: day(1), Recoveries: models.Metrics{Total: 30}},
		{Date: day(2), Recoveries: models.Metrics{Increase: 7}},
		{Date: day(3), Recoveries: models.Metrics{Total: 41}},
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	var prev uint32
	for i, p := range points {
		if p.Recoveries.Total != prev+p.Recoveries.Increase {
			t.Errorf("point %d: total %d != previous %d + increase %d",
				i, p.Recoveries.Total, prev, p.Recoveries.Increase)
		}
		prev = p.Recoveries.Total
	}
}

func TestReconcileDecreasingTotalClampsIncrease(t *testing.T) {
	// An upstream correction lowers the cumulative total. The increase
	// must clamp at zero and the counter must reset downward.
	records := []models.Record{
		{Date: day(0), Cases: models.CaseMetrics{Total: 100}},
		{Date: day(1), Cases: models.CaseMetrics{Total: 90}},
		{Date: day(2), Cases: models.CaseMetrics{Total: 95}},
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if points[1].Cases.Increase != 0 {
		t.Errorf("corrected point: increase %d, want 0", points[1].Cases.Increase)
	}
	if points[1].Cases.Total != 90 {
		t.Errorf("corrected point: total %d, want 90", points[1].Cases.Total)
	}
	if points[2].Cases.Increase != 5 {
		t.Errorf("post-correction increase: got %d, want 5 (counter reset to 90)", points[2].Cases.Increase)
	}
}

func TestReconcileWindowZeroPadded(t *testing.T) {
	// Fewer than 7 prior records: missing slots read as zero, so the
	// incidence is the plain sum of what has been seen.
	records := make([]models.Record, 5)
	for i := range records {
		records[i] = caseRecord(i, 10, uint32(10*(i+1)))
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	for i, p := range points {
		want := float64(10 * i)
		if p.Incidence != want {
			t.Errorf("point %d: incidence %v, want %v", i, p.Incidence, want)
		}
	}
}

func TestReconcileWindowDropsOldest(t *testing.T) {
	records := make([]models.Record, 10)
	for i := range records {
		records[i] = caseRecord(i, 10, uint32(10*(i+1)))
	}

	points, err := Reconcile(records, 100_000, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	// From record 8 on, the window holds exactly 7 values of 10.
	for i := 7; i < len(points); i++ {
		if points[i].Incidence != 70 {
			t.Errorf("point %d: incidence %v, want 70", i, points[i].Incidence)
		}
	}
}

func TestReconcileInvalidPopulation(t *testing.T) {
	records := []models.Record{caseRecord(0, 1, 1)}
	for _, population := range []float64{0, -5, math.NaN()} {
		if _, err := Reconcile(records, population, nil); err == nil {
			t.Errorf("population %v: expected error", population)
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	records := []models.Record{
		caseRecord(0, 10, 10),
		caseRecord(1, 20, 35),
		{Date: day(2), Deaths: models.Metrics{Increase: 2}},
	}
	seed := &State{Cases: 5, Window: [WindowSize]uint32{0, 0, 0, 0, 0, 1, 2}}

	first, err := Reconcile(records, 550_000, seed)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := Reconcile(records, 550_000, seed)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-running on the same seed and input produced different output")
	}
}

func TestStateFromSeriesContinuation(t *testing.T) {
	// A pass resumed from the tail of a previous pass must equal the
	// single full pass over the whole input.
	records := make([]models.Record, 15)
	for i := range records {
		records[i] = models.Record{
			Date: day(i),
			Cases: models.CaseMetrics{
				Total:    uint32(17 * (i + 1)),
				Reported: uint32(3 * i),
			},
			Deaths: models.Metrics{Increase: uint32(i % 2)},
		}
	}

	full, err := Reconcile(records, 550_000, nil)
	if err != nil {
		t.Fatalf("full pass: %v", err)
	}

	for _, split := range []int{1, 5, 9, 14} {
		head, err := Reconcile(records[:split], 550_000, nil)
		if err != nil {
			t.Fatalf("split %d head: %v", split, err)
		}
		tail, err := Reconcile(records[split:], 550_000, StateFromSeries(head))
		if err != nil {
			t.Fatalf("split %d tail: %v", split, err)
		}
		combined := append(append([]models.DataPoint{}, head...), tail...)
		if !reflect.DeepEqual(full, combined) {
			t.Errorf("split %d: resumed pass diverged from full pass", split)
		}
	}
}

func TestStateFromSeriesEmpty(t *testing.T) {
	st := StateFromSeries(nil)
	if *st != (State{}) {
		t.Errorf("expected zero state, got %+v", st)
	}
}

func TestMergeByDate(t *testing.T) {
	hist := []models.Record{
		caseRecord(0, 1, 10),
		caseRecord(1, 2, 20),
		caseRecord(2, 3, 30),
	}
	incr := []models.Record{
		{Date: day(2), Cases: models.CaseMetrics{Total: 33, Reported: 4}},
		{Date: day(3), Cases: models.CaseMetrics{Total: 40, Reported: 5}},
	}

	merged := MergeByDate(hist, incr)
	if len(merged) != 4 {
		t.Fatalf("expected 4 records, got %d", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if !merged[i-1].Date.Before(merged[i].Date) {
			t.Errorf("merged output not strictly ascending at %d", i)
		}
	}
	// On the collision at day 2 the incremental record wins.
	if merged[2].Cases.Total != 33 {
		t.Errorf("collision: got total %d, want the incremental record's 33", merged[2].Cases.Total)
	}
}

func TestMergeByDateEmptyInputs(t *testing.T) {
	hist := []models.Record{caseRecord(0, 1, 10)}
	if got := MergeByDate(hist, nil); len(got) != 1 {
		t.Errorf("nil incremental: got %d records", len(got))
	}
	if got := MergeByDate(nil, hist); len(got) != 1 {
		t.Errorf("nil history: got %d records", len(got))
	}
	if got := MergeByDate(nil, nil); len(got) != 0 {
		t.Errorf("both nil: got %d records", len(got))
	}
}

func TestActiveCases(t *testing.T) {
	cases := []struct {
		name                      string
		total, deaths, recoveries uint32
		want                      uint32
	}{
		{"typical", 100, 10, 60, 30},
		{"all resolved", 100, 40, 60, 0},
		{"overshoot clamps", 100, 50, 60, 0},
		{"nothing resolved", 42, 0, 0, 42},
	}
	for _, c := range cases {
		p := models.DataPoint{Record: models.Record{
			Cases:      models.CaseMetrics{Total: c.total},
			Deaths:     models.Metrics{Total: c.deaths},
			Recoveries: models.Metrics{Total: c.recoveries},
		}}
		if got := ActiveCases(p); got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, got, c.want)
		}
	}
}
