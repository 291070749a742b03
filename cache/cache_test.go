package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"epiflow/config"
	"epiflow/models"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func samplePoints() []models.DataPoint {
	return []models.DataPoint{
		{
			Record: models.Record{
				ObjectID: 1,
				Date:     time.Date(2020, time.March, 24, 0, 0, 0, 0, time.UTC),
				Cases:    models.CaseMetrics{Total: 190, Increase: 23, Reported: 17},
				Deaths:   models.Metrics{Total: 1, Increase: 1},
			},
			Incidence: 14.2,
		},
	}
}

func TestLoadAbsentCache(t *testing.T) {
	c := testCache(t)
	series, err := c.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if series != nil {
		t.Errorf("expected nil series for absent cache, got %+v", series)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	c := testCache(t)
	points := samplePoints()

	before := time.Now().UTC()
	if err := c.Store(points); err != nil {
		t.Fatalf("store: %v", err)
	}

	series, err := c.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if series == nil {
		t.Fatal("expected a cached series")
	}
	if series.SnapshotID == "" {
		t.Error("snapshot id not stamped")
	}
	if series.CreatedAt.Before(before.Add(-time.Second)) || series.CreatedAt.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("created_at not stamped around now: %v", series.CreatedAt)
	}
	if len(series.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(series.Points))
	}
	got := series.Points[0]
	if got.Cases != points[0].Cases || got.Incidence != points[0].Incidence {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Date.Equal(points[0].Date) {
		t.Errorf("date mismatch: %v", got.Date)
	}
}

func TestStoreReplacesSnapshot(t *testing.T) {
	c := testCache(t)
	if err := c.Store(samplePoints()); err != nil {
		t.Fatalf("first store: %v", err)
	}
	first, err := c.Load()
	if err != nil || first == nil {
		t.Fatalf("first load: %v", err)
	}
	if err := c.Store(samplePoints()); err != nil {
		t.Fatalf("second store: %v", err)
	}
	second, err := c.Load()
	if err != nil || second == nil {
		t.Fatalf("second load: %v", err)
	}
	if first.SnapshotID == second.SnapshotID {
		t.Error("expected a fresh snapshot id per store")
	}
}

func TestLoadCorruptCacheDegrades(t *testing.T) {
	c := testCache(t)
	if err := os.MkdirAll(filepath.Dir(c.Path()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(c.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	series, err := c.Load()
	if err != nil {
		t.Fatalf("corrupt cache should not be an error, got %v", err)
	}
	if series != nil {
		t.Errorf("corrupt cache should load as nil, got %+v", series)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	c := testCache(t)
	if err := c.Remove(); err != nil {
		t.Fatalf("remove absent cache: %v", err)
	}
	if err := c.Store(samplePoints()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := c.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(c.Path()); !os.IsNotExist(err) {
		t.Error("cache file still present after remove")
	}
	if err := c.Remove(); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}
