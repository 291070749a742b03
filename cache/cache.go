// Package cache persists the finalized series as a pretty-printed JSON
// document on disk. Concurrent processes are guarded by advisory file
// locks: shared for reads, exclusive for writes, never blocking. The
// cache is an optimization, not a source of truth, so lock contention,
// permission problems and corrupt content all degrade to "no cache"
// with a warning instead of failing the run. Staleness is the caller's
// decision; this package only stamps the snapshot.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"epiflow/config"
	"epiflow/logger"
	"epiflow/models"
)

const cacheFile = "cached_data.json"

// Cache is a handle on the on-disk snapshot location.
type Cache struct {
	path string
	log  *logger.Log
}

// New resolves the cache file location from the configuration, falling
// back to the user cache directory.
func New(cfg *config.Config) (*Cache, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user cache dir: %w", err)
		}
		dir = filepath.Join(base, "epiflow")
	}
	return &Cache{
		path: filepath.Join(dir, cacheFile),
		log:  logger.GetLogger(),
	}, nil
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Load reads the cached series. A missing cache returns (nil, nil); lock
// contention, permission problems and unparseable content degrade the
// same way after a warning. Only unexpected I/O failures surface as
// errors.
func (c *Cache) Load() (*models.CachedSeries, error) {
	log := c.log.WithComponent("cache").WithFields(logger.Fields{"path": c.path})

	if _, err := os.Stat(c.path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		if os.IsPermission(err) {
			log.WithError(err).Warn("no permission to read the cache, proceeding without it")
			return nil, nil
		}
		return nil, fmt.Errorf("stat cache file: %w", err)
	}

	lock := flock.New(c.path)
	locked, err := lock.TryRLock()
	if err != nil {
		log.WithError(err).Warn("could not acquire shared cache lock, proceeding without cache")
		return nil, nil
	}
	if !locked {
		log.Warn("cache is in use by another process, proceeding without it")
		return nil, nil
	}
	defer lock.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsPermission(err) {
			log.WithError(err).Warn("no permission to read the cache, proceeding without it")
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var series models.CachedSeries
	if err := json.Unmarshal(data, &series); err != nil {
		log.WithError(err).Warn("cached data is not parseable, proceeding without it")
		return nil, nil
	}

	log.WithFields(logger.Fields{
		"snapshot_id": series.SnapshotID,
		"created_at":  series.CreatedAt,
		"points":      len(series.Points),
	}).Debug("cache loaded")
	return &series, nil
}

// Store writes the finalized series as a freshly stamped snapshot. Lock
// contention and permission problems are soft failures: the run already
// has its data, the next one just downloads again.
func (c *Cache) Store(points []models.DataPoint) error {
	log := c.log.WithComponent("cache").WithFields(logger.Fields{"path": c.path})

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		if os.IsPermission(err) {
			log.WithError(err).Warn("no permission to create the cache directory, skipping cache write")
			return nil
		}
		return fmt.Errorf("create cache dir: %w", err)
	}

	lock := flock.New(c.path)
	locked, err := lock.TryLock()
	if err != nil {
		log.WithError(err).Warn("could not acquire exclusive cache lock, skipping cache write")
		return nil
	}
	if !locked {
		log.Warn("cache is in use by another process, skipping cache write")
		return nil
	}
	defer lock.Unlock()

	series := models.CachedSeries{
		SnapshotID: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Points:     points,
	}
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		if os.IsPermission(err) {
			log.WithError(err).Warn("no permission to write the cache, skipping cache write")
			return nil
		}
		return fmt.Errorf("write cache file: %w", err)
	}

	log.WithFields(logger.Fields{
		"snapshot_id": series.SnapshotID,
		"points":      len(points),
	}).Debug("cache stored")
	return nil
}

// Remove deletes the cache file. A cache that never existed is success.
func (c *Cache) Remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
