package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"epiflow/cache"
	"epiflow/chart"
	"epiflow/config"
	"epiflow/logger"
	"epiflow/messages"
	"epiflow/models"
	"epiflow/processor"
	"epiflow/reader"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	verbose := pflag.CountP("verbose", "v", "increase log verbosity (repeatable)")
	quiet := pflag.CountP("quiet", "q", "decrease log verbosity (repeatable)")
	force := pflag.BoolP("force", "f", false, "ignore the cache and download everything again")
	offline := pflag.BoolP("offline", "c", false, "use only the cache, never download")
	staleAfter := pflag.DurationP("stale-after", "s", time.Hour, "cache age after which new records are fetched")
	timeout := pflag.DurationP("timeout", "t", 10*time.Second, "timeout per download")
	configPath := pflag.String("config", "", "path to configuration file")
	noUI := pflag.Bool("no-ui", false, "skip the chart, only refresh the data")
	version := pflag.Bool("version", false, "print the version and exit")
	pflag.CommandLine.MarkHidden("no-ui")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("timeout") {
		cfg.Source.Timeout = *timeout
	}
	if pflag.CommandLine.Changed("stale-after") {
		cfg.Cache.StaleAfter = *staleAfter
	}

	if *version {
		fmt.Printf("%s %s\n", cfg.Epiflow.Name, cfg.Epiflow.Version)
		return
	}

	if *verbose > 0 && *quiet > 0 {
		log.Error("--verbose and --quiet are mutually exclusive")
		os.Exit(1)
	}
	level := cfg.Logging.Level
	if verbosity := *verbose - *quiet; verbosity != 0 {
		level = logger.LevelForVerbosity(verbosity)
	}
	if err := log.Configure(level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if *force && *offline {
		log.Error("--force and --offline are mutually exclusive")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Epiflow.Name,
		"version": cfg.Epiflow.Version,
	}).Debug("starting epiflow")

	store, err := cache.New(cfg)
	if err != nil {
		log.WithError(err).Error("failed to resolve cache location")
		os.Exit(1)
	}

	// Downloads stop on ctrl-c; an interactive chart handles its own keys.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if args := pflag.Args(); len(args) > 0 {
		if args[0] != "cache" || len(args) != 2 {
			log.WithFields(logger.Fields{"args": args}).Error("unknown command, expected: cache list|flush|refresh")
			os.Exit(1)
		}
		if err := runCacheCommand(ctx, args[1], cfg, store); err != nil {
			log.WithError(err).Error("cache command failed")
			os.Exit(1)
		}
		return
	}

	points, err := resolveSeries(ctx, cfg, store, *force, *offline)
	if err != nil {
		log.WithError(err).Error("failed to assemble the case series")
		os.Exit(1)
	}

	logger.RunReport(log, logger.Fields{"points": len(points)})

	if *noUI {
		return
	}
	if err := chart.Run(points, messages.UserBundle()); err != nil {
		log.WithError(err).Error("chart terminated abnormally")
		os.Exit(1)
	}
}

// runCacheCommand dispatches the cache maintenance subcommands.
func runCacheCommand(ctx context.Context, cmd string, cfg *config.Config, store *cache.Cache) error {
	switch cmd {
	case "list":
		series, err := store.Load()
		if err != nil {
			return err
		}
		if series == nil {
			fmt.Printf("%s: no cached data\n", store.Path())
			return nil
		}
		fmt.Printf("%s: %d points, created %s\n",
			store.Path(), len(series.Points), series.CreatedAt.Format(time.RFC3339))
		return nil
	case "flush":
		return store.Remove()
	case "refresh":
		points, err := fullRun(ctx, cfg)
		if err != nil {
			return err
		}
		return store.Store(points)
	default:
		return fmt.Errorf("unknown cache command %q, expected list, flush or refresh", cmd)
	}
}

// resolveSeries produces the finalized series from the cheapest sufficient
// source: a fresh cache as-is, a stale cache extended incrementally, and a
// full download otherwise. Cache write failures degrade to warnings; the
// run already has its data.
func resolveSeries(ctx context.Context, cfg *config.Config, store *cache.Cache, force, offline bool) ([]models.DataPoint, error) {
	log := logger.GetLogger().WithComponent("main")

	var cached *models.CachedSeries
	if !force {
		var err error
		cached, err = store.Load()
		if err != nil {
			return nil, err
		}
	}

	if offline {
		if cached == nil {
			return nil, fmt.Errorf("offline mode needs cached data, run 'epiflow cache refresh' first")
		}
		return cached.Points, nil
	}

	if cached != nil && len(cached.Points) > 0 {
		age := time.Since(cached.CreatedAt)
		if age < cfg.Cache.StaleAfter {
			log.WithFields(logger.Fields{"age": age}).Debug("cache is fresh, skipping download")
			return cached.Points, nil
		}
		log.WithFields(logger.Fields{"age": age}).Debug("cache is stale, fetching new records")
		points, err := incrementalRun(ctx, cfg, cached)
		if err != nil {
			return nil, err
		}
		if err := store.Store(points); err != nil {
			log.WithError(err).Warn("could not store the cache")
		}
		return points, nil
	}

	points, err := fullRun(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Store(points); err != nil {
		log.WithError(err).Warn("could not store the cache")
	}
	return points, nil
}

// fullRun downloads everything: population and the bulk history export in
// parallel, then the feed records the export does not cover yet, and
// reconciles the merged series from zero state.
func fullRun(ctx context.Context, cfg *config.Config) ([]models.DataPoint, error) {
	client := reader.New(cfg)

	var (
		wg         sync.WaitGroup
		population uint32
		popErr     error
		rawHist    []models.RawRecord
		histErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		population, popErr = client.FetchPopulation(ctx)
	}()
	go func() {
		defer wg.Done()
		rawHist, histErr = client.FetchHistory(ctx)
	}()
	wg.Wait()
	if popErr != nil {
		return nil, popErr
	}
	if histErr != nil {
		return nil, histErr
	}

	hist, err := processor.NormalizeAll(rawHist)
	if err != nil {
		return nil, err
	}

	rawFeed, err := client.FetchFeed(ctx, len(hist))
	if err != nil {
		return nil, err
	}
	incr, err := processor.NormalizeAll(rawFeed)
	if err != nil {
		return nil, err
	}

	merged := processor.MergeByDate(hist, incr)
	return processor.Reconcile(merged, float64(population), nil)
}

// incrementalRun extends a stale cached series: it fetches only the feed
// records past the cached length and reconciles them seeded with the
// cached tail, so the appended points continue the running totals.
func incrementalRun(ctx context.Context, cfg *config.Config, cached *models.CachedSeries) ([]models.DataPoint, error) {
	log := logger.GetLogger().WithComponent("main")
	client := reader.New(cfg)

	var (
		wg         sync.WaitGroup
		population uint32
		popErr     error
		rawFeed    []models.RawRecord
		feedErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		population, popErr = client.FetchPopulation(ctx)
	}()
	go func() {
		defer wg.Done()
		rawFeed, feedErr = client.FetchFeed(ctx, len(cached.Points))
	}()
	wg.Wait()
	if popErr != nil {
		return nil, popErr
	}
	if feedErr != nil {
		return nil, feedErr
	}

	records, err := processor.NormalizeAll(rawFeed)
	if err != nil {
		return nil, err
	}

	// The offset query should only return new records, but the feed has
	// renumbered before. Anything at or before the cached tail is already
	// reconciled and would corrupt the running totals.
	lastDate := cached.Points[len(cached.Points)-1].Date
	fresh := records[:0]
	for _, rec := range records {
		if !rec.Date.After(lastDate) {
			log.WithFields(logger.Fields{
				"object_id": rec.ObjectID,
				"date":      rec.Date.Format("2006-01-02"),
			}).Warn("dropping feed record already covered by the cache")
			continue
		}
		fresh = append(fresh, rec)
	}

	seed := processor.StateFromSeries(cached.Points)
	appended, err := processor.Reconcile(fresh, float64(population), seed)
	if err != nil {
		return nil, err
	}
	return append(cached.Points[:len(cached.Points):len(cached.Points)], appended...), nil
}
