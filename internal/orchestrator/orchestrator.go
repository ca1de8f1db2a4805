// Package orchestrator runs source adapters across locations under a bounded
// worker pool, with retry, per-source rate limiting, and a TTL cache. Task
// failures are isolated: one failing task never aborts the batch.
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/cache"
	"github.com/envimetry/pipeline/internal/metrics"
	"github.com/envimetry/pipeline/internal/telemetry"
)

// RateWaiter blocks until the source may issue another request.
type RateWaiter interface {
	Wait(ctx context.Context, source string) error
}

// Config tunes the orchestrator.
type Config struct {
	// MaxWorkers bounds the pool; the effective size is
	// min(MaxWorkers, task count).
	MaxWorkers int
}

// Orchestrator fans (location, adapter) tasks out to a worker pool and
// aggregates results into one raw batch.
type Orchestrator struct {
	adapters []telemetry.Adapter
	cache    telemetry.Cache
	limiter  RateWaiter
	retry    telemetry.RetryPolicy
	clock    telemetry.Clock
	idgen    telemetry.IDGenerator
	logger   *zap.Logger
	cfg      Config

	mu       sync.Mutex
	disabled map[string]bool
}

// New wires an orchestrator. Cache and limiter may be nil to disable those
// behaviors.
func New(adapters []telemetry.Adapter, c telemetry.Cache, limiter RateWaiter,
	retry telemetry.RetryPolicy, clock telemetry.Clock, idgen telemetry.IDGenerator,
	logger *zap.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	return &Orchestrator{
		adapters: adapters,
		cache:    c,
		limiter:  limiter,
		retry:    retry,
		clock:    clock,
		idgen:    idgen,
		logger:   logger,
		cfg:      cfg,
		disabled: make(map[string]bool),
	}
}

type task struct {
	loc     telemetry.Location
	adapter telemetry.Adapter
}

type result struct {
	reading  telemetry.Reading
	cacheHit bool
}

// Run crawls every (location, adapter) pair and returns the sorted batch.
// The batch always carries per-source counts; ErrAllSourcesFailed is
// returned alongside the batch when no task succeeded.
func (o *Orchestrator) Run(ctx context.Context, domain string, locations []telemetry.Location) (telemetry.Batch, error) {
	runID, err := o.idgen.NewID()
	if err != nil {
		return telemetry.Batch{}, err
	}
	batch := telemetry.Batch{
		Domain: domain,
		RunID:  runID,
		Counts: make(map[string]telemetry.SourceCounts),
	}

	tasks := make([]task, 0, len(locations)*len(o.adapters))
	for _, loc := range locations {
		for _, a := range o.adapters {
			tasks = append(tasks, task{loc: loc, adapter: a})
		}
	}
	if len(tasks) == 0 {
		return batch, telemetry.ErrAllSourcesFailed
	}

	workers := o.cfg.MaxWorkers
	if len(tasks) < workers {
		workers = len(tasks)
	}

	taskCh := make(chan task)
	resultCh := make(chan result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				metrics.WorkerStarted()
				resultCh <- o.execute(ctx, t)
				metrics.WorkerDone()
			}
		}()
	}

	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()
	close(resultCh)

	for res := range resultCh {
		r := res.reading
		counts := batch.Counts[r.Source]
		switch {
		case res.cacheHit:
			counts.CacheHits++
			counts.Succeeded++
			metrics.IncCrawlTask(r.Source, metrics.StatusCacheHit)
		case r.Success:
			counts.Succeeded++
			metrics.IncCrawlTask(r.Source, metrics.StatusSuccess)
		default:
			counts.Failed++
			metrics.IncCrawlTask(r.Source, metrics.StatusFailure)
		}
		batch.Counts[r.Source] = counts
		batch.Readings = append(batch.Readings, r)
	}

	telemetry.SortReadings(batch.Readings)

	succeeded := 0
	for _, c := range batch.Counts {
		succeeded += c.Succeeded
	}
	o.logger.Info("crawl finished",
		zap.String("domain", domain),
		zap.String("run_id", runID),
		zap.Int("tasks", len(tasks)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(tasks)-succeeded),
	)
	if succeeded == 0 {
		return batch, telemetry.ErrAllSourcesFailed
	}
	return batch, nil
}

// execute runs one task: cache check, rate limit, fetch with retries.
func (o *Orchestrator) execute(ctx context.Context, t task) result {
	source := t.adapter.Name()
	start := time.Now()
	defer func() { metrics.ObserveCrawlTask(source, time.Since(start)) }()

	key := cache.Key(source, t.loc.Lat, t.loc.Lon)
	if o.cache != nil {
		if ttl := t.adapter.CacheTTL(); ttl > 0 {
			if payload, ok := o.cache.Get(key, ttl); ok {
				var r telemetry.Reading
				if err := json.Unmarshal(payload, &r); err == nil {
					return result{reading: r, cacheHit: true}
				}
				o.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
			}
		}
	}

	if o.isDisabled(source) {
		return result{reading: telemetry.NewFailure(t.loc, source, o.clock.Now(),
			telemetry.ErrCodeUnauthorized, "source disabled for this run")}
	}

	var r telemetry.Reading
	for attempt := 0; ; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx, source); err != nil {
				return result{reading: telemetry.NewFailure(t.loc, source, o.clock.Now(),
					telemetry.ErrCodeTimeout, err.Error())}
			}
		}

		r = t.adapter.Fetch(ctx, t.loc)
		if r.Success {
			break
		}
		if telemetry.IsPermanent(r.ErrorCode) {
			o.disable(source)
			o.logger.Warn("disabling source for the run",
				zap.String("source", source), zap.String("error_code", r.ErrorCode))
			break
		}
		if !o.retry.ShouldRetry(r.ErrorCode, attempt+1) {
			break
		}
		metrics.IncCrawlRetry(source)
		o.logger.Debug("retrying task",
			zap.String("source", source),
			zap.String("location", t.loc.Name),
			zap.String("error_code", r.ErrorCode),
			zap.Int("attempt", attempt+1),
		)
		select {
		case <-ctx.Done():
			return result{reading: telemetry.NewFailure(t.loc, source, o.clock.Now(),
				telemetry.ErrCodeTimeout, ctx.Err().Error())}
		case <-time.After(o.retry.Backoff(attempt)):
		}
	}

	if r.Success && o.cache != nil && t.adapter.CacheTTL() > 0 {
		if payload, err := json.Marshal(r); err == nil {
			if err := o.cache.Put(key, payload); err != nil {
				o.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return result{reading: r}
}

func (o *Orchestrator) isDisabled(source string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disabled[source]
}

func (o *Orchestrator) disable(source string) {
	o.mu.Lock()
	o.disabled[source] = true
	o.mu.Unlock()
}
