package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sjsage522/stockwatcher/internal/extract"
	"sjsage522/stockwatcher/internal/metrics"
	"sjsage522/stockwatcher/internal/store"
	"sjsage522/stockwatcher/logger"
	"sjsage522/stockwatcher/services/lock"
	"sjsage522/stockwatcher/services/publisher"
)

// ErrRunInProgress is returned when another run already holds the run lock
var ErrRunInProgress = errors.New("a monitoring run is already in progress")

// Extractor is the slice of the extraction engine the orchestrator needs
type Extractor interface {
	Extract(ctx context.Context, cfg extract.Config) extract.Result
}

// RunSummary aggregates one orchestrator invocation
type RunSummary struct {
	Status       store.RunStatus
	ItemsChecked int
	Errors       []string
	Duration     time.Duration
}

// Orchestrator iterates tracked items and their sources, applies the
// due-check policy, invokes the extraction engine and records outcomes.
type Orchestrator struct {
	store    store.Store
	engine   Extractor
	detector *Detector
	pub      publisher.Publisher
	runLock  lock.RunLock
	now      func() time.Time
	workers  int
	log      *logger.Logger
}

// NewOrchestrator creates a check orchestrator. pub may be nil to skip
// stream maintenance; now may be nil to use the wall clock; workers below
// 1 is clamped to 1.
func NewOrchestrator(st store.Store, engine Extractor, detector *Detector, pub publisher.Publisher, runLock lock.RunLock, now func() time.Time, workers int) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		store:    st,
		engine:   engine,
		detector: detector,
		pub:      pub,
		runLock:  runLock,
		now:      now,
		workers:  workers,
		log:      logger.ForOrchestrator(),
	}
}

// Run performs one full monitoring pass. Individual source and item
// failures are recorded and skipped; only a failure to enumerate the
// tracked items aborts the run.
func (o *Orchestrator) Run(ctx context.Context, trigger string) (*RunSummary, error) {
	acquired, err := o.runLock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		o.log.Warn().Str("trigger", trigger).Msg("Run skipped, lock held")
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := o.runLock.Release(ctx); err != nil {
			o.log.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	start := o.now()
	o.log.Info().Str("trigger", trigger).Msg("Starting monitoring run")

	items, err := o.store.ListAutoTrackedItems(ctx)
	if err != nil {
		o.writeRunLog(ctx, trigger, store.RunFailed, 0, err.Error(), o.now().Sub(start))
		metrics.Runs.WithLabelValues(string(store.RunFailed)).Inc()
		return nil, fmt.Errorf("failed to list tracked items: %w", err)
	}

	var (
		mu           sync.Mutex
		runErrors    []string
		itemsChecked int
		wg           sync.WaitGroup
		sem          = make(chan struct{}, o.workers)
	)

	for i := range items {
		item := items[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := o.checkItem(ctx, &item)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				runErrors = append(runErrors, fmt.Sprintf("failed to check item %s: %v", item.Name, err))
				return
			}
			itemsChecked++
		}()
	}
	wg.Wait()

	duration := o.now().Sub(start)
	o.writeRunLog(ctx, trigger, store.RunCompleted, itemsChecked, strings.Join(runErrors, "\n"), duration)

	metrics.Runs.WithLabelValues(string(store.RunCompleted)).Inc()
	metrics.RunDuration.Observe(duration.Seconds())

	// Keep the notification stream bounded after every cycle
	if o.pub != nil {
		if err := o.pub.TrimStream(); err != nil {
			o.log.Warn().Err(err).Msg("Failed to trim notification stream")
		}
	}

	o.log.Info().
		Int("items_checked", itemsChecked).
		Int("errors", len(runErrors)).
		Dur("duration", duration).
		Msg("Monitoring run completed")

	return &RunSummary{
		Status:       store.RunCompleted,
		ItemsChecked: itemsChecked,
		Errors:       runErrors,
		Duration:     duration,
	}, nil
}

// checkItem walks an item's active sources sequentially, so each source's
// read-due-extract-write sequence has exactly one owner for the run.
func (o *Orchestrator) checkItem(ctx context.Context, item *store.TrackedItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	sources, err := o.store.ListActiveSources(ctx, item.ID)
	if err != nil {
		return err
	}

	for i := range sources {
		src := &sources[i]
		if !o.due(src) {
			o.log.Debug().
				Str("item", item.Name).
				Str("site", src.SiteName).
				Msg("Skipping source, checked recently")
			continue
		}
		if err := o.checkSource(ctx, item, src); err != nil {
			return err
		}
	}
	return nil
}

// due applies the scheduling predicate: a source with no lastChecked is
// always due; otherwise its configured interval must have elapsed.
func (o *Orchestrator) due(src *store.Source) bool {
	if src.LastChecked == nil {
		return true
	}
	interval := time.Duration(src.CheckFrequency) * time.Minute
	return o.now().Sub(*src.LastChecked) >= interval
}

func (o *Orchestrator) checkSource(ctx context.Context, item *store.TrackedItem, src *store.Source) error {
	metrics.SourceChecks.WithLabelValues(src.SiteName).Inc()

	result := o.engine.Extract(ctx, extract.Config{
		URL:           src.URL,
		PriceSelector: src.PriceSelector,
		StockSelector: src.StockSelector,
		TitleSelector: src.TitleSelector,
		ImageSelector: src.ImageSelector,
	})

	if result.Failed() {
		// Recoverable: lastChecked stays put so the source is retried on
		// the next eligible cycle
		metrics.FetchErrors.WithLabelValues(src.SiteName).Inc()
		o.log.Warn().
			Str("item", item.Name).
			Str("site", src.SiteName).
			Str("error", result.Error).
			Msg("Extraction failed")
		return nil
	}

	// Evaluate against history before appending the new observation, so
	// the fresh reading never becomes its own comparison baseline
	if err := o.detector.Evaluate(ctx, item, src, result); err != nil {
		return err
	}

	if result.Price != nil {
		obs := &store.Observation{
			ID:         uuid.NewString(),
			ItemID:     item.ID,
			Source:     src.SiteName,
			Price:      *result.Price,
			InStock:    result.InStock,
			StockCount: result.StockCount,
			ObservedAt: o.now(),
		}
		if err := o.store.RecordObservation(ctx, obs); err != nil {
			return err
		}
	}

	now := o.now()
	if err := o.store.SetSourceLastChecked(ctx, src.ID, now); err != nil {
		return err
	}
	src.LastChecked = &now

	return nil
}

func (o *Orchestrator) writeRunLog(ctx context.Context, trigger string, status store.RunStatus, itemsChecked int, errs string, duration time.Duration) {
	rl := &store.RunLog{
		ID:           uuid.NewString(),
		Trigger:      trigger,
		Status:       status,
		ItemsChecked: itemsChecked,
		Errors:       errs,
		Duration:     duration,
		CompletedAt:  o.now(),
	}
	if err := o.store.CreateRunLog(ctx, rl); err != nil {
		o.log.Error().Err(err).Msg("Failed to record run log")
	}
}
