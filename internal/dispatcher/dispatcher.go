// Package dispatcher resolves a list of cells to translations. Cells are
// deduplicated by normalized text, cache hits are answered immediately, and
// the remaining keys are split into batches that a bounded worker pool sends
// through the provider pool. Progress and the final outcome arrive as events.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/bntran/internal/dataset"
	"github.com/valpere/bntran/internal/pool"
)

// Resolver translates one text, trying providers from start onwards.
// *pool.Pool satisfies it.
type Resolver interface {
	TranslateWithFallback(ctx context.Context, text string, start int) pool.Outcome
	Len() int
}

// Cache is the lexicon consulted before any provider call. Record is called
// from several workers at once. *lexicon.Cache satisfies it.
type Cache interface {
	Lookup(text string) (string, bool)
	Record(text, translation string)
}

type Options struct {
	// Concurrency is the worker count. Zero means one worker per provider.
	Concurrency int
	// StartOffset shifts the provider each batch starts with.
	StartOffset int
	// BatchSize overrides the computed batch size when positive.
	BatchSize int
	// PreserveNumeric names columns whose numeric cells are rewritten in
	// Bengali digits instead of passed through.
	PreserveNumeric map[string]bool
	// OnStats is called from the coordinating goroutine after every change
	// to the run's statistics.
	OnStats func(Stats)
}

type Dispatcher struct {
	resolver Resolver
	cache    Cache
	logger   zerolog.Logger
}

func New(resolver Resolver, cache Cache, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{resolver: resolver, cache: cache, logger: logger}
}

// Run is one dispatch in progress.
type Run struct {
	events chan Event
	cancel context.CancelFunc
}

// Events yields progress and exactly one terminal event, then closes. The
// caller must drain it.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Cancel asks the run to stop. Batches not yet started are skipped, items
// not yet started inside a running batch are left untranslated, and a
// provider call already in flight is allowed to finish.
func (r *Run) Cancel() {
	r.cancel()
}

type resolvedKey struct {
	group      *keyGroup
	value      string
	translated bool
}

type batchResult struct {
	index    int
	resolved []resolvedKey
	// complete is false when cancellation stopped the batch early.
	complete bool
	err      error
}

// Run starts resolving items and returns immediately. Cancelling ctx has the
// same effect as Run.Cancel.
func (d *Dispatcher) Run(ctx context.Context, items []WorkItem, opts Options) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		events: make(chan Event, 8),
		cancel: cancel,
	}
	go d.coordinate(runCtx, cancel, r.events, items, opts)
	return r
}

// run is the coordinator's private bookkeeping. Only the coordinating
// goroutine touches it.
type run struct {
	d       *Dispatcher
	items   []WorkItem
	opts    Options
	out     chan<- Event
	stats   Stats
	results map[dataset.Cell]string
	learned map[string]string
}

func (d *Dispatcher) coordinate(ctx context.Context, cancel context.CancelFunc, out chan<- Event, items []WorkItem, opts Options) {
	defer close(out)
	defer cancel()

	r := &run{
		d:       d,
		items:   items,
		opts:    opts,
		out:     out,
		results: make(map[dataset.Cell]string),
		learned: make(map[string]string),
	}
	r.stats.TotalItems = len(items)

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("dispatcher panic")
			out <- Event{
				Kind:      EventError,
				Processed: r.stats.Processed,
				Total:     r.stats.TotalItems,
				Stats:     r.stats,
				Err:       &FatalDispatchError{Cause: fmt.Errorf("panic: %v", p)},
			}
		}
	}()

	start := time.Now()
	misses := r.prepare()

	workers := opts.Concurrency
	if workers <= 0 {
		workers = max(1, d.resolver.Len())
	}
	size := opts.BatchSize
	if size <= 0 {
		size = BatchSize(len(misses), workers)
	}
	batches := chunk(misses, size)

	d.logger.Info().
		Int("items", r.stats.TotalItems).
		Int("unique_keys", r.stats.UniqueKeys).
		Int("cache_hits", r.stats.CacheHits).
		Int("batches", len(batches)).
		Int("batch_size", size).
		Int("workers", workers).
		Msg("dispatch started")

	var fatal error
	if len(batches) > 0 {
		fatal = r.dispatch(ctx, cancel, batches, workers)
	}

	r.emit(Event{Kind: EventCacheUpdate})

	log := d.logger.Info().
		Int("processed", r.stats.Processed).
		Int("api_calls", r.stats.APICalls).
		Int("cache_hits", r.stats.CacheHits).
		Int("fallbacks", r.stats.Fallbacks).
		Dur("elapsed", time.Since(start))

	switch {
	case fatal != nil:
		log.Err(fatal).Msg("dispatch failed")
		r.emit(Event{Kind: EventError, Err: &FatalDispatchError{Cause: fatal}})
	case ctx.Err() != nil && r.stats.Processed < r.stats.TotalItems:
		log.Msg("dispatch cancelled")
		r.emit(Event{Kind: EventCancelled, Results: r.results, Learned: r.learned})
	default:
		log.Msg("dispatch completed")
		r.emit(Event{Kind: EventCompleted, Results: r.results, Learned: r.learned})
	}
}

// prepare resolves everything that needs no provider: blank and numeric
// cells, and keys already in the cache. It returns the keys left over.
func (r *run) prepare() []*keyGroup {
	p := buildPlan(r.items, r.opts.PreserveNumeric)

	r.stats.UniqueKeys = len(p.groups)
	r.stats.Skipped = p.blank + len(p.direct)
	r.stats.Processed = r.stats.Skipped
	for i, v := range p.direct {
		r.results[r.items[i].Cell()] = v
	}

	var misses []*keyGroup
	for _, g := range p.groups {
		if v, ok := r.d.cache.Lookup(g.text); ok {
			r.stats.CacheHits++
			r.fanOut(g, v)
			continue
		}
		misses = append(misses, g)
	}

	r.notify()
	if r.stats.Processed > 0 {
		r.emit(Event{Kind: EventProgress})
		r.emit(Event{Kind: EventCacheUpdate})
	}
	return misses
}

// dispatch feeds batches to the workers and merges their results in
// completion order. It returns the first fatal worker error.
func (r *run) dispatch(ctx context.Context, cancel context.CancelFunc, batches [][]*keyGroup, workers int) error {
	jobs := make(chan int)
	// Sized so workers never block on send, even if the coordinator stops
	// reading after a panic.
	results := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(batches)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- r.d.process(ctx, idx, batches[idx], r.opts.StartOffset)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for idx := range batches {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	updateEvery := max(1, workers/2)
	var fatal error
	done := 0
	for res := range results {
		if res.err != nil {
			if fatal == nil {
				fatal = res.err
				cancel()
			}
			continue
		}
		if fatal != nil {
			continue
		}
		r.merge(res)
		done++

		r.d.logger.Debug().
			Int("batch", res.index).
			Int("keys", len(res.resolved)).
			Bool("complete", res.complete).
			Msg("batch merged")

		r.notify()
		r.emit(Event{Kind: EventProgress})
		if done%updateEvery == 0 {
			r.emit(Event{Kind: EventCacheUpdate})
		}
	}
	return fatal
}

// process resolves one batch serially. It runs on a worker goroutine and
// must not touch run state other than through the Cache.
func (d *Dispatcher) process(ctx context.Context, index int, batch []*keyGroup, offset int) (res batchResult) {
	res.index = index
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Int("batch", index).Msg("worker panic")
			res = batchResult{index: index, err: fmt.Errorf("worker panic in batch %d: %v", index, p)}
		}
	}()

	start := offset + index
	for _, g := range batch {
		if ctx.Err() != nil {
			return res
		}
		out := d.resolver.TranslateWithFallback(ctx, g.text, start)
		if !out.Translated && ctx.Err() != nil {
			// fallback cut short by cancellation, leave the key unresolved
			return res
		}
		if out.Translated {
			d.cache.Record(g.text, out.Text)
		}
		res.resolved = append(res.resolved, resolvedKey{group: g, value: out.Text, translated: out.Translated})
	}
	res.complete = true
	return res
}

func (r *run) merge(res batchResult) {
	for _, rk := range res.resolved {
		r.stats.APICalls++
		if rk.translated {
			r.learned[rk.group.key] = rk.value
		} else {
			r.stats.Fallbacks++
		}
		r.fanOut(rk.group, rk.value)
	}
}

func (r *run) fanOut(g *keyGroup, value string) {
	for _, i := range g.items {
		r.results[r.items[i].Cell()] = value
	}
	r.stats.Processed += len(g.items)
}

func (r *run) notify() {
	if r.opts.OnStats != nil {
		r.opts.OnStats(r.stats)
	}
}

// emit fills in the counters and sends ev. Sends block; the consumer is
// required to drain the channel.
func (r *run) emit(ev Event) {
	ev.Processed = r.stats.Processed
	ev.Total = r.stats.TotalItems
	ev.Stats = r.stats
	r.out <- ev
}
