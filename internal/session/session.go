// Package session runs one translation of a dataset at a time: it turns the
// selected columns into work items, loads the custom dictionary, drives the
// dispatcher behind a progress reporter and assembles the translated copy.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/valpere/bntran/internal/dataset"
	"github.com/valpere/bntran/internal/dictionary"
	"github.com/valpere/bntran/internal/dispatcher"
	"github.com/valpere/bntran/internal/progress"
)

var (
	ErrSessionActive = errors.New("a translation session is already running")
	ErrNoSession     = errors.New("no such active session")
	ErrUnknownColumn = errors.New("unknown column")
)

// Lexicon is the cache shared by all sessions of a controller.
// *lexicon.Cache satisfies it.
type Lexicon interface {
	dispatcher.Cache
	SetCustom(custom map[string]string)
	ClearLearned()
}

type Request struct {
	Dataset *dataset.Dataset
	// Columns are translated; every other column is copied as is.
	Columns []string
	// PreserveNumeric lists columns whose numbers are rewritten in Bengali
	// digits.
	PreserveNumeric []string
	Concurrency     int
	StartOffset     int
	BatchSize       int
}

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is a snapshot of a session's counters.
type State struct {
	ID         string
	TotalItems int
	UniqueKeys int
	Processed  int
	CacheHits  int
	APICalls   int
	Fallbacks  int
	Cancelled  bool
	StartedAt  time.Time
}

type Result struct {
	Dataset *dataset.Dataset
	Learned map[string]string
	State   State
	Outcome Outcome
	Elapsed time.Duration
}

type Config struct {
	ProgressInterval time.Duration
	// AutoSave merges learned entries into the dictionary after a completed
	// run. Cancelled and failed runs are never saved.
	AutoSave bool
	Logger   zerolog.Logger
}

type Controller struct {
	cache    Lexicon
	resolver dispatcher.Resolver
	loader   dictionary.Loader
	saver    dictionary.Saver
	config   Config

	mu     sync.Mutex
	active *Handle
}

// New builds a controller. loader and saver may be nil, in which case no
// dictionary is loaded or saved.
func New(cache Lexicon, resolver dispatcher.Resolver, loader dictionary.Loader, saver dictionary.Saver, config Config) *Controller {
	return &Controller{
		cache:    cache,
		resolver: resolver,
		loader:   loader,
		saver:    saver,
		config:   config,
	}
}

// Handle identifies a started session.
type Handle struct {
	id      string
	req     Request
	run     *dispatcher.Run
	events  chan dispatcher.Event
	started time.Time

	mu    sync.Mutex
	state State

	done   chan struct{}
	result *Result
	err    error
}

func (h *Handle) ID() string {
	return h.id
}

// Events yields throttled progress followed by the terminal event, then
// closes. Reading it is optional; progress that finds no reader is dropped
// but the terminal event is always buffered.
func (h *Handle) Events() <-chan dispatcher.Event {
	return h.events
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) setStats(s dispatcher.Stats) {
	h.mu.Lock()
	h.state.TotalItems = s.TotalItems
	h.state.UniqueKeys = s.UniqueKeys
	h.state.Processed = s.Processed
	h.state.CacheHits = s.CacheHits
	h.state.APICalls = s.APICalls
	h.state.Fallbacks = s.Fallbacks
	h.mu.Unlock()
}

// Start validates req and begins translating in the background. The session
// stops early when ctx is cancelled, as with Cancel.
func (c *Controller) Start(ctx context.Context, req Request) (*Handle, error) {
	if req.Dataset == nil {
		return nil, errors.New("request has no dataset")
	}
	for _, col := range req.Columns {
		if !req.Dataset.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
	}
	preserve := make(map[string]bool, len(req.PreserveNumeric))
	for _, col := range req.PreserveNumeric {
		if !req.Dataset.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
		preserve[col] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrSessionActive
	}

	log := c.config.Logger
	if c.loader != nil {
		custom, err := c.loader.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("custom dictionary not loaded")
		} else {
			c.cache.SetCustom(custom)
			log.Debug().Int("entries", len(custom)).Msg("custom dictionary loaded")
		}
	}

	h := &Handle{
		id:      uuid.New().String(),
		req:     req,
		events:  make(chan dispatcher.Event, 16),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	h.state = State{ID: h.id, StartedAt: h.started}

	items := workItems(req.Dataset, req.Columns)
	d := dispatcher.New(c.resolver, c.cache, log.With().Str("session", h.id).Logger())
	h.run = d.Run(ctx, items, dispatcher.Options{
		Concurrency:     req.Concurrency,
		StartOffset:     req.StartOffset,
		BatchSize:       req.BatchSize,
		PreserveNumeric: preserve,
		OnStats:         h.setStats,
	})
	reported := progress.New(c.config.ProgressInterval).Forward(ctx, h.run.Events())

	c.active = h
	go c.watch(h, reported)

	log.Info().
		Str("session", h.id).
		Int("rows", req.Dataset.Len()).
		Strs("columns", req.Columns).
		Int("items", len(items)).
		Msg("session started")
	return h, nil
}

// workItems lists the cells of columns in row order, skipping empty and
// absent ones.
func workItems(ds *dataset.Dataset, columns []string) []dispatcher.WorkItem {
	var items []dispatcher.WorkItem
	for row := 0; row < ds.Len(); row++ {
		for _, col := range columns {
			v, ok := ds.Get(row, col)
			if !ok || v == "" {
				continue
			}
			items = append(items, dispatcher.WorkItem{Row: row, Column: col, Text: v})
		}
	}
	return items
}

// Cancel stops h. Work already merged is kept in the result.
func (c *Controller) Cancel(h *Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h == nil || c.active != h {
		return ErrNoSession
	}
	h.run.Cancel()
	return nil
}

// Await blocks until h finishes or ctx is done. A failed session returns
// its *dispatcher.FatalDispatchError alongside a result holding an
// untranslated copy of the dataset.
func (c *Controller) Await(ctx context.Context, h *Handle) (*Result, error) {
	if h == nil {
		return nil, ErrNoSession
	}
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ClearLearned forgets entries learned by earlier sessions.
func (c *Controller) ClearLearned() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return ErrSessionActive
	}
	c.cache.ClearLearned()
	return nil
}

func (c *Controller) watch(h *Handle, in <-chan dispatcher.Event) {
	defer close(h.events)

	finished := false
	for ev := range in {
		if !ev.Kind.Terminal() {
			// leave room for the terminal event
			if len(h.events) < cap(h.events)-1 {
				h.events <- ev
			}
			continue
		}
		if finished {
			continue
		}
		finished = true
		c.finish(h, ev)
		h.events <- ev
	}

	if !finished {
		ev := dispatcher.Event{
			Kind: dispatcher.EventError,
			Err:  &dispatcher.FatalDispatchError{Cause: errors.New("event stream ended without an outcome")},
		}
		c.finish(h, ev)
		h.events <- ev
	}
}

func (c *Controller) finish(h *Handle, ev dispatcher.Event) {
	log := c.config.Logger.With().Str("session", h.id).Logger()

	if ev.Stats != (dispatcher.Stats{}) {
		h.setStats(ev.Stats)
	}

	res := &Result{Learned: ev.Learned}
	switch ev.Kind {
	case dispatcher.EventCompleted:
		res.Outcome = OutcomeCompleted
		res.Dataset = h.req.Dataset.Apply(ev.Results)
	case dispatcher.EventCancelled:
		res.Outcome = OutcomeCancelled
		res.Dataset = h.req.Dataset.Apply(ev.Results)
		h.mu.Lock()
		h.state.Cancelled = true
		h.mu.Unlock()
	default:
		res.Outcome = OutcomeFailed
		res.Dataset = h.req.Dataset.Clone()
		h.err = ev.Err
		if h.err == nil {
			h.err = &dispatcher.FatalDispatchError{Cause: errors.New("unknown failure")}
		}
	}
	if res.Learned == nil {
		res.Learned = map[string]string{}
	}
	res.State = h.State()
	res.Elapsed = time.Since(h.started)

	if res.Outcome == OutcomeCompleted && c.config.AutoSave && c.saver != nil && len(res.Learned) > 0 {
		if err := c.saver.Merge(context.Background(), res.Learned); err != nil {
			log.Error().Err(err).Msg("failed to save learned entries")
		} else {
			log.Info().Int("entries", len(res.Learned)).Msg("learned entries saved")
		}
	}

	log.Info().
		Str("outcome", res.Outcome.String()).
		Int("processed", res.State.Processed).
		Int("total", res.State.TotalItems).
		Int("learned", len(res.Learned)).
		Dur("elapsed", res.Elapsed).
		Msg("session finished")

	h.result = res

	c.mu.Lock()
	if c.active == h {
		c.active = nil
	}
	c.mu.Unlock()

	close(h.done)
}
