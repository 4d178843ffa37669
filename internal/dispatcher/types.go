package dispatcher

import (
	"fmt"

	"github.com/valpere/bntran/internal/dataset"
)

// WorkItem is one cell to translate.
type WorkItem struct {
	Row    int
	Column string
	Text   string
}

func (w WorkItem) Cell() dataset.Cell {
	return dataset.Cell{Row: w.Row, Column: w.Column}
}

type EventKind int

const (
	EventProgress EventKind = iota
	EventCacheUpdate
	EventCompleted
	EventCancelled
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCacheUpdate:
		return "cache_update"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal reports whether k ends a run. Exactly one terminal event is sent
// per run and it is always the last one.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventCancelled || k == EventError
}

// Stats counts a run. UniqueKeys is the number of distinct normalized texts
// that needed resolving, and every one of them ends up in exactly one of
// CacheHits or APICalls once the run completes. Skipped counts blank and
// numeric cells, which never need a key.
type Stats struct {
	TotalItems int
	UniqueKeys int
	Processed  int
	CacheHits  int
	APICalls   int
	Fallbacks  int
	Skipped    int
}

// HitRatio is the share of resolved keys served from the cache.
func (s Stats) HitRatio() float64 {
	resolved := s.CacheHits + s.APICalls
	if resolved == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(resolved)
}

// Event is sent on the run's event channel. Results and Learned are only
// set on Completed and Cancelled; Err only on Error.
type Event struct {
	Kind      EventKind
	Processed int
	Total     int
	Stats     Stats
	// Results maps every resolved cell to its new value. Cells that were
	// blank, or never reached before cancellation, are absent.
	Results map[dataset.Cell]string
	// Learned holds normalized key → translation for every successful
	// provider translation of this run.
	Learned map[string]string
	Err     error
}

// FatalDispatchError is an internal failure of the dispatcher itself, such
// as a panicking worker. Provider failures never produce one.
type FatalDispatchError struct {
	Cause error
}

func (e *FatalDispatchError) Error() string {
	return fmt.Sprintf("dispatch failed: %v", e.Cause)
}

func (e *FatalDispatchError) Unwrap() error { return e.Cause }
