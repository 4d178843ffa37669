// Package progress throttles a dispatcher event stream for slow observers
// such as a terminal or UI. Progress and cache statistics are coalesced so
// each is delivered at most once per interval; terminal events always get
// through.
package progress

import (
	"context"
	"time"

	"github.com/valpere/bntran/internal/dispatcher"
)

const DefaultInterval = 200 * time.Millisecond

type Reporter struct {
	interval time.Duration
}

func New(interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{interval: interval}
}

func (r *Reporter) Interval() time.Duration {
	return r.interval
}

type slot struct {
	pending  *dispatcher.Event
	lastSent time.Time
}

// Forward relays in to the returned channel. Intermediate events of the
// same kind replace each other until they can be delivered; the newest one
// is flushed before the terminal event, after which the channel closes.
// Forward never blocks on a slow reader except to deliver that final flush.
// Once ctx is done non-terminal events are dropped. The caller must keep
// receiving until the channel is closed.
func (r *Reporter) Forward(ctx context.Context, in <-chan dispatcher.Event) <-chan dispatcher.Event {
	out := make(chan dispatcher.Event, 4)

	go func() {
		defer close(out)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		slots := map[dispatcher.EventKind]*slot{
			dispatcher.EventProgress:    {},
			dispatcher.EventCacheUpdate: {},
		}
		order := []dispatcher.EventKind{dispatcher.EventProgress, dispatcher.EventCacheUpdate}

		trySend := func(s *slot, now time.Time) {
			if s.pending == nil || now.Sub(s.lastSent) < r.interval {
				return
			}
			select {
			case out <- *s.pending:
				s.pending = nil
				s.lastSent = now
			default:
			}
		}

		flush := func() {
			if ctx.Err() != nil {
				return
			}
			for _, k := range order {
				if s := slots[k]; s.pending != nil {
					out <- *s.pending
					s.pending = nil
				}
			}
		}

		for {
			select {
			case ev, ok := <-in:
				if !ok {
					flush()
					return
				}
				if ev.Kind.Terminal() {
					flush()
					out <- ev
					return
				}
				s, known := slots[ev.Kind]
				if !known || ctx.Err() != nil {
					continue
				}
				e := ev
				s.pending = &e
				trySend(s, time.Now())

			case now := <-ticker.C:
				for _, k := range order {
					trySend(slots[k], now)
				}
			}
		}
	}()

	return out
}

// Fraction returns processed/total for ev, or 1 when there is nothing to do.
func Fraction(ev dispatcher.Event) float64 {
	if ev.Total <= 0 {
		return 1
	}
	return float64(ev.Processed) / float64(ev.Total)
}
