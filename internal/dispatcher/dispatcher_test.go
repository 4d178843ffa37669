package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/bntran/internal/dataset"
	"github.com/valpere/bntran/internal/lexicon"
	"github.com/valpere/bntran/internal/pool"
	"github.com/valpere/bntran/internal/translator"
)

type mockService struct {
	nameVal       string
	translateFunc func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error)
	callCount     atomic.Int32
}

func (m *mockService) Name() string { return m.nameVal }

func (m *mockService) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	m.callCount.Add(1)
	if m.translateFunc != nil {
		return m.translateFunc(ctx, req)
	}
	return &translator.ServiceResult{ServiceName: m.nameVal, TranslatedText: "bn(" + req.Text + ")"}, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error { return nil }

func (m *mockService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "bn"}, nil
}

func newPool(svcs ...*mockService) *pool.Pool {
	list := make([]translator.TranslationService, len(svcs))
	for i := range svcs {
		list[i] = svcs[i]
	}
	return pool.New(list, pool.Config{RateLimitDelay: time.Millisecond})
}

func itemsOf(column string, texts ...string) []WorkItem {
	out := make([]WorkItem, len(texts))
	for i, t := range texts {
		out[i] = WorkItem{Row: i, Column: column, Text: t}
	}
	return out
}

func collect(t *testing.T, run *Run) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-run.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for dispatcher events")
		}
	}
}

func terminal(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events")
	}
	last := events[len(events)-1]
	if !last.Kind.Terminal() {
		t.Fatalf("last event is %s, not terminal", last.Kind)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Kind.Terminal() {
			t.Fatalf("terminal event %s before the end", ev.Kind)
		}
	}
	return last
}

func cell(row int, col string) dataset.Cell {
	return dataset.Cell{Row: row, Column: col}
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		misses, workers, want int
	}{
		{0, 3, 1},
		{5, 3, 1},
		{6, 3, 1},
		{13, 3, 2},
		{100, 3, 16},
		{1000, 3, 20},
		{10, 0, 5},
	}

	for _, tt := range tests {
		if got := BatchSize(tt.misses, tt.workers); got != tt.want {
			t.Errorf("BatchSize(%d, %d) = %d, want %d", tt.misses, tt.workers, got, tt.want)
		}
	}
}

func TestRun_DedupAndPreserveNumeric(t *testing.T) {
	svc := &mockService{nameVal: "a"}
	cache := lexicon.NewWithStatic(nil, nil)
	d := New(newPool(svc), cache, zerolog.Nop())

	items := []WorkItem{
		{Row: 0, Column: "name", Text: "John"},
		{Row: 0, Column: "age", Text: "25"},
		{Row: 1, Column: "name", Text: "Jane"},
		{Row: 1, Column: "age", Text: "30"},
		{Row: 2, Column: "name", Text: "john"},
		{Row: 2, Column: "age", Text: "28"},
	}

	events := collect(t, d.Run(context.Background(), items, Options{
		PreserveNumeric: map[string]bool{"age": true},
	}))
	last := terminal(t, events)

	if last.Kind != EventCompleted {
		t.Fatalf("expected completed, got %s (%v)", last.Kind, last.Err)
	}
	if n := svc.callCount.Load(); n != 2 {
		t.Errorf("expected 2 provider calls, got %d", n)
	}
	if last.Results[cell(0, "name")] != last.Results[cell(2, "name")] {
		t.Errorf("John and john differ: %q vs %q", last.Results[cell(0, "name")], last.Results[cell(2, "name")])
	}
	if last.Results[cell(0, "name")] != "bn(John)" {
		t.Errorf("expected first occurrence to be sent, got %q", last.Results[cell(0, "name")])
	}
	wantAges := []string{"২৫", "৩০", "২৮"}
	for row, want := range wantAges {
		if got := last.Results[cell(row, "age")]; got != want {
			t.Errorf("row %d age = %q, want %q", row, got, want)
		}
	}

	s := last.Stats
	if s.APICalls != 2 || s.CacheHits != 0 || s.UniqueKeys != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.Processed != 6 || s.TotalItems != 6 || s.Skipped != 3 {
		t.Errorf("unexpected counters %+v", s)
	}
	if len(last.Learned) != 2 || last.Learned["john"] != "bn(John)" {
		t.Errorf("unexpected learned set %v", last.Learned)
	}
}

func TestRun_NumericPassThrough(t *testing.T) {
	svc := &mockService{nameVal: "a"}
	d := New(newPool(svc), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	events := collect(t, d.Run(context.Background(), itemsOf("phone", "01712-345678", "+880 2 955 1234"), Options{}))
	last := terminal(t, events)

	if svc.callCount.Load() != 0 {
		t.Error("numeric fields must never reach a provider")
	}
	if last.Results[cell(0, "phone")] != "01712-345678" {
		t.Errorf("expected pass-through, got %q", last.Results[cell(0, "phone")])
	}
}

func TestRun_MarkupOnlyPassThrough(t *testing.T) {
	svc := &mockService{nameVal: "a"}
	d := New(newPool(svc), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	items := itemsOf("contact", "john@example.com", "https://example.com/form", "Email john@example.com")
	events := collect(t, d.Run(context.Background(), items, Options{}))
	last := terminal(t, events)

	if n := svc.callCount.Load(); n != 1 {
		t.Errorf("expected only the cell with words to be sent, got %d calls", n)
	}
	if last.Results[cell(0, "contact")] != "john@example.com" || last.Results[cell(1, "contact")] != "https://example.com/form" {
		t.Errorf("expected addresses kept, got %v", last.Results)
	}
	if last.Results[cell(2, "contact")] != "bn(Email john@example.com)" {
		t.Errorf("expected address restored in translation, got %q", last.Results[cell(2, "contact")])
	}
}

func TestRun_Idempotent(t *testing.T) {
	svc := &mockService{nameVal: "a"}
	cache := lexicon.NewWithStatic(nil, nil)
	d := New(newPool(svc), cache, zerolog.Nop())
	items := itemsOf("name", "John", "Jane")

	collect(t, d.Run(context.Background(), items, Options{}))
	events := collect(t, d.Run(context.Background(), items, Options{}))
	last := terminal(t, events)

	if n := svc.callCount.Load(); n != 2 {
		t.Errorf("expected no additional calls on second run, got %d total", n)
	}
	if last.Stats.CacheHits != 2 || last.Stats.APICalls != 0 {
		t.Errorf("unexpected stats %+v", last.Stats)
	}
	if last.Results[cell(1, "name")] != "bn(Jane)" {
		t.Errorf("expected cached translation, got %q", last.Results[cell(1, "name")])
	}
}

func TestRun_AllProvidersFail(t *testing.T) {
	down := func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
		return nil, errors.New("service unavailable")
	}
	a := &mockService{nameVal: "a", translateFunc: down}
	b := &mockService{nameVal: "b", translateFunc: down}
	cache := lexicon.NewWithStatic(nil, nil)
	d := New(newPool(a, b), cache, zerolog.Nop())

	events := collect(t, d.Run(context.Background(), itemsOf("name", "Xyzzy123!!"), Options{}))
	last := terminal(t, events)

	if last.Kind != EventCompleted {
		t.Fatalf("expected completed, got %s", last.Kind)
	}
	if got := last.Results[cell(0, "name")]; got != "Xyzzy123!!" {
		t.Errorf("expected original text, got %q", got)
	}
	if last.Stats.Fallbacks != 1 || last.Stats.APICalls != 1 {
		t.Errorf("unexpected stats %+v", last.Stats)
	}
	if len(last.Learned) != 0 || cache.Sizes().Learned != 0 {
		t.Error("failed rounds must not be learned")
	}
}

func TestRun_BlankRoundTrip(t *testing.T) {
	svc := &mockService{nameVal: "a"}
	d := New(newPool(svc), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	events := collect(t, d.Run(context.Background(), itemsOf("name", "", "   ", "\t"), Options{}))
	last := terminal(t, events)

	if last.Kind != EventCompleted {
		t.Fatalf("expected completed, got %s", last.Kind)
	}
	if svc.callCount.Load() != 0 {
		t.Error("blank cells must never reach a provider")
	}
	if len(last.Results) != 0 {
		t.Errorf("blank cells must be left alone, got %v", last.Results)
	}
	if last.Processed != 3 || last.Total != 3 {
		t.Errorf("expected 3/3 processed, got %d/%d", last.Processed, last.Total)
	}
}

func TestRun_CancelAfterTwoBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	svc := &mockService{
		nameVal: "a",
		translateFunc: func(_ context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			if calls.Add(1) == 2 {
				cancel()
			}
			return &translator.ServiceResult{ServiceName: "a", TranslatedText: "bn(" + req.Text + ")"}, nil
		},
	}
	d := New(newPool(svc), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	items := itemsOf("name", "w0", "w1", "w2", "w3", "w4")
	events := collect(t, d.Run(ctx, items, Options{Concurrency: 1, BatchSize: 1}))
	last := terminal(t, events)

	if last.Kind != EventCancelled {
		t.Fatalf("expected cancelled, got %s", last.Kind)
	}
	if len(last.Results) != 2 {
		t.Fatalf("expected exactly 2 results, got %v", last.Results)
	}
	for row := 0; row < 2; row++ {
		want := fmt.Sprintf("bn(w%d)", row)
		if got := last.Results[cell(row, "name")]; got != want {
			t.Errorf("row %d = %q, want %q", row, got, want)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected no calls after cancellation, got %d", calls.Load())
	}
	if last.Processed != 2 || last.Total != 5 {
		t.Errorf("expected 2/5 processed, got %d/%d", last.Processed, last.Total)
	}
}

func TestRun_CancelKeepsInFlightCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	svc := &mockService{
		nameVal: "a",
		translateFunc: func(_ context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			if calls.Add(1) == 2 {
				close(started)
				<-release
			}
			return &translator.ServiceResult{ServiceName: "a", TranslatedText: "bn(" + req.Text + ")"}, nil
		},
	}
	d := New(newPool(svc), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	run := d.Run(context.Background(), itemsOf("name", "w0", "w1", "w2", "w3"), Options{Concurrency: 1, BatchSize: 2})
	go func() {
		<-started
		run.Cancel()
		close(release)
	}()

	last := terminal(t, collect(t, run))

	if last.Kind != EventCancelled {
		t.Fatalf("expected cancelled, got %s", last.Kind)
	}
	if len(last.Results) != 2 || last.Results[cell(1, "name")] != "bn(w1)" {
		t.Errorf("expected the in-flight item to be kept, got %v", last.Results)
	}
	if _, ok := last.Results[cell(2, "name")]; ok {
		t.Error("items after the cancellation point must keep their original value")
	}
}

func TestRun_AccountingAddsUp(t *testing.T) {
	a := &mockService{nameVal: "a"}
	b := &mockService{nameVal: "b"}
	c := &mockService{nameVal: "c"}
	cache := lexicon.NewWithStatic(map[string]string{"w1": "স্থির"}, map[string]string{"w2": "কাস্টম"})
	d := New(newPool(a, b, c), cache, zerolog.Nop())

	var texts []string
	for i := 0; i < 60; i++ {
		texts = append(texts, fmt.Sprintf("W%d", i%17))
	}
	texts = append(texts, "", "1234567")

	var lastSeen Stats
	events := collect(t, d.Run(context.Background(), itemsOf("col", texts...), Options{
		OnStats: func(s Stats) { lastSeen = s },
	}))
	last := terminal(t, events)

	s := last.Stats
	if s.UniqueKeys != 17 {
		t.Errorf("expected 17 unique keys, got %d", s.UniqueKeys)
	}
	if s.APICalls+s.CacheHits != s.UniqueKeys {
		t.Errorf("api_calls %d + cache_hits %d != unique keys %d", s.APICalls, s.CacheHits, s.UniqueKeys)
	}
	if s.CacheHits != 2 {
		t.Errorf("expected 2 cache hits, got %d", s.CacheHits)
	}
	total := a.callCount.Load() + b.callCount.Load() + c.callCount.Load()
	if int(total) != s.APICalls {
		t.Errorf("provider calls %d != api calls %d", total, s.APICalls)
	}
	if s.Processed != len(texts) {
		t.Errorf("expected all %d items processed, got %d", len(texts), s.Processed)
	}
	if lastSeen != s {
		t.Errorf("OnStats saw %+v, terminal has %+v", lastSeen, s)
	}

	for i, txt := range texts[:60] {
		want := last.Results[cell(i%17, "col")]
		if got := last.Results[cell(i, "col")]; got != want {
			t.Errorf("row %d (%s) = %q, want %q", i, txt, got, want)
		}
	}
	if last.Results[cell(1, "col")] != "স্থির" || last.Results[cell(2, "col")] != "কাস্টম" {
		t.Error("cache hits must use cached values")
	}
}

func TestRun_StartOffsetSpreadsLoad(t *testing.T) {
	a := &mockService{nameVal: "a"}
	b := &mockService{nameVal: "b"}
	c := &mockService{nameVal: "c"}
	d := New(newPool(a, b, c), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	collect(t, d.Run(context.Background(), itemsOf("col", "x", "y", "z"), Options{}))

	for _, svc := range []*mockService{a, b, c} {
		if n := svc.callCount.Load(); n != 1 {
			t.Errorf("provider %s got %d calls, want 1", svc.nameVal, n)
		}
	}
}

type panicResolver struct{}

func (panicResolver) TranslateWithFallback(ctx context.Context, text string, start int) pool.Outcome {
	panic("bookkeeping broke")
}

func (panicResolver) Len() int { return 1 }

func TestRun_WorkerPanicIsFatal(t *testing.T) {
	d := New(panicResolver{}, lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	last := terminal(t, collect(t, d.Run(context.Background(), itemsOf("col", "a", "b"), Options{})))

	if last.Kind != EventError {
		t.Fatalf("expected error event, got %s", last.Kind)
	}
	var fde *FatalDispatchError
	if !errors.As(last.Err, &fde) {
		t.Errorf("expected FatalDispatchError, got %v", last.Err)
	}
}

func TestRun_EmitsProgressAndCacheUpdates(t *testing.T) {
	svc := &mockService{nameVal: "a"}
	d := New(newPool(svc), lexicon.NewWithStatic(nil, nil), zerolog.Nop())

	events := collect(t, d.Run(context.Background(), itemsOf("col", "a", "b", "c", "d"), Options{Concurrency: 2, BatchSize: 1}))
	terminal(t, events)

	var progress, updates int
	prev := 0
	for _, ev := range events {
		switch ev.Kind {
		case EventProgress:
			progress++
			if ev.Processed < prev {
				t.Errorf("processed went backwards: %d after %d", ev.Processed, prev)
			}
			prev = ev.Processed
		case EventCacheUpdate:
			updates++
		}
	}
	if progress != 4 {
		t.Errorf("expected one progress event per batch, got %d", progress)
	}
	if updates < 1 {
		t.Error("expected at least one cache update")
	}
}

func TestRun_Empty(t *testing.T) {
	d := New(newPool(&mockService{nameVal: "a"}), lexicon.NewWithStatic(nil, nil), zerolog.Nop())
	last := terminal(t, collect(t, d.Run(context.Background(), nil, Options{})))
	if last.Kind != EventCompleted || last.Total != 0 {
		t.Errorf("unexpected terminal event %+v", last)
	}
}
