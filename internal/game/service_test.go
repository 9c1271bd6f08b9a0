package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjannette/tickerguess/internal/models"
)

type fakeFetcher struct {
	payload []byte
	err     error
	calls   atomic.Int32
	symbols []string
	mu      sync.Mutex

	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchDailySeries(_ context.Context, symbol string) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.symbols = append(f.symbols, symbol)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.payload, f.err
}

type memCache struct {
	mu    sync.Mutex
	data  map[string]models.Series
	saves int
}

func (c *memCache) Load(_ context.Context, symbol string, _ time.Duration) (models.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[symbol], nil
}

func (c *memCache) Save(_ context.Context, symbol string, s models.Series) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]models.Series)
	}
	c.data[symbol] = s
	c.saves++
	return nil
}

type stubGuard struct {
	block    error
	recorded int
}

func (g *stubGuard) PreFetchCheck(context.Context) error { return g.block }
func (g *stubGuard) RecordFetch(context.Context) error {
	g.recorded++
	return nil
}

var testNow = time.Date(2024, 6, 28, 15, 0, 0, 0, time.UTC)

func newTestService(f Fetcher, opts ServiceOptions) *Service {
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	return NewService(f, opts)
}

func TestService_Start(t *testing.T) {
	series := weekdaySeries(testNow.AddDate(0, 0, -1), 100)
	f := &fakeFetcher{payload: dailyPayload(t, series)}
	svc := newTestService(f, ServiceOptions{})

	sess, err := svc.Start(context.Background(), "  ibm ")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Symbol() != "IBM" || f.symbols[0] != "IBM" {
		t.Fatalf("symbol not normalized: session=%q fetched=%q", sess.Symbol(), f.symbols[0])
	}
	if !sess.Running() || sess.Score() != 0 || sess.CurrentIndex() != sess.StartIndex() {
		t.Fatalf("session not freshly active: idx=%d start=%d score=%d", sess.CurrentIndex(), sess.StartIndex(), sess.Score())
	}

	eligible := EligibleStarts(sess.Series(), testNow)
	found := false
	for _, i := range eligible {
		found = found || i == sess.StartIndex()
	}
	if !found {
		t.Fatalf("start index %d is not eligible", sess.StartIndex())
	}
	t.Logf("Started %s at %s", sess.Symbol(), sess.StartDate())
}

func TestService_EmptyTickerNoNetwork(t *testing.T) {
	f := &fakeFetcher{}
	guard := &stubGuard{}
	svc := newTestService(f, ServiceOptions{Guard: guard})

	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := svc.Start(context.Background(), raw)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected ErrValidation, got %v", raw, err)
		}
	}
	if f.calls.Load() != 0 || guard.recorded != 0 {
		t.Fatalf("no fetch expected, got %d calls", f.calls.Load())
	}
}

func TestService_ErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		f    *fakeFetcher
		want error
	}{
		{"transport", &fakeFetcher{err: fmt.Errorf("dial tcp: connection refused")}, ErrNetwork},
		{"rate limit", &fakeFetcher{payload: []byte(`{"Note": "5 calls per minute"}`)}, ErrRateLimited},
		{"bad symbol", &fakeFetcher{payload: []byte(`{"Error Message": "Invalid API call."}`)}, ErrInvalidSymbol},
		{"no container", &fakeFetcher{payload: []byte(`{}`)}, ErrDataUnavailable},
		{"too little data", &fakeFetcher{payload: []byte(`{"Time Series (Daily)": {"2024-06-03": {"4. close": "10"}}}`)}, ErrInsufficientData},
	}

	for _, tc := range cases {
		svc := newTestService(tc.f, ServiceOptions{})
		sess, err := svc.Start(context.Background(), "XYZ")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if sess != nil {
			t.Fatalf("%s: no session expected on error", tc.name)
		}
		t.Logf("%s -> %s: %q", tc.name, Kind(err), UserMessage(err))
	}
}

func TestService_GuardBlocksFetch(t *testing.T) {
	f := &fakeFetcher{}
	svc := newTestService(f, ServiceOptions{Guard: &stubGuard{block: errors.New("5/5 fetches this minute")}})

	_, err := svc.Start(context.Background(), "IBM")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatal("guard should stop the fetch")
	}
}

func TestService_CacheHitSkipsFetch(t *testing.T) {
	series := weekdaySeries(testNow, 100)
	cache := &memCache{data: map[string]models.Series{"IBM": series}}
	f := &fakeFetcher{err: errors.New("should not be called")}
	svc := newTestService(f, ServiceOptions{Cache: cache})

	if _, err := svc.Start(context.Background(), "ibm"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatalf("expected cache hit, fetcher called %d times", f.calls.Load())
	}
}

func TestService_CacheFilledAfterFetch(t *testing.T) {
	series := weekdaySeries(testNow, 100)
	cache := &memCache{}
	guard := &stubGuard{}
	f := &fakeFetcher{payload: dailyPayload(t, series)}
	svc := newTestService(f, ServiceOptions{Cache: cache, Guard: guard})

	for i := 0; i < 3; i++ {
		if _, err := svc.Start(context.Background(), "AAPL"); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
	}
	if f.calls.Load() != 1 || cache.saves != 1 || guard.recorded != 1 {
		t.Fatalf("expected one fetch/save/record, got %d/%d/%d", f.calls.Load(), cache.saves, guard.recorded)
	}
	if len(cache.data["AAPL"]) != 100 {
		t.Fatalf("cache holds %d points", len(cache.data["AAPL"]))
	}
}

func TestService_ConcurrentStartsShareFetch(t *testing.T) {
	series := weekdaySeries(testNow, 100)
	f := &fakeFetcher{
		payload: dailyPayload(t, series),
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	svc := newTestService(f, ServiceOptions{})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	start := func() {
		defer wg.Done()
		_, err := svc.Start(context.Background(), "TSLA")
		errs <- err
	}

	wg.Add(1)
	go start()
	<-f.started

	wg.Add(1)
	go start()
	time.Sleep(100 * time.Millisecond)
	close(f.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected one shared fetch, got %d", f.calls.Load())
	}
}

// ctxFetcher blocks until released, then fails if its context was cancelled.
type ctxFetcher struct {
	payload []byte
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (f *ctxFetcher) FetchDailySeries(ctx context.Context, _ string) ([]byte, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.payload, nil
}

func TestService_SharedFetchSurvivesCallerCancel(t *testing.T) {
	f := &ctxFetcher{
		payload: dailyPayload(t, weekdaySeries(testNow, 100)),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	guard := &stubGuard{}
	svc := newTestService(f, ServiceOptions{Guard: guard})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.Start(ctx, "NVDA")
		first <- err
	}()
	<-f.started

	second := make(chan error, 1)
	go func() {
		_, err := svc.Start(context.Background(), "NVDA")
		second <- err
	}()
	time.Sleep(100 * time.Millisecond)

	// The first client goes away while the fetch is in flight.
	cancel()
	close(f.release)

	if err := <-second; err != nil {
		t.Fatalf("waiting caller should not inherit the cancellation: %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("shared fetch should complete for the first caller too: %v", err)
	}
	if f.calls.Load() != 1 || guard.recorded != 1 {
		t.Fatalf("expected one fetch and one recorded call, got %d/%d", f.calls.Load(), guard.recorded)
	}
}

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", ErrRateLimited)
	if got := UserMessage(wrapped); got != "Rate limit reached. Please wait a minute and try again." {
		t.Fatalf("unexpected message %q", got)
	}
	if Kind(wrapped) != "rate_limited" {
		t.Fatalf("unexpected kind %q", Kind(wrapped))
	}
	if UserMessage(errors.New("boom")) != "Failed to start game." || Kind(errors.New("boom")) != "internal" {
		t.Fatal("unknown errors should map to the generic message")
	}
}
