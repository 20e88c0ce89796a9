package checkout

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/api"
	"storefront/cart"
	"storefront/models"
	"storefront/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakePlacer struct {
	mu       sync.Mutex
	calls    int32
	products []string
	keys     []string
	fail     map[string]error
	hook     func()
}

func (f *fakePlacer) CreateOrder(_ context.Context, token, productID, key string) error {
	atomic.AddInt32(&f.calls, 1)
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	f.products = append(f.products, productID)
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	if err, ok := f.fail[productID]; ok {
		return err
	}
	return nil
}

func twoLineCart(t *testing.T) *cart.Store {
	t.Helper()
	s := cart.New()
	_, err := s.Add(models.Product{ID: "A", Name: "Alpha", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = s.Add(models.Product{ID: "B", Name: "Beta", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	return s
}

func TestSubmitWithoutTokenSendsNothing(t *testing.T) {
	placer := &fakePlacer{}
	rec := &notify.Recorder{}
	s := New(placer, WithNotifier(rec))
	store := twoLineCart(t)
	before := store.Snapshot()

	res, err := s.Submit(context.Background(), "", store)

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Nil(t, res)
	assert.Equal(t, int32(0), atomic.LoadInt32(&placer.calls))
	assert.Equal(t, []models.Notice{{Level: models.NoticeError, Message: MsgLoginRequired}}, rec.Notices())
	after := store.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Lines, after.Lines)
}

func TestSubmitPartialFailureClearsAlways(t *testing.T) {
	placer := &fakePlacer{fail: map[string]error{
		"B": &api.APIError{Status: http.StatusBadRequest, Message: "Insufficient balance"},
	}}
	rec := &notify.Recorder{}
	s := New(placer, WithNotifier(rec))
	store := twoLineCart(t)

	res, err := s.Submit(context.Background(), "tok", store)
	require.NoError(t, err)

	// The cart is emptied even though one order failed.
	assert.Equal(t, 0, store.Len())
	assert.True(t, res.Cleared)
	assert.Equal(t, 1, res.Placed)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, res.Pending)

	assert.Equal(t, int32(2), atomic.LoadInt32(&placer.calls))
	assert.ElementsMatch(t, []string{"A", "B"}, placer.products)
	assert.Len(t, rec.Notices(), 2)
	assert.ElementsMatch(t, []models.Notice{
		{Level: models.NoticeSuccess, Message: MsgPlaced},
		{Level: models.NoticeError, Message: "Insufficient balance"},
	}, rec.Notices())

	assert.True(t, res.Lines[0].Placed)
	assert.False(t, res.Lines[1].Placed)
	assert.Equal(t, "Insufficient balance", res.Lines[1].Error)
}

func TestSubmitClearAlwaysKeepsLinesAddedDuringCheckout(t *testing.T) {
	store := twoLineCart(t)
	var once sync.Once
	placer := &fakePlacer{hook: func() {
		once.Do(func() {
			_, err := store.Add(models.Product{ID: "C", Name: "Gamma", Price: decimal.NewFromInt(3)})
			assert.NoError(t, err)
		})
	}}
	s := New(placer, WithNotifier(&notify.Recorder{}))

	res, err := s.Submit(context.Background(), "tok", store)
	require.NoError(t, err)

	assert.True(t, res.Cleared)
	assert.Equal(t, 2, res.Placed)
	assert.ElementsMatch(t, []string{"A", "B"}, placer.products)
	assert.Equal(t, 1, store.Len())
	line, ok := store.Line("C")
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
}

func TestSubmitPartialFailureKeepsFailedLines(t *testing.T) {
	placer := &fakePlacer{fail: map[string]error{"B": &api.APIError{Status: http.StatusBadGateway}}}
	rec := &notify.Recorder{}
	s := New(placer, WithNotifier(rec), WithPolicy(ClearSucceeded))
	store := twoLineCart(t)

	res, err := s.Submit(context.Background(), "tok", store)
	require.NoError(t, err)

	assert.False(t, res.Cleared)
	assert.Equal(t, []string{"B"}, res.Pending)
	_, ok := store.Line("A")
	assert.False(t, ok)
	line, ok := store.Line("B")
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
	assert.Contains(t, rec.Notices(), models.Notice{Level: models.NoticeError, Message: MsgFailed})
}

func TestSubmitAllSucceededUnderClearSucceeded(t *testing.T) {
	s := New(&fakePlacer{}, WithNotifier(&notify.Recorder{}), WithPolicy(ClearSucceeded))
	store := twoLineCart(t)

	res, err := s.Submit(context.Background(), "tok", store)
	require.NoError(t, err)
	assert.True(t, res.Cleared)
	assert.Equal(t, 0, store.Len())
}

func TestSubmitTransportErrorUsesFallback(t *testing.T) {
	placer := &fakePlacer{fail: map[string]error{"A": errors.New("connection refused")}}
	rec := &notify.Recorder{}
	s := New(placer, WithNotifier(rec))
	store := cart.New()
	_, err := store.Add(models.Product{ID: "A", Name: "Alpha", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "tok", store)
	require.NoError(t, err)
	assert.Equal(t, []models.Notice{{Level: models.NoticeError, Message: MsgFailed}}, rec.Notices())
}

func TestSubmitEmptyCart(t *testing.T) {
	placer := &fakePlacer{}
	rec := &notify.Recorder{}
	s := New(placer, WithNotifier(rec))

	_, err := s.Submit(context.Background(), "tok", cart.New())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, int32(0), atomic.LoadInt32(&placer.calls))
	assert.Equal(t, 1, rec.Count(models.NoticeError))
}

func TestSubmitSendsDistinctIdempotencyKeys(t *testing.T) {
	placer := &fakePlacer{}
	s := New(placer, WithNotifier(&notify.Recorder{}))

	_, err := s.Submit(context.Background(), "tok", twoLineCart(t))
	require.NoError(t, err)
	require.Len(t, placer.keys, 2)
	assert.NotEmpty(t, placer.keys[0])
	assert.NotEqual(t, placer.keys[0], placer.keys[1])
}

func TestSubmitIssuesRequestsConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	all := make(chan struct{})
	go func() {
		arrived.Wait()
		close(all)
	}()
	placer := &fakePlacer{hook: func() {
		arrived.Done()
		select {
		case <-all:
		case <-time.After(2 * time.Second):
		}
	}}
	s := New(placer, WithNotifier(&notify.Recorder{}))
	store := twoLineCart(t)

	done := make(chan struct{})
	go func() {
		_, _ = s.Submit(context.Background(), "tok", store)
		close(done)
	}()

	select {
	case <-all:
	case <-time.After(time.Second):
		t.Fatal("requests were not in flight at the same time")
	}
	<-done
}

func TestSubmitConcurrencyCap(t *testing.T) {
	var inFlight, peak int32
	placer := &fakePlacer{hook: func() {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}}
	s := New(placer, WithNotifier(&notify.Recorder{}), WithConcurrency(1))
	store := twoLineCart(t)
	_, err := store.Add(models.Product{ID: "C", Name: "Gamma", Price: decimal.NewFromInt(2)})
	require.NoError(t, err)

	res, err := s.Submit(context.Background(), "tok", store)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Placed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestSubmitLimiterFailureIsPerLine(t *testing.T) {
	placer := &fakePlacer{}
	rec := &notify.Recorder{}
	s := New(placer, WithNotifier(rec), WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := s.Submit(ctx, "tok", twoLineCart(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Placed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&placer.calls))
	assert.Equal(t, 1, rec.Count(models.NoticeSuccess))
	assert.Equal(t, 1, rec.Count(models.NoticeError))
}

func TestRunRejectsOverlappingCheckout(t *testing.T) {
	placer := &fakePlacer{}
	locker := NewMemoryLocker()
	rec := &notify.Recorder{}
	s := New(placer, WithLocker(locker))
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "checkout_lock:s1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	store := twoLineCart(t)
	_, err = s.Run(ctx, Checkout{SessionID: "s1", Token: "tok", Cart: store, Notifier: rec})
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Equal(t, int32(0), atomic.LoadInt32(&placer.calls))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []models.Notice{{Level: models.NoticeError, Message: MsgInProgress}}, rec.Notices())

	// Other sessions are unaffected.
	_, err = s.Run(ctx, Checkout{SessionID: "s2", Token: "tok", Cart: twoLineCart(t), Notifier: rec})
	assert.NoError(t, err)
}

func TestRunReleasesLock(t *testing.T) {
	locker := NewMemoryLocker()
	s := New(&fakePlacer{}, WithLocker(locker), WithNotifier(&notify.Recorder{}))
	ctx := context.Background()

	_, err := s.Run(ctx, Checkout{SessionID: "s1", Token: "tok", Cart: twoLineCart(t)})
	require.NoError(t, err)

	ok, err := locker.Acquire(ctx, "checkout_lock:s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockerExpires(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewMemoryLocker()
	l.clock = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "k", time.Second)
	assert.True(t, ok)
	ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.False(t, ok)

	now = now.Add(2 * time.Second)
	ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.True(t, ok)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ClearAlways, p)

	p, err = ParsePolicy("succeeded")
	require.NoError(t, err)
	assert.Equal(t, ClearSucceeded, p)
	assert.Equal(t, "succeeded", p.String())

	_, err = ParsePolicy("never")
	assert.Error(t, err)
}
