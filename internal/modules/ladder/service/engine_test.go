package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"market_maker/internal/models"
	"market_maker/internal/state"
)

type fakeExchange struct {
	mu sync.Mutex

	calls     []string
	orders    []models.OrderRequest
	position  decimal.Decimal
	posErr    error
	cancelErr error
	placeErr  error
	rulesErr  error
	rulesHits int
	rulesGate chan struct{}
	onPlace   func()
}

func (f *fakeExchange) CancelAllOrders(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "cancel")
	return f.cancelErr
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req models.OrderRequest) (models.OrderResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "place")
	err := f.placeErr
	if err == nil {
		f.orders = append(f.orders, req)
	}
	cb := f.onPlace
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return models.OrderResult{OrderID: int64(len(f.orders))}, err
}

func (f *fakeExchange) GetPositionInfo(_ context.Context, symbol string) (models.PositionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posErr != nil {
		return models.PositionInfo{}, f.posErr
	}
	return models.PositionInfo{Symbol: symbol, PositionAmt: f.position}, nil
}

func (f *fakeExchange) GetSymbolInfo(context.Context, string) (models.SymbolRules, error) {
	f.mu.Lock()
	f.rulesHits++
	err := f.rulesErr
	gate := f.rulesGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return models.SymbolRules{}, err
	}
	return btcRules, nil
}

func (f *fakeExchange) rulesCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rulesHits
}

func (f *fakeExchange) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func testParams() Params {
	return Params{
		Symbol:              "BTCUSDT",
		Levels:              2,
		NotionalPerOrder:    d("100"),
		PriceOffsetPercent:  d("0.25"),
		RefreshInterval:     20 * time.Millisecond,
		InitialCapital:      d("200"),
		MaxNetPositionRatio: d("0.5"),
	}
}

func newEngine(ex *fakeExchange, st *state.MarketPositionState) *Engine {
	return NewEngine(testParams(), ex, st, zap.NewNop())
}

func TestRefreshPlacesLadderAfterCancel(t *testing.T) {
	ex := &fakeExchange{}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))
	e := newEngine(ex, st)

	report, err := e.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"cancel", "place", "place", "place", "place"}, ex.calls)
	require.Len(t, ex.orders, 4)
	for _, o := range ex.orders {
		assert.Equal(t, models.OrderTypeLimit, o.Type)
		assert.Equal(t, models.TimeInForceGTC, o.TimeInForce)
		assert.Equal(t, "BTCUSDT", o.Symbol)
	}
	assert.True(t, ex.orders[0].Price.Equal(d("99.75")))
	assert.True(t, ex.orders[1].Price.Equal(d("100.25")))
	assert.True(t, ex.orders[2].Price.Equal(d("99.5")))
	assert.True(t, ex.orders[3].Price.Equal(d("100.5")))

	assert.True(t, report.MaxNetPosition.Equal(d("1")))
	assert.Len(t, report.Placed, 4)
	assert.False(t, st.Read().LastOrderTime.IsZero())
}

func TestRefreshSkipsWithoutMarket(t *testing.T) {
	ex := &fakeExchange{}
	e := newEngine(ex, state.New())

	_, err := e.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoMarket)
	// отмена всё равно выполняется первой
	assert.Equal(t, []string{"cancel"}, ex.calls)
}

func TestRefreshSkipsWhenPaused(t *testing.T) {
	ex := &fakeExchange{}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")), state.WithPaused(true))

	_, err := newEngine(ex, st).Refresh(context.Background())
	require.ErrorIs(t, err, ErrPaused)
	assert.Equal(t, []string{"cancel"}, ex.calls)
}

func TestRefreshStopsPlacingWhenPausedMidCycle(t *testing.T) {
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))
	ex := &fakeExchange{}
	ex.onPlace = func() { st.SafeUpdate(state.WithPaused(true)) }

	report, err := newEngine(ex, st).Refresh(context.Background())
	require.ErrorIs(t, err, ErrPaused)
	assert.Len(t, report.Placed, 1)
	assert.Equal(t, 1, ex.orderCount())
}

func TestRefreshCancelFailureAbortsCycle(t *testing.T) {
	ex := &fakeExchange{cancelErr: errors.New("timeout")}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))

	_, err := newEngine(ex, st).Refresh(context.Background())
	require.Error(t, err)
	assert.Zero(t, ex.orderCount())
}

func TestRefreshFallsBackToStatePosition(t *testing.T) {
	ex := &fakeExchange{posErr: errors.New("rest down")}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")), state.WithPosition(d("0.9")))

	report, err := newEngine(ex, st).Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, report.PositionStale)
	assert.True(t, report.Position.Equal(d("0.9")))
	for _, o := range ex.orders {
		assert.True(t, o.Quantity.Equal(d("0.1")), "qty=%s", o.Quantity)
	}
}

func TestRefreshUsesExchangePosition(t *testing.T) {
	ex := &fakeExchange{position: d("-0.6")}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")), state.WithPosition(d("0")))

	report, err := newEngine(ex, st).Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, report.PositionStale)
	for _, o := range ex.orders {
		assert.True(t, o.Quantity.Equal(d("0.4")))
	}
}

func TestRefreshPlaceErrorAbortsRest(t *testing.T) {
	ex := &fakeExchange{placeErr: errors.New("insufficient margin")}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))

	_, err := newEngine(ex, st).Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"cancel", "place"}, ex.calls)
	assert.True(t, st.Read().LastOrderTime.IsZero())
}

func TestSymbolRulesFetchedOnce(t *testing.T) {
	ex := &fakeExchange{}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))
	e := newEngine(ex, st)

	for range 3 {
		_, err := e.Refresh(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, ex.rulesHits)
}

func TestRunSurvivesFailingCycles(t *testing.T) {
	ex := &fakeExchange{cancelErr: errors.New("exchange down")}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))
	e := newEngine(ex, st)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		ex.mu.Lock()
		defer ex.mu.Unlock()
		return len(ex.calls) >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestSymbolRulesFetchDoesNotBlockOtherCycles(t *testing.T) {
	ex := &fakeExchange{rulesGate: make(chan struct{})}
	st := state.New()
	st.SafeUpdate(state.WithMarkPrice(d("100")))
	e := newEngine(ex, st)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Refresh(context.Background())
		}()
	}

	// оба цикла дошли до биржи, пока первый запрос ещё висит
	require.Eventually(t, func() bool { return ex.rulesCalls() == 2 }, time.Second, 5*time.Millisecond)
	close(ex.rulesGate)
	wg.Wait()
}
