package service

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"market_maker/internal/models"
	"market_maker/internal/state"
)

type fakeStream struct {
	ticks      []models.BookTicker
	endErr     error
	connectErr error
	subscribed string
	closed     atomic.Bool
}

func (f *fakeStream) Connect(context.Context) error { return f.connectErr }

func (f *fakeStream) SubscribeTopOfBook(_ context.Context, symbol string) error {
	f.subscribed = symbol
	return nil
}

func (f *fakeStream) Listen(ctx context.Context) iter.Seq2[models.BookTicker, error] {
	return func(yield func(models.BookTicker, error) bool) {
		for _, tk := range f.ticks {
			if !yield(tk, nil) {
				return
			}
		}
		if f.endErr != nil {
			yield(models.BookTicker{}, f.endErr)
			return
		}
		<-ctx.Done()
	}
}

func (f *fakeStream) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeLiveness struct {
	connected atomic.Bool
	ticks     atomic.Int32
}

func (l *fakeLiveness) SetWSConnected(v bool) { l.connected.Store(v) }
func (l *fakeLiveness) TouchTick(time.Time)   { l.ticks.Add(1) }

func newFeed(st *state.MarketPositionState, s *fakeStream, live Liveness) *Feed {
	return NewFeed("BTCUSDT", func() QuoteStream { return s }, st, live, zap.NewNop())
}

func TestHandleTicker(t *testing.T) {
	tests := []struct {
		name    string
		bid     string
		ask     string
		updated bool
		want    string
	}{
		{"mid half up", "100.00", "100.01", true, "100.01"},
		{"exact", "99.99", "100.01", true, "100"},
		{"zero bid", "0", "100", false, "0"},
		{"zero ask", "100", "0.0", false, "0"},
		{"malformed bid", "abc", "100", false, "0"},
		{"empty ask", "100", "", false, "0"},
		{"negative", "-1", "100", false, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := state.New()
			f := newFeed(st, &fakeStream{}, nil)

			mid, ok := f.HandleTicker(models.BookTicker{BestBid: tt.bid, BestAsk: tt.ask})
			assert.Equal(t, tt.updated, ok)
			assert.True(t, st.Read().MarkPrice.Equal(decimal.RequireFromString(tt.want)), "mark=%s", st.Read().MarkPrice)
			if ok {
				assert.True(t, mid.Equal(decimal.RequireFromString(tt.want)))
			}
		})
	}
}

func TestHandleTickerKeepsLastGoodPrice(t *testing.T) {
	st := state.New()
	f := newFeed(st, &fakeStream{}, nil)

	f.HandleTicker(models.BookTicker{BestBid: "100", BestAsk: "100.02"})
	f.HandleTicker(models.BookTicker{BestBid: "garbage", BestAsk: "100.02"})

	assert.Equal(t, "100.01", st.Read().MarkPrice.String())
}

func TestRunReturnsTransportError(t *testing.T) {
	st := state.New()
	live := &fakeLiveness{}
	stream := &fakeStream{
		ticks: []models.BookTicker{
			{BestBid: "100.00", BestAsk: "100.02"},
			{BestBid: "bad", BestAsk: "1"},
			{BestBid: "101.00", BestAsk: "101.02"},
		},
		endErr: errors.New("connection reset"),
	}
	f := newFeed(st, stream, live)

	err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, "BTCUSDT", stream.subscribed)
	assert.Equal(t, "101.01", st.Read().MarkPrice.String())
	assert.Equal(t, int32(2), live.ticks.Load())
	assert.True(t, stream.closed.Load())
	assert.False(t, live.connected.Load())
}

func TestRunConnectError(t *testing.T) {
	stream := &fakeStream{connectErr: errors.New("dial refused")}
	err := newFeed(state.New(), stream, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, stream.closed.Load())
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	st := state.New()
	stream := &fakeStream{ticks: []models.BookTicker{{BestBid: "10", BestAsk: "10"}}}
	f := newFeed(st, stream, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return st.Read().MarkPrice.IsPositive() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop")
	}
}
