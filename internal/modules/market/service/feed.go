package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market_maker/internal/helper"
	"market_maker/internal/models"
	"market_maker/internal/state"
)

var ErrStreamClosed = errors.New("market: stream closed")

type QuoteStream interface {
	Connect(ctx context.Context) error
	SubscribeTopOfBook(ctx context.Context, symbol string) error
	Listen(ctx context.Context) iter.Seq2[models.BookTicker, error]
	Close() error
}

// StreamFactory — новое подключение на каждый запуск воркера.
type StreamFactory func() QuoteStream

// Liveness — опциональная отметка "котировки идут" для health.
type Liveness interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

// Feed держит markPrice в общем состоянии актуальным.
// Сам не переподключается: ошибка транспорта завершает Run.
type Feed struct {
	symbol string
	dial   StreamFactory
	st     *state.MarketPositionState
	live   Liveness
	log    *zap.Logger

	logStep       decimal.Decimal
	lastLogged    decimal.Decimal
	hasLastLogged bool
}

func NewFeed(symbol string, dial StreamFactory, st *state.MarketPositionState, live Liveness, log *zap.Logger) *Feed {
	return &Feed{
		symbol:  symbol,
		dial:    dial,
		st:      st,
		live:    live,
		log:     log.Named("market"),
		logStep: decimal.NewFromInt(1),
	}
}

func (f *Feed) Name() string { return "market" }

func (f *Feed) Run(ctx context.Context) error {
	stream := f.dial()
	defer func() {
		_ = stream.Close()
		f.setConnected(false)
	}()

	if err := stream.Connect(ctx); err != nil {
		return fmt.Errorf("market connect: %w", err)
	}
	if err := stream.SubscribeTopOfBook(ctx, f.symbol); err != nil {
		return fmt.Errorf("market subscribe: %w", err)
	}
	f.setConnected(true)
	f.log.Info("[MARKET] subscribed", zap.String("symbol", f.symbol))

	for tick, err := range stream.Listen(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("market listen: %w", err)
		}
		f.HandleTicker(tick)
	}

	if ctx.Err() != nil {
		return nil
	}
	return ErrStreamClosed
}

// HandleTicker разбирает котировку и обновляет markPrice.
// Возвращает mid и true, если состояние обновлено.
func (f *Feed) HandleTicker(tick models.BookTicker) (decimal.Decimal, bool) {
	bid, err := decimal.NewFromString(tick.BestBid)
	if err != nil {
		f.log.Debug("skip quote: bad bid", zap.String("bid", tick.BestBid))
		return decimal.Zero, false
	}
	ask, err := decimal.NewFromString(tick.BestAsk)
	if err != nil {
		f.log.Debug("skip quote: bad ask", zap.String("ask", tick.BestAsk))
		return decimal.Zero, false
	}
	if !bid.IsPositive() || !ask.IsPositive() {
		return decimal.Zero, false
	}

	mid := helper.MidPrice(bid, ask)
	f.st.SafeUpdate(state.WithMarkPrice(mid))
	if f.live != nil {
		f.live.TouchTick(time.Now())
	}

	if !f.hasLastLogged || mid.Sub(f.lastLogged).Abs().GreaterThanOrEqual(f.logStep) {
		f.log.Info("[MARKET] mid", zap.String("mid", mid.String()), zap.String("bid", bid.String()), zap.String("ask", ask.String()))
		f.lastLogged = mid
		f.hasLastLogged = true
	}
	return mid, true
}

func (f *Feed) setConnected(v bool) {
	if f.live != nil {
		f.live.SetWSConnected(v)
	}
}
