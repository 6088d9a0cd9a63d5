package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market_maker/internal/models"
	"market_maker/internal/state"
)

const MetricAccount = "account_metrics"

type Exchange interface {
	GetAccountInfo(ctx context.Context) (models.AccountInfo, error)
	GetPositionInfo(ctx context.Context, symbol string) (models.PositionInfo, error)
}

type MetricRecorder interface {
	RecordMetric(m models.MetricSample)
}

// Collector раз в interval снимает состояние счёта и позиции в журнал метрик.
type Collector struct {
	symbol         string
	interval       time.Duration
	initialCapital decimal.Decimal

	ex      Exchange
	st      *state.MarketPositionState
	metrics MetricRecorder
	log     *zap.Logger
	now     func() time.Time
}

func NewCollector(symbol string, interval time.Duration, initialCapital decimal.Decimal, ex Exchange, st *state.MarketPositionState, metrics MetricRecorder, log *zap.Logger) *Collector {
	return &Collector{
		symbol:         symbol,
		interval:       interval,
		initialCapital: initialCapital,
		ex:             ex,
		st:             st,
		metrics:        metrics,
		log:            log.Named("monitor"),
		now:            time.Now,
	}
}

func (c *Collector) Name() string { return "monitor" }

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Collect(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("[MONITOR] collect failed", zap.Error(err))
			}
		}
	}
}

// Collect снимает одну метрику. Ошибка аккаунта — метрика без equity не пишется.
// Отсутствие позиции считается нулевой позицией.
func (c *Collector) Collect(ctx context.Context) (models.MetricSample, error) {
	account, err := c.ex.GetAccountInfo(ctx)
	if err != nil {
		return models.MetricSample{}, fmt.Errorf("account info: %w", err)
	}

	pos, err := c.ex.GetPositionInfo(ctx, c.symbol)
	switch {
	case errors.Is(err, models.ErrPositionNotFound):
		pos = models.PositionInfo{Symbol: c.symbol}
	case err != nil:
		return models.MetricSample{}, fmt.Errorf("position info: %w", err)
	}

	mark := c.st.MarkPrice()
	sample := models.MetricSample{
		Time:  c.now(),
		Name:  MetricAccount,
		Value: account.Equity(),
		Unit:  "usdt",
		Details: map[string]any{
			"realized_pnl":   account.RealizedPnl(c.initialCapital).String(),
			"unrealized_pnl": pos.UnrealizedPnl.String(),
			"position":       pos.PositionAmt.String(),
			"entry_price":    pos.EntryPrice.String(),
			"mark_price":     mark.String(),
		},
	}
	c.metrics.RecordMetric(sample)

	c.log.Info("[MONITOR] account",
		zap.String("equity", sample.Value.String()),
		zap.String("position", pos.PositionAmt.String()),
		zap.String("entry_price", pos.EntryPrice.String()),
		zap.String("mark_price", mark.String()),
		zap.String("unrealized_pnl", pos.UnrealizedPnl.String()),
	)
	return sample, nil
}
