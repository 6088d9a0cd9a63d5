package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market_maker/internal/models"
	"market_maker/internal/state"
)

type LiquidationStatus string

const (
	LiquidationNoPosition LiquidationStatus = "no_position"
	LiquidationDone       LiquidationStatus = "liquidated"
	LiquidationFailed     LiquidationStatus = "failed"
	LiquidationAborted    LiquidationStatus = "aborted"
)

type LiquidationResult struct {
	Status    LiquidationStatus
	Attempts  int
	Remaining decimal.Decimal
}

// ForceLiquidate закрывает позицию рыночными reduceOnly ордерами, не более MaxAttempts попыток.
// Если позиция не ушла в ноль, ставит стратегию на паузу.
func (c *Controller) ForceLiquidate(ctx context.Context) (res LiquidationResult, err error) {
	c.liqMu.Lock()
	defer c.liqMu.Unlock()

	span, ctx := opentracing.StartSpanFromContext(ctx, "risk.liquidate")
	defer func() {
		span.SetTag("status", string(res.Status))
		span.SetTag("attempts", res.Attempts)
		if err != nil {
			span.SetTag("error", true)
			span.LogKV("event", "error", "message", err.Error())
		}
		span.Finish()
	}()

	remaining, _ := c.Position(ctx)
	res.Remaining = remaining
	if remaining.IsZero() {
		c.log.Info("[RISK] no position to liquidate")
		c.events.LogEvent(models.EventNoPosition, "no position, nothing to liquidate", map[string]any{})
		res.Status = LiquidationNoPosition
		return res, nil
	}

	eps := c.epsilon(ctx)
	side, qty := closingOrder(remaining)

	for attempt := 1; attempt <= c.p.MaxAttempts; attempt++ {
		res.Attempts = attempt
		c.log.Warn("[RISK] market liquidation",
			zap.Int("attempt", attempt), zap.String("side", string(side)), zap.String("qty", qty.String()))

		_, placeErr := c.ex.PlaceOrder(ctx, models.OrderRequest{
			Symbol:     c.p.Symbol,
			Side:       side,
			Type:       models.OrderTypeMarket,
			Quantity:   qty,
			ReduceOnly: true,
		})
		if placeErr != nil {
			c.log.Error("[RISK] liquidation order failed", zap.Int("attempt", attempt), zap.Error(placeErr))
			c.events.LogEvent(models.EventRiskError,
				fmt.Sprintf("liquidation attempt %d failed: %v", attempt, placeErr),
				map[string]any{"side": string(side), "qty": qty.String(), "attempt": attempt})
			if ctx.Err() != nil {
				res.Status = LiquidationAborted
				return res, ctx.Err()
			}
			continue
		}

		if err := sleepCtx(ctx, c.p.SettleDelay); err != nil {
			res.Status = LiquidationAborted
			return res, err
		}

		remaining, _ = c.Position(ctx)
		res.Remaining = remaining
		if remaining.Abs().LessThan(eps) {
			c.st.SafeUpdate(state.WithPosition(decimal.Zero))
			c.log.Warn("[RISK] position liquidated", zap.Int("attempt", attempt))
			c.events.LogEvent(models.EventForcedLiquidation,
				fmt.Sprintf("market %s %s closed the position after %d attempt(s)", side, qty, attempt),
				map[string]any{"side": string(side), "qty": qty.String(), "attempt": attempt})
			res.Status = LiquidationDone
			return res, nil
		}

		c.log.Warn("[RISK] position still open after liquidation order",
			zap.Int("attempt", attempt), zap.String("remaining", remaining.String()))
		c.events.LogEvent(models.EventLiquidationRetry,
			fmt.Sprintf("attempt %d left position %s", attempt, remaining),
			map[string]any{"side": string(side), "qty": qty.String(), "remain_position": remaining.String(), "attempt": attempt})
		side, qty = closingOrder(remaining)
	}

	c.st.SafeUpdate(state.WithPaused(true))
	c.log.Error("[RISK] liquidation failed, strategy paused",
		zap.Int("attempts", c.p.MaxAttempts), zap.String("remaining", res.Remaining.String()))
	c.events.LogEvent(models.EventLiquidationFailed,
		fmt.Sprintf("position not closed after %d attempts, strategy paused; last position %s", c.p.MaxAttempts, res.Remaining),
		map[string]any{"side": string(side), "qty": qty.String(), "remain_position": res.Remaining.String(), "attempt": c.p.MaxAttempts})
	res.Status = LiquidationFailed
	return res, nil
}

// closingOrder — сторона и объём, закрывающие позицию.
func closingOrder(position decimal.Decimal) (models.Side, decimal.Decimal) {
	if position.IsPositive() {
		return models.SideSell, position.Abs()
	}
	return models.SideBuy, position.Abs()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
