package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market_maker/internal/helper"
	"market_maker/internal/models"
	"market_maker/internal/state"
)

type Exchange interface {
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	GetPositionInfo(ctx context.Context, symbol string) (models.PositionInfo, error)
	GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolRules, error)
}

// EventLogger — журнал событий риска. Не блокирует и не возвращает ошибок.
type EventLogger interface {
	LogEvent(eventType models.RiskEventType, details string, extra map[string]any)
}

type Params struct {
	Symbol              string
	CheckInterval       time.Duration
	InitialCapital      decimal.Decimal
	MaxNetPositionRatio decimal.Decimal
	MaxAttempts         int
	SettleDelay         time.Duration
	FallbackEpsilon     decimal.Decimal
}

// CheckResult — итог одной проверки лимита.
type CheckResult struct {
	Skipped        bool // нет цены
	Position       decimal.Decimal
	PositionStale  bool
	MaxNetPosition decimal.Decimal
	Breached       bool
	Liquidation    *LiquidationResult
}

// Controller следит за глобальным лимитом позиции независимо от лестницы.
type Controller struct {
	p      Params
	ex     Exchange
	st     *state.MarketPositionState
	events EventLogger
	log    *zap.Logger
	now    func() time.Time

	// liqMu сериализует ликвидации воркера и shutdown-пути. Не путать с мьютексом состояния.
	liqMu sync.Mutex
}

func NewController(p Params, ex Exchange, st *state.MarketPositionState, events EventLogger, log *zap.Logger) *Controller {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	return &Controller{
		p:      p,
		ex:     ex,
		st:     st,
		events: events,
		log:    log.Named("risk"),
		now:    time.Now,
	}
}

func (c *Controller) Name() string { return "risk" }

func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.p.CheckInterval)
	defer ticker.Stop()

	c.runCheck(ctx) // сразу при старте

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.runCheck(ctx)
		}
	}
}

func (c *Controller) runCheck(ctx context.Context) {
	if _, err := c.Check(ctx); err != nil && ctx.Err() == nil {
		c.log.Error("[RISK] check failed", zap.Error(err))
	}
}

// Check — один цикл: пересчёт лимита, позиция, при превышении ликвидация и пауза.
func (c *Controller) Check(ctx context.Context) (CheckResult, error) {
	var res CheckResult

	mark := c.st.MarkPrice()
	if !mark.IsPositive() {
		res.Skipped = true
		return res, nil
	}

	res.MaxNetPosition = helper.MaxNetPosition(c.p.InitialCapital, c.p.MaxNetPositionRatio, mark)
	res.Position, res.PositionStale = c.Position(ctx)
	c.log.Debug("[RISK] check",
		zap.String("position", res.Position.String()),
		zap.String("max_net_position", res.MaxNetPosition.String()),
		zap.Bool("stale", res.PositionStale),
	)

	if res.Position.Abs().LessThanOrEqual(res.MaxNetPosition) {
		return res, nil
	}

	res.Breached = true
	c.log.Warn("[RISK] net position limit exceeded",
		zap.String("position", res.Position.String()),
		zap.String("max_net_position", res.MaxNetPosition.String()))
	c.events.LogEvent(models.EventRiskLimitExceeded, "net position limit exceeded", map[string]any{
		"position":         res.Position.String(),
		"max_net_position": res.MaxNetPosition.String(),
	})

	liq, err := c.ForceLiquidate(ctx)
	res.Liquidation = &liq
	c.st.SafeUpdate(state.WithPaused(true))
	return res, err
}

// Position — позиция с биржи; при ошибке последнее известное значение из состояния.
// Второй результат true, если значение взято из состояния.
func (c *Controller) Position(ctx context.Context) (decimal.Decimal, bool) {
	info, err := c.ex.GetPositionInfo(ctx, c.p.Symbol)
	if err != nil {
		pos := c.st.Read().Position
		c.log.Warn("[RISK] position unavailable, using last known", zap.Error(err), zap.String("position", pos.String()))
		return pos, true
	}
	c.st.SafeUpdate(
		state.WithPosition(info.PositionAmt),
		state.WithLastRiskCheck(c.now()),
	)
	return info.PositionAmt, false
}

// epsilon — половина шага лота; если правила недоступны, значение из конфига.
func (c *Controller) epsilon(ctx context.Context) decimal.Decimal {
	rules, err := c.ex.GetSymbolInfo(ctx, c.p.Symbol)
	if err != nil || !rules.StepSize.IsPositive() {
		if err != nil {
			c.log.Warn("[RISK] symbol rules unavailable, fallback epsilon", zap.Error(err))
		}
		return c.p.FallbackEpsilon
	}
	return helper.HalfStep(rules.StepSize)
}
