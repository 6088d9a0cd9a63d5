package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market_maker/internal/helper"
	"market_maker/internal/models"
	"market_maker/internal/state"
)

var (
	ErrNoMarket = errors.New("ladder: no mark price yet")
	ErrPaused   = errors.New("ladder: strategy paused")
)

type Exchange interface {
	CancelAllOrders(ctx context.Context, symbol string) error
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	GetPositionInfo(ctx context.Context, symbol string) (models.PositionInfo, error)
	GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolRules, error)
}

type Params struct {
	Symbol              string
	Levels              int
	NotionalPerOrder    decimal.Decimal
	PriceOffsetPercent  decimal.Decimal
	RefreshInterval     time.Duration
	InitialCapital      decimal.Decimal
	MaxNetPositionRatio decimal.Decimal
}

// CycleReport — итог одного цикла.
type CycleReport struct {
	Mid            decimal.Decimal
	MaxNetPosition decimal.Decimal
	Position       decimal.Decimal
	PositionStale  bool // позицию не удалось получить, взята из состояния
	Placed         []models.OrderLevel
	Skipped        []SkippedLevel
}

// Engine раз в RefreshInterval снимает все ордера и выставляет лестницу заново.
type Engine struct {
	p   Params
	ex  Exchange
	st  *state.MarketPositionState
	log *zap.Logger
	now func() time.Time

	rulesMu sync.Mutex
	rules   *models.SymbolRules
}

func NewEngine(p Params, ex Exchange, st *state.MarketPositionState, log *zap.Logger) *Engine {
	return &Engine{
		p:   p,
		ex:  ex,
		st:  st,
		log: log.Named("ladder"),
		now: time.Now,
	}
}

func (e *Engine) Name() string { return "ladder" }

func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.p.RefreshInterval)
	defer ticker.Stop()

	e.runCycle(ctx) // сразу при старте

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	report, err := e.Refresh(ctx)
	switch {
	case err == nil:
		e.log.Info("[LADDER] refreshed",
			zap.String("mid", report.Mid.String()),
			zap.String("position", report.Position.String()),
			zap.String("max_net_position", report.MaxNetPosition.String()),
			zap.Int("orders", len(report.Placed)),
			zap.Int("skipped_levels", len(report.Skipped)),
		)
	case errors.Is(err, ErrNoMarket), errors.Is(err, ErrPaused):
		e.log.Debug("[LADDER] cycle skipped", zap.Error(err))
	case ctx.Err() != nil:
	default:
		e.log.Error("[LADDER] cycle failed", zap.Error(err))
	}
}

// Refresh — один цикл: отмена, расчёт, выставление.
func (e *Engine) Refresh(ctx context.Context) (report CycleReport, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ladder.refresh")
	defer func() {
		if err != nil && !errors.Is(err, ErrNoMarket) && !errors.Is(err, ErrPaused) {
			span.SetTag("error", true)
			span.LogKV("event", "error", "message", err.Error())
		}
		span.Finish()
	}()

	if err := e.ex.CancelAllOrders(ctx, e.p.Symbol); err != nil {
		return report, fmt.Errorf("cancel orders: %w", err)
	}

	snap := e.st.Read()
	if !snap.MarkPrice.IsPositive() {
		return report, ErrNoMarket
	}
	if snap.StrategyPaused {
		return report, ErrPaused
	}

	rules, err := e.symbolRules(ctx)
	if err != nil {
		return report, err
	}

	report.MaxNetPosition = helper.MaxNetPosition(e.p.InitialCapital, e.p.MaxNetPositionRatio, snap.MarkPrice)
	report.Position, report.PositionStale = e.currentPosition(ctx, snap.Position)

	ladder := BuildLadder(LadderInput{
		MarkPrice:        snap.MarkPrice,
		MaxNetPosition:   report.MaxNetPosition,
		CurrentPosition:  report.Position,
		Levels:           e.p.Levels,
		OffsetPercent:    e.p.PriceOffsetPercent,
		NotionalPerOrder: e.p.NotionalPerOrder,
		Rules:            rules,
	})
	report.Mid = ladder.Mid
	report.Skipped = ladder.Skipped
	for _, s := range ladder.Skipped {
		e.log.Debug("[LADDER] level skipped", zap.Int("level", s.Level), zap.String("reason", s.Reason))
	}

	for _, o := range ladder.Orders {
		// риск мог поставить паузу, пока мы выставляли предыдущие уровни
		if e.st.Paused() {
			return report, ErrPaused
		}
		if _, err := e.ex.PlaceOrder(ctx, models.OrderRequest{
			Symbol:      e.p.Symbol,
			Side:        o.Side,
			Type:        models.OrderTypeLimit,
			Quantity:    o.Quantity,
			Price:       o.Price,
			TimeInForce: models.TimeInForceGTC,
		}); err != nil {
			return report, fmt.Errorf("place L%d %s %s@%s: %w", o.Level, o.Side, o.Quantity, o.Price, err)
		}
		report.Placed = append(report.Placed, o)
	}

	if len(report.Placed) > 0 {
		e.st.SafeUpdate(state.WithLastOrderTime(e.now()))
	}
	return report, nil
}

// currentPosition: биржа, при ошибке — последнее известное из состояния.
func (e *Engine) currentPosition(ctx context.Context, fallback decimal.Decimal) (decimal.Decimal, bool) {
	info, err := e.ex.GetPositionInfo(ctx, e.p.Symbol)
	if err != nil {
		e.log.Warn("[LADDER] position unavailable, using last known", zap.Error(err), zap.String("position", fallback.String()))
		return fallback, true
	}
	return info.PositionAmt, false
}

// symbolRules кэширует правила. Запрос к бирже идёт без блокировки.
func (e *Engine) symbolRules(ctx context.Context) (models.SymbolRules, error) {
	e.rulesMu.Lock()
	cached := e.rules
	e.rulesMu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	rules, err := e.ex.GetSymbolInfo(ctx, e.p.Symbol)
	if err != nil {
		return models.SymbolRules{}, fmt.Errorf("symbol rules: %w", err)
	}

	e.rulesMu.Lock()
	e.rules = &rules
	e.rulesMu.Unlock()
	return rules, nil
}
