package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"market_maker/internal/models"
	"market_maker/internal/notify"
	"market_maker/internal/state"
)

type Exchange interface {
	GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolRules, error)
	GetPositionInfo(ctx context.Context, symbol string) (models.PositionInfo, error)
	GetAccountInfo(ctx context.Context) (models.AccountInfo, error)
}

type Result struct {
	Rules    models.SymbolRules
	Position decimal.Decimal
	Equity   decimal.Decimal
}

// Warmuper — REST-прогрев до запуска воркеров: правила инструмента, стартовая позиция, баланс.
type Warmuper struct {
	ex     Exchange
	st     *state.MarketPositionState
	n      notify.Notifier
	symbol string
	log    *zap.Logger
}

func NewWarmuper(symbol string, ex Exchange, st *state.MarketPositionState, n notify.Notifier, log *zap.Logger) *Warmuper {
	return &Warmuper{
		ex:     ex,
		st:     st,
		n:      n,
		symbol: symbol,
		log:    log.Named("bootstrap"),
	}
}

// Warmup падает только если правила инструмента недоступны: без них нельзя квантовать ордера.
// Позиция и баланс — best effort.
func (w *Warmuper) Warmup(ctx context.Context) (Result, error) {
	var res Result

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		rules, err := w.ex.GetSymbolInfo(ctx, w.symbol)
		if err != nil {
			return fmt.Errorf("warmup rules %s: %w", w.symbol, err)
		}
		res.Rules = rules
		return nil
	})
	p.Go(func(ctx context.Context) error {
		info, err := w.ex.GetPositionInfo(ctx, w.symbol)
		switch {
		case errors.Is(err, models.ErrPositionNotFound):
		case err != nil:
			w.log.Warn("[BOOT] position unavailable", zap.Error(err))
			return nil
		default:
			res.Position = info.PositionAmt
		}
		w.st.SafeUpdate(state.WithPosition(res.Position))
		return nil
	})
	p.Go(func(ctx context.Context) error {
		acc, err := w.ex.GetAccountInfo(ctx)
		if err != nil {
			w.log.Warn("[BOOT] account unavailable", zap.Error(err))
			return nil
		}
		res.Equity = acc.Equity()
		return nil
	})
	if err := p.Wait(); err != nil {
		return res, err
	}

	w.log.Info("[BOOT] warmup done",
		zap.String("step_size", res.Rules.StepSize.String()),
		zap.String("min_qty", res.Rules.MinQty.String()),
		zap.String("price_tick", res.Rules.PriceTick.String()),
		zap.String("position", res.Position.String()),
		zap.String("equity", res.Equity.String()),
	)
	w.n.Sendf("🔥 warmup %s: step=%s minQty=%s tick=%s position=%s equity=%s",
		w.symbol, res.Rules.StepSize, res.Rules.MinQty, res.Rules.PriceTick, res.Position, res.Equity)
	return res, nil
}
