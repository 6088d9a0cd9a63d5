package ladder

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	exsvc "market_maker/internal/modules/exchange/service"
	"market_maker/internal/modules/ladder/service"
	supsvc "market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

func NewEngine(cfg *config.Config, ex *exsvc.Client, st *state.MarketPositionState, log *zap.Logger) *service.Engine {
	return service.NewEngine(service.Params{
		Symbol:              cfg.Symbol,
		Levels:              cfg.Order.Levels,
		NotionalPerOrder:    cfg.Order.NotionalPerOrder.Decimal,
		PriceOffsetPercent:  cfg.Order.PriceOffsetPercent.Decimal,
		RefreshInterval:     cfg.Order.RefreshInterval,
		InitialCapital:      cfg.Risk.InitialCapital.Decimal,
		MaxNetPositionRatio: cfg.Risk.MaxNetPositionRatio.Decimal,
	}, ex, st, log)
}

func Module() fx.Option {
	return fx.Module("ladder",
		fx.Provide(
			NewEngine,
			fx.Annotate(
				func(e *service.Engine) supsvc.Worker { return e },
				fx.ResultTags(`group:"workers"`),
			),
		),
	)
}
