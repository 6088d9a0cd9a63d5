package risk

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	evsvc "market_maker/internal/modules/events/service"
	exsvc "market_maker/internal/modules/exchange/service"
	"market_maker/internal/modules/risk/service"
	supsvc "market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

func NewController(cfg *config.Config, ex *exsvc.Client, st *state.MarketPositionState, j *evsvc.Journal, log *zap.Logger) *service.Controller {
	return service.NewController(service.Params{
		Symbol:              cfg.Symbol,
		CheckInterval:       cfg.Risk.CheckInterval,
		InitialCapital:      cfg.Risk.InitialCapital.Decimal,
		MaxNetPositionRatio: cfg.Risk.MaxNetPositionRatio.Decimal,
		MaxAttempts:         cfg.Risk.LiquidationMaxAttempts,
		SettleDelay:         cfg.Risk.LiquidationSettleDelay,
		FallbackEpsilon:     cfg.Risk.FallbackEpsilon.Decimal,
	}, ex, st, j, log)
}

func Module() fx.Option {
	return fx.Module("risk",
		fx.Provide(
			NewController,
			fx.Annotate(
				func(c *service.Controller) supsvc.Worker { return c },
				fx.ResultTags(`group:"workers"`),
			),
		),
	)
}
