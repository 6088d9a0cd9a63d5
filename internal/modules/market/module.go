package market

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	exsvc "market_maker/internal/modules/exchange/service"
	healthsvc "market_maker/internal/modules/health/service"
	"market_maker/internal/modules/market/service"
	supsvc "market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

func NewFeed(cfg *config.Config, ex *exsvc.Client, st *state.MarketPositionState, probe *healthsvc.State, log *zap.Logger) *service.Feed {
	dial := func() service.QuoteStream { return ex.NewStream() }
	return service.NewFeed(cfg.Symbol, dial, st, probe, log)
}

func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			NewFeed,
			fx.Annotate(
				func(f *service.Feed) supsvc.Worker { return f },
				fx.ResultTags(`group:"workers"`),
			),
		),
	)
}
