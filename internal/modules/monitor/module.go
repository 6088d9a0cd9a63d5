package monitor

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	evsvc "market_maker/internal/modules/events/service"
	exsvc "market_maker/internal/modules/exchange/service"
	"market_maker/internal/modules/monitor/service"
	supsvc "market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

func NewCollector(cfg *config.Config, ex *exsvc.Client, st *state.MarketPositionState, j *evsvc.Journal, log *zap.Logger) *service.Collector {
	return service.NewCollector(cfg.Symbol, cfg.Monitor.Interval, cfg.Risk.InitialCapital.Decimal, ex, st, j, log)
}

func Module() fx.Option {
	return fx.Module("monitor",
		fx.Provide(
			NewCollector,
			fx.Annotate(
				func(c *service.Collector) supsvc.Worker { return c },
				fx.ResultTags(`group:"workers"`),
			),
		),
	)
}
