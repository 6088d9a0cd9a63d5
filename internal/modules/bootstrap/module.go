package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/bootstrap/service"
	"market_maker/internal/modules/config"
	exsvc "market_maker/internal/modules/exchange/service"
	"market_maker/internal/notify"
	"market_maker/internal/state"
)

func NewWarmuper(cfg *config.Config, ex *exsvc.Client, st *state.MarketPositionState, n notify.Notifier, log *zap.Logger) *service.Warmuper {
	return service.NewWarmuper(cfg.Symbol, ex, st, n, log)
}

// Module должен стоять до supervisor: прогрев идёт в OnStart раньше воркеров.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, wu *service.Warmuper) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					_, err := wu.Warmup(ctx)
					return err
				},
			})
		}),
	)
}
