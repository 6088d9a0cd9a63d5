package supervisor

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	exsvc "market_maker/internal/modules/exchange/service"
	risksvc "market_maker/internal/modules/risk/service"
	"market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

type Params struct {
	fx.In

	Config  *config.Config
	Log     *zap.Logger
	Workers []service.Worker `group:"workers"`
}

func NewPolicy(cfg *config.Config) service.Policy {
	return service.Policy{
		RestartBackoff:    cfg.Supervisor.RestartBackoff,
		MaxBackoff:        cfg.Supervisor.MaxBackoff,
		BackoffMultiplier: cfg.Supervisor.BackoffMultiplier,
		MaxRestarts:       cfg.Supervisor.MaxRestarts,
		CheckInterval:     cfg.Supervisor.CheckInterval,
		StableRun:         cfg.Supervisor.StableRun,
	}
}

func NewSupervisor(p Params) *service.Supervisor {
	return service.New(NewPolicy(p.Config), p.Log, p.Workers...)
}

// TeardownSteps — порядок остановки: пауза, снятие ордеров, финальная ликвидация.
// Воркеры отменяются уже после них.
func TeardownSteps(cfg *config.Config, st *state.MarketPositionState, ex *exsvc.Client, risk *risksvc.Controller) []service.TeardownStep {
	return []service.TeardownStep{
		{
			Name: "pause",
			Run: func(context.Context) error {
				st.SafeUpdate(state.WithPaused(true))
				return nil
			},
		},
		{
			Name: "cancel_orders",
			Run: func(ctx context.Context) error {
				return ex.CancelAllOrders(ctx, cfg.Symbol)
			},
		},
		{
			Name: "liquidate",
			Run: func(ctx context.Context) error {
				res, err := risk.ForceLiquidate(ctx)
				if err != nil {
					return err
				}
				if res.Status == risksvc.LiquidationFailed {
					return fmt.Errorf("position %s left open after %d attempts", res.Remaining, res.Attempts)
				}
				return nil
			},
		},
	}
}

func Module() fx.Option {
	return fx.Module("supervisor",
		fx.Provide(
			NewSupervisor,
		),
		fx.Invoke(func(lc fx.Lifecycle, root context.Context, cfg *config.Config, sup *service.Supervisor,
			st *state.MarketPositionState, ex *exsvc.Client, risk *risksvc.Controller) {
			steps := TeardownSteps(cfg, st, ex, risk)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					// OnStart ctx живёт только на время старта, воркерам нужен корневой
					sup.Start(root)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					if t := cfg.Supervisor.ShutdownTimeout; t > 0 {
						var cancel context.CancelFunc
						ctx, cancel = context.WithTimeout(ctx, t)
						defer cancel()
					}
					return sup.Shutdown(ctx, steps...)
				},
			})
		}),
	)
}
