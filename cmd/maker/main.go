package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"market_maker/internal/modules/bootstrap"
	"market_maker/internal/modules/config"
	"market_maker/internal/modules/events"
	"market_maker/internal/modules/exchange"
	"market_maker/internal/modules/health"
	"market_maker/internal/modules/ladder"
	"market_maker/internal/modules/market"
	"market_maker/internal/modules/monitor"
	"market_maker/internal/modules/postgres"
	"market_maker/internal/modules/risk"
	"market_maker/internal/modules/supervisor"
	telegram "market_maker/internal/modules/telegram_bot"
	"market_maker/internal/state"
	"market_maker/pkg/logger"
	"market_maker/pkg/tracing"
)

const serviceName = "market_maker"

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(serviceName)
	l, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	l = l.With(
		zap.String("service", serviceName),
		zap.String("instance_id", cfg.InstanceID),
		zap.String("symbol", cfg.Symbol),
		zap.String("env", cfg.Exchange.Env),
	)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = l.Sync()
			return nil
		},
	})
	return l, nil
}

// tracingModule поднимает jaeger, только если он включён в конфиге.
func tracingModule() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
			if !cfg.Tracing.Enabled {
				return nil
			}
			tracing.SetServiceName(serviceName)
			_, closeFn, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
			if err != nil {
				return err
			}
			log.Info("tracing enabled", zap.String("agent", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeFn()
					return nil
				},
			})
			return nil
		}),
	)
}

func appOptions() []fx.Option {
	return []fx.Option{
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			newLogger,
			state.New,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.StopTimeout(time.Minute),

		config.Module(),
		tracingModule(),
		telegram.Module(),
		postgres.Module(),
		exchange.Module(),
		events.Module(),
		market.Module(),
		ladder.Module(),
		risk.Module(),
		monitor.Module(),
		bootstrap.Module(),
		supervisor.Module(),
		health.Module(),
	}
}

func main() {
	app := fx.New(appOptions()...)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	// Run ждёт SIGINT/SIGTERM и затем выполняет OnStop: пауза, отмена ордеров, ликвидация, остановка воркеров.
	app.Run()
}
