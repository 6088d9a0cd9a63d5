package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	"market_maker/internal/modules/events/service"
	"market_maker/internal/notify"
	"market_maker/pkg/db"
)

// NewJournal собирает синки по конфигу: CSV, Postgres (если есть DSN), алерты.
func NewJournal(cfg *config.Config, log *zap.Logger, tx *db.PgTxManager, n notify.Notifier) (*service.Journal, error) {
	sinks := make([]service.Sink, 0, 3)

	if cfg.Logging.LogToCSV {
		csvSink, err := service.NewCSVSink(cfg.Logging.LogDirectory)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
	}
	if tx != nil {
		sinks = append(sinks, service.NewPgSink(tx))
	}
	if n != nil {
		sinks = append(sinks, service.NewAlertSink(n))
	}

	return service.NewJournal(service.Meta{
		InstanceID: cfg.InstanceID,
		Env:        cfg.Exchange.Env,
		Symbol:     cfg.Symbol,
	}, cfg.Logging.QueueSize, log, sinks...), nil
}

func Module() fx.Option {
	return fx.Module("events",
		fx.Provide(
			NewJournal,
		),
		fx.Invoke(func(lc fx.Lifecycle, j *service.Journal) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					j.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return j.Stop(ctx)
				},
			})
		}),
	)
}
