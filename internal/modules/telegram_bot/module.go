package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	"market_maker/internal/notify"
	"market_maker/internal/state"
)

// NewNotifier: если TELEGRAM_* нет или бот не поднялся — пишем алерты в лог.
func NewNotifier(cfg *config.Config, st *state.MarketPositionState, log *zap.Logger) notify.Notifier {
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, st, cfg.Symbol, log)
		if err == nil {
			return tg
		}
		log.Warn("telegram unavailable, alerts go to log", zap.Error(err))
	}
	return notify.NewStdout(log)
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewNotifier,
		),
		// Запуск приёма команд через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, root context.Context, cfg *config.Config, n notify.Notifier) {
				tg, ok := n.(*notify.Telegram)
				if !ok {
					return
				}
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						if err := tg.Start(root); err != nil {
							return err
						}
						tg.Sendf("market maker %s started: %s (%s)", cfg.InstanceID, cfg.Symbol, cfg.Exchange.Env)
						return nil
					},
					OnStop: func(context.Context) error {
						tg.Sendf("market maker %s stopped", cfg.InstanceID)
						tg.Stop()
						return nil
					},
				})
			},
		),
	)
}
