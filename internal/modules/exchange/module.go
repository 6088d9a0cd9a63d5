package exchange

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	"market_maker/internal/modules/exchange/service"
)

func NewClient(cfg *config.Config, log *zap.Logger) *service.Client {
	rest, ws := service.URLsFor(cfg.Exchange.Env)
	if cfg.Exchange.RestURL != "" {
		rest = cfg.Exchange.RestURL
	}
	if cfg.Exchange.WSURL != "" {
		ws = cfg.Exchange.WSURL
	}
	return service.NewClient(service.Config{
		RestURL:    rest,
		WSURL:      ws,
		APIKey:     cfg.Exchange.APIKey,
		SecretKey:  cfg.Exchange.SecretKey,
		Timeout:    cfg.Exchange.RestTimeout,
		RecvWindow: cfg.Exchange.RecvWindow,
	}, log)
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			NewClient,
		),
	)
}
