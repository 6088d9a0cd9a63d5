package service

import (
	"context"
	"fmt"
	"strings"

	"market_maker/internal/models"
)

type Alerter interface {
	Send(msg string)
}

// AlertSink шлёт оператору только критичные события.
type AlertSink struct {
	n Alerter
}

func NewAlertSink(n Alerter) *AlertSink {
	return &AlertSink{n: n}
}

func (s *AlertSink) Name() string { return "alert" }

func (s *AlertSink) WriteEvent(_ context.Context, ev models.RiskEvent) error {
	if !ev.Type.Critical() {
		return nil
	}
	s.n.Send(FormatAlert(ev))
	return nil
}

func (s *AlertSink) WriteMetric(context.Context, models.MetricSample) error { return nil }

func (s *AlertSink) Close() error { return nil }

func FormatAlert(ev models.RiskEvent) string {
	var b strings.Builder
	icon := "⚠️"
	switch ev.Type {
	case models.EventForcedLiquidation:
		icon = "✅"
	case models.EventLiquidationFailed:
		icon = "🚨"
	}
	fmt.Fprintf(&b, "%s [%s/%s] %s %s\n%s", icon, ev.InstanceID, ev.Env, ev.Symbol, ev.Type, ev.Details)
	if len(ev.Extra) > 0 {
		fmt.Fprintf(&b, "\n%s", FormatDetails(ev.Extra))
	}
	return b.String()
}
