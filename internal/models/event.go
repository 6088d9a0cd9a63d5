package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RiskEventType string

const (
	EventRiskLimitExceeded RiskEventType = "risk_limit_exceeded"
	EventNoPosition        RiskEventType = "no_position"
	EventForcedLiquidation RiskEventType = "forced_liquidation"
	EventLiquidationRetry  RiskEventType = "liquidation_retry"
	EventLiquidationFailed RiskEventType = "liquidation_failed"
	EventRiskError         RiskEventType = "risk_error"
)

// Critical — события, о которых надо сразу сообщить оператору.
func (t RiskEventType) Critical() bool {
	switch t {
	case EventRiskLimitExceeded, EventForcedLiquidation, EventLiquidationFailed:
		return true
	}
	return false
}

type RiskEvent struct {
	Time       time.Time
	InstanceID string
	Env        string
	Symbol     string
	Type       RiskEventType
	Details    string
	Extra      map[string]any
}

type MetricSample struct {
	Time       time.Time
	InstanceID string
	Env        string
	Symbol     string
	Name       string
	Value      decimal.Decimal
	Unit       string
	Details    map[string]any
}
