package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite сторона для закрытия позиции.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

type TimeInForce string

const TimeInForceGTC TimeInForce = "GTC"

// OrderRequest — то, что уходит на биржу. Для MARKET цена и TimeInForce не отправляются.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	TimeInForce TimeInForce
	ReduceOnly  bool
}

type OrderResult struct {
	OrderID       int64
	ClientOrderID string
	Status        string
	UpdatedAt     time.Time
}

// OrderLevel — одна сторона одного уровня лестницы.
type OrderLevel struct {
	Level    int
	Side     Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
}
