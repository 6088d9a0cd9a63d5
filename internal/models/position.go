package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrPositionNotFound = errors.New("position not found")

// PositionInfo — позиция по символу. PositionAmt со знаком: >0 long, <0 short.
type PositionInfo struct {
	Symbol        string
	PositionAmt   decimal.Decimal
	EntryPrice    decimal.Decimal
	MarkPrice     decimal.Decimal
	UnrealizedPnl decimal.Decimal
}

type AccountInfo struct {
	WalletBalance    decimal.Decimal
	MarginBalance    decimal.Decimal
	AvailableBalance decimal.Decimal
	UnrealizedPnl    decimal.Decimal
}

// Equity: wallet balance, если пусто — margin balance.
func (a AccountInfo) Equity() decimal.Decimal {
	if !a.WalletBalance.IsZero() {
		return a.WalletBalance
	}
	return a.MarginBalance
}

// RealizedPnl относительно стартового капитала. Отдельного поля в ответе аккаунта нет.
func (a AccountInfo) RealizedPnl(initialCapital decimal.Decimal) decimal.Decimal {
	return a.WalletBalance.Sub(initialCapital)
}
