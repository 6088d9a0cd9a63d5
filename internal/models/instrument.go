package models

import "github.com/shopspring/decimal"

// SymbolRules — торговые ограничения символа (LOT_SIZE + PRICE_FILTER).
type SymbolRules struct {
	Symbol    string
	StepSize  decimal.Decimal
	MinQty    decimal.Decimal
	PriceTick decimal.Decimal
}

// BookTicker — лучший bid/ask как пришёл из стрима, строками.
type BookTicker struct {
	Symbol  string
	BestBid string
	BestAsk string
}
