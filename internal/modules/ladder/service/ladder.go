package service

import (
	"github.com/shopspring/decimal"

	"market_maker/internal/helper"
	"market_maker/internal/models"
)

type LadderInput struct {
	MarkPrice        decimal.Decimal
	MaxNetPosition   decimal.Decimal
	CurrentPosition  decimal.Decimal
	Levels           int
	OffsetPercent    decimal.Decimal
	NotionalPerOrder decimal.Decimal
	Rules            models.SymbolRules
}

type SkippedLevel struct {
	Level  int
	Reason string
}

type Ladder struct {
	Mid     decimal.Decimal
	Orders  []models.OrderLevel // BUY, SELL для каждого уровня по порядку
	Skipped []SkippedLevel
}

// BuildLadder считает цены и объёмы лестницы. Чистая функция, без I/O.
// Без положительной цены лестница пустая.
func BuildLadder(in LadderInput) Ladder {
	if !in.MarkPrice.IsPositive() {
		return Ladder{}
	}

	mid := helper.QuantizeDown(in.MarkPrice, in.Rules.PriceTick)
	out := Ladder{Mid: mid}

	one := decimal.NewFromInt(1)
	maxOrderQty := in.MaxNetPosition.Sub(in.CurrentPosition.Abs())

	for level := 1; level <= in.Levels; level++ {
		offset := helper.LevelOffset(in.OffsetPercent, level)
		buyPrice := helper.QuantizeDown(mid.Mul(one.Sub(offset)), in.Rules.PriceTick)
		sellPrice := helper.QuantizeDown(mid.Mul(one.Add(offset)), in.Rules.PriceTick)

		qty := helper.QuantizeDown(in.NotionalPerOrder.Div(in.MarkPrice), in.Rules.StepSize)
		if qty.GreaterThan(maxOrderQty) {
			qty = helper.QuantizeDown(maxOrderQty, in.Rules.StepSize)
		}

		switch {
		case qty.LessThan(in.Rules.MinQty) || !qty.IsPositive():
			out.Skipped = append(out.Skipped, SkippedLevel{Level: level, Reason: "qty below min"})
			continue
		case !buyPrice.IsPositive():
			out.Skipped = append(out.Skipped, SkippedLevel{Level: level, Reason: "buy price <= 0"})
			continue
		case !sellPrice.GreaterThan(mid):
			// смещение меньше тика — котировать строго вокруг mid нечем
			out.Skipped = append(out.Skipped, SkippedLevel{Level: level, Reason: "offset below tick"})
			continue
		}

		out.Orders = append(out.Orders,
			models.OrderLevel{Level: level, Side: models.SideBuy, Price: buyPrice, Quantity: qty},
			models.OrderLevel{Level: level, Side: models.SideSell, Price: sellPrice, Quantity: qty},
		)
	}
	return out
}
