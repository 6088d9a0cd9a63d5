package helper

import (
	"github.com/shopspring/decimal"
)

var (
	half    = decimal.RequireFromString("0.5")
	hundred = decimal.NewFromInt(100)
)

// QuantizeDown приводит value к кратному step с округлением к нулю.
// step <= 0 — значение возвращается как есть.
func QuantizeDown(value, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return value
	}
	q, _ := value.QuoRem(step, 0)
	return q.Mul(step)
}

// MidPrice = (bid+ask)/2, округление half-up до 2 знаков.
func MidPrice(bid, ask decimal.Decimal) decimal.Decimal {
	return bid.Add(ask).Mul(half).Round(2)
}

// MaxNetPosition = capital * ratio / markPrice, без округления.
func MaxNetPosition(capital, ratio, markPrice decimal.Decimal) decimal.Decimal {
	if !markPrice.IsPositive() {
		return decimal.Zero
	}
	return capital.Mul(ratio).Div(markPrice)
}

// LevelOffset: процент на уровень L -> доля (0.25%, L=2 -> 0.005).
func LevelOffset(pct decimal.Decimal, level int) decimal.Decimal {
	return pct.Mul(decimal.NewFromInt(int64(level))).Div(hundred)
}

// HalfStep — порог "позиция закрыта".
func HalfStep(step decimal.Decimal) decimal.Decimal {
	return step.Mul(half)
}
