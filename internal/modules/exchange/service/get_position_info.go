package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"market_maker/internal/models"
)

// GetPositionInfo — нетто-позиция по символу. В hedge-режиме записи LONG/SHORT суммируются.
// Если записи нет — models.ErrPositionNotFound.
func (c *Client) GetPositionInfo(ctx context.Context, symbol string) (models.PositionInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	data, err := c.do(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, true)
	if err != nil {
		return models.PositionInfo{}, fmt.Errorf("GetPositionInfo %s: %w", symbol, err)
	}

	var rows []positionRiskResponse
	if err := sonic.Unmarshal(data, &rows); err != nil {
		return models.PositionInfo{}, fmt.Errorf("GetPositionInfo decode: %w; body=%s", err, string(data))
	}

	info := models.PositionInfo{Symbol: symbol}
	found := false
	for _, row := range rows {
		if row.Symbol != symbol {
			continue
		}
		amt, err := decimal.NewFromString(row.PositionAmt)
		if err != nil {
			return models.PositionInfo{}, fmt.Errorf("GetPositionInfo positionAmt %q: %w", row.PositionAmt, err)
		}
		found = true
		info.PositionAmt = info.PositionAmt.Add(amt)

		// цену входа берём из первой ненулевой ноги
		if !amt.IsZero() && info.EntryPrice.IsZero() {
			info.EntryPrice = parseOrZero(row.EntryPrice)
		}
		info.MarkPrice = parseOrZero(row.MarkPrice)
		info.UnrealizedPnl = info.UnrealizedPnl.Add(parseOrZero(row.UnRealizedProfit))
	}
	if !found {
		return models.PositionInfo{}, fmt.Errorf("GetPositionInfo %s: %w", symbol, models.ErrPositionNotFound)
	}
	return info, nil
}

func parseOrZero(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}
