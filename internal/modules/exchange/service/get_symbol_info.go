package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"market_maker/internal/models"
)

// GetSymbolInfo — stepSize/minQty (LOT_SIZE) и tickSize (PRICE_FILTER).
// Правила кэшируются: биржа меняет их крайне редко.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolRules, error) {
	c.mu.RLock()
	cached, ok := c.rules[symbol]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := c.do(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false)
	if err != nil {
		return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo %s: %w", symbol, err)
	}

	var r exchangeInfoResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo decode: %w", err)
	}

	for _, s := range r.Symbols {
		if s.Symbol != symbol {
			continue
		}
		rules := models.SymbolRules{Symbol: symbol}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				if rules.StepSize, err = decimal.NewFromString(f.StepSize); err != nil {
					return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo stepSize %q: %w", f.StepSize, err)
				}
				if rules.MinQty, err = decimal.NewFromString(f.MinQty); err != nil {
					return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo minQty %q: %w", f.MinQty, err)
				}
			case "PRICE_FILTER":
				if rules.PriceTick, err = decimal.NewFromString(f.TickSize); err != nil {
					return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo tickSize %q: %w", f.TickSize, err)
				}
			}
		}
		if !rules.StepSize.IsPositive() || !rules.PriceTick.IsPositive() {
			return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo %s: incomplete filters", symbol)
		}

		c.mu.Lock()
		c.rules[symbol] = rules
		c.mu.Unlock()
		return rules, nil
	}
	return models.SymbolRules{}, fmt.Errorf("GetSymbolInfo %s: symbol not listed", symbol)
}
