package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"market_maker/internal/models"
)

// PlaceOrder: LIMIT требует цену и timeInForce, MARKET их не отправляет.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	if req.Symbol == "" {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: empty symbol")
	}
	if req.Side != models.SideBuy && req.Side != models.SideSell {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: unsupported side=%q", req.Side)
	}
	if !req.Quantity.IsPositive() {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: quantity <= 0")
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", req.Quantity.String())

	switch req.Type {
	case models.OrderTypeLimit:
		if !req.Price.IsPositive() {
			return models.OrderResult{}, fmt.Errorf("PlaceOrder: limit price <= 0")
		}
		tif := req.TimeInForce
		if tif == "" {
			tif = models.TimeInForceGTC
		}
		params.Set("price", req.Price.String())
		params.Set("timeInForce", string(tif))
	case models.OrderTypeMarket:
	default:
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: unsupported type=%q", req.Type)
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	data, err := c.do(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder %s %s: %w", req.Side, req.Type, err)
	}

	var r orderResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder decode: %w; body=%s", err, string(data))
	}

	return models.OrderResult{
		OrderID:       r.OrderID,
		ClientOrderID: r.ClientOrderID,
		Status:        r.Status,
		UpdatedAt:     time.UnixMilli(r.UpdateTime),
	}, nil
}
