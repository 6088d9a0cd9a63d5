package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)

	if _, err := c.do(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", params, true); err != nil {
		return fmt.Errorf("CancelAllOrders %s: %w", symbol, err)
	}
	return nil
}
