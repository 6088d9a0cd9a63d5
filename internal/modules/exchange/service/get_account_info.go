package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"market_maker/internal/models"
)

func (c *Client) GetAccountInfo(ctx context.Context) (models.AccountInfo, error) {
	data, err := c.do(ctx, http.MethodGet, "/fapi/v2/account", nil, true)
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("GetAccountInfo: %w", err)
	}

	var r accountResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.AccountInfo{}, fmt.Errorf("GetAccountInfo decode: %w", err)
	}

	return models.AccountInfo{
		WalletBalance:    parseOrZero(r.TotalWalletBalance),
		MarginBalance:    parseOrZero(r.TotalMarginBalance),
		AvailableBalance: parseOrZero(r.AvailableBalance),
		UnrealizedPnl:    parseOrZero(r.TotalUnrealizedProfit),
	}, nil
}
