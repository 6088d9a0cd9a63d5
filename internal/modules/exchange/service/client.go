package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"market_maker/internal/models"
)

const (
	TestnetRestURL = "https://testnet.binancefuture.com"
	MainnetRestURL = "https://fapi.binance.com"
	TestnetWSURL   = "wss://stream.binancefuture.com/ws"
	MainnetWSURL   = "wss://fstream.binance.com/ws"

	apiKeyHeader = "X-MBX-APIKEY"
)

type Config struct {
	RestURL     string
	WSURL       string
	APIKey      string
	SecretKey   string
	Timeout     time.Duration
	RecvWindow  int64
	ReadTimeout time.Duration // ws: сколько ждём следующего сообщения
}

// URLsFor — адреса REST и WS для testnet/mainnet.
func URLsFor(env string) (rest, ws string) {
	if strings.EqualFold(env, "mainnet") {
		return MainnetRestURL, MainnetWSURL
	}
	return TestnetRestURL, TestnetWSURL
}

// APIError — ошибка, которую вернула биржа.
type APIError struct {
	Status int
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance http %d: code=%d msg=%s", e.Status, e.Code, e.Msg)
}

// Client — USDⓈ-M futures REST + фабрика bookTicker-стримов.
type Client struct {
	http     *http.Client
	wsDialer *websocket.Dialer
	log      *zap.Logger

	restURL     string
	wsURL       string
	apiKey      string
	apiSecret   string
	recvWindow  int64
	readTimeout time.Duration
	now         func() time.Time

	mu    sync.RWMutex
	rules map[string]models.SymbolRules
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Minute
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		wsDialer:    &websocket.Dialer{HandshakeTimeout: cfg.Timeout},
		log:         log.Named("exchange"),
		restURL:     strings.TrimRight(cfg.RestURL, "/"),
		wsURL:       cfg.WSURL,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.SecretKey,
		recvWindow:  cfg.RecvWindow,
		readTimeout: cfg.ReadTimeout,
		now:         time.Now,
		rules:       make(map[string]models.SymbolRules),
	}
}

func (c *Client) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// do выполняет запрос; для signed добавляет timestamp/recvWindow/signature в query.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	query := params.Encode()
	if signed {
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		if c.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		}
		query = params.Encode()
		query += "&signature=" + c.sign(query)
	}

	target := c.restURL + path
	if query != "" {
		target += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		if uErr := sonic.Unmarshal(data, apiErr); uErr != nil || apiErr.Msg == "" {
			apiErr.Msg = string(data)
		}
		return nil, apiErr
	}
	return data, nil
}
