package huobi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"huobi-sweeper/internal/config"
	"huobi-sweeper/internal/core"
)

var log = logrus.WithField("component", "huobi")

const (
	depthPath      = "/market/depth"
	placeOrderPath = "/v1/order/orders/place"

	defaultHTTPTimeout = 5000 * time.Millisecond
	defaultDepthType   = "step0"
	defaultDepthLevels = 5
)

type Client struct {
	http        *resty.Client
	signer      *Signer
	accountID   string
	depthType   string
	depthLevels int
}

type Options struct {
	APIKey        string
	APISecret     string
	AccountID     string
	RestBaseURL   string
	DepthType     string
	DepthLevels   int
	HTTPTimeoutMs int64
}

func NewClient(ex config.ExchangeConfig, depth config.DepthConfig) (*Client, error) {
	return NewClientWithOptions(Options{
		APIKey:        ex.APIKey,
		APISecret:     ex.APISecret,
		AccountID:     ex.AccountID,
		RestBaseURL:   ex.RestBaseURL,
		DepthType:     depth.Type,
		DepthLevels:   depth.Levels,
		HTTPTimeoutMs: ex.HTTPTimeoutMs,
	})
}

func NewClientWithOptions(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.RestBaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.RestBaseURL)
	}
	signer, err := NewSigner(opts.APIKey, opts.APISecret, parsed.Host)
	if err != nil {
		return nil, err
	}
	timeout := defaultHTTPTimeout
	if opts.HTTPTimeoutMs > 0 {
		timeout = time.Duration(opts.HTTPTimeoutMs) * time.Millisecond
	}
	depthType := opts.DepthType
	if depthType == "" {
		depthType = defaultDepthType
	}
	depthLevels := opts.DepthLevels
	if depthLevels <= 0 {
		depthLevels = defaultDepthLevels
	}
	httpClient := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "huobi-sweeper")
	return &Client{
		http:        httpClient,
		signer:      signer,
		accountID:   strings.TrimSpace(opts.AccountID),
		depthType:   depthType,
		depthLevels: depthLevels,
	}, nil
}

// Book fetches a market-depth snapshot, best price first. Public endpoint,
// no signing.
func (c *Client) Book(ctx context.Context, symbol string) (core.OrderBook, error) {
	var out depthResponse
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("type", c.depthType)
	query.Set("depth", strconv.Itoa(c.depthLevels))
	if err := c.do(ctx, http.MethodGet, depthPath, query, nil, &out); err != nil {
		return core.OrderBook{}, err
	}
	if out.Status != "ok" {
		return core.OrderBook{}, out.asError()
	}
	log.WithFields(logrus.Fields{"event": "depth_fetched", "symbol": symbol}).Debug("order book snapshot")
	return out.Tick.toBook(out.Ts), nil
}

// TradeBalance returns the free "trade" sub-balance for a currency. The
// currency match follows the exchange convention: case-sensitive, lowercase.
// Degrading a failure to zero is the caller's policy, not this method's.
func (c *Client) TradeBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	path := "/v1/account/accounts/" + c.accountID + "/balance"
	signed, err := c.signer.Sign(http.MethodGet, path, url.Values{}, time.Now())
	if err != nil {
		return decimal.Zero, err
	}
	var out balanceResponse
	if err := c.do(ctx, http.MethodGet, path, signed, nil, &out); err != nil {
		return decimal.Zero, err
	}
	if out.Status != "ok" {
		return decimal.Zero, out.asError()
	}
	for _, entry := range out.Data.List {
		if entry.Currency != currency || entry.Type != "trade" {
			continue
		}
		amount, err := decimal.NewFromString(entry.Balance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse balance %q: %w", entry.Balance, err)
		}
		return amount, nil
	}
	return decimal.Zero, fmt.Errorf("%w: currency=%s", core.ErrBalanceNotFound, currency)
}

// PlaceOrder submits a buy-limit order. The order type is hardcoded to
// buy-limit; Sell requests are rejected outright rather than mis-executed.
// Exchange-level rejections come back as data in the OrderResult, only
// transport failures are returned as errors.
func (c *Client) PlaceOrder(ctx context.Context, req core.OrderRequest) (core.OrderResult, error) {
	if req.Side != core.Buy {
		return core.OrderResult{}, core.ErrSellNotSupported
	}
	signed, err := c.signer.Sign(http.MethodPost, placeOrderPath, url.Values{}, time.Now())
	if err != nil {
		return core.OrderResult{}, err
	}
	body := placeOrderRequest{
		AccountID: c.accountID,
		Amount:    req.Amount.String(),
		Price:     req.Price.String(),
		Symbol:    req.Symbol,
		Type:      string(core.BuyLimit),
		Source:    "api",
	}
	var out placeOrderResponse
	if err := c.do(ctx, http.MethodPost, placeOrderPath, signed, body, &out); err != nil {
		return core.OrderResult{}, err
	}
	if out.Status == "error" {
		return core.OrderResult{Status: out.Status, ErrCode: out.ErrCode, ErrMsg: out.ErrMsg}, nil
	}
	log.WithFields(logrus.Fields{
		"event":    "order_placed",
		"symbol":   req.Symbol,
		"price":    req.Price.String(),
		"amount":   req.Amount.String(),
		"order_id": out.Data,
	}).Info("order accepted")
	return core.OrderResult{OrderID: out.Data, Status: out.Status}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = req.Get(path)
	case http.MethodPost:
		resp, err = req.Post(path)
	default:
		return fmt.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return err
	}
	if resp.IsError() {
		var env apiEnvelope
		_ = json.Unmarshal(resp.Body(), &env)
		return APIError{HTTPStatus: resp.StatusCode(), ErrCode: env.ErrCode, ErrMsg: env.ErrMsg}
	}
	return nil
}
