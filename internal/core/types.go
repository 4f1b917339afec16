package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

const (
	BuyLimit  OrderType = "buy-limit"
	SellLimit OrderType = "sell-limit"
)

// Level is one price level of an order book: [price, amount].
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderBook is a transient snapshot of market depth, best price first.
// It is discarded after one loop iteration.
type OrderBook struct {
	Asks []Level
	Bids []Level
	Ts   time.Time
}

func (b OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

func (b OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// OrderRequest carries final (already truncated) price and amount.
type OrderRequest struct {
	Symbol string
	Side   Side
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderResult is the exchange's answer to a placement. Business-level
// rejections arrive here as data (Status "error" plus err-code/err-msg),
// not as Go errors; only transport failures are raised.
type OrderResult struct {
	OrderID string
	Status  string
	ErrCode string
	ErrMsg  string
}

func (r OrderResult) Rejected() bool {
	return r.Status == "error"
}

// BalanceResult distinguishes "balance is zero" from "lookup failed".
// A failed lookup means the caller should carry its previous value forward.
type BalanceResult struct {
	Amount decimal.Decimal
	Err    error
}

func BalanceOK(amount decimal.Decimal) BalanceResult {
	return BalanceResult{Amount: amount}
}

func BalanceFailed(err error) BalanceResult {
	return BalanceResult{Err: err}
}

func (r BalanceResult) Failed() bool {
	return r.Err != nil
}
