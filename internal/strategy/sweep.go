package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"huobi-sweeper/internal/core"
)

// Sweep turns a top-of-book snapshot plus the free quote balance into one
// buy-limit order per iteration. The buy side crosses the spread by pricing
// off the best ask with a premium; see core.LimitPrice.
type Sweep struct {
	symbol   string
	side     core.Side
	orderQty decimal.Decimal
}

// NewSweep validates the trade parameters once, up front. Only the buy side
// is supported; a sell request fails here rather than producing an order the
// exchange client would reject later.
func NewSweep(symbol string, side core.Side, orderQty decimal.Decimal) (*Sweep, error) {
	if symbol == "" {
		return nil, fmt.Errorf("sweep: symbol is required")
	}
	if side != core.Buy {
		return nil, fmt.Errorf("sweep: %w", core.ErrSellNotSupported)
	}
	if orderQty.Cmp(decimal.Zero) < 0 {
		return nil, fmt.Errorf("sweep: order quantity must be >= 0")
	}
	return &Sweep{symbol: symbol, side: side, orderQty: orderQty}, nil
}

// OrderFor builds the order for one iteration. An empty relevant side of the
// book returns core.ErrEmptyBook; the caller skips the iteration and retries
// on the next snapshot.
func (s *Sweep) OrderFor(book core.OrderBook, freeQuote decimal.Decimal) (core.OrderRequest, error) {
	ref, ok := book.BestAsk()
	if !ok {
		return core.OrderRequest{}, core.ErrEmptyBook
	}
	price := core.LimitPrice(s.side, ref.Price)
	amount := core.OrderAmount(s.orderQty, freeQuote, price)
	return core.OrderRequest{
		Symbol: s.symbol,
		Side:   s.side,
		Price:  price,
		Amount: amount,
	}, nil
}
