package huobi

import (
	"time"

	"github.com/shopspring/decimal"

	"huobi-sweeper/internal/core"
)

type apiEnvelope struct {
	Status  string `json:"status"`
	ErrCode string `json:"err-code"`
	ErrMsg  string `json:"err-msg"`
}

type depthResponse struct {
	apiEnvelope
	Ch   string    `json:"ch"`
	Ts   int64     `json:"ts"`
	Tick depthTick `json:"tick"`
}

type depthTick struct {
	Asks    [][]decimal.Decimal `json:"asks"`
	Bids    [][]decimal.Decimal `json:"bids"`
	Ts      int64               `json:"ts"`
	Version int64               `json:"version"`
}

func (t depthTick) toBook(ts int64) core.OrderBook {
	book := core.OrderBook{
		Asks: levelsFromRows(t.Asks),
		Bids: levelsFromRows(t.Bids),
	}
	if t.Ts > 0 {
		ts = t.Ts
	}
	if ts > 0 {
		book.Ts = time.UnixMilli(ts)
	}
	return book
}

func levelsFromRows(rows [][]decimal.Decimal) []core.Level {
	levels := make([]core.Level, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		levels = append(levels, core.Level{Price: row[0], Amount: row[1]})
	}
	return levels
}

type balanceResponse struct {
	apiEnvelope
	Data struct {
		ID    int64  `json:"id"`
		Type  string `json:"type"`
		State string `json:"state"`
		List  []struct {
			Currency string `json:"currency"`
			Type     string `json:"type"`
			Balance  string `json:"balance"`
		} `json:"list"`
	} `json:"data"`
}

type placeOrderRequest struct {
	AccountID string `json:"account-id"`
	Amount    string `json:"amount"`
	Price     string `json:"price"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Source    string `json:"source"`
}

type placeOrderResponse struct {
	apiEnvelope
	Data string `json:"data"`
}
