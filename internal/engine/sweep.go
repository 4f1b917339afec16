package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"huobi-sweeper/internal/alert"
	"huobi-sweeper/internal/core"
	"huobi-sweeper/internal/strategy"
)

var log = logrus.WithField("component", "engine")

// BookSource serves order-book snapshots. Satisfied by both the REST client
// and the websocket depth stream.
type BookSource interface {
	Book(ctx context.Context, symbol string) (core.OrderBook, error)
}

// Trader is the signed half of the exchange surface the runner needs.
type Trader interface {
	TradeBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req core.OrderRequest) (core.OrderResult, error)
}

// SweepRunner drives the polling loop: snapshot the book, place one buy-limit
// order, refresh the quote balance, sleep, repeat. Iterations are strictly
// sequential; the sleep starts only after the iteration's requests finished.
//
// By default the loop never finishes on its own; it runs until the context is
// canceled. A StopBelowQuote threshold > 0 ends the loop once a refreshed
// balance drops below it.
type SweepRunner struct {
	Books          BookSource
	Trader         Trader
	Strategy       *strategy.Sweep
	Symbol         string
	QuoteCurrency  string
	Interval       time.Duration
	StopBelowQuote decimal.Decimal
	Alerts         alert.Alerter
}

func (r *SweepRunner) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return errors.New("sweep runner: interval must be positive")
	}

	// One lookup up front so the first order can spend the real balance.
	// A failure here is not fatal: the loop starts from zero and the next
	// successful refresh corrects it.
	balance := decimal.Zero
	if first := r.refreshBalance(ctx); !first.Failed() {
		balance = first.Amount
	}

	for {
		next, finished := r.runOnce(ctx, balance)
		balance = next
		if finished {
			log.WithFields(logrus.Fields{
				"event":   "loop_finished",
				"balance": balance.String(),
			}).Info("quote balance below stop threshold")
			r.alertImportant("loop_finished", map[string]string{
				"balance":   balance.String(),
				"threshold": r.StopBelowQuote.String(),
			})
			return nil
		}
		select {
		case <-time.After(r.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce performs a single iteration and returns the balance to carry into
// the next one. Every failure short of context cancellation degrades to a
// no-op iteration: the stale balance is carried forward and the loop goes on.
func (r *SweepRunner) runOnce(ctx context.Context, balance decimal.Decimal) (decimal.Decimal, bool) {
	book, err := r.Books.Book(ctx, r.Symbol)
	if err != nil {
		if ctx.Err() == nil {
			log.WithFields(logrus.Fields{"event": "book_unavailable", "err": err.Error()}).Warn("skipping iteration")
		}
		return balance, false
	}

	req, err := r.Strategy.OrderFor(book, balance)
	if err != nil {
		log.WithFields(logrus.Fields{"event": "order_skipped", "err": err.Error()}).Warn("skipping iteration")
		return balance, false
	}

	res, err := r.Trader.PlaceOrder(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			log.WithFields(logrus.Fields{"event": "order_failed", "err": err.Error()}).Warn("order not placed")
			r.alertImportant("order_failed", map[string]string{"err": err.Error()})
		}
		return balance, false
	}
	if res.Rejected() {
		log.WithFields(logrus.Fields{
			"event":    "order_rejected",
			"err_code": res.ErrCode,
			"err_msg":  res.ErrMsg,
		}).Warn("exchange rejected order")
		r.alertImportant("order_rejected", map[string]string{
			"err_code": res.ErrCode,
			"err_msg":  res.ErrMsg,
		})
		return balance, false
	}

	// Only a successful placement triggers a refresh; the refreshed value is
	// also what the stop threshold is judged against.
	refreshed := r.refreshBalance(ctx)
	if refreshed.Failed() {
		if ctx.Err() == nil {
			log.WithFields(logrus.Fields{
				"event": "balance_refresh_failed",
				"err":   refreshed.Err.Error(),
			}).Warn("carrying stale balance")
		}
		return balance, false
	}
	log.WithFields(logrus.Fields{
		"event":    "iteration_done",
		"order_id": res.OrderID,
		"balance":  refreshed.Amount.String(),
	}).Info("order placed")
	finished := r.StopBelowQuote.Cmp(decimal.Zero) > 0 && refreshed.Amount.Cmp(r.StopBelowQuote) < 0
	return refreshed.Amount, finished
}

func (r *SweepRunner) refreshBalance(ctx context.Context) core.BalanceResult {
	amount, err := r.Trader.TradeBalance(ctx, r.QuoteCurrency)
	if err != nil {
		return core.BalanceFailed(err)
	}
	return core.BalanceOK(amount)
}

func (r *SweepRunner) alertImportant(event string, fields map[string]string) {
	if r.Alerts == nil {
		return
	}
	r.Alerts.Important(event, fields)
}
