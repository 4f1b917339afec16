package core

import "errors"

var (
	ErrSellNotSupported = errors.New("sell-limit placement not supported")
	ErrEmptyBook        = errors.New("order book side empty")
	ErrBalanceNotFound  = errors.New("trade balance entry not found")
)
