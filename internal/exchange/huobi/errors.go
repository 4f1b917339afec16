package huobi

import "strconv"

// APIError is a non-ok response from an endpoint whose failures are raised as
// errors (market data, balance). Order placement rejections are returned as
// data instead; see Client.PlaceOrder.
type APIError struct {
	HTTPStatus int
	ErrCode    string
	ErrMsg     string
}

func (e APIError) Error() string {
	msg := "huobi api error"
	if e.HTTPStatus > 0 {
		msg += " http=" + strconv.Itoa(e.HTTPStatus)
	}
	if e.ErrCode != "" {
		msg += " code=" + e.ErrCode
	}
	if e.ErrMsg != "" {
		msg += ": " + e.ErrMsg
	}
	return msg
}

func (env apiEnvelope) asError() error {
	return APIError{ErrCode: env.ErrCode, ErrMsg: env.ErrMsg}
}
