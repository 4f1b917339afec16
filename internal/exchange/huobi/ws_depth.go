package huobi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"huobi-sweeper/internal/core"
)

// ErrNoSnapshot means the stream has not delivered a depth update yet; the
// caller should treat it like an absent order book and retry next iteration.
var ErrNoSnapshot = errors.New("no depth snapshot received yet")

const wsReadTimeout = 60 * time.Second

// DepthStream subscribes to the market-depth channel over the exchange's
// gzip-compressed websocket and caches the latest snapshot. It serves books
// through the same interface as the REST poller, so the trading loop does not
// care which source it is wired to.
type DepthStream struct {
	conn   *websocket.Conn
	symbol string

	mu     sync.RWMutex
	latest core.OrderBook
	ready  bool

	closeOnce sync.Once
}

type wsDepthMessage struct {
	Ch     string    `json:"ch"`
	Ts     int64     `json:"ts"`
	Ping   int64     `json:"ping"`
	Subbed string    `json:"subbed"`
	Status string    `json:"status"`
	Tick   depthTick `json:"tick"`
}

func NewDepthStream(ctx context.Context, wsURL, symbol, depthType string) (*DepthStream, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	topic := "market." + symbol + ".depth." + depthType
	sub := map[string]string{"sub": topic, "id": "sweeper-depth"}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, err
	}
	s := &DepthStream{conn: conn, symbol: symbol}
	go s.readLoop(ctx)
	return s, nil
}

// Book returns the latest cached snapshot. The symbol must match the
// subscription; a stream serves exactly one pair.
func (s *DepthStream) Book(_ context.Context, symbol string) (core.OrderBook, error) {
	if symbol != s.symbol {
		return core.OrderBook{}, errors.New("depth stream subscribed to " + s.symbol + ", not " + symbol)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return core.OrderBook{}, ErrNoSnapshot
	}
	return s.latest, nil
}

func (s *DepthStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *DepthStream) readLoop(ctx context.Context) {
	defer s.Close()
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithFields(logrus.Fields{"event": "depth_stream_closed", "err": err.Error()}).Warn("depth stream read failed")
			}
			return
		}
		data, err = inflate(data)
		if err != nil {
			continue
		}
		var msg wsDepthMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch {
		case msg.Ping > 0:
			_ = s.conn.WriteJSON(map[string]int64{"pong": msg.Ping})
		case msg.Subbed != "":
			log.WithFields(logrus.Fields{"event": "depth_stream_subscribed", "topic": msg.Subbed}).Info("depth stream ready")
		case strings.Contains(msg.Ch, ".depth."):
			s.store(msg.Tick, msg.Ts)
		}
	}
}

func (s *DepthStream) store(tick depthTick, ts int64) {
	book := tick.toBook(ts)
	s.mu.Lock()
	s.latest = book
	s.ready = true
	s.mu.Unlock()
}

// inflate unwraps the gzip framing the exchange applies to every ws payload.
// Plain JSON (as some test servers send) passes through untouched.
func inflate(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
