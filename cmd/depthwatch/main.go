package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"huobi-sweeper/internal/exchange/huobi"
)

const (
	defaultBaseURL = "https://api.huobi.pro"
	defaultOutDir  = "data/huobi"
)

type tickLine struct {
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	Symbol    string `json:"symbol"`
	Ask       string `json:"ask"`
	AskQty    string `json:"ask_qty"`
	Bid       string `json:"bid"`
	BidQty    string `json:"bid_qty"`
	Mid       string `json:"mid"`
}

type dateWriter struct {
	root        string
	currentDate string
	currentFile *os.File
}

func newDateWriter(root string) (*dateWriter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &dateWriter{root: root}, nil
}

func (w *dateWriter) write(date string, line []byte) error {
	if err := w.rotate(date); err != nil {
		return err
	}
	if _, err := w.currentFile.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func (w *dateWriter) rotate(date string) error {
	if date == w.currentDate && w.currentFile != nil {
		return nil
	}
	if w.currentFile != nil {
		if err := w.currentFile.Sync(); err != nil {
			_ = w.currentFile.Close()
			w.currentFile = nil
			return err
		}
		if err := w.currentFile.Close(); err != nil {
			w.currentFile = nil
			return err
		}
		w.currentFile = nil
	}
	path := filepath.Join(w.root, date+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.currentFile = f
	w.currentDate = date
	return nil
}

func (w *dateWriter) close() error {
	if w == nil || w.currentFile == nil {
		return nil
	}
	if err := w.currentFile.Sync(); err != nil {
		_ = w.currentFile.Close()
		w.currentFile = nil
		return err
	}
	err := w.currentFile.Close()
	w.currentFile = nil
	return err
}

func main() {
	var (
		baseURL     string
		symbol      string
		depthType   string
		depthLevels int
		intervalMs  int
		outDir      string
		timeoutSec  int
	)

	flag.StringVar(&baseURL, "base-url", defaultBaseURL, "exchange REST base url")
	flag.StringVar(&symbol, "symbol", "btcusdt", "symbol, e.g. btcusdt")
	flag.StringVar(&depthType, "type", "step0", "depth aggregation, step0..step5")
	flag.IntVar(&depthLevels, "levels", 5, "depth levels: 5, 10 or 20")
	flag.IntVar(&intervalMs, "interval-ms", 2200, "poll interval in milliseconds")
	flag.StringVar(&outDir, "out-dir", defaultOutDir, "output root dir")
	flag.IntVar(&timeoutSec, "timeout-sec", 20, "http timeout seconds")
	flag.Parse()

	symbol = strings.ToLower(strings.TrimSpace(symbol))
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if symbol == "" || baseURL == "" {
		fatal("base-url/symbol are required")
	}
	if intervalMs < 200 {
		fatal("interval-ms must be >= 200")
	}

	client, err := huobi.NewClientWithOptions(huobi.Options{
		RestBaseURL:   baseURL,
		DepthType:     depthType,
		DepthLevels:   depthLevels,
		HTTPTimeoutMs: int64(timeoutSec) * 1000,
	})
	if err != nil {
		fatal(err.Error())
	}

	targetDir := filepath.Join(outDir, symbol, depthType)
	writer, err := newDateWriter(targetDir)
	if err != nil {
		fatal(err.Error())
	}
	defer func() {
		if closeErr := writer.close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "close writer failed: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("recording symbol=%s type=%s interval=%dms output=%s\n", symbol, depthType, intervalMs, targetDir)

	total := 0
	failures := 0
	two := decimal.NewFromInt(2)
	for {
		book, err := client.Book(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failures++
			fmt.Fprintf(os.Stderr, "fetch depth failed: %v\n", err)
		} else if ask, okAsk := book.BestAsk(); okAsk {
			if bid, okBid := book.BestBid(); okBid {
				ts := book.Ts
				if ts.IsZero() {
					ts = time.Now().UTC()
				}
				line := tickLine{
					Time:      ts.UTC().Format(time.RFC3339),
					Timestamp: ts.UnixMilli(),
					Symbol:    symbol,
					Ask:       ask.Price.String(),
					AskQty:    ask.Amount.String(),
					Bid:       bid.Price.String(),
					BidQty:    bid.Amount.String(),
					Mid:       ask.Price.Add(bid.Price).Div(two).String(),
				}
				encoded, err := json.Marshal(line)
				if err != nil {
					fatal(err.Error())
				}
				if err := writer.write(ts.UTC().Format("2006-01-02"), encoded); err != nil {
					fatal(err.Error())
				}
				total++
				if total%100 == 0 {
					fmt.Printf("progress: records=%d failures=%d last=%s\n", total, failures, line.Time)
				}
			}
		}
		select {
		case <-time.After(time.Duration(intervalMs) * time.Millisecond):
		case <-ctx.Done():
			fmt.Printf("done: records=%d failures=%d output=%s\n", total, failures, targetDir)
			return
		}
	}
	fmt.Printf("done: records=%d failures=%d output=%s\n", total, failures, targetDir)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
