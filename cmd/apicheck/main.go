package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"huobi-sweeper/internal/config"
	"huobi-sweeper/internal/exchange/huobi"
)

type checkStatus string

const (
	statusPass checkStatus = "PASS"
	statusFail checkStatus = "FAIL"
)

type checkResult struct {
	Name       string      `json:"name"`
	Status     checkStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Detail     string      `json:"detail,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type report struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Symbol     string        `json:"symbol"`
	Checks     []checkResult `json:"checks"`
}

type selectedChecks struct {
	depth   bool
	balance bool
	stream  bool
}

func main() {
	var (
		configPath  string
		timeoutSec  int
		streamWait  int
		outJSONPath string
		checkFlag   string
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.IntVar(&timeoutSec, "timeout-sec", 60, "total timeout seconds")
	flag.IntVar(&streamWait, "stream-wait-sec", 10, "wait seconds for the depth stream check")
	flag.StringVar(&outJSONPath, "out-json", "", "optional output report path")
	flag.StringVar(&checkFlag, "check", "default", "checks to run: default | all | comma list (depth,balance,stream)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	checks, err := parseCheckFlag(checkFlag)
	if err != nil {
		fatal(err.Error())
	}
	if timeoutSec < 10 {
		timeoutSec = 10
	}
	if streamWait < 3 {
		streamWait = 3
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	client, err := huobi.NewClient(cfg.Exchange, cfg.Depth)
	if err != nil {
		fatal(err.Error())
	}

	r := report{
		StartedAt: time.Now().UTC(),
		Symbol:    cfg.Symbol,
	}

	run := func(name string, fn func() (string, error)) {
		start := time.Now()
		detail, err := fn()
		cr := checkResult{
			Name:       name,
			DurationMs: time.Since(start).Milliseconds(),
			Detail:     detail,
		}
		if err != nil {
			cr.Status = statusFail
			cr.Error = err.Error()
		} else {
			cr.Status = statusPass
		}
		r.Checks = append(r.Checks, cr)
		if cr.Status == statusPass {
			fmt.Printf("[PASS] %s (%dms)", name, cr.DurationMs)
			if cr.Detail != "" {
				fmt.Printf(" - %s", cr.Detail)
			}
			fmt.Println()
		} else {
			fmt.Printf("[FAIL] %s (%dms) - %s\n", name, cr.DurationMs, cr.Error)
		}
	}

	if checks.depth {
		run("market_depth", func() (string, error) {
			book, err := client.Book(ctx, cfg.Symbol)
			if err != nil {
				return "", err
			}
			ask, okAsk := book.BestAsk()
			bid, okBid := book.BestBid()
			if !okAsk || !okBid {
				return "", errors.New("depth snapshot has an empty side")
			}
			if ask.Price.Cmp(bid.Price) < 0 {
				return "", fmt.Errorf("crossed book: ask=%s bid=%s", ask.Price, bid.Price)
			}
			return fmt.Sprintf("ask=%s bid=%s asks=%d bids=%d", ask.Price, bid.Price, len(book.Asks), len(book.Bids)), nil
		})
	}

	if checks.balance {
		run("signed_balance", func() (string, error) {
			if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
				return "", errors.New("api credentials are empty")
			}
			amount, err := client.TradeBalance(ctx, cfg.QuoteCurrency)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("currency=%s trade_balance=%s", cfg.QuoteCurrency, amount.String()), nil
		})
	}

	if checks.stream {
		run("depth_stream", func() (string, error) {
			cctx, ccancel := context.WithTimeout(ctx, time.Duration(streamWait)*time.Second)
			defer ccancel()
			stream, err := huobi.NewDepthStream(cctx, cfg.Exchange.WSBaseURL, cfg.Symbol, cfg.Depth.Type)
			if err != nil {
				return "", err
			}
			defer stream.Close()
			for {
				book, err := stream.Book(cctx, cfg.Symbol)
				if err == nil {
					ask, ok := book.BestAsk()
					if !ok {
						return "", errors.New("stream snapshot has no asks")
					}
					return fmt.Sprintf("first snapshot ask=%s asks=%d bids=%d", ask.Price, len(book.Asks), len(book.Bids)), nil
				}
				if !errors.Is(err, huobi.ErrNoSnapshot) {
					return "", err
				}
				select {
				case <-time.After(200 * time.Millisecond):
				case <-cctx.Done():
					return "", fmt.Errorf("no snapshot within %ds", streamWait)
				}
			}
		})
	}

	r.FinishedAt = time.Now().UTC()
	printSummary(r)

	if outJSONPath != "" {
		if err := writeReport(outJSONPath, r); err != nil {
			fatal(err.Error())
		}
		fmt.Printf("report written: %s\n", outJSONPath)
	}

	for _, c := range r.Checks {
		if c.Status == statusFail {
			os.Exit(1)
		}
	}
}

func parseCheckFlag(raw string) (selectedChecks, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "default" {
		return selectedChecks{depth: true, balance: true}, nil
	}
	if raw == "all" {
		return selectedChecks{depth: true, balance: true, stream: true}, nil
	}

	var out selectedChecks
	for _, p := range strings.Split(raw, ",") {
		name := strings.TrimSpace(p)
		switch name {
		case "":
			continue
		case "depth", "market_depth":
			out.depth = true
		case "balance", "signed_balance":
			out.balance = true
		case "stream", "depth_stream":
			out.stream = true
		default:
			return selectedChecks{}, fmt.Errorf("unknown check: %s", name)
		}
	}
	if !out.depth && !out.balance && !out.stream {
		return selectedChecks{}, errors.New("no checks selected")
	}
	return out, nil
}

func printSummary(r report) {
	pass := 0
	fail := 0
	for _, c := range r.Checks {
		if c.Status == statusPass {
			pass++
		} else {
			fail++
		}
	}
	fmt.Printf("\nsummary symbol=%s pass=%d fail=%d duration=%s\n",
		r.Symbol,
		pass,
		fail,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
	)
}

func writeReport(path string, r report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(msg))
	os.Exit(1)
}
