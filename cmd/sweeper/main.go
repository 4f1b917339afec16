package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"huobi-sweeper/internal/alert"
	"huobi-sweeper/internal/config"
	"huobi-sweeper/internal/core"
	"huobi-sweeper/internal/engine"
	"huobi-sweeper/internal/exchange/huobi"
	"huobi-sweeper/internal/strategy"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	setupLogging(cfg.Log.Level)
	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		logrus.Warn("api credentials are empty, signed requests will be rejected by the exchange")
	}

	alerts := buildAlertManager(cfg)
	if alerts != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := alerts.Close(closeCtx); err != nil {
				fmt.Fprintf(os.Stderr, "close alert manager failed: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := huobi.NewClient(cfg.Exchange, cfg.Depth)
	if err != nil {
		fatal(err.Error())
	}

	var books engine.BookSource = client
	if cfg.Depth.Source == config.DepthSourceWebsocket {
		stream, err := huobi.NewDepthStream(ctx, cfg.Exchange.WSBaseURL, cfg.Symbol, cfg.Depth.Type)
		if err != nil {
			fatal(err.Error())
		}
		defer stream.Close()
		books = stream
	}

	sweep, err := strategy.NewSweep(cfg.Symbol, core.Side(cfg.Side), cfg.OrderQty.Decimal)
	if err != nil {
		fatal(err.Error())
	}

	runner := engine.SweepRunner{
		Books:          books,
		Trader:         client,
		Strategy:       sweep,
		Symbol:         cfg.Symbol,
		QuoteCurrency:  cfg.QuoteCurrency,
		Interval:       time.Duration(cfg.Loop.IntervalMs) * time.Millisecond,
		StopBelowQuote: cfg.Loop.StopBelowQuote.Decimal,
		Alerts:         alerts,
	}
	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fatal(err.Error())
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

func buildAlertManager(cfg config.Config) *alert.Manager {
	tg := cfg.Observability.Telegram
	if !tg.Enabled {
		return nil
	}
	notifier := alert.NewTelegramNotifier(
		tg.Enabled,
		tg.BotToken,
		tg.ChatID,
		tg.APIBaseURL,
		time.Duration(tg.TimeoutSec)*time.Second,
	)
	return alert.NewManagerWithOptions(cfg.Symbol, cfg.Side, notifier, alert.ManagerOptions{
		DropReportInterval: time.Duration(cfg.Observability.Runtime.AlertDropReportSec) * time.Second,
	})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
