package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type DepthSource string

const (
	DepthSourceREST      DepthSource = "rest"
	DepthSourceWebsocket DepthSource = "websocket"
)

type Config struct {
	Symbol        string              `yaml:"symbol"`
	Side          string              `yaml:"side"`
	QuoteCurrency string              `yaml:"quote_currency"`
	OrderQty      Decimal             `yaml:"order_qty"`
	Exchange      ExchangeConfig      `yaml:"exchange"`
	Depth         DepthConfig         `yaml:"depth"`
	Loop          LoopConfig          `yaml:"loop"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ExchangeConfig struct {
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	AccountID     string `yaml:"account_id"`
	RestBaseURL   string `yaml:"rest_base_url"`
	WSBaseURL     string `yaml:"ws_base_url"`
	HTTPTimeoutMs int64  `yaml:"http_timeout_ms"`
}

type DepthConfig struct {
	Source DepthSource `yaml:"source"`
	Type   string      `yaml:"type"`
	Levels int         `yaml:"levels"`
}

type LoopConfig struct {
	IntervalMs int64 `yaml:"interval_ms"`
	// StopBelowQuote > 0 turns the otherwise unbounded loop into one that
	// finishes once the refreshed quote balance drops below the threshold.
	StopBelowQuote Decimal `yaml:"stop_below_quote"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ObservabilityConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	APIBaseURL string `yaml:"api_base_url"`
	TimeoutSec int64  `yaml:"timeout_sec"`
}

type RuntimeConfig struct {
	AlertDropReportSec int64 `yaml:"alert_drop_report_sec"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv lets API_KEY/API_SECRET/ACCOUNT_ID override the YAML values so the
// file never has to contain credentials. A .env file is honored best-effort;
// real environment variables win either way. An empty credential is a
// valid-but-failing default: the exchange rejects the signed calls, the
// process does not abort.
func (c *Config) applyEnv() {
	_ = godotenv.Load()
	if v := os.Getenv("API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("ACCOUNT_ID"); v != "" {
		c.Exchange.AccountID = v
	}
}

func (c *Config) normalize() {
	c.Symbol = strings.ToLower(strings.TrimSpace(c.Symbol))
	c.Side = strings.ToLower(strings.TrimSpace(c.Side))
	c.QuoteCurrency = strings.ToLower(strings.TrimSpace(c.QuoteCurrency))
	c.Exchange.APIKey = strings.TrimSpace(c.Exchange.APIKey)
	c.Exchange.APISecret = strings.TrimSpace(c.Exchange.APISecret)
	c.Exchange.AccountID = strings.TrimSpace(c.Exchange.AccountID)
	c.Exchange.RestBaseURL = strings.TrimSpace(c.Exchange.RestBaseURL)
	c.Exchange.WSBaseURL = strings.TrimSpace(c.Exchange.WSBaseURL)
	c.Depth.Source = DepthSource(strings.ToLower(strings.TrimSpace(string(c.Depth.Source))))
	c.Depth.Type = strings.ToLower(strings.TrimSpace(c.Depth.Type))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Observability.Telegram.BotToken = strings.TrimSpace(c.Observability.Telegram.BotToken)
	c.Observability.Telegram.ChatID = strings.TrimSpace(c.Observability.Telegram.ChatID)
	c.Observability.Telegram.APIBaseURL = strings.TrimSpace(c.Observability.Telegram.APIBaseURL)
}

func (c *Config) applyDefaults() {
	if c.Side == "" {
		c.Side = "buy"
	}
	if c.QuoteCurrency == "" {
		c.QuoteCurrency = "usdt"
	}
	if c.Exchange.RestBaseURL == "" {
		c.Exchange.RestBaseURL = "https://api.huobi.pro"
	}
	if c.Exchange.WSBaseURL == "" {
		c.Exchange.WSBaseURL = "wss://api.huobi.pro/ws"
	}
	if c.Exchange.HTTPTimeoutMs == 0 {
		c.Exchange.HTTPTimeoutMs = 5000
	}
	if c.Depth.Source == "" {
		c.Depth.Source = DepthSourceREST
	}
	if c.Depth.Type == "" {
		c.Depth.Type = "step0"
	}
	if c.Depth.Levels == 0 {
		c.Depth.Levels = 5
	}
	if c.Loop.IntervalMs == 0 {
		c.Loop.IntervalMs = 2200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Observability.Telegram.APIBaseURL == "" {
		c.Observability.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Observability.Telegram.TimeoutSec == 0 {
		c.Observability.Telegram.TimeoutSec = 10
	}
	if c.Observability.Runtime.AlertDropReportSec == 0 {
		c.Observability.Runtime.AlertDropReportSec = 60
	}
}

func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !isValidSymbol(c.Symbol) {
		return fmt.Errorf("symbol must match [a-z0-9], length 4..20")
	}
	switch c.Side {
	case "buy":
	case "sell":
		return fmt.Errorf("side=sell is not supported: order placement is restricted to buy-limit")
	default:
		return fmt.Errorf("side must be buy")
	}
	if c.QuoteCurrency == "" {
		return fmt.Errorf("quote_currency is required")
	}
	if c.OrderQty.Cmp(decimal.Zero) < 0 {
		return fmt.Errorf("order_qty must be >= 0")
	}
	if err := validateURL(c.Exchange.RestBaseURL, "http", "https"); err != nil {
		return fmt.Errorf("exchange rest_base_url %v", err)
	}
	if c.Exchange.HTTPTimeoutMs < 1 || c.Exchange.HTTPTimeoutMs > 120000 {
		return fmt.Errorf("exchange http_timeout_ms must be between 1 and 120000")
	}
	switch c.Depth.Source {
	case DepthSourceREST:
	case DepthSourceWebsocket:
		if err := validateURL(c.Exchange.WSBaseURL, "ws", "wss"); err != nil {
			return fmt.Errorf("exchange ws_base_url %v", err)
		}
	default:
		return fmt.Errorf("depth source must be rest or websocket")
	}
	if !isValidDepthType(c.Depth.Type) {
		return fmt.Errorf("depth type must be step0..step5")
	}
	switch c.Depth.Levels {
	case 5, 10, 20:
	default:
		return fmt.Errorf("depth levels must be 5, 10, or 20")
	}
	if c.Loop.IntervalMs < 200 || c.Loop.IntervalMs > 600000 {
		return fmt.Errorf("loop interval_ms must be between 200 and 600000")
	}
	if c.Loop.StopBelowQuote.Cmp(decimal.Zero) < 0 {
		return fmt.Errorf("loop stop_below_quote must be >= 0")
	}
	if c.Observability.Runtime.AlertDropReportSec < 0 || c.Observability.Runtime.AlertDropReportSec > 3600 {
		return fmt.Errorf("observability.runtime.alert_drop_report_sec must be between 0 and 3600")
	}
	if c.Observability.Telegram.Enabled {
		if c.Observability.Telegram.BotToken == "" {
			return fmt.Errorf("observability.telegram.bot_token is required when telegram enabled")
		}
		if c.Observability.Telegram.ChatID == "" {
			return fmt.Errorf("observability.telegram.chat_id is required when telegram enabled")
		}
		if c.Observability.Telegram.TimeoutSec < 1 || c.Observability.Telegram.TimeoutSec > 120 {
			return fmt.Errorf("observability.telegram.timeout_sec must be between 1 and 120")
		}
		if err := validateURL(c.Observability.Telegram.APIBaseURL, "http", "https"); err != nil {
			return fmt.Errorf("observability.telegram.api_base_url %v", err)
		}
	}
	return nil
}

func isValidSymbol(v string) bool {
	if len(v) < 4 || len(v) > 20 {
		return false
	}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func isValidDepthType(v string) bool {
	if len(v) != 5 || !strings.HasPrefix(v, "step") {
		return false
	}
	return v[4] >= '0' && v[4] <= '5'
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
