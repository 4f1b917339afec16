package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
symbol: btcusdt
exchange:
  api_key: k
  api_secret: s
  account_id: "12345"
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Side != "buy" {
		t.Fatalf("default side = %q, want buy", cfg.Side)
	}
	if cfg.QuoteCurrency != "usdt" {
		t.Fatalf("default quote_currency = %q, want usdt", cfg.QuoteCurrency)
	}
	if cfg.Exchange.RestBaseURL != "https://api.huobi.pro" {
		t.Fatalf("default rest_base_url = %q", cfg.Exchange.RestBaseURL)
	}
	if cfg.Exchange.HTTPTimeoutMs != 5000 {
		t.Fatalf("default http_timeout_ms = %d, want 5000", cfg.Exchange.HTTPTimeoutMs)
	}
	if cfg.Depth.Source != DepthSourceREST || cfg.Depth.Type != "step0" || cfg.Depth.Levels != 5 {
		t.Fatalf("default depth = %+v", cfg.Depth)
	}
	if cfg.Loop.IntervalMs != 2200 {
		t.Fatalf("default interval_ms = %d, want 2200", cfg.Loop.IntervalMs)
	}
	if !cfg.Loop.StopBelowQuote.IsZero() {
		t.Fatalf("default stop_below_quote = %s, want 0", cfg.Loop.StopBelowQuote)
	}
}

func TestLoadNormalizesCase(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
symbol: "  BTCUSDT "
side: BUY
quote_currency: USDT
exchange:
  api_key: k
  api_secret: s
  account_id: "12345"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Symbol != "btcusdt" {
		t.Fatalf("symbol = %q, want btcusdt", cfg.Symbol)
	}
	if cfg.Side != "buy" {
		t.Fatalf("side = %q, want buy", cfg.Side)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"\nbogus_field: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"\n---\nsymbol: ethusdt\n"))
	if err == nil {
		t.Fatal("expected error for multiple documents")
	}
}

func TestLoadRejectsSellSide(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"side: sell\n"))
	if err == nil {
		t.Fatal("expected error for side=sell")
	}
	if !strings.Contains(err.Error(), "buy-limit") {
		t.Fatalf("error should explain the buy-limit restriction, got: %v", err)
	}
}

func TestLoadRejectsBadRestURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
symbol: btcusdt
exchange:
  api_key: k
  api_secret: s
  account_id: "12345"
  rest_base_url: "host-without-scheme"
`))
	if err == nil {
		t.Fatal("expected error for malformed rest_base_url")
	}
}

func TestLoadWebsocketSourceRequiresWSURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
symbol: btcusdt
depth:
  source: websocket
exchange:
  api_key: k
  api_secret: s
  account_id: "12345"
  ws_base_url: "https://wrong-scheme.example"
`))
	if err == nil {
		t.Fatal("expected error for ws_base_url with http scheme")
	}
}

func TestLoadEmptyCredentialsAllowed(t *testing.T) {
	// Missing keys are a valid configuration: the signed calls fail at the
	// exchange, not at startup.
	cfg, err := Load(writeConfig(t, "symbol: btcusdt\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.APIKey != "" && os.Getenv("API_KEY") == "" {
		t.Fatalf("api_key = %q, want empty", cfg.Exchange.APIKey)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_KEY", "env-key")
	t.Setenv("API_SECRET", "env-secret")
	t.Setenv("ACCOUNT_ID", "99999")
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" {
		t.Fatalf("api_key = %q, want env-key", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.AccountID != "99999" {
		t.Fatalf("account_id = %q, want 99999", cfg.Exchange.AccountID)
	}
}

func TestLoadOrderQty(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+"order_qty: \"3.456\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OrderQty.String() != "3.456" {
		t.Fatalf("order_qty = %s, want 3.456", cfg.OrderQty)
	}
	if _, err := Load(writeConfig(t, minimalConfig+"order_qty: \"-1\"\n")); err == nil {
		t.Fatal("expected error for negative order_qty")
	}
}

func TestLoadRejectsBadDepth(t *testing.T) {
	if _, err := Load(writeConfig(t, minimalConfig+"depth:\n  type: step9\n")); err == nil {
		t.Fatal("expected error for depth type step9")
	}
	if _, err := Load(writeConfig(t, minimalConfig+"depth:\n  levels: 7\n")); err == nil {
		t.Fatal("expected error for depth levels 7")
	}
}

func TestLoadTelegramValidation(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
observability:
  telegram:
    enabled: true
`))
	if err == nil {
		t.Fatal("expected error for telegram enabled without bot_token")
	}
}
