package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

const minimalConfig = `
api:
  quote_ws_url: "wss://openapi-quote.example.com/v2"
  rest_url: "https://openapi.example.com"
  instruments:
    - "700.HK"
`

func TestLoadConfig(t *testing.T) {
	t.Setenv("LONGBRIDGE_APP_KEY", "key-123")
	t.Setenv("LONGBRIDGE_APP_SECRET", "secret-456")
	t.Setenv("LONGBRIDGE_ACCESS_TOKEN", "token-789")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	t.Run("explicit values kept", func(t *testing.T) {
		if cfg.API.QuoteWSURL != "wss://openapi-quote.example.com/v2" {
			t.Errorf("unexpected WS URL %q", cfg.API.QuoteWSURL)
		}
		if len(cfg.API.Instruments) != 1 || cfg.API.Instruments[0] != "700.HK" {
			t.Errorf("unexpected instruments %v", cfg.API.Instruments)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		if cfg.RateLimit.TokensPerSecond != 10 || cfg.RateLimit.Burst != 20 {
			t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
		}
		if cfg.Render.MinIntervalMS != 16 {
			t.Errorf("unexpected render default: %d", cfg.Render.MinIntervalMS)
		}
		if cfg.Alerts.CooldownSeconds != 30 {
			t.Errorf("unexpected cooldown default: %d", cfg.Alerts.CooldownSeconds)
		}
		if cfg.Workspace.SaveTimeoutMS != 2000 {
			t.Errorf("unexpected save timeout default: %d", cfg.Workspace.SaveTimeoutMS)
		}
		if cfg.Logging.Dir != "logs" {
			t.Errorf("unexpected log dir default: %q", cfg.Logging.Dir)
		}
	})

	t.Run("credentials from environment", func(t *testing.T) {
		if cfg.Credentials.AppKey != "key-123" ||
			cfg.Credentials.AppSecret != "secret-456" ||
			cfg.Credentials.AccessToken != "token-789" {
			t.Errorf("credentials not read from env: %+v", cfg.Credentials)
		}
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing ws url",
			body: `
api:
  rest_url: "https://openapi.example.com"
  instruments: ["700.HK"]
`,
		},
		{
			name: "http scheme on ws url",
			body: `
api:
  quote_ws_url: "https://openapi-quote.example.com/v2"
  rest_url: "https://openapi.example.com"
  instruments: ["700.HK"]
`,
		},
		{
			name: "no instruments",
			body: `
api:
  quote_ws_url: "wss://openapi-quote.example.com/v2"
  rest_url: "https://openapi.example.com"
  instruments: []
`,
		},
		{
			name: "negative rate limit",
			body: `
api:
  quote_ws_url: "wss://openapi-quote.example.com/v2"
  rest_url: "https://openapi.example.com"
  instruments: ["700.HK"]
rate_limit:
  tokens_per_second: -1
`,
		},
		{
			name: "not yaml",
			body: `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
