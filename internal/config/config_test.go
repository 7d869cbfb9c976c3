//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: 9090
log:
  level: debug
database:
  url: postgres://localhost/billing
payment:
  provider: razorpay
  key_id: rzp_test_123
  timeout: 5s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("should overlay secrets from env and apply defaults", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "jwt")
		t.Setenv("PAYMENT_KEY_SECRET", "ks")
		t.Setenv("PAYMENT_WEBHOOK_SECRET", "ws")

		cfg, err := LoadConfig(writeConfig(t, sampleYAML), false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", cfg.Server.Port)
		}
		if cfg.Payment.KeySecret != "ks" || cfg.Payment.WebhookSecret != "ws" {
			t.Error("expected payment secrets from env")
		}
		if cfg.Payment.Timeout != 5*time.Second {
			t.Errorf("expected 5s provider timeout, got %v", cfg.Payment.Timeout)
		}
		if cfg.Redis.TTL != time.Hour {
			t.Errorf("expected default redis ttl 1h, got %v", cfg.Redis.TTL)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("expected default json log format, got %s", cfg.Log.Format)
		}
	})

	t.Run("should ignore secrets written in yaml", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "jwt")
		t.Setenv("PAYMENT_KEY_SECRET", "")
		t.Setenv("PAYMENT_WEBHOOK_SECRET", "ws")
		body := sampleYAML + "  key_secret: from-yaml\n"

		_, err := LoadConfig(writeConfig(t, body), false)
		if err == nil || !strings.Contains(err.Error(), "PAYMENT_KEY_SECRET") {
			t.Fatalf("expected missing key secret error, got %v", err)
		}
	})

	t.Run("should reject the fake provider outside dev mode", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "jwt")
		body := strings.Replace(sampleYAML, "provider: razorpay", "provider: fake", 1)

		if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
			t.Fatal("expected error for fake provider without -dev")
		}
		if _, err := LoadConfig(writeConfig(t, body), true); err != nil {
			t.Fatalf("expected fake provider to load in dev, got %v", err)
		}
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Fatal("expected an error")
		}
	})
}
