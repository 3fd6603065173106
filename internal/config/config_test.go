package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("BOOKLOGGER_PDF_CACHE_TTL_SECONDS", "")
	t.Setenv("REDIS_URL", "")

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.PDFCacheTTL != 24*time.Hour {
		t.Fatalf("PDFCacheTTL = %v", cfg.PDFCacheTTL)
	}
	if cfg.RedisURL != "" {
		t.Fatalf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("BOOKLOGGER_PDF_CACHE_TTL_SECONDS", "60")
	t.Setenv("BOOKLOGGER_CHAT_MAX_ENTRIES", "not-a-number")
	t.Setenv("BOOKLOGGER_DB_MAX_CONNS", "5")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PRICE_ID", "price_pro")

	cfg := Load()
	if cfg.Addr != ":9000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.PDFCacheTTL != time.Minute {
		t.Fatalf("PDFCacheTTL = %v", cfg.PDFCacheTTL)
	}
	if cfg.ChatMaxEntries != 60 {
		t.Fatalf("ChatMaxEntries = %d, want fallback 60", cfg.ChatMaxEntries)
	}
	if cfg.DBMaxConns != 5 {
		t.Fatalf("DBMaxConns = %d, want 5", cfg.DBMaxConns)
	}
	if cfg.StripeSecretKey != "sk_test_123" || cfg.StripePriceID != "price_pro" {
		t.Fatalf("Stripe checkout = %q %q", cfg.StripeSecretKey, cfg.StripePriceID)
	}
}
