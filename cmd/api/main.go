package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"booklogger/api/internal/app"
	"booklogger/api/internal/auth"
	"booklogger/api/internal/billing"
	"booklogger/api/internal/chat"
	"booklogger/api/internal/cloudsync"
	"booklogger/api/internal/config"
	"booklogger/api/internal/email"
	"booklogger/api/internal/pdfcache"
	"booklogger/api/internal/revisions"
	"booklogger/api/internal/search"
	"booklogger/api/internal/store"
	"booklogger/api/internal/vault"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{MaxOpenConns: cfg.DBMaxConns})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	for _, name := range applied {
		log.Printf("applied migration %s", name)
	}

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		log.Fatalf("failed to create revisions dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAllFromPG(ctx)
	}

	deps := app.Deps{
		Store:     dataStore,
		Verifier:  auth.NewVerifier([]byte(cfg.JWTSecret)),
		Revisions: revisions.New(cfg.RevisionsDir),
		Search:    searchService,
		Uploader:  cloudsync.NewMinioUploader(),
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}),
	}

	// Rendered PDFs are cached in Redis when configured
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for rendered PDF cache (ttl %s)", cfg.PDFCacheTTL)
		pdfCache, err := pdfcache.NewRedisStore(cfg.RedisURL, cfg.PDFCacheTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer pdfCache.Close()
		deps.PDFCache = pdfCache
	} else {
		log.Printf("No REDIS_URL set, rendering PDFs on every request")
	}

	if strings.TrimSpace(cfg.SealingKey) != "" {
		cipher, err := vault.NewCipherFromHex(cfg.SealingKey)
		if err != nil {
			log.Fatalf("invalid sealing key: %v", err)
		}
		deps.Cipher = cipher
	} else {
		log.Printf("WARNING: BOOKLOGGER_SEALING_KEY not set, cloud sync disabled")
	}

	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		deps.Chat = chat.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}

	if checkout := billing.NewCheckout(cfg.StripeSecretKey, cfg.StripePriceID); checkout != nil {
		deps.Checkout = checkout
	} else {
		log.Printf("No STRIPE_SECRET_KEY or STRIPE_PRICE_ID set, checkout disabled")
	}

	service := app.New(cfg, deps)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("BookLogger API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
