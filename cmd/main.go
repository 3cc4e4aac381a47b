package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"betmarkets/internal/auth"
	"betmarkets/internal/config"
	"betmarkets/internal/engine"
	"betmarkets/internal/escrow"
	"betmarkets/internal/events"
	"betmarkets/internal/handlers"
	"betmarkets/internal/service"
	"betmarkets/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("MARKETD_CONFIG"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Opening database at: %s", cfg.Database.Path)
	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ledger, err := escrow.NewLedger(store, []byte(cfg.Vault.Key))
	if err != nil {
		log.Fatalf("Failed to create ledger: %v", err)
	}

	// Event observers: WebSocket hub always, Telegram when configured
	hub := events.NewHub()
	go hub.Run()

	notifiers := events.Multi{hub}
	if cfg.Telegram.BotToken != "" {
		tg, err := events.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChannelID)
		if err != nil {
			log.Fatalf("Failed to create telegram notifier: %v", err)
		}
		notifiers = append(notifiers, tg)
	}

	eng := engine.New(store, ledger, notifiers, []byte(cfg.Vault.Key))

	// Bootstrap the registry once per deployment
	if cfg.Registry.Authority != 0 {
		err := eng.Initialize(context.Background(), cfg.Registry.Authority)
		if err != nil && !errors.Is(err, engine.ErrAlreadyInitialized) {
			log.Fatalf("Failed to initialize registry: %v", err)
		}
	}

	// Deadline worker reminds creators when their markets await resolution
	if cfg.Worker.Enabled {
		worker := service.NewDeadlineWorker(store, notifiers, cfg.Worker.Interval)
		worker.Start()
		defer worker.Stop()
	}

	api := &handlers.API{
		Engine:         eng,
		Ledger:         ledger,
		OpeningBalance: cfg.Ledger.OpeningBalance,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ping", api.HandlePing)
	mux.HandleFunc("GET /api/me", api.HandleMe)
	mux.HandleFunc("POST /api/markets", api.HandleCreateMarket)
	mux.HandleFunc("GET /api/markets", api.HandleListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", api.HandleGetMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", api.HandleResolveMarket)
	mux.HandleFunc("POST /api/bets", api.HandlePlaceBet)
	mux.HandleFunc("POST /api/claims", api.HandleClaim)
	mux.HandleFunc("/ws", hub.ServeWS)

	handler := auth.Middleware([]byte(cfg.Auth.Secret), mux)

	log.Printf("Server starting on %s", cfg.Server.Addr)
	go func() {
		if err := http.ListenAndServe(cfg.Server.Addr, handler); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}
