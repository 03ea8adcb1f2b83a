// Package main is the entry point for the timetable sync server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/msu-timetable/backend/internal/api"
	"github.com/msu-timetable/backend/internal/config"
	"github.com/msu-timetable/backend/internal/feed"
	"github.com/msu-timetable/backend/internal/notify"
	"github.com/msu-timetable/backend/internal/pipeline"
	"github.com/msu-timetable/backend/internal/scraper"
	"github.com/msu-timetable/backend/internal/snapshot"
	"github.com/msu-timetable/backend/internal/storage"
	"github.com/msu-timetable/backend/internal/subscriber"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to the YAML configuration file")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *healthCheck {
		if err := runHealthCheck(cfg.Listen); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	log.Printf("Starting timetable sync server (version: %s)...", version)

	loc := cfg.Location()
	groups := pipeline.GroupsFromNames(cfg.Groups)

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", cfg.DataRoot, err)
	}

	snapshots, err := snapshot.NewStore(cfg.DataRoot)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	publisher, err := feed.NewPublisher(cfg.DataRoot, loc)
	if err != nil {
		log.Fatalf("Failed to open feed publisher: %v", err)
	}

	store, err := subscriber.Open(cfg.Storage.DatabasePath, cfg.Storage.PersistDir)
	if err != nil {
		log.Fatalf("Failed to open subscriber store: %v", err)
	}
	var db *storage.DB
	if sqlStore, ok := store.(*subscriber.SQLStore); ok {
		db = sqlStore.DB()
		defer db.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telegram is optional; without it the pipeline still publishes feeds.
	var broadcaster *notify.Broadcaster
	var bot *notify.Bot
	if cfg.Telegram.Enabled {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("Failed to connect to Telegram: %v", err)
		}
		sender := notify.NewTelegramSender(botAPI)
		broadcaster = notify.NewBroadcaster(store, sender, cfg.Telegram.AdminChatID, cfg.Telegram.FutureOnly)

		groupNames := make(map[string]string, len(groups))
		for _, g := range groups {
			groupNames[g.ID] = g.Name
		}
		bot = notify.NewBot(botAPI, store, snapshots, groupNames, loc)
		go bot.Run(ctx)
	}

	source := scraper.NewHTTPSource(cfg.ScrapeURL, cfg.ScrapeTimeout.Std())
	syncService := pipeline.NewSyncService(source, snapshots, publisher, broadcaster, groups, loc)
	scheduler := pipeline.NewScheduler(syncService, broadcaster, groups, cfg.SyncInterval.Std())

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	router := api.NewRouter(cfg.DataRoot, cfg.BasePath, loc, db, scheduler)
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
