package main

import (
	"chatguard/backend/internal/antispam"
	"chatguard/backend/internal/api/handler"
	"chatguard/backend/internal/chathub"
	"chatguard/backend/internal/config"
	"chatguard/backend/internal/localization"
	"chatguard/backend/internal/storage"
	"chatguard/backend/internal/telegram"
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	log.Println("Database and Redis connections established.")
	return db, rdb
}

func main() {
	log.Println("Starting ChatGuard Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)
	if err := s.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	localizer, err := localization.NewEmbeddedLocalizer()
	if err != nil {
		log.Fatalf("Failed to create localizer: %v", err)
	}

	// 2. Engine, optionally reporting to the staff Telegram chat
	opts := []antispam.Option{antispam.WithRegisterer(prometheus.DefaultRegisterer)}
	var botService *telegram.BotService
	if cfg.TelegramToken != "" {
		botService, err = telegram.NewBotService(cfg.TelegramToken, cfg.TelegramAdminChatID, nil, localizer)
		if err != nil {
			log.Fatalf("Failed to start Telegram bot: %v", err)
		}
		opts = append(opts, antispam.WithNotifier(botService.Notifier))
	} else {
		log.Println("WARNING: TELEGRAM_BOT_TOKEN is not set, admin notifications are disabled.")
	}
	engine := antispam.NewService(s, cfg.RateLimit, opts...)

	// 3. Background goroutines
	hub := chathub.NewManagerService(s)
	go hub.Run(ctx)
	if botService != nil {
		botService.Actions = engine
		go botService.Run(ctx)
	}

	// 4. Gin and routing
	r := gin.Default()
	r.Use(handler.NewMetrics(prometheus.DefaultRegisterer).Middleware())
	handler.NewHandler(engine, hub, localizer).RegisterRoutes(r, []byte(cfg.AdminJWTSecret))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: HTTP shutdown: %v", err)
		}
	}()

	log.Printf("INFO: Listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-hub.Done()
	log.Println("ChatGuard Backend stopped.")
}
