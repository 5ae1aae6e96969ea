package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/api"
	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/handlers"
	"github.com/subgate/subgate-bot/internal/middleware"
	"github.com/subgate/subgate-bot/internal/notify"
	"github.com/subgate/subgate-bot/internal/payments"
	"github.com/subgate/subgate-bot/internal/plans"
	"github.com/subgate/subgate-bot/internal/ratelimit"
	"github.com/subgate/subgate-bot/internal/receipts"
	"github.com/subgate/subgate-bot/internal/workflow"
	"github.com/subgate/subgate-bot/store"
)

func main() {
	_ = config.LoadEnvFile("config.env")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := config.FromEnv()

	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	redisDBStr := os.Getenv("REDIS_DB")
	redisDB := 0
	if redisDBStr != "" {
		var err error
		redisDB, err = strconv.Atoi(redisDBStr)
		if err != nil {
			log.Printf("Invalid REDIS_DB value, using default: 0")
			redisDB = 0
		}
	}

	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort)
	rdb, err := store.NewRedisClient(redisAddr, redisPassword, redisDB, "subgate")
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	sessionStore := store.NewRedisSessionStore(rdb, 24)
	limiter := ratelimit.NewLimiter(rdb)

	pgStore, err := store.NewPostgresStore(ctx, os.Getenv("POSTGRES_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	receiptStorage, err := receipts.NewStorage(cfg.ReceiptsDir, cfg.ReceiptsBaseURL)
	if err != nil {
		log.Fatalf("Failed to prepare receipts directory: %v", err)
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable is required")
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	pollTimeout := 50 * time.Second

	b, err := bot.New(
		botToken,
		bot.WithHTTPClient(pollTimeout, httpClient),
	)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	channel := notify.NewTelegramChannel(b)
	catalog := plans.NewCatalog(pgStore, time.Duration(cfg.PlanCacheSeconds)*time.Second)
	router := payments.NewRouter(cfg)

	paymentFlow := workflow.NewPaymentWorkflow(pgStore, sessionStore, catalog, router, receiptStorage, cfg)
	ticketFlow := workflow.NewTicketWorkflow(pgStore, sessionStore, limiter, cfg)
	adjudicator := workflow.NewAdjudicator(pgStore, channel, channel, cfg)

	h := handlers.NewHandlers(sessionStore, pgStore, catalog, paymentFlow, ticketFlow, adjudicator, limiter, cfg)
	middlewares := middleware.NewMessageAnalyzer(sessionStore, pgStore, limiter, cfg)

	handlerChain := middlewares.SessionMiddleware(
		middlewares.RateLimitMiddleware(
			middlewares.AnalyzeMessageMiddleware(
				h.MainHandler,
			),
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	apiServer := api.NewServer(pgStore, receiptStorage.Dir(), cfg)
	httpServer := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: apiServer.Router(),
	}
	go func() {
		log.Printf("Staff API listening on %s", cfg.APIAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Staff API failed: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	b.Start(ctx)
}
