package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pooyaostvoar/chess-mater/internal/config"
	"github.com/pooyaostvoar/chess-mater/internal/database"
	"github.com/pooyaostvoar/chess-mater/internal/handler"
	"github.com/pooyaostvoar/chess-mater/internal/middleware"
	"github.com/pooyaostvoar/chess-mater/internal/models"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
	"github.com/pooyaostvoar/chess-mater/internal/router"
	"github.com/pooyaostvoar/chess-mater/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Message{}, &models.PushSubscription{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		natsConn, err = nats.Connect(cfg.NatsURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	messageRepo := repository.NewMessageRepository(db)
	subscriptionRepo := repository.NewPushSubscriptionRepository(db)
	userRepo := repository.NewUserRepository(db)

	pusher := service.NewPushService(subscriptionRepo, service.VapidConfig{
		PublicKey:  cfg.VapidPublicKey,
		PrivateKey: cfg.VapidPrivateKey,
		Subject:    cfg.VapidSubject,
	}, logger)
	scheduler := service.NewPushScheduler(messageRepo, pusher, cfg.PushDebounceDelay, cfg.ChatLinkBase, logger)
	chatService := service.NewChatService(messageRepo, scheduler, redisClient, cfg.FanoutChannelBase, natsConn, validate, cfg.ChatHistoryLimit, logger)
	unreadService := service.NewUnreadService(messageRepo, userRepo, logger)

	sessionResolver := middleware.NewRedisSessionResolver(redisClient, cfg.SessionKeyPrefix)
	sessionGuard := middleware.SessionProtected(sessionResolver, cfg.SessionCookieName)

	chatHandler := handler.NewChatHandler(chatService, logger)
	messageHandler := handler.NewMessageHandler(unreadService, logger)
	pushHandler := handler.NewPushHandler(subscriptionRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ChatHandler:    chatHandler,
		MessageHandler: messageHandler,
		PushHandler:    pushHandler,
		SessionGuard:   sessionGuard,
	})

	serviceCtx, stopServices := context.WithCancel(context.Background())
	chatService.Start(serviceCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, scheduler, stopServices)
}

func waitForShutdown(app *fiber.App, scheduler *service.PushScheduler, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopServices()
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
