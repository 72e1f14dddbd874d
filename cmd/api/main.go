package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/dormdesk/maintenance-service/internal/api/http"
	"github.com/dormdesk/maintenance-service/internal/api/http/handlers"
	"github.com/dormdesk/maintenance-service/internal/auth"
	"github.com/dormdesk/maintenance-service/internal/config"
	"github.com/dormdesk/maintenance-service/internal/events"
	"github.com/dormdesk/maintenance-service/internal/observability"
	"github.com/dormdesk/maintenance-service/internal/persistence"
	"github.com/dormdesk/maintenance-service/internal/repository"
	"github.com/dormdesk/maintenance-service/internal/service"
	"github.com/dormdesk/maintenance-service/internal/storage"
	"github.com/dormdesk/maintenance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	uploads, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init upload store", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(*cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	})
	messageService := service.NewMessageService(messageRepo, ticketRepo, dispatcher)
	reportService := service.NewReportService(reportRepo, userRepo, redis, cfg.Redis.RatingsCacheTTL(), logger)
	reportService.RegisterInvalidation(dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	app.Static(cfg.Storage.PublicPath, uploads.Dir())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, messageService, uploads),
		Users:          handlers.NewUsersHandler(userService, uploads),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
