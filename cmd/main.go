package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/bounty-system/config"
	"github.com/Dosada05/bounty-system/db"
	"github.com/Dosada05/bounty-system/handlers"
	"github.com/Dosada05/bounty-system/realtime"
	"github.com/Dosada05/bounty-system/repositories"
	api "github.com/Dosada05/bounty-system/routes"
	"github.com/Dosada05/bounty-system/services"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Int("team_size", cfg.TeamSize),
		slog.Duration("cooldown", cfg.CooldownWindow),
		slog.String("sweep_cron", cfg.SweepCron))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tx := repositories.NewPostgresTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	bountyRepo := repositories.NewPostgresBountyRepository(dbConn)
	queueRepo := repositories.NewPostgresQueueRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	cooldownRepo := repositories.NewPostgresCooldownRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)

	// Инициализация сервисов
	clock := clockwork.NewRealClock()
	locker := services.NewBountyLocker()
	notificationService := services.NewNotificationService(notificationRepo, logger)
	cooldownService := services.NewCooldownService(cooldownRepo, tx, clock, cfg.CooldownWindow)
	formationEngine := services.NewFormationEngine(tx, bountyRepo, queueRepo, teamRepo, locker, wsHub, notificationService, logger)
	enrollmentService := services.NewEnrollmentService(
		bountyRepo,
		queueRepo,
		teamRepo,
		userRepo,
		cooldownService,
		formationEngine,
		wsHub,
		clock,
		logger,
	)
	bountyService := services.NewBountyService(
		tx,
		bountyRepo,
		queueRepo,
		teamRepo,
		userRepo,
		cooldownService,
		locker,
		wsHub,
		clock,
		cfg.TeamSize,
		logger,
	)
	logger.Info("Services initialized")

	// Планировщик истечения баунти
	sweepScheduler, err := services.NewSweepScheduler(ctx, bountyService, cfg.SweepCron, nil, logger)
	if err != nil {
		logger.Error("failed to create expiry scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	sweepScheduler.Start()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, cfg.ClientOrigins, api.Handlers{
		Bounty:     handlers.NewBountyHandler(bountyService),
		Enrollment: handlers.NewEnrollmentHandler(enrollmentService),
		Inbox:      handlers.NewInboxHandler(notificationService, cooldownService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, cfg.ClientOrigins, logger),
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не задаём: он рвал бы долгоживущие websocket-соединения.
		IdleTimeout: 120 * time.Second,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
	stop()

	if err := sweepScheduler.Shutdown(); err != nil {
		logger.Error("failed to stop expiry scheduler", slog.Any("error", err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
	} else {
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
