package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-sla/internal/api/http"
	"github.com/spec-kit/support-sla/internal/api/http/handlers"
	"github.com/spec-kit/support-sla/internal/auth"
	"github.com/spec-kit/support-sla/internal/clock"
	"github.com/spec-kit/support-sla/internal/config"
	"github.com/spec-kit/support-sla/internal/delivery"
	"github.com/spec-kit/support-sla/internal/events"
	"github.com/spec-kit/support-sla/internal/observability"
	"github.com/spec-kit/support-sla/internal/persistence"
	"github.com/spec-kit/support-sla/internal/repository"
	"github.com/spec-kit/support-sla/internal/service"
	"github.com/spec-kit/support-sla/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	conversationRepo := repository.NewConversationRepository(pool)
	observationRepo := repository.NewMetricObservationRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	pendingRepo := repository.NewPendingNotificationRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditSubscriber(service.NewAuditService(dispatcher, logger, metrics))

	systemClock := clock.System{}
	scheduler := service.NewNotificationScheduler(service.SchedulerDependencies{
		PendingRepo:     pendingRepo,
		Clock:           systemClock,
		Logger:          logger,
		Metrics:         metrics,
		DefaultHours:    cfg.SLA.DefaultWorkingHours,
		DefaultWorkDays: cfg.SLA.DefaultWorkDays,
	})
	conversationService := service.NewConversationService(service.ConversationDependencies{
		ConversationRepo: conversationRepo,
		ObservationRepo:  observationRepo,
		RoomRepo:         roomRepo,
		OrganizationRepo: orgRepo,
		MemberRepo:       memberRepo,
		Scheduler:        scheduler,
		Dispatcher:       dispatcher,
		Clock:            systemClock,
		Logger:           logger,
		SLA:              cfg.SLA,
	})
	slaService := service.NewSLAService(conversationService, cfg.SLA.SweepBatchSize)

	var sink delivery.Sink = delivery.NewLogSink(logger)
	if cfg.Notification.SlackBotToken != "" {
		sink = delivery.NewSlackSink(cfg.Notification.SlackBotToken, logger)
	}
	notificationWorker := worker.NewNotificationWorker(worker.NotificationWorkerDependencies{
		PendingRepo:      pendingRepo,
		ConversationRepo: conversationRepo,
		MemberRepo:       memberRepo,
		Sink:             sink,
		Clock:            systemClock,
		Logger:           logger,
		Metrics:          metrics,
		Config:           cfg.Notification,
	})
	lease := worker.NewLease(redis.Client, cfg.App.Name+":sla-sweep", cfg.SLA.SweepInterval(), logger)
	sweeper := worker.NewSLASweeper(slaService, lease, cfg.SLA.SweepInterval(), logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		notificationWorker.Run(ctx)
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, memberRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Conversations:  handlers.NewConversationsHandler(conversationService),
		Rooms:          handlers.NewRoomsHandler(conversationService),
		Admin:          handlers.NewAdminHandler(metrics, slaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
	wg.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
