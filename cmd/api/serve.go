package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/mmaxwell0637/safetrack-fe/internal/api/http"
	"github.com/mmaxwell0637/safetrack-fe/internal/api/http/handlers"
	"github.com/mmaxwell0637/safetrack-fe/internal/config"
	"github.com/mmaxwell0637/safetrack-fe/internal/events"
	"github.com/mmaxwell0637/safetrack-fe/internal/messaging"
	"github.com/mmaxwell0637/safetrack-fe/internal/observability"
	"github.com/mmaxwell0637/safetrack-fe/internal/persistence"
	"github.com/mmaxwell0637/safetrack-fe/internal/repository"
	"github.com/mmaxwell0637/safetrack-fe/internal/repository/memory"
	"github.com/mmaxwell0637/safetrack-fe/internal/service"
	"github.com/mmaxwell0637/safetrack-fe/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Start the SafeTrack HTTP server. Without POSTGRES_DSN tickets are kept in process memory.`,
		RunE:  runServe,
	}
}

type repositories struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	counters repository.CounterRepository
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if pool := pg.PoolHandle(); pool != nil {
		return repositories{
			tickets:  repository.NewTicketRepository(pool),
			comments: repository.NewCommentRepository(pool),
			counters: repository.NewCounterRepository(pool),
		}
	}
	return repositories{
		tickets:  memory.NewTicketRepository(nil),
		comments: memory.NewCommentRepository(nil),
		counters: memory.NewCounterRepository(),
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if pool := pg.PoolHandle(); pool != nil && cfg.Postgres.RunMigrations {
		migrator, err := persistence.NewMigrator(pool, logger)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	repos := buildRepositories(pg)
	dispatcher := events.NewInMemoryDispatcher()

	var publisher service.EventPublisher
	var relay *worker.NotificationWorker
	if cfg.Notification.AMQPURL != "" {
		amqpPublisher, err := messaging.NewPublisher(cfg.Notification.AMQPURL, cfg.Notification.Exchange)
		if err != nil {
			logger.Warn("amqp unavailable; ticket events will only be logged", zap.Error(err))
		} else {
			defer amqpPublisher.Close() //nolint:errcheck
			relay = worker.NewNotificationWorker(amqpPublisher, 256, 5*time.Second, logger)
			publisher = relay
		}
	}
	notificationService := service.NewNotificationService(dispatcher, publisher, logger)
	worker.StartNotificationWorker(notificationService, relay)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		CounterRepo: repos.counters,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	var checks []handlers.DependencyCheck
	var limiterStorage fiber.Storage
	if pg.PoolHandle() != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping})
	}
	if redisConn != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redisConn.Ping})
		limiterStorage = httptransport.NewRedisStorage(redisConn.Client, cfg.Redis.KeyPrefix)
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(httptransport.AppConfig{
		Name: cfg.App.Name,
		Middlewares: httptransport.MiddlewareConfig{
			Logger:         logger,
			Metrics:        metrics,
			HTTP:           cfg.HTTP,
			LimiterStorage: limiterStorage,
		},
		Routes: httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
			Tickets: handlers.NewTicketsHandler(ticketService),
			Metrics: handlers.NewMetricsHandler(metrics),
		},
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.Bool("in_memory", cfg.Postgres.InMemory()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if relay != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := relay.Stop(drainCtx); err != nil {
			logger.Warn("notification relay did not drain", zap.Error(err))
		}
	}
	return nil
}
