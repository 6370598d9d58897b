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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/config"
	"github.com/noah-isme/gema-rubric-api/internal/database"
	"github.com/noah-isme/gema-rubric-api/internal/handler"
	"github.com/noah-isme/gema-rubric-api/internal/middleware"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
	"github.com/noah-isme/gema-rubric-api/internal/router"
	"github.com/noah-isme/gema-rubric-api/internal/service"
	"github.com/noah-isme/gema-rubric-api/internal/staging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, publishing events to redis only")
		natsConn = nil
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	metricRepo := repository.NewMetricRepository(db)
	metricLogRepo := repository.NewMetricLogRepository(db)
	store := staging.NewRedisStore(redisClient, cfg.StagingTTL)

	events := service.NewRubricEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger)
	rubricService := service.NewRubricService(metricRepo, store, events, validate, cfg.MaxUploadMB, logger)
	metricService := service.NewMetricService(metricRepo, logger)
	metricLogService := service.NewMetricLogService(metricLogRepo, logger)

	rubricHandler := handler.NewRubricHandler(rubricService, validate, handler.RubricUploadLimit{
		Max:    cfg.UploadRateLimit,
		Window: cfg.UploadRateWindow,
	}, logger)
	metricHandler := handler.NewMetricHandler(metricService, metricLogService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.BodyLimit(),
	})

	middleware.Register(app, middleware.Config{Logger: &logger, ObservedPrefix: "/api/v2"})
	router.Register(app, cfg, router.Dependencies{
		RubricHandler: rubricHandler,
		MetricHandler: metricHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:  healthProbes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) []handler.HealthProbe {
	probes := []handler.HealthProbe{
		{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	}
	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: func(ctx context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}})
	}
	return probes
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
