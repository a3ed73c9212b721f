package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"event-in/internal/calendar"
	"event-in/internal/config"
	"event-in/internal/database"
	"event-in/internal/database/migrations"
	"event-in/internal/events/db"
	"event-in/internal/events/event_api"
	"event-in/internal/events/service"
	"event-in/internal/kafka"
	"event-in/internal/logger"
	"event-in/internal/notify"
	"event-in/internal/qr"
	eventredis "event-in/internal/redis"
	"event-in/internal/server"
	"event-in/internal/sse"
	"event-in/web"
)

var version = "dev"

// buildNotifiers returns the configured backends and a func closing them.
func buildNotifiers(ctx context.Context, cfg *config.Config, broadcaster *sse.Broadcaster, log *logger.Logger) (notify.Notifier, func()) {
	var notifiers notify.Multi
	var closers []func()

	if cfg.NotifyEnabled("kafka") {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, kafka.Topics(cfg.Kafka.TopicPrefix), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, log)
		notifiers = append(notifiers, producer)
		closers = append(closers, func() { producer.Close() })
		log.Info("KAFKA", "Kafka producer initialized")
	}

	if cfg.NotifyEnabled("redis") {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis not reachable at %s: %v", cfg.Redis.Addr, err))
		} else {
			log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
		}
		notifiers = append(notifiers, eventredis.NewPublisher(client, cfg.Redis.Channel, log))
		closers = append(closers, func() { client.Close() })
	}

	if cfg.NotifyEnabled("sse") {
		notifiers = append(notifiers, broadcaster)
		log.Info("SSE", "Change stream enabled at /api/events/stream")
	}

	for _, b := range cfg.Notify.Backends {
		switch b {
		case "kafka", "redis", "sse":
		default:
			log.Warn("CONFIG", fmt.Sprintf("Unknown notify backend %q ignored", b))
		}
	}

	return notifiers, func() {
		for _, c := range closers {
			c()
		}
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{
		Dir:     cfg.Log.Dir,
		Service: server.ServiceName,
		Level:   logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", fmt.Sprintf("Starting Event-In %s", version))
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, cfg.Database.Driver, log)
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
	}

	loc, err := time.LoadLocation(cfg.Calendar.TimeZone)
	if err != nil {
		log.Warn("CONFIG", fmt.Sprintf("Unknown time zone %q, using UTC: %v", cfg.Calendar.TimeZone, err))
		loc = time.UTC
	}

	broadcaster := sse.NewBroadcaster()
	notifier, closeNotifiers := buildNotifiers(ctx, cfg, broadcaster, log)
	defer closeNotifiers()

	store := &db.DB{Bun: bunDB}
	eventService := service.NewEventService(store, notifier, log)
	eventService.NotifyTimeout = cfg.Notify.Timeout
	events := event_api.NewHandler(
		eventService,
		calendar.NewExporter(loc, cfg.Calendar.Name, version),
		qr.NewGenerator(cfg.QR.Size),
		event_api.NewStreamHandler(log, broadcaster),
		log,
	)

	log.Info("HTTP", "Setting up router and middleware")
	r := server.NewRouter(server.Options{
		Config: cfg.CORS,
		Events: events,
		DB:     store,
		Web:    web.Handler(),
		Logger: log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	srv.RegisterOnShutdown(broadcaster.Close)

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Event-In running on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Event-In shutdown complete")
	}
}
