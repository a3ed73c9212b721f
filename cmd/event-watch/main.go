// Command event-watch prints event changes published by event-service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"event-in/internal/config"
	"event-in/internal/kafka"
	"event-in/internal/logger"
	"event-in/internal/notify"
	eventredis "event-in/internal/redis"
)

func main() {
	source := flag.String("source", "redis", "where to read changes from: redis or kafka")
	group := flag.String("group", "event-watch", "kafka consumer group")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{Level: logger.ParseLevel(cfg.Log.Level), Out: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	printChange := func(change notify.Change) {
		if err := enc.Encode(change); err != nil {
			log.Error("WATCH", fmt.Sprintf("Failed to print change: %v", err))
		}
	}

	switch *source {
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, *group, log)
		defer consumer.Close()
		if err := consumer.Start(ctx, printChange); err != nil {
			log.Fatal("KAFKA", err.Error())
		}

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		changes, err := eventredis.NewPublisher(client, cfg.Redis.Channel, log).Subscribe(ctx)
		if err != nil {
			log.Fatal("REDIS", err.Error())
		}
		log.Info("REDIS", fmt.Sprintf("Watching %s on %s", cfg.Redis.Channel, cfg.Redis.Addr))
		for change := range changes {
			printChange(change)
		}

	default:
		log.Fatal("WATCH", fmt.Sprintf("unknown source %q", *source))
	}
}
