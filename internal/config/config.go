package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Notify   NotifyConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Calendar CalendarConfig
	QR       QRConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
	MaxRetries   int
	RetryDelay   time.Duration
}

type LogConfig struct {
	Dir   string
	Level string
}

type NotifyConfig struct {
	// Backends is any combination of kafka, redis and sse.
	Backends []string
	Timeout  time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type RedisConfig struct {
	Addr    string
	Channel string
}

type CalendarConfig struct {
	TimeZone string
	Name     string
}

type QRConfig struct {
	Size int
}

type CORSConfig struct {
	MaxAge int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:          getEnv("DB_DSN", "file:event_in.db?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("AUTO_MIGRATE", true),
			MaxRetries:   getEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:   2 * time.Second,
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notify: NotifyConfig{
			Backends: getEnvList("NOTIFY_BACKENDS", nil),
			Timeout:  time.Duration(getEnvInt("NOTIFY_TIMEOUT_SECONDS", 3)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "event-in"),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Channel: getEnv("REDIS_CHANNEL", "event-in.events"),
		},
		Calendar: CalendarConfig{
			TimeZone: getEnv("APP_TIMEZONE", "Asia/Jakarta"),
			Name:     getEnv("CALENDAR_NAME", "Event-In"),
		},
		QR: QRConfig{
			Size: getEnvInt("QR_SIZE", 256),
		},
		CORS: CORSConfig{
			MaxAge: getEnvInt("CORS_MAX_AGE_SECONDS", 86400),
		},
	}
}

// NotifyEnabled reports whether backend is listed in NOTIFY_BACKENDS.
func (c *Config) NotifyEnabled(backend string) bool {
	for _, b := range c.Notify.Backends {
		if b == backend {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
