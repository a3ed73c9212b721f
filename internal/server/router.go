package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"event-in/internal/config"
	"event-in/internal/events/event_api"
	"event-in/internal/logger"
	"event-in/internal/utils"
)

const ServiceName = "event-in"

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Config  config.CORSConfig
	Events  *event_api.Handler
	DB      Pinger
	Web     http.Handler
	Logger  *logger.Logger
	Timeout time.Duration
}

// NewRouter wires middleware, the event API, health and the web UI.
func NewRouter(opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(Cors(opts.Config))
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(event_api.MethodNotAllowed)

	opts.Events.RegisterRoutes(r)
	opts.Logger.Info("ROUTER", "Event routes registered under /api/events")

	r.Get("/health", Health(opts.DB, opts.Timeout))

	if opts.Web != nil {
		r.Handle("/*", opts.Web)
		opts.Logger.Info("ROUTER", "Web client served at /")
	}
	return r
}

// Cors allows every origin with credentials and echoes requested headers.
func Cors(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
}

// RequestLogger logs one line per request and tags it with X-Request-ID.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.LogAPI(r.Method, r.URL.Path, status, time.Since(start), requestID)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

// Health pings the database; 503 when it does not answer.
func Health(db Pinger, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:  "unavailable",
				Service: ServiceName,
				Error:   fmt.Sprintf("database: %v", err),
			})
			return
		}
		utils.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: ServiceName})
	}
}
