package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dokianime/handlers"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every API response with a request id, reusing the
// caller's id when one is supplied.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(handlers.RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(handlers.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func accessLogMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			logger.Info("api request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"request_id", w.Header().Get(handlers.RequestIDHeader),
			)
		})
	}
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Options carries the optional collaborators of Register.
type Options struct {
	Logger *slog.Logger
	// Metrics, when set, is mounted at MetricsPath.
	Metrics     http.Handler
	MetricsPath string
}

// Register mounts the gateway endpoints onto the provided router. The shell
// handler is mounted last and answers every GET nothing else matched.
func Register(r *mux.Router, catalogHandler *handlers.CatalogHandler, shellHandler http.Handler, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, opts.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requestIDMiddleware)
	api.Use(accessLogMiddleware(logger.With("component", "api")))
	api.Use(corsMiddleware)

	api.HandleFunc("/recent", catalogHandler.Recent).Methods(http.MethodGet)
	api.HandleFunc("/recent", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/search", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/search", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/details/{id}", catalogHandler.Details).Methods(http.MethodGet)
	api.HandleFunc("/details/{id}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/stream/{episodeId}", catalogHandler.Stream).Methods(http.MethodGet)
	api.HandleFunc("/stream/{episodeId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/stream/{animeId}/{episodeId}", catalogHandler.StreamParts).Methods(http.MethodGet)
	api.HandleFunc("/stream/{animeId}/{episodeId}", handleOptions).Methods(http.MethodOptions)

	if shellHandler != nil {
		r.PathPrefix("/").Handler(shellHandler).Methods(http.MethodGet, http.MethodHead)
	}
}
